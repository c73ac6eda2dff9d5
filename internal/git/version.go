package git

import "github.com/thiagokokada/gitk-sync/internal/git/backend"

// GitVersion reports the version of the git executable at binary.
func GitVersion(binary string) (string, error) {
	return backend.GitVersion(binary)
}

func MinGitVersion() string {
	return backend.MinGitVersion()
}
