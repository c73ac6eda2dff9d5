package backend

import (
	"fmt"
	"os/exec"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// minGitVersion is the oldest git whose log understands "--no-walk=unsorted",
// "%(upstream:short)" and "%D".
var minGitVersion = gitVersion{2, 23, 0}

// versionPattern takes the first dotted number, so vendor decorations like
// "(Apple Git-146)" or ".windows.1" fall outside the match.
var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// gitVersion is a major, minor, patch triple.
type gitVersion [3]int

func (v gitVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

func (v gitVersion) atLeast(other gitVersion) bool {
	return slices.Compare(v[:], other[:]) >= 0
}

func MinGitVersion() string {
	return minGitVersion.String()
}

func parseGitVersion(out string) (gitVersion, error) {
	m := versionPattern.FindStringSubmatch(out)
	if m == nil {
		return gitVersion{}, fmt.Errorf("unable to parse git version output: %q", strings.TrimSpace(out))
	}
	var v gitVersion
	for i, field := range m[1:] {
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return gitVersion{}, fmt.Errorf("git version %q: %w", m[0], err)
		}
		v[i] = n
	}
	return v, nil
}

// checkGitVersion parses out and rejects gits older than minGitVersion.
func checkGitVersion(out string) (gitVersion, error) {
	v, err := parseGitVersion(out)
	if err != nil {
		return v, err
	}
	if !v.atLeast(minGitVersion) {
		return v, fmt.Errorf("git %s is too old; gitk-sync requires git >= %s", v, minGitVersion)
	}
	return v, nil
}

// versionCheck holds the "--version" output of one binary, read at most once
// per process.
type versionCheck struct {
	once sync.Once
	out  string
	err  error
}

var versionChecks sync.Map // binary -> *versionCheck

func lookupVersion(binary string) *versionCheck {
	v, _ := versionChecks.LoadOrStore(binary, &versionCheck{})
	c := v.(*versionCheck)
	c.once.Do(func() {
		raw, err := exec.Command(binary, "--version").CombinedOutput()
		c.out = strings.TrimSpace(string(raw))
		switch {
		case err != nil && c.out != "":
			c.err = fmt.Errorf("%s --version: %w: %s", binary, err, c.out)
		case err != nil:
			c.err = fmt.Errorf("%s --version: %w", binary, err)
		default:
			_, c.err = parseGitVersion(c.out)
		}
	})
	return c
}

// GitVersion returns the "--version" output of binary, even when it is older
// than MinGitVersion.
func GitVersion(binary string) (string, error) {
	c := lookupVersion(binary)
	return c.out, c.err
}

func ensureMinGitVersion(binary string) error {
	c := lookupVersion(binary)
	if c.err != nil {
		return c.err
	}
	_, err := checkGitVersion(c.out)
	return err
}
