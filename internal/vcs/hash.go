package vcs

import (
	"fmt"
	"strings"
)

const shortHashLen = 7

// Hash identifies a commit. The zero value is the empty hash.
type Hash string

// ParseHash validates a hexadecimal object id and returns its canonical
// lowercase form.
func ParseHash(s string) (Hash, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("empty hash")
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("invalid hash %q", s)
		}
	}
	return Hash(s), nil
}

func (h Hash) String() string {
	return string(h)
}

// Short returns the abbreviated form used for display.
func (h Hash) Short() string {
	if len(h) <= shortHashLen {
		return string(h)
	}
	return string(h[:shortHashLen])
}

func (h Hash) IsZero() bool {
	return h == ""
}
