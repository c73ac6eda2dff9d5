package vcs

import "fmt"

type RefType uint8

const (
	RefTypeHead RefType = iota
	RefTypeLocalBranch
	RefTypeRemoteBranch
	RefTypeTag
	RefTypeOther
)

// refTypeIndex is the persisted encoding of RefType. Append only: the
// position of an entry is written to disk.
var refTypeIndex = [...]RefType{
	RefTypeHead,
	RefTypeLocalBranch,
	RefTypeRemoteBranch,
	RefTypeTag,
	RefTypeOther,
}

func (t RefType) String() string {
	switch t {
	case RefTypeHead:
		return "HEAD"
	case RefTypeLocalBranch:
		return "LOCAL_BRANCH"
	case RefTypeRemoteBranch:
		return "REMOTE_BRANCH"
	case RefTypeTag:
		return "TAG"
	case RefTypeOther:
		return "OTHER"
	default:
		return fmt.Sprintf("RefType(%d)", uint8(t))
	}
}

func (t RefType) IsBranch() bool {
	switch t {
	case RefTypeHead, RefTypeLocalBranch, RefTypeRemoteBranch:
		return true
	default:
		return false
	}
}

// Index returns the persisted index of t.
func (t RefType) Index() int {
	for i, v := range refTypeIndex {
		if v == t {
			return i
		}
	}
	return -1
}

// RefTypeFromIndex decodes a persisted index.
func RefTypeFromIndex(idx int) (RefType, error) {
	if idx < 0 || idx >= len(refTypeIndex) {
		return 0, &CorruptStateError{Index: idx, Record: -1}
	}
	return refTypeIndex[idx], nil
}
