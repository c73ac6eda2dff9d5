// Package store persists the refs of the last published snapshot per root,
// so that a restarted process can compute tag deltas against them.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

// Store saves and loads ref snapshots.
//
// Load returns the refs it could decode together with an error for the
// corrupt records it dropped, so callers can keep going with a partial
// snapshot. A root without a snapshot yields no refs and no error.
type Store interface {
	Load(ctx context.Context, root string) ([]vcs.Ref, error)
	Save(ctx context.Context, root string, refs []vcs.Ref) error
	Close() error
}

// Nop never remembers anything.
type Nop struct{}

func (Nop) Load(context.Context, string) ([]vcs.Ref, error) { return nil, nil }
func (Nop) Save(context.Context, string, []vcs.Ref) error   { return nil }
func (Nop) Close() error                                    { return nil }

func rootKey(root string) string {
	sum := sha256.Sum256([]byte(root))
	return hex.EncodeToString(sum[:12])
}
