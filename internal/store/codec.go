package store

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/thiagokokada/gitk-sync/internal/vcs"
)

const (
	codecMagic   = "GKRF"
	codecVersion = 1

	maxFieldLen = 1 << 16
)

var ErrBadHeader = errors.New("not a ref snapshot")

// EncodeRefs writes refs in the snapshot format: a header, the record count
// and one record per ref. The ref type is stored as its persisted index.
func EncodeRefs(w io.Writer, refs []vcs.Ref) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(codecMagic)
	bw.WriteByte(codecVersion)
	writeUvarint(bw, uint64(len(refs)))
	for _, r := range refs {
		writeString(bw, r.Root)
		writeString(bw, r.Name)
		writeUvarint(bw, uint64(r.Type.Index()))
		writeString(bw, r.Commit.String())
	}
	return bw.Flush()
}

func writeUvarint(w *bufio.Writer, v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	w.Write(buf[:n])
}

func writeString(w *bufio.Writer, s string) {
	writeUvarint(w, uint64(len(s)))
	w.WriteString(s)
}

// DecodeRefs reads a snapshot. Records with an unknown ref type index or an
// invalid hash are dropped and reported in the returned error; the other
// records are still returned. Truncated or malformed framing fails the whole
// snapshot.
func DecodeRefs(r io.Reader) ([]vcs.Ref, error) {
	br := bufio.NewReader(r)
	header := make([]byte, len(codecMagic)+1)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadHeader, err)
	}
	if string(header[:len(codecMagic)]) != codecMagic {
		return nil, ErrBadHeader
	}
	if header[len(codecMagic)] != codecVersion {
		return nil, fmt.Errorf("unsupported ref snapshot version %d", header[len(codecMagic)])
	}
	count, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, fmt.Errorf("read record count: %w", err)
	}

	var refs []vcs.Ref
	var corrupt []error
	for i := 0; uint64(i) < count; i++ {
		root, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		name, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		idx, err := binary.ReadUvarint(br)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		commit, err := readString(br)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		typ, err := vcs.RefTypeFromIndex(int(min(idx, uint64(1<<31-1))))
		if err != nil {
			var cse *vcs.CorruptStateError
			if errors.As(err, &cse) {
				cse.Record = i
			}
			corrupt = append(corrupt, err)
			continue
		}
		hash, err := vcs.ParseHash(commit)
		if err != nil {
			corrupt = append(corrupt, fmt.Errorf("corrupt ref record %d: %w", i, err))
			continue
		}
		refs = append(refs, vcs.Ref{Commit: hash, Name: name, Type: typ, Root: root})
	}
	return refs, errors.Join(corrupt...)
}

func readString(r *bufio.Reader) (string, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return "", err
	}
	if n > maxFieldLen {
		return "", fmt.Errorf("field length %d exceeds %d", n, maxFieldLen)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
