package fetch

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Digest computes a deterministic content digest of a directory tree.
// Entries are visited in sorted relative-path order; for each one the
// slash-separated path, a normalized mode, and the content (or symlink
// target) are written length-prefixed into a sha256. Modes are reduced to
// what git tracks (type, and 0755 or 0644 for files); timestamps, umask and
// ownership are ignored, so two checkouts of the same commit agree.
func Digest(root string) (string, error) {
	var rels []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rels = append(rels, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(rels)

	h := sha256.New()
	for _, rel := range rels {
		full := filepath.Join(root, filepath.FromSlash(rel))
		info, err := os.Lstat(full)
		if err != nil {
			return "", err
		}

		writeField(h, []byte(rel))
		var mode [4]byte
		binary.BigEndian.PutUint32(mode[:], uint32(normalizedMode(info.Mode())))
		writeField(h, mode[:])

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(full)
			if err != nil {
				return "", err
			}
			writeField(h, []byte(target))
		case info.Mode().IsRegular():
			if err := writeFile(h, full, info.Size()); err != nil {
				return "", err
			}
		default:
			writeField(h, nil)
		}
	}

	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}

func normalizedMode(m fs.FileMode) fs.FileMode {
	if !m.IsRegular() {
		return m.Type()
	}
	if m.Perm()&0111 != 0 {
		return 0755
	}
	return 0644
}

func writeField(h hash.Hash, b []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(b)))
	h.Write(n[:])
	h.Write(b)
}

func writeFile(h hash.Hash, path string, size int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(size))
	h.Write(n[:])
	_, err = io.CopyN(h, f, size)
	return err
}
