// Package hashutil computes content checksums in the "sha256:<hex>" form
// used throughout install receipts.
package hashutil

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// Prefix starts every checksum this package returns
const Prefix = "sha256:"

// FileChecksum returns the checksum of a file's content
func FileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = file.Close()
	}()
	return ReaderChecksum(file)
}

// ReaderChecksum returns the checksum of everything read from r
func ReaderChecksum(r io.Reader) (string, error) {
	hash := sha256.New()
	if _, err := io.Copy(hash, r); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%x", Prefix, hash.Sum(nil)), nil
}
