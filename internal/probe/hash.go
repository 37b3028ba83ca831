package probe

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// ContentHash streams path through a blake2b-256 hash and returns the
// hex digest (spec.md §3's file_hash, "used only for change detection").
// Streaming keeps memory flat regardless of file size; large-file
// hashing is one of the documented blocking points that cancellation
// does not interrupt mid-call (spec.md §5).
func ContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("init hasher: %w", err)
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
