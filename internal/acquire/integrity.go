package acquire

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Verify checks a downloaded file against the manifest. When a checksum
// is known it is authoritative; otherwise the expected size is compared.
// A zero size with no checksum accepts any file (some archive listings
// omit sizes).
func Verify(path string, size int64, checksum string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	if checksum != "" {
		sum, err := fileSHA256(path)
		if err != nil {
			return err
		}
		if !strings.EqualFold(sum, checksum) {
			return fmt.Errorf("checksum mismatch: got %s, want %s", sum, checksum)
		}
		return nil
	}
	if size > 0 && fi.Size() != size {
		return fmt.Errorf("size mismatch: got %d, want %d", fi.Size(), size)
	}
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for checksum: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
