package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Fingerprint identifies a pending upload. It is only used as a lookup key
// and never stored durably.
type Fingerprint string

// File describes a candidate upload.
type File struct {
	Name         string
	Size         int64
	LastModified time.Time
}

// Fingerprint derives the file's key.
// Format: first 16 hex characters of SHA-256("<name>:<size>:<lastModifiedMillis>")
func (f File) Fingerprint() Fingerprint {
	raw := fmt.Sprintf("%s:%d:%d", f.Name, f.Size, f.LastModified.UnixMilli())
	sum := sha256.Sum256([]byte(raw))
	return Fingerprint(hex.EncodeToString(sum[:8]))
}
