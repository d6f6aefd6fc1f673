package universal

import (
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
)

// Checksum derives a change-detection hash from a path and modification time.
// FNV-1a, not cryptographic: its only job is cache invalidation.
func Checksum(path string, mtimeUnixMs int64) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	_, _ = h.Write([]byte(strconv.FormatInt(mtimeUnixMs, 10)))
	return fmt.Sprintf("%016x", h.Sum64())
}

// FileChecksum computes Checksum from the file's current mtime. Missing files
// hash with mtime 0 so the value stays deterministic.
func FileChecksum(path string) string {
	var mtime int64
	if info, err := os.Stat(path); err == nil {
		mtime = info.ModTime().UnixMilli()
	}
	return Checksum(path, mtime)
}

// HashID derives a stable identifier from an arbitrary string, used where a
// provider has no native id for a project or session.
func HashID(s string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}
