package ingest

import (
	"github.com/google/uuid"
)

// UploadNamespace seeds content-derived upload ids. Changing it re-keys every stored bill.
var UploadNamespace = uuid.MustParse("6f1c2a4e-9b7d-5c3e-8a21-4d0e9f6b7c15")

// Upload is the per-file ingest outcome.
type Upload struct {
	SourcePath   string
	UploadID     string
	HashHex      string
	FileExt      string
	Size         int64
	Deduplicated bool
	Err          string
}

// DirStats summarizes a directory walk.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// UploadIDForHash derives the upload id from a sha256 hex digest, so the same
// file always merges into the same stored bill.
func UploadIDForHash(hashHex string) string {
	return uuid.NewSHA1(UploadNamespace, []byte(hashHex)).String()
}
