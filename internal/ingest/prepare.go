package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/bills-extractor/constants"
	"github.com/joseph-ayodele/bills-extractor/internal/common"
)

// PrepareFile checks the extension, hashes the content and derives the upload id.
func PrepareFile(path string) (Upload, error) {
	var out Upload

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return out, common.NewAppError("UNSUPPORTED_FILE", fmt.Sprintf("unsupported or missing extension: %q", ext), common.ErrInvalidInput)
	}

	f, err := os.Open(abs)
	if err != nil {
		return out, fmt.Errorf("open: %w", err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			slog.Warn("close file error", "path", abs, "error", err)
		}
	}(f)

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return out, fmt.Errorf("hash: %w", err)
	}
	if n == 0 {
		return out, common.NewAppError("EMPTY_FILE", fmt.Sprintf("%s is empty", filepath.Base(abs)), common.ErrInvalidInput)
	}
	sum := hex.EncodeToString(h.Sum(nil))

	return Upload{
		SourcePath: abs,
		UploadID:   UploadIDForHash(sum),
		HashHex:    sum,
		FileExt:    ext,
		Size:       n,
	}, nil
}
