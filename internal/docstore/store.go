// Package docstore persists candidate document binaries. The candidacy record
// only carries metadata; the binary lives behind this interface.
package docstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/NourhenHamza/TalentGo-sub002/internal/errs"
	"github.com/NourhenHamza/TalentGo-sub002/internal/model"
	"github.com/gofrs/uuid/v5"
)

// MaxUploadBytes caps accepted CV uploads.
const MaxUploadBytes = 5 << 20

// allowedMimeTypes lists accepted CV content types.
var allowedMimeTypes = map[string]string{
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
}

// Upload is one incoming document binary.
type Upload struct {
	OriginalName string
	MimeType     string
	Size         int64
	Content      io.Reader
}

// Store persists document binaries keyed by candidacy.
type Store interface {
	// Save writes the upload and returns its recorded metadata.
	// Returns errs.ErrValidation for unsupported types or oversized files.
	Save(ctx context.Context, candidacyID uuid.UUID, up Upload) (model.FileMeta, error)
}

// Disk stores documents under a local directory, one subdirectory per candidacy.
type Disk struct{ root string }

// NewDisk constructs a disk store rooted at dir.
func NewDisk(dir string) *Disk { return &Disk{root: dir} }

// Save validates and writes the upload to disk.
func (d *Disk) Save(_ context.Context, candidacyID uuid.UUID, up Upload) (model.FileMeta, error) {
	ext, ok := allowedMimeTypes[up.MimeType]
	if !ok {
		return model.FileMeta{}, fmt.Errorf("%w: unsupported cv type %q", errs.ErrValidation, up.MimeType)
	}
	if up.Size > MaxUploadBytes {
		return model.FileMeta{}, fmt.Errorf("%w: cv exceeds %d bytes", errs.ErrValidation, int64(MaxUploadBytes))
	}

	dir := filepath.Join(d.root, candidacyID.String())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return model.FileMeta{}, err
	}
	name := fmt.Sprintf("cv-%d%s", time.Now().UnixNano(), ext)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return model.FileMeta{}, err
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(up.Content, MaxUploadBytes+1))
	if err != nil {
		_ = os.Remove(path)
		return model.FileMeta{}, err
	}
	if n > MaxUploadBytes {
		_ = os.Remove(path)
		return model.FileMeta{}, fmt.Errorf("%w: cv exceeds %d bytes", errs.ErrValidation, int64(MaxUploadBytes))
	}

	return model.FileMeta{
		Filename:     name,
		OriginalName: up.OriginalName,
		MimeType:     up.MimeType,
		Size:         n,
		UploadedAt:   time.Now().UTC(),
	}, nil
}
