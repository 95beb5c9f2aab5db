// Package upload is the avatar storage collaborator. The real object store
// sits behind FileUploader; LocalUploader keeps files on disk for
// deployments without one.
package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type FileUploader interface {
	// Upload stores the file under a name derived from the owner and
	// returns the public URL of the stored file
	Upload(ctx context.Context, owner string, filename string, r io.Reader) (string, error)
}

type LocalUploader struct {
	dir     string
	baseURL string
}

func NewLocal(dir string, baseURL string) (*LocalUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("can't prepare upload dir. Err: %w", err)
	}

	return &LocalUploader{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Upload overwrites the previous file of the same owner, mirroring an
// object-store put with a stable key
func (u *LocalUploader) Upload(ctx context.Context, owner string, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// The owner comes from user input and must not leave the upload dir
	owner = filepath.Base(owner)
	if owner == "." || owner == ".." || owner == string(filepath.Separator) {
		return "", fmt.Errorf("unusable owner name %q", owner)
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".img"
	}
	name := owner + ext

	f, err := os.Create(filepath.Join(u.dir, name))
	if err != nil {
		return "", fmt.Errorf("can't create avatar file. Err: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("can't write avatar file. Err: %w", err)
	}

	return u.baseURL + "/" + name, nil
}
