package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// saveUpload stores an uploaded file under uploadDir/subdir with a collision-free name.
// It returns the public URL path and the file's location on disk.
func (h *Handler) saveUpload(file *multipart.FileHeader, subdir string) (string, string, error) {
	src, err := file.Open()
	if err != nil {
		return "", "", err
	}
	defer src.Close()

	dir := filepath.Join(h.uploadDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}

	name := uuid.NewString() + "-" + sanitizeFilename(file.Filename)
	stored := filepath.Join(dir, name)
	if err := writeUpload(stored, src); err != nil {
		return "", "", err
	}
	return path.Join("/api/uploads", subdir, name), stored, nil
}

// writeUpload copies src into a new file at dst. Nothing is left at dst on failure.
func writeUpload(dst string, src io.Reader) error {
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(dst)
		return fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("close upload: %w", err)
	}
	return nil
}

// sanitizeFilename keeps only the base name so clients cannot write outside the upload dir.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "." || name == "/" || name == ".." || name == "" {
		return "file"
	}
	return name
}
