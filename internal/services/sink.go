package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Sink stores generated workbooks and returns where they went.
type Sink interface {
	Write(ctx context.Context, jobID, filename string, data []byte) (string, error)
}

// DirSink writes workbooks to <Dir>/<jobID>/<filename>.
type DirSink struct {
	Dir string
}

func (d DirSink) Write(_ context.Context, jobID, filename string, data []byte) (string, error) {
	dir := filepath.Join(d.Dir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(filename))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write workbook: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write workbook: %w", err)
	}
	return path, nil
}

// Remove deletes a stored workbook and its job directory when empty.
func (d DirSink) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	dir := filepath.Dir(path)
	if filepath.Dir(dir) == filepath.Clean(d.Dir) {
		_ = os.Remove(dir)
	}
	return nil
}
