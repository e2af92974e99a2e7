// Package storage persists the diary and the mirror settings on the local
// machine under named key slots.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Slots is a minimal key/value store. Get returns (nil, nil) for a missing key.
type Slots interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FileSlots keeps every slot in its own <key>.json file under Dir.
type FileSlots struct {
	Dir string
}

// NewFileSlots creates dir if needed and returns slots stored there.
func NewFileSlots(dir string) (*FileSlots, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileSlots{Dir: dir}, nil
}

func (s *FileSlots) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid slot key %q", key)
	}
	return filepath.Join(s.Dir, key+".json"), nil
}

func (s *FileSlots) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot[%s]: %w", key, err)
	}
	return data, nil
}

// Set writes value to a temp file and renames it into place, so a crash
// never leaves a half-written slot behind.
func (s *FileSlots) Set(_ context.Context, key string, value []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.Dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to set slot[%s]: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set slot[%s]: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to set slot[%s]: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to set slot[%s]: %w", key, err)
	}
	return nil
}

func (s *FileSlots) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete slot[%s]: %w", key, err)
	}
	return nil
}
