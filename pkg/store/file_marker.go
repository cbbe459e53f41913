package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// FileMarker keeps the marker in a file shared by every notifier process of the user.
// Writes replace the file atomically, so the parent directory is what gets watched.
type FileMarker struct {
	path string
}

func NewFileMarker(path string) (*FileMarker, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("marker file path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, err
	}
	return &FileMarker{path: abs}, nil
}

func (m *FileMarker) Path() string {
	return m.path
}

func (m *FileMarker) Read(ctx context.Context) (string, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (m *FileMarker) Write(ctx context.Context, value string) error {
	if value == "" {
		err := os.Remove(m.path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	return writeFileAtomic(m.path, []byte(value), 0o644)
}

func (m *FileMarker) Watch(ctx context.Context, onChange func(value string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create marker watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch marker dir: %w", err)
	}

	last, _ := m.Read(ctx)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != m.path {
					continue
				}
				value, err := m.Read(ctx)
				if err != nil {
					continue
				}
				// a single atomic replace surfaces as several fs events
				if value == last {
					continue
				}
				last = value
				onChange(value)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(mode); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
