package builtin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// RootFS is a writable filesystem confined to one directory. It is backed by
// os.Root, so symlinks and ".." cannot reach outside the directory.
type RootFS struct {
	fs.FS
	root *os.Root
}

// OpenRootFS opens dir as a RootFS.
func OpenRootFS(dir string) (*RootFS, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open root %s: %w", dir, err)
	}
	return &RootFS{FS: root.FS(), root: root}, nil
}

// WriteFile creates or truncates name and writes data to it.
func (r *RootFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	f, err := r.root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// MkdirAll creates name and any missing parents.
func (r *RootFS) MkdirAll(name string, perm os.FileMode) error {
	var prefix string
	for _, part := range strings.Split(name, "/") {
		if prefix == "" {
			prefix = part
		} else {
			prefix = prefix + "/" + part
		}
		if err := r.root.Mkdir(prefix, perm); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}

// Close releases the underlying directory handle.
func (r *RootFS) Close() error {
	return r.root.Close()
}
