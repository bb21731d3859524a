package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Storage is the engine's confined view of the filesystem. Every path passed
// in is validated against the allow-listed roots before any syscall.
type Storage interface {
	Roots() []string
	Resolve(clientPath string) (string, error)
	RootFor(resolvedPath string) (string, error)
	Stat(clientPath string) (fs.FileInfo, error)
	ReadDir(clientPath string) ([]fs.DirEntry, error)
	MkdirAll(clientPath string, perm fs.FileMode) error
	Rename(oldPath string, newPath string) error
	Remove(clientPath string) error
	RemoveAll(clientPath string) error
}

// Disk implements Storage against the local filesystem.
type Disk struct {
	validator *PathValidator
}

func New(roots []string) (*Disk, error) {
	validator, err := NewPathValidator(roots)
	if err != nil {
		return nil, err
	}

	for _, root := range validator.Roots() {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create allowed root %q: %w", root, err)
		}
	}

	return &Disk{validator: validator}, nil
}

func (d *Disk) Roots() []string {
	return d.validator.Roots()
}

func (d *Disk) Resolve(clientPath string) (string, error) {
	return d.validator.ResolvePath(clientPath)
}

func (d *Disk) RootFor(resolvedPath string) (string, error) {
	return d.validator.RootFor(resolvedPath)
}

func (d *Disk) Stat(clientPath string) (fs.FileInfo, error) {
	resolved, err := d.Resolve(clientPath)
	if err != nil {
		return nil, err
	}

	return os.Stat(resolved)
}

func (d *Disk) ReadDir(clientPath string) ([]fs.DirEntry, error) {
	resolved, err := d.Resolve(clientPath)
	if err != nil {
		return nil, err
	}

	return os.ReadDir(resolved)
}

func (d *Disk) MkdirAll(clientPath string, perm fs.FileMode) error {
	resolved, err := d.Resolve(clientPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(resolved, perm); err != nil {
		return fmt.Errorf("mkdir %q: %w", clientPath, err)
	}

	return nil
}

func (d *Disk) Rename(oldPath string, newPath string) error {
	oldResolved, err := d.Resolve(oldPath)
	if err != nil {
		return err
	}

	newResolved, err := d.Resolve(newPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(newResolved), 0o755); err != nil {
		return fmt.Errorf("prepare destination %q: %w", newPath, err)
	}

	if err := os.Rename(oldResolved, newResolved); err != nil {
		return fmt.Errorf("rename %q to %q: %w", oldPath, newPath, err)
	}

	return nil
}

func (d *Disk) Remove(clientPath string) error {
	resolved, err := d.Resolve(clientPath)
	if err != nil {
		return err
	}

	return os.Remove(resolved)
}

func (d *Disk) RemoveAll(clientPath string) error {
	resolved, err := d.Resolve(clientPath)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(resolved); err != nil {
		return fmt.Errorf("remove %q: %w", clientPath, err)
	}

	return nil
}
