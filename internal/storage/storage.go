// Package storage keeps uploaded document blobs on the local filesystem under
// {root}/teachers/{teacher_id}/{name}.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var ErrNotExist = errors.New("storage: file does not exist")

type FS struct {
	root string
}

func NewFS(root string) *FS {
	return &FS{root: root}
}

func (s *FS) Root() string {
	return s.root
}

func (s *FS) teacherDir(teacherID int32) string {
	return filepath.Join(s.root, "teachers", strconv.FormatInt(int64(teacherID), 10))
}

func (s *FS) path(teacherID int32, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("storage: invalid file name %q", name)
	}
	return filepath.Join(s.teacherDir(teacherID), name), nil
}

// Save creates the teacher directory when missing and writes r to name. A
// partially written file is removed before returning an error.
func (s *FS) Save(teacherID int32, name string, r io.Reader) error {
	path, err := s.path(teacherID, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("storage: create directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("storage: create file: %w", err)
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return fmt.Errorf("storage: write file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("storage: close file: %w", err)
	}
	return nil
}

func (s *FS) Open(teacherID int32, name string) (io.ReadSeekCloser, error) {
	path, err := s.path(teacherID, name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	return file, err
}

func (s *FS) Remove(teacherID int32, name string) error {
	path, err := s.path(teacherID, name)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotExist
	}
	return err
}

// RemoveTeacher deletes the teacher's directory with every file in it. A
// missing directory is not an error.
func (s *FS) RemoveTeacher(teacherID int32) error {
	return os.RemoveAll(s.teacherDir(teacherID))
}

// Walk calls fn for every regular file stored under a teacher directory.
// Directories whose name is not a teacher id are skipped.
func (s *FS) Walk(fn func(teacherID int32, name string) error) error {
	base := filepath.Join(s.root, "teachers")
	entries, err := os.ReadDir(base)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := strconv.ParseInt(entry.Name(), 10, 32)
		if err != nil {
			continue
		}
		files, err := os.ReadDir(filepath.Join(base, entry.Name()))
		if err != nil {
			return err
		}
		for _, file := range files {
			if !file.Type().IsRegular() {
				continue
			}
			if err := fn(int32(id), file.Name()); err != nil {
				return err
			}
		}
	}
	return nil
}
