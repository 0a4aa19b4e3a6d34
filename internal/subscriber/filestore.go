package subscriber

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileStore keeps one decimal chat id per line in a text file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string {
	return f.path
}

// Load reads the file. A missing or empty file is an empty set.
// Any line that is not an integer id fails the load.
func (f *FileStore) Load(_ context.Context) (*Set, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewSet(), nil
	}
	if err != nil {
		return nil, Wrap("read "+f.path, err)
	}

	s := NewSet()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, Wrap(fmt.Sprintf("parse %s line %d", f.path, n), err)
		}
		s.Add(id)
	}
	if err := scanner.Err(); err != nil {
		return nil, Wrap("scan "+f.path, err)
	}
	return s, nil
}

// Save writes the set to a temporary file in the same directory and renames
// it over the old one, so readers see either the old or the new contents.
func (f *FileStore) Save(_ context.Context, s *Set) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Wrap("create "+dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return Wrap("create temp file", err)
	}
	tmpName := tmp.Name()

	if err := writeIDs(tmp, s); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return Wrap("write "+tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return Wrap("close "+tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return Wrap("rename "+tmpName, err)
	}
	return nil
}

func writeIDs(file *os.File, s *Set) error {
	w := bufio.NewWriter(file)
	for _, id := range s.IDs() {
		if _, err := w.WriteString(strconv.FormatInt(id, 10) + "\n"); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return file.Sync()
}
