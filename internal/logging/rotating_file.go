package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// RotatingFile is a zapcore.WriteSyncer over a log file that is moved aside
// to path.1, path.2, ... once it would grow past MaxBytes.
type RotatingFile struct {
	path       string
	maxBytes   int64
	maxBackups int

	mu   sync.Mutex
	file *os.File
	size int64
}

func NewRotatingFile(path string, maxBytes int64, maxBackups int) (*RotatingFile, error) {
	switch {
	case path == "":
		return nil, errors.New("log file path is required")
	case maxBytes <= 0:
		return nil, fmt.Errorf("log file size limit must be positive, got %d", maxBytes)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	rf := &RotatingFile{path: path, maxBytes: maxBytes, maxBackups: max(maxBackups, 0)}
	if err := rf.open(os.O_APPEND); err != nil {
		return nil, err
	}
	if rf.size > rf.maxBytes {
		if err := rf.rotate(); err != nil {
			rf.Close()
			return nil, err
		}
	}
	return rf, nil
}

func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return 0, os.ErrClosed
	}
	// an entry larger than the limit still lands in an empty file
	if rf.size > 0 && rf.size+int64(len(p)) > rf.maxBytes {
		if err := rf.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

func (rf *RotatingFile) Sync() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return nil
	}
	return rf.file.Sync()
}

func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}

func (rf *RotatingFile) open(mode int) error {
	f, err := os.OpenFile(rf.path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	rf.file = f
	rf.size = info.Size()
	return nil
}

// rotate must be called with mu held.
func (rf *RotatingFile) rotate() error {
	if err := rf.file.Close(); err != nil {
		return err
	}
	rf.file = nil

	if rf.maxBackups == 0 {
		if err := removeIfExists(rf.path); err != nil {
			return err
		}
	} else {
		// drop the oldest backup, then shift path.N-1 -> path.N down to path -> path.1
		if err := removeIfExists(rf.backup(rf.maxBackups)); err != nil {
			return err
		}
		for i := rf.maxBackups - 1; i >= 0; i-- {
			src := rf.backup(i)
			if err := os.Rename(src, rf.backup(i+1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
		}
	}
	return rf.open(os.O_TRUNC)
}

// backup returns the path of the i-th backup; 0 is the live file.
func (rf *RotatingFile) backup(i int) string {
	if i == 0 {
		return rf.path
	}
	return fmt.Sprintf("%s.%d", rf.path, i)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
