package wal

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"
)

// rw-r--r--
const fileMode fs.FileMode = 0644

// WAL is an append-only log of JSON lines. Every Append is fsynced before it
// returns, so an entry that was acknowledged survives a crash and can be
// replayed with ReadAll on the next start.
type WAL struct {
	file *os.File
	mu   sync.Mutex
}

// Open opens or creates the log file at path in append mode.
func Open(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, fileMode)
	if err != nil {
		return nil, err
	}
	return &WAL{file: file}, nil
}

// Append encodes v as one JSON line and flushes it to disk.
func (w *WAL) Append(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := json.NewEncoder(w.file).Encode(v); err != nil {
		return err
	}
	return w.file.Sync()
}

// ReadAll replays every entry from the start of the file, passing the raw
// JSON of each to fn. Entries are streamed, not loaded at once.
func (w *WAL) ReadAll(fn func(raw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(w.file)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := fn(raw); err != nil {
			return err
		}
	}
}

// Close closes the underlying file.
func (w *WAL) Close() error {
	return w.file.Close()
}
