package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/SYNC-360/kravet-scraper/internal/events"
)

// Dataset is the local result stream: one JSON envelope per line, appended
// as records are produced. Every normalized record lands here whether or not
// remote persistence succeeds.
type Dataset struct {
	mu       sync.Mutex
	file     *os.File
	w        *bufio.Writer
	count    int
	filename string
}

// NewDataset opens filename for appending, creating parent directories.
func NewDataset(filename string) (*Dataset, error) {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create dataset directory: %w", err)
		}
	}

	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}

	return &Dataset{
		file:     f,
		w:        bufio.NewWriter(f),
		filename: filename,
	}, nil
}

// Append writes one envelope and flushes it so a crash loses at most the
// line being written.
func (d *Dataset) Append(env *events.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return fmt.Errorf("dataset %s is closed", d.filename)
	}
	if _, err := d.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	if err := d.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush dataset: %w", err)
	}

	d.count++
	return nil
}

// Emit appends env; it lets the dataset sit alongside other event sinks.
func (d *Dataset) Emit(_ context.Context, env *events.Envelope) error {
	return d.Append(env)
}

// Count returns the number of envelopes appended through this handle.
func (d *Dataset) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}

func (d *Dataset) Path() string {
	return d.filename
}

func (d *Dataset) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return nil
	}
	flushErr := d.w.Flush()
	closeErr := d.file.Close()
	d.file = nil

	if flushErr != nil {
		return fmt.Errorf("failed to flush dataset: %w", flushErr)
	}
	return closeErr
}

// Load reads every envelope in a dataset file.
func Load(filename string) ([]*events.Envelope, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []*events.Envelope
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		env := &events.Envelope{}
		if err := json.Unmarshal(scanner.Bytes(), env); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, env)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
