package record

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Load decodes a JSON array of records
func Load(r io.Reader) ([]*Record, error) {
	var records []*Record
	dec := json.NewDecoder(bufio.NewReader(r))
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	for i, rec := range records {
		if rec == nil {
			return nil, fmt.Errorf("record %d is null", i)
		}
	}
	return records, nil
}

// LoadFile reads records from a file
func LoadFile(path string) ([]*Record, error) {
	// #nosec G304 - path comes from the user on purpose
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Save writes records as a JSON array indented with two spaces
func Save(w io.Writer, records []*Record) error {
	if records == nil {
		records = []*Record{}
	}
	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	_, err := out.WriteTo(w)
	return err
}

// SaveFile writes records to path, creating parent directories as needed
func SaveFile(path string, records []*Record) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	// #nosec G304 - path comes from the user on purpose
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Save(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
