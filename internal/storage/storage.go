// Package storage is the record sink: it writes the final crawl output as CSV.
package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maltedev/sameday-crawler/internal/models"
)

// ErrWrite marks a sink failure, as opposed to a crawl that simply found nothing.
var ErrWrite = errors.New("failed to write records")

// WriteCSV writes records to path in models.Columns order. The header row is always
// written, so an empty crawl still produces a valid file. Data goes to a temp file
// first and is renamed into place.
func WriteCSV(path string, records []models.FinalRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrWrite, err)
		}
	}

	tmpFile := path + ".tmp"
	if err := writeFile(tmpFile, records); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

func writeFile(path string, records []models.FinalRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(models.Columns); err != nil {
		f.Close()
		return err
	}
	for _, r := range records {
		if err := w.Write(r.Row()); err != nil {
			f.Close()
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
