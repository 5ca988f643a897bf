package io

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/returnlab/internal/dataframe"
	"github.com/paveg/returnlab/internal/errors"
)

// ReadFile opens path and decodes it with the reader built by newReader. A
// missing path fails with an error wrapping errors.ErrFileNotFound before
// newReader is called.
func ReadFile(path string, newReader func(io.Reader) DataReader) (*dataframe.DataFrame, error) {
	if _, err := os.Stat(path); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewFileNotFoundError("Load", path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	df, err := newReader(f).Read()
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return df, nil
}

// LoadCSV reads the CSV file at path into a DataFrame.
func LoadCSV(path string, options CSVOptions, mem memory.Allocator) (*dataframe.DataFrame, error) {
	return ReadFile(path, func(r io.Reader) DataReader {
		return NewCSVReader(r, options, mem)
	})
}

// WriteFile encodes df to path with the writer built by newWriter, creating
// parent directories as needed.
func WriteFile(path string, df *dataframe.DataFrame, newWriter func(io.Writer) DataWriter) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if err := newWriter(f).Write(df); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// WriteCSVFile writes df to path as CSV with a header row.
func WriteCSVFile(path string, df *dataframe.DataFrame) error {
	return WriteFile(path, df, func(w io.Writer) DataWriter {
		return NewCSVWriter(w, DefaultCSVOptions())
	})
}
