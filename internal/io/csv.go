// Package io provides data input/output operations for DataFrames.
// It supports CSV reading and writing with type inference and various configuration options.
package io

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/paveg/returnlab/internal/dataframe"
	"github.com/paveg/returnlab/internal/series"
)

const (
	// Boolean string constants
	trueStr  = "true"
	falseStr = "false"

	typeBool   = "bool"
	typeInt    = "int"
	typeFloat  = "float"
	typeString = "string"
)

// Read reads CSV data and returns a DataFrame
func (r *CSVReader) Read() (*dataframe.DataFrame, error) {
	csvReader := csv.NewReader(r.reader)
	csvReader.Comma = r.options.Delimiter
	csvReader.Comment = r.options.Comment
	csvReader.TrimLeadingSpace = r.options.SkipInitialSpace

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	if len(records) == 0 {
		return dataframe.New(), nil
	}

	var headers []string
	var dataRows [][]string

	if r.options.Header {
		headers = records[0]
		dataRows = records[1:]
	} else {
		numCols := len(records[0])
		headers = make([]string, numCols)
		for i := 0; i < numCols; i++ {
			headers[i] = fmt.Sprintf("column_%d", i)
		}
		dataRows = records
	}

	// Transpose data to work with columns
	numCols := len(headers)
	columns := make([][]string, numCols)
	for i := 0; i < numCols; i++ {
		columns[i] = make([]string, len(dataRows))
		for j, row := range dataRows {
			if i < len(row) {
				columns[i][j] = row[i]
			}
		}
	}

	forced := make(map[string]bool, len(r.options.StringColumns))
	for _, name := range r.options.StringColumns {
		forced[name] = true
	}

	seriesList := make([]dataframe.ISeries, 0, numCols)
	for i, header := range headers {
		s, err := r.createSeriesFromStrings(header, columns[i], forced[header])
		if err != nil {
			for _, built := range seriesList {
				built.Release()
			}
			return nil, fmt.Errorf("creating series for column %s: %w", header, err)
		}
		seriesList = append(seriesList, s)
	}

	return dataframe.New(seriesList...), nil
}

// createSeriesFromStrings creates a series from string data, inferring the appropriate type
func (r *CSVReader) createSeriesFromStrings(name string, data []string, asString bool) (dataframe.ISeries, error) {
	valid := make([]bool, len(data))
	for i, value := range data {
		valid[i] = !r.isNull(value)
	}

	inferred := typeString
	if !asString {
		inferred = inferDataType(data, valid)
	}

	switch inferred {
	case typeBool:
		values := make([]bool, len(data))
		for i, value := range data {
			values[i] = valid[i] && strings.EqualFold(value, trueStr)
		}
		return series.NewWithValidity(name, values, valid, r.mem)
	case typeInt:
		values := make([]int64, len(data))
		for i, value := range data {
			if valid[i] {
				values[i], _ = strconv.ParseInt(value, 10, 64)
			}
		}
		return series.NewWithValidity(name, values, valid, r.mem)
	case typeFloat:
		values := make([]float64, len(data))
		for i, value := range data {
			if valid[i] {
				values[i], _ = strconv.ParseFloat(value, 64)
			}
		}
		return series.NewWithValidity(name, values, valid, r.mem)
	default:
		values := make([]string, len(data))
		for i, value := range data {
			if valid[i] {
				values[i] = value
			}
		}
		return series.NewWithValidity(name, values, valid, r.mem)
	}
}

func (r *CSVReader) isNull(value string) bool {
	for _, null := range r.options.NullValues {
		if value == null {
			return true
		}
	}
	return false
}

// inferDataType determines the most appropriate data type for the non-null values.
// A column without any value is float, so an all-empty numeric export stays numeric.
func inferDataType(data []string, valid []bool) string {
	canBeInt := true
	canBeFloat := true
	canBeBool := true
	hasValue := false

	for i, value := range data {
		if !valid[i] {
			continue
		}
		hasValue = true

		if canBeBool {
			lower := strings.ToLower(value)
			if lower != trueStr && lower != falseStr {
				canBeBool = false
			}
		}
		if canBeInt {
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				canBeInt = false
			}
		}
		if canBeFloat {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				canBeFloat = false
			}
		}
		if !canBeBool && !canBeInt && !canBeFloat {
			break
		}
	}

	switch {
	case !hasValue:
		return typeFloat
	case canBeBool:
		return typeBool
	case canBeInt:
		return typeInt
	case canBeFloat:
		return typeFloat
	default:
		return typeString
	}
}

// Write writes the DataFrame to CSV format
func (w *CSVWriter) Write(df *dataframe.DataFrame) error {
	csvWriter := csv.NewWriter(w.writer)
	if w.options.Delimiter != 0 {
		csvWriter.Comma = w.options.Delimiter
	}

	columns := df.Columns()
	if w.options.Header {
		if err := csvWriter.Write(columns); err != nil {
			return fmt.Errorf("writing headers: %w", err)
		}
	}

	rendered := make([][]string, len(columns))
	for j, name := range columns {
		values, _, err := df.StringValues(name)
		if err != nil {
			return err
		}
		rendered[j] = values
	}

	row := make([]string, len(columns))
	for i := 0; i < df.Len(); i++ {
		for j := range columns {
			row[j] = rendered[j][i]
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
