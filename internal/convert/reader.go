package convert

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported input format")
	ErrTrailingData      = errors.New("decode json: unexpected data after top-level value")
)

// ReadOptions only affect csv input.
type ReadOptions struct {
	// SkipHeader drops the first row after the header has been resolved.
	SkipHeader bool
	// FieldNames replaces the header row. When empty the first row is the
	// header.
	FieldNames []string
}

// ReadInput decodes path by extension:
//
//	.jsonl  []any, one value per line
//	.json   the single decoded value
//	.csv    []map[string]string keyed by header
//	.txt    []string, one entry per line
//
// JSON numbers are kept as json.Number so ids round-trip unchanged.
func ReadInput(path string, opts ReadOptions) (any, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jsonl", ".json", ".csv", ".txt":
	default:
		return nil, fmt.Errorf("%w: %s (expected csv, json, jsonl or txt)", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext {
	case ".jsonl":
		return readJSONLines(f)
	case ".json":
		return readJSON(f)
	case ".csv":
		return readCSV(f, opts)
	default:
		return readLines(f)
	}
}

// Count returns the number of samples in a ReadInput result.
func Count(data any) int {
	switch v := data.(type) {
	case []any:
		return len(v)
	case []map[string]string:
		return len(v)
	case []string:
		return len(v)
	case map[string]any:
		return len(v)
	case nil:
		return 0
	default:
		return 1
	}
}

func newDecoder(r io.Reader) *json.Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec
}

func readJSON(r io.Reader) (any, error) {
	dec := newDecoder(r)
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ErrTrailingData
	}
	return v, nil
}

func readJSONLines(r io.Reader) ([]any, error) {
	var out []any
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var v any
		if err := newDecoder(strings.NewReader(text)).Decode(&v); err != nil {
			return nil, fmt.Errorf("decode jsonl line %d: %w", line, err)
		}
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func readCSV(r io.Reader, opts ReadOptions) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}

	header := opts.FieldNames
	if len(header) == 0 {
		if len(rows) == 0 {
			return nil, nil
		}
		header, rows = rows[0], rows[1:]
	}
	if opts.SkipHeader && len(rows) > 0 {
		rows = rows[1:]
	}

	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		record := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				record[name] = row[i]
			} else {
				record[name] = ""
			}
		}
		out = append(out, record)
	}
	return out, nil
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		out = append(out, scanner.Text())
	}
	return out, scanner.Err()
}
