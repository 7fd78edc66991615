package convert

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ExportFormat represents supported export formats
type ExportFormat string

const (
	FormatJSONL ExportFormat = "jsonl"
	FormatJSON  ExportFormat = "json"
)

// ExportRecords writes records as JSON lines or as one indented JSON array.
// HTML characters are written verbatim.
func ExportRecords(records []Record, format string, writer io.Writer) error {
	switch ExportFormat(strings.ToLower(format)) {
	case FormatJSONL:
		return exportJSONL(records, writer)
	case FormatJSON:
		return exportJSON(records, writer)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: jsonl, json)", format)
	}
}

// exportJSONL writes one record per line
func exportJSONL(records []Record, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	for i := range records {
		if err := encoder.Encode(records[i]); err != nil {
			return err
		}
	}
	return nil
}

// exportJSON writes records as a JSON array
func exportJSON(records []Record, writer io.Writer) error {
	if records == nil {
		records = []Record{}
	}
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}
