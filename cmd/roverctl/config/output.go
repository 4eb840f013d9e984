package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// OutputFormat selects how roverctl renders coordinator responses.
type OutputFormat string

const (
	OutputTable OutputFormat = "table" // operator-facing, the default
	OutputJSON  OutputFormat = "json"  // stable shape for scripting
	OutputYAML  OutputFormat = "yaml"
)

// Outputter renders API responses in the selected format.
type Outputter struct {
	format OutputFormat
	writer io.Writer
}

// NewOutputter creates an outputter writing to stdout. The format string is
// matched case-insensitively.
func NewOutputter(format string) *Outputter {
	return &Outputter{
		format: OutputFormat(strings.ToLower(format)),
		writer: os.Stdout,
	}
}

// Tabular reports whether the caller should lay the data out itself through
// PrintTable; the structured formats render any value through Print.
func (o *Outputter) Tabular() bool {
	return o.format == OutputTable
}

// Print renders data in one of the structured formats.
func (o *Outputter) Print(data interface{}) error {
	switch o.format {
	case OutputJSON:
		enc := json.NewEncoder(o.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case OutputYAML:
		enc := yaml.NewEncoder(o.writer)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	case OutputTable:
		// Tables need the per-command column mapping Print does not have.
		return fmt.Errorf("table format requires a column mapping, use PrintTable")
	default:
		return fmt.Errorf("unknown output format: %s", o.format)
	}
}

// PrintTable renders pre-mapped rows under the given headers.
func (o *Outputter) PrintTable(headers []string, rows [][]string) {
	table := tablewriter.NewWriter(o.writer)

	cols := make([]any, len(headers))
	for i, h := range headers {
		cols[i] = h
	}
	table.Header(cols...)

	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
}

// GetFormat returns the selected format.
func (o *Outputter) GetFormat() OutputFormat {
	return o.format
}
