package offers

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Annotation columns appended after the source columns.
const (
	IsSchoolColumn       = "is_school"
	SchoolKeywordsColumn = "school_keywords"
	ContractTypeColumn   = "contract_type"

	keywordSeparator = "|"
)

// Output formats accepted by NewSink.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ErrUnknownFormat is returned by NewSink for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Sink persists one named subset and returns where it was written.
type Sink interface {
	Write(name string, rows []*Annotated) (location string, err error)
}

// NewSink returns the file sink for format writing into dir.
// columns is the source header carried through to the outputs.
func NewSink(format, dir string, columns []string) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatCSV:
		return NewCSVSink(dir, columns), nil
	case FormatXLSX:
		return NewXLSXSink(dir, columns), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func outputColumns(source []string) []string {
	if len(source) == 0 {
		source = DefaultColumns
	}
	columns := make([]string, 0, len(source)+3)
	columns = append(columns, source...)
	return append(columns, IsSchoolColumn, SchoolKeywordsColumn, ContractTypeColumn)
}

func record(columns []string, row *Annotated) []string {
	values := make([]string, 0, len(columns)+3)
	for _, c := range columns {
		if v, ok := row.Offer.Row[strings.ToLower(c)]; ok {
			values = append(values, v)
			continue
		}
		values = append(values, row.Offer.GetStringField(c))
	}

	return append(values,
		strconv.FormatBool(row.Classification.IsTrainingOrg),
		strings.Join(row.Classification.MatchedKeywords, keywordSeparator),
		string(row.Classification.ContractType),
	)
}

// writeAtomic writes to a temporary file in dir and renames it into place,
// so an interrupted run never leaves a truncated subset behind.
func writeAtomic(dir, filename string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	target := filepath.Join(dir, filename)
	tmp, err := os.CreateTemp(dir, "."+filename+"-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", err
	}
	return target, nil
}

// XLSXSink writes each subset as a single-sheet workbook <Dir>/<name>.xlsx.
type XLSXSink struct {
	Dir     string
	Columns []string
}

func NewXLSXSink(dir string, columns []string) *XLSXSink {
	return &XLSXSink{Dir: dir, Columns: columns}
}

func (s *XLSXSink) Write(name string, rows []*Annotated) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := name
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return "", err
	}

	columns := s.Columns
	if len(columns) == 0 {
		columns = DefaultColumns
	}

	writeRow := func(line int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, line)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := writeRow(1, outputColumns(columns)); err != nil {
		return "", err
	}
	for i, row := range rows {
		if err := writeRow(i+2, record(columns, row)); err != nil {
			return "", err
		}
	}

	return writeAtomic(s.Dir, name+".xlsx", func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
}
