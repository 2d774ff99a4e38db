package offers

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrSourceUnavailable is returned when the input collection cannot be read or parsed.
var ErrSourceUnavailable = errors.New("source unavailable")

// DefaultColumns is the header written by the scraper.
var DefaultColumns = []string{"title", "company", "location", "salary", "contract", "remote", "publishedDate", "description", "url"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV loads offers from a CSV file with a header row.
func ReadCSV(path string) (*Offers, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer file.Close()

	offers, err := DecodeCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return offers, nil
}

// DecodeCSVString is DecodeCSV over an in-memory document.
func DecodeCSVString(s string) (*Offers, error) {
	return DecodeCSV(strings.NewReader(s))
}

// DecodeCSV reads offers from r. Header names are matched case-insensitively;
// missing columns and short rows yield empty fields.
func DecodeCSV(r io.Reader) (*Offers, error) {
	reader := csv.NewReader(skipBOM(r))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header row", ErrSourceUnavailable)
		}
		return nil, fmt.Errorf("%w: read header: %v", ErrSourceUnavailable, err)
	}

	columns := make([]string, len(header))
	keys := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		columns[i] = h
		keys[i] = strings.ToLower(h)
	}

	offers := &Offers{Columns: columns}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}

		row := make(map[string]string, len(keys))
		for i, key := range keys {
			if key == "" {
				continue
			}
			value := ""
			if i < len(record) {
				value = record[i]
			}
			row[key] = value
		}

		offer, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrSourceUnavailable, len(offers.Items)+1, err)
		}
		offers.Items = append(offers.Items, offer)
	}

	return offers, nil
}

// skipBOM drops a leading UTF-8 byte order mark so a quoted first header still parses.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

func decodeRow(row map[string]string) (*Offer, error) {
	offer := &Offer{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           offer,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(row); err != nil {
		return nil, err
	}

	offer.Row = row
	return offer, nil
}

// CSVSink writes each subset as <Dir>/<name>.csv.
type CSVSink struct {
	Dir     string
	Columns []string
}

// NewCSVSink creates a sink writing the given source columns followed by the annotation columns.
func NewCSVSink(dir string, columns []string) *CSVSink {
	return &CSVSink{Dir: dir, Columns: columns}
}

func (s *CSVSink) Write(name string, rows []*Annotated) (string, error) {
	columns := outputColumns(s.Columns)

	return writeAtomic(s.Dir, name+".csv", func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(columns); err != nil {
			return err
		}
		for _, row := range rows {
			if err := cw.Write(record(s.sourceColumns(), row)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func (s *CSVSink) sourceColumns() []string {
	if len(s.Columns) == 0 {
		return DefaultColumns
	}
	return s.Columns
}
