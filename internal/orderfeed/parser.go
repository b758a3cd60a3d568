// Package orderfeed turns the ERP order export into orders and decides which
// of them need a follow-up with the supplier.
package orderfeed

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"catalogdesk/internal/model"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ErrEmptyFeed is returned when the feed has no header row.
var ErrEmptyFeed = errors.New("order feed is empty")

// Charsets accepted in ParseOptions.Charset.
const (
	CharsetUTF8        = "utf-8"
	CharsetWindows1252 = "windows-1252"
)

// ParseOptions tune Parse. The zero value reads UTF-8 with DefaultSchema.
type ParseOptions struct {
	Charset string
	Schema  *Schema
}

// Result is the ingested order set plus the number of rows that were dropped
// for lacking a placed date.
type Result struct {
	Orders  []model.Order
	Dropped int
}

// Parse reads an order feed. The first record is the header and is validated
// against the schema. Rows without a placed date are dropped; the order of the
// remaining rows is the order of the feed.
func Parse(r io.Reader, opts ParseOptions) (*Result, error) {
	reader, err := decode(r, opts.Charset)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("order feed: read: %w", err)
	}

	schema := DefaultSchema()
	if opts.Schema != nil {
		schema = *opts.Schema
	}

	records, err := readRecords(data)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyFeed
	}

	bindings, err := schema.bind(records[0])
	if err != nil {
		return nil, err
	}

	res := &Result{Orders: make([]model.Order, 0, len(records)-1)}
	for i, rec := range records[1:] {
		o := model.Order{Row: i}
		for _, b := range bindings {
			if b.index < len(rec) {
				b.set(&o, strings.TrimSpace(rec[b.index]))
			}
		}
		if o.PlacedAt == nil {
			res.Dropped++
			continue
		}
		res.Orders = append(res.Orders, o)
	}
	return res, nil
}

// ParseRecords ingests already-split rows; rows[0] is the header.
func ParseRecords(rows [][]string) (*Result, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("order feed: encode rows: %w", err)
	}
	return Parse(&buf, ParseOptions{})
}

func decode(r io.Reader, charset string) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "", CharsetUTF8, "utf8":
		return r, nil
	case CharsetWindows1252, "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	case "iso-8859-1", "latin1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("order feed: unsupported charset %q", charset)
	}
}

func readRecords(data []byte) ([][]string, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = detectDelimiter(data)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("order feed: csv: %w", err)
	}
	return records, nil
}

// detectDelimiter picks ';' (German Excel) over ',' when the header line has more of them.
func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}
