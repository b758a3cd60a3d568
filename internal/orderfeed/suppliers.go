package orderfeed

import (
	"fmt"
	"io"
	"strings"

	"catalogdesk/internal/model"
)

// ParseSuppliers reads the supplier export: two columns, ID and name, with an
// optional header row. Rows without an ID are skipped; a repeated ID keeps
// the last name.
func ParseSuppliers(r io.Reader, charset string) ([]model.Supplier, error) {
	reader, err := decode(r, charset)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("supplier feed: read: %w", err)
	}
	records, err := readRecords(data)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 && isSupplierHeader(records[0]) {
		records = records[1:]
	}

	index := make(map[string]int, len(records))
	out := make([]model.Supplier, 0, len(records))
	for _, rec := range records {
		if len(rec) < 2 {
			continue
		}
		id := strings.TrimSpace(rec[0])
		name := strings.TrimSpace(rec[1])
		if id == "" {
			continue
		}
		if i, ok := index[id]; ok {
			out[i].Name = name
			continue
		}
		index[id] = len(out)
		out = append(out, model.Supplier{ID: id, Name: name, Active: true})
	}
	return out, nil
}

func isSupplierHeader(rec []string) bool {
	switch normalizeHeader(rec[0]) {
	case "id", "lieferant", "lieferantnr", "lieferant nr", "supplier", "supplier id":
		return true
	}
	return false
}
