package saveformat

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVCodec reads and writes a single comma-separated line of keys.
type CSVCodec struct{}

// Decode splits a CSV line into keys.
func (c *CSVCodec) Decode(raw string) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(raw))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var keys []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing CSV value: %w", err)
		}
		keys = append(keys, record...)
	}
	return compact(keys), nil
}

// Encode writes the item keys as one CSV line. Labels are not stored.
func (c *CSVCodec) Encode(items []PickedItem) (string, error) {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key)
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(keys); err != nil {
		return "", fmt.Errorf("writing CSV value: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("writing CSV value: %w", err)
	}
	return strings.TrimRight(b.String(), "\r\n"), nil
}
