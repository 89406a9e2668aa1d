package saveformat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// JSONCodec reads and writes an array of {"key", "label"} objects.
type JSONCodec struct{}

// Decode returns the keys of a JSON item array.
func (c *JSONCodec) Decode(raw string) ([]string, error) {
	var items []PickedItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("parsing JSON value: %w", err)
	}
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key)
	}
	return compact(keys), nil
}

// Encode writes items as a JSON array. Labels are written unescaped.
func (c *JSONCodec) Encode(items []PickedItem) (string, error) {
	if items == nil {
		items = []PickedItem{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return "", fmt.Errorf("writing JSON value: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
