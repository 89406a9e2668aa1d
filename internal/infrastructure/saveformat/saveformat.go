// Package saveformat encodes and decodes the raw values pickers persist.
package saveformat

import (
	"strings"

	"github.com/ersonp/relmap/internal/domain/entities"
)

// PickedItem is one selected item as written into a picker value.
type PickedItem struct {
	Key   string `json:"key" xml:"Key,attr"`
	Label string `json:"label" xml:",chardata"`
}

// Codec reads and writes one save format.
type Codec interface {
	// Decode returns the picked keys in order.
	Decode(raw string) ([]string, error)
	// Encode renders items as a raw value.
	Encode(items []PickedItem) (string, error)
}

// ForFormat returns the codec for a save format. Relations-only pickers still submit a
// value from the editor; it is treated as CSV.
// Supported formats: "csv", "json", "xml", "relationsOnly".
func ForFormat(format entities.SaveFormat) Codec {
	switch format {
	case entities.SaveFormatCSV, entities.SaveFormatRelationsOnly:
		return &CSVCodec{}
	case entities.SaveFormatJSON:
		return &JSONCodec{}
	case entities.SaveFormatXML:
		return &XMLCodec{}
	default:
		return nil
	}
}

// Detect picks the codec from the shape of a raw value: a JSON array, an XML document,
// or otherwise CSV.
func Detect(raw string) Codec {
	trimmed := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(trimmed, "["):
		return &JSONCodec{}
	case strings.HasPrefix(trimmed, "<"):
		return &XMLCodec{}
	default:
		return &CSVCodec{}
	}
}

// Decoder implements ports.KeyDecoder for any save format by detecting it per value.
type Decoder struct{}

// DecodeKeys returns the picked keys of a raw value in order. Blank keys are dropped.
func (Decoder) DecodeKeys(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return Detect(raw).Decode(raw)
}

// Keys returns the keys of items as a PickedItem list with empty labels.
func Keys(keys []string) []PickedItem {
	items := make([]PickedItem, 0, len(keys))
	for _, k := range keys {
		items = append(items, PickedItem{Key: k})
	}
	return items
}

func compact(keys []string) []string {
	out := keys[:0]
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
