package saveformat

import (
	"encoding/xml"
	"fmt"
)

// xmlPicker is the stored document: <Picker><Picked Key="1">Label</Picked></Picker>.
type xmlPicker struct {
	XMLName xml.Name     `xml:"Picker"`
	Picked  []PickedItem `xml:"Picked"`
}

// XMLCodec reads and writes the Picker XML document.
type XMLCodec struct{}

// Decode returns the Key attributes of every Picked element.
func (c *XMLCodec) Decode(raw string) ([]string, error) {
	var doc xmlPicker
	if err := xml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("parsing XML value: %w", err)
	}
	keys := make([]string, 0, len(doc.Picked))
	for _, item := range doc.Picked {
		keys = append(keys, item.Key)
	}
	return compact(keys), nil
}

// Encode writes items as a Picker document.
func (c *XMLCodec) Encode(items []PickedItem) (string, error) {
	data, err := xml.Marshal(xmlPicker{Picked: items})
	if err != nil {
		return "", fmt.Errorf("writing XML value: %w", err)
	}
	return string(data), nil
}
