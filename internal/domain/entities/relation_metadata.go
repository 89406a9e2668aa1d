package entities

import (
	"encoding/xml"
	"strconv"
	"strings"
	"unicode/utf8"
)

// SortOrderUnset marks a sort order (or id) that is absent from a relation comment.
const SortOrderUnset = -1

// NestedGroupAliasPrefix marks a property that lives inside a repeating property group.
// Aliases look like "archetype-property-<instance>-<...>".
const NestedGroupAliasPrefix = "archetype-property"

const (
	nestedGroupSeparator    = "-"
	nestedGroupInstanceSlot = 2
)

// RelationMetadata is what a picker records in a relation's comment so the relation can
// be traced back to the property that wrote it. ParentSortOrder and ChildSortOrder hold
// the position of the link in the picker on each side of the relation.
type RelationMetadata struct {
	PropertyAlias   string `json:"property_alias"`
	PropertyTypeID  int    `json:"property_type_id"`
	DataTypeID      int    `json:"data_type_id"`
	ParentSortOrder int    `json:"parent_sort_order"`
	ChildSortOrder  int    `json:"child_sort_order"`
}

// EmptyRelationMetadata returns metadata with every numeric field unset.
func EmptyRelationMetadata() RelationMetadata {
	return RelationMetadata{
		PropertyTypeID:  SortOrderUnset,
		DataTypeID:      SortOrderUnset,
		ParentSortOrder: SortOrderUnset,
		ChildSortOrder:  SortOrderUnset,
	}
}

// NewRelationMetadata builds metadata for a property with both sort orders unset.
func NewRelationMetadata(prop *PropertyDescriptor) RelationMetadata {
	return RelationMetadata{
		PropertyAlias:   prop.Alias,
		PropertyTypeID:  prop.ID,
		DataTypeID:      prop.DataTypeID,
		ParentSortOrder: SortOrderUnset,
		ChildSortOrder:  SortOrderUnset,
	}
}

// relationMappingXML mirrors the stored attribute fragment. Pointers distinguish a
// missing attribute from an empty one.
type relationMappingXML struct {
	PropertyAlias   *string `xml:"PropertyAlias,attr"`
	PropertyTypeID  *string `xml:"PropertyTypeId,attr"`
	DataTypeID      *string `xml:"DataTypeDefinitionId,attr"`
	ParentSortOrder *string `xml:"ParentSortOrder,attr"`
	ChildSortOrder  *string `xml:"ChildSortOrder,attr"`
}

// EncodeRelationMetadata renders metadata in its canonical stored form. Every field is
// written, including unset sort orders. An alias that fails EncodableAlias is written
// with U+FFFD in place of the offending bytes and does not round-trip.
func EncodeRelationMetadata(m RelationMetadata) string {
	var b strings.Builder
	b.WriteString(`<RelationMapping PropertyAlias="`)
	_ = xml.EscapeText(&b, []byte(m.PropertyAlias))
	b.WriteString(`" PropertyTypeId="`)
	b.WriteString(strconv.Itoa(m.PropertyTypeID))
	b.WriteString(`" DataTypeDefinitionId="`)
	b.WriteString(strconv.Itoa(m.DataTypeID))
	b.WriteString(`" ParentSortOrder="`)
	b.WriteString(strconv.Itoa(m.ParentSortOrder))
	b.WriteString(`" ChildSortOrder="`)
	b.WriteString(strconv.Itoa(m.ChildSortOrder))
	b.WriteString(`" />`)
	return b.String()
}

// DecodeRelationMetadata parses a relation comment. It never fails: older comments
// without an alias or sort orders decode with those fields empty or unset, and anything
// unparseable decodes to EmptyRelationMetadata.
func DecodeRelationMetadata(comment string) RelationMetadata {
	if strings.TrimSpace(comment) == "" {
		return EmptyRelationMetadata()
	}

	var raw relationMappingXML
	if err := xml.Unmarshal([]byte(comment), &raw); err != nil {
		return EmptyRelationMetadata()
	}

	m := EmptyRelationMetadata()
	if raw.PropertyAlias != nil {
		m.PropertyAlias = *raw.PropertyAlias
	}

	var ok bool
	if m.PropertyTypeID, ok = requiredInt(raw.PropertyTypeID); !ok {
		return EmptyRelationMetadata()
	}
	if m.DataTypeID, ok = requiredInt(raw.DataTypeID); !ok {
		return EmptyRelationMetadata()
	}
	if m.ParentSortOrder, ok = optionalInt(raw.ParentSortOrder); !ok {
		return EmptyRelationMetadata()
	}
	if m.ChildSortOrder, ok = optionalInt(raw.ChildSortOrder); !ok {
		return EmptyRelationMetadata()
	}
	return m
}

func requiredInt(s *string) (int, bool) {
	if s == nil {
		return SortOrderUnset, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(*s))
	if err != nil {
		return SortOrderUnset, false
	}
	return n, true
}

func optionalInt(s *string) (int, bool) {
	if s == nil {
		return SortOrderUnset, true
	}
	return requiredInt(s)
}

// EncodableAlias reports whether alias survives a metadata round trip: valid UTF-8 made
// only of characters XML allows.
func EncodableAlias(alias string) bool {
	if !utf8.ValidString(alias) {
		return false
	}
	for _, r := range alias {
		if !isXMLChar(r) {
			return false
		}
	}
	return true
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}

// IsNestedGroupAlias reports whether alias belongs to a property inside a repeating group.
func IsNestedGroupAlias(alias string) bool {
	return strings.HasPrefix(alias, NestedGroupAliasPrefix)
}

// SameGroupInstance reports whether two nested-group aliases point at the same group
// instance. Aliases that cannot be split into enough segments never match.
func SameGroupInstance(a, b string) bool {
	as := strings.Split(a, nestedGroupSeparator)
	bs := strings.Split(b, nestedGroupSeparator)
	if len(as) <= nestedGroupInstanceSlot || len(bs) <= nestedGroupInstanceSlot {
		return false
	}
	return as[nestedGroupInstanceSlot] == bs[nestedGroupInstanceSlot]
}
