package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/relmap/internal/domain/entities"
)

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"title=Hello world", "summary=a=b", "title=Again"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"title": "Again", "summary": "a=b"}, got)

	got, err = parseAssignments(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParseAssignments_Invalid(t *testing.T) {
	tests := []string{"title", "=value", " =value"}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := parseAssignments([]string{input})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "alias=value")
		})
	}
}

func TestParsePicks(t *testing.T) {
	got, err := parsePicks([]string{"related=7, 3,,9", "images="})
	require.NoError(t, err)

	assert.Equal(t, []string{"7", "3", "9"}, got["related"])
	require.Contains(t, got, "images")
	assert.Empty(t, got["images"])
	assert.NotNil(t, got["images"])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	err := writeJSON(&buf, entities.RelationType{Alias: "relatedArticles", Name: "A & B", ParentKind: entities.KindContent})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"name": "A & B"`)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, "relatedArticles", parsed["alias"])
	assert.Equal(t, "content", parsed["parent_kind"])
}

func TestValidateFormat(t *testing.T) {
	assert.NoError(t, validateFormat("table"))
	assert.NoError(t, validateFormat("json"))

	err := validateFormat("tree")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid: table, json")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "a long ...", truncate("a long sentence", 10))
}

func TestFormatDetails(t *testing.T) {
	assert.Equal(t, "-", formatDetails(nil))
	assert.Equal(t, "child=5 parent=3 property=related",
		formatDetails(map[string]any{"property": "related", "parent": 3, "child": 5}))
}

func TestSortOrderAndJoinInts(t *testing.T) {
	assert.Equal(t, "-", sortOrder(entities.SortOrderUnset))
	assert.Equal(t, "2", sortOrder(2))
	assert.Equal(t, "-", joinInts(nil))
	assert.Equal(t, "7,8", joinInts([]int{7, 8}))
}

func TestDeref(t *testing.T) {
	v := "7,8"
	assert.Equal(t, "7,8", deref(&v))
	assert.Equal(t, "<null>", deref(nil))
}
