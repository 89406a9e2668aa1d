package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/relmap/internal/domain/entities"
)

func TestSchemaHandler_ContentTypes(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	ct, err := app.schema.HandleAddContentType(ctx, "image", "media", "")
	require.NoError(t, err)
	assert.Equal(t, "image", ct.Name)
	assert.Equal(t, entities.KindMedia, ct.Kind)

	_, err = app.schema.HandleAddContentType(ctx, "x", "widget", "")
	assert.Error(t, err)
	_, err = app.schema.HandleAddContentType(ctx, " ", "content", "")
	assert.Error(t, err)

	all, err := app.schema.HandleListContentTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSchemaHandler_HandleAddDataType(t *testing.T) {
	tests := []struct {
		name    string
		input   DataTypeInput
		wantErr string
	}{
		{name: "missing name", input: DataTypeInput{EditorAlias: "e"}, wantErr: "name is required"},
		{name: "missing editor", input: DataTypeInput{Name: "n"}, wantErr: "editor alias is required"},
		{name: "bad format", input: DataTypeInput{Name: "n", EditorAlias: "e", SaveFormat: "yaml"}, wantErr: "invalid save format"},
		{name: "unknown relation type", input: DataTypeInput{Name: "n", EditorAlias: "e", RelationTypeAlias: "nope"}, wantErr: "not found"},
		{name: "relations only without type", input: DataTypeInput{Name: "n", EditorAlias: "e", SaveFormat: "relationsOnly"}, wantErr: "requires a relation type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			_, err := app.schema.HandleAddDataType(context.Background(), tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSchemaHandler_HandleAddDataType_RelationTypeLookup(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	_, err := app.schema.HandleAddDataType(ctx, DataTypeInput{Name: "Related", EditorAlias: "e", RelationTypeAlias: "related"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "known: relateDocumentOnCopy")

	// Adding the type afterwards must not be hidden by the earlier lookup.
	_, err = app.types.HandleAdd(ctx, RelationTypeInput{Alias: "related", ParentKind: "content", ChildKind: "content"})
	require.NoError(t, err)

	dt, err := app.schema.HandleAddDataType(ctx, DataTypeInput{Name: "Related", EditorAlias: "e", RelationTypeAlias: "related"})
	require.NoError(t, err)
	assert.Equal(t, "related", dt.RelationTypeAlias)
}

func TestSchemaHandler_DataTypesAndProperties(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	app.seedArticles(t, entities.SaveFormatXML)

	dts, err := app.schema.HandleListDataTypes(ctx)
	require.NoError(t, err)
	require.Len(t, dts, 2)

	_, err = app.schema.HandleAddDataType(ctx, DataTypeInput{Name: "Text", EditorAlias: "Umbraco.Textbox"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	props, err := app.schema.HandleListProperties(ctx, "article")
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, "tags", props[0].Property.Alias)
	assert.True(t, props[0].Picker)
	require.NotNil(t, props[0].DataType)
	assert.Equal(t, entities.SaveFormatXML, props[0].DataType.SaveFormat)
	assert.False(t, props[1].Picker)

	_, err = app.schema.HandleAddProperty(ctx, "nope", "x", "Text")
	assert.ErrorContains(t, err, "content type")
	_, err = app.schema.HandleAddProperty(ctx, "article", "x", "Nope")
	assert.ErrorContains(t, err, "data type")
	_, err = app.schema.HandleAddProperty(ctx, "article", "", "Text")
	assert.ErrorContains(t, err, "alias is required")

	_, err = app.schema.HandleAddProperty(ctx, "article", "bad\x07alias", "Text")
	assert.ErrorContains(t, err, "cannot be stored in relation metadata")
}
