package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/relmap/internal/domain/entities"
)

func TestRelationTypeHandler_HandleList_WithDefaults(t *testing.T) {
	app := newTestApp(t)

	types, err := app.types.HandleList(context.Background())
	require.NoError(t, err)
	assert.Len(t, types, len(entities.DefaultRelationTypes))
}

func TestRelationTypeHandler_HandleAdd(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	rt, err := app.types.HandleAdd(ctx, RelationTypeInput{
		Alias:         "relatedArticles",
		Name:          "Related articles",
		ParentKind:    "Content",
		ChildKind:     "content",
		Bidirectional: true,
	})
	require.NoError(t, err)
	assert.NotZero(t, rt.ID)
	assert.True(t, rt.Bidirectional)
	assert.Equal(t, entities.KindContent, rt.ParentKind)

	_, err = app.types.HandleAdd(ctx, RelationTypeInput{Alias: "relatedArticles", ParentKind: "content", ChildKind: "content"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRelationTypeHandler_HandleAdd_InvalidKind(t *testing.T) {
	app := newTestApp(t)

	_, err := app.types.HandleAdd(context.Background(), RelationTypeInput{Alias: "x", ParentKind: "widget", ChildKind: "content"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parent kind")

	_, err = app.types.HandleAdd(context.Background(), RelationTypeInput{Alias: "x", ParentKind: "media", ChildKind: ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "child kind")
}

func TestRelationTypeHandler_HandleDescribe(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	info, err := app.types.HandleDescribe(ctx, "relateDocumentOnCopy")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.True(t, info.Default)
	assert.Zero(t, info.Relations)

	missing, err := app.types.HandleDescribe(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRelationTypeHandler_HandleRemove(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	err := app.types.HandleRemove(ctx, "relateDocumentOnCopy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default")

	_, err = app.types.HandleAdd(ctx, RelationTypeInput{Alias: "custom", ParentKind: "member", ChildKind: "member"})
	require.NoError(t, err)
	require.NoError(t, app.types.HandleRemove(ctx, "custom"))

	info, err := app.types.HandleDescribe(ctx, "custom")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestRelationTypeHandler_HandleAliases(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	_, err := app.types.HandleAdd(ctx, RelationTypeInput{Alias: "aaaFirst", ParentKind: "content", ChildKind: "media"})
	require.NoError(t, err)

	aliases, err := app.types.HandleAliases(ctx)
	require.NoError(t, err)
	require.Len(t, aliases, len(entities.DefaultRelationTypes)+1)
	assert.Equal(t, "aaaFirst", aliases[0])
	assert.IsNonDecreasing(t, aliases)
}
