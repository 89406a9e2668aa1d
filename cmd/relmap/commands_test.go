package main

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/relmap/internal/application/handlers"
	"github.com/ersonp/relmap/internal/infrastructure/config"
)

func initProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := handlers.NewInitHandler().Handle(dir)
	require.NoError(t, err)

	old := globalDir
	globalDir = dir
	t.Cleanup(func() { globalDir = old })
	return dir
}

func TestWithDeps_CreatesDatabaseAndSeeds(t *testing.T) {
	dir := initProject(t)
	ctx := context.Background()

	err := withDeps(ctx, func(d *Deps) error {
		types, err := d.RelationTypes.HandleList(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, types)
		return nil
	})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(config.ConfigDir(dir), config.DefaultDatabaseFile))
}

func TestWithDeps_NotInitialized(t *testing.T) {
	old := globalDir
	globalDir = t.TempDir()
	t.Cleanup(func() { globalDir = old })

	err := withDeps(context.Background(), func(d *Deps) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestWithDeps_PicksMirroredAcrossRuns(t *testing.T) {
	initProject(t)
	ctx := context.Background()

	var articleID int
	var related []int
	err := withDeps(ctx, func(d *Deps) error {
		_, err := d.RelationTypes.HandleAdd(ctx, handlers.RelationTypeInput{
			Alias: "relatedArticles", ParentKind: "content", ChildKind: "content",
		})
		require.NoError(t, err)
		_, err = d.Schema.HandleAddContentType(ctx, "article", "content", "Article")
		require.NoError(t, err)
		_, err = d.Schema.HandleAddDataType(ctx, handlers.DataTypeInput{
			Name: "Related", EditorAlias: "nuPickers.JsonCheckBoxPicker", RelationTypeAlias: "relatedArticles",
		})
		require.NoError(t, err)
		_, err = d.Schema.HandleAddProperty(ctx, "article", "related", "Related")
		require.NoError(t, err)

		var ids []string
		for _, name := range []string{"One", "Two"} {
			out, err := d.Entities.HandleSave(ctx, handlers.EntityInput{ContentType: "article", Name: name})
			require.NoError(t, err)
			ids = append(ids, strconv.Itoa(out.Entity.ID))
			related = append(related, out.Entity.ID)
		}
		out, err := d.Entities.HandleSave(ctx, handlers.EntityInput{
			ContentType: "article",
			Name:        "Main",
			Picks:       map[string][]string{"related": {ids[1], ids[0]}},
		})
		require.NoError(t, err)
		assert.Empty(t, out.Warnings)
		articleID = out.Entity.ID
		return nil
	})
	require.NoError(t, err)

	err = withDeps(ctx, func(d *Deps) error {
		view, err := d.Entities.HandleShow(ctx, articleID)
		require.NoError(t, err)
		require.NotNil(t, view)
		for _, p := range view.Properties {
			if p.Alias == "related" {
				assert.Equal(t, []int{related[1], related[0]}, p.RelatedIDs)
			}
		}

		result, err := d.Relations.HandleList(ctx, "relatedArticles", handlers.RelationListOptions{EntityID: articleID})
		require.NoError(t, err)
		assert.Len(t, result.Relations, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestCompleteRelationTypes(t *testing.T) {
	initProject(t)

	aliases, directive := completeRelationTypes(&cobra.Command{}, nil, "")
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
	assert.Contains(t, aliases, "relateDocumentOnCopy")

	aliases, _ = completeRelationTypes(&cobra.Command{}, []string{"relateDocumentOnCopy"}, "")
	assert.Empty(t, aliases)
}
