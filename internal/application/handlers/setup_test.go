package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ersonp/relmap/internal/application/host"
	"github.com/ersonp/relmap/internal/domain/entities"
	"github.com/ersonp/relmap/internal/domain/services"
	"github.com/ersonp/relmap/internal/infrastructure/config"
	"github.com/ersonp/relmap/internal/infrastructure/relationaldb/sqlite"
	"github.com/ersonp/relmap/internal/infrastructure/saveformat"
)

// testApp wires every handler over an in-memory SQLite database.
type testApp struct {
	repo          *sqlite.Repository
	types         *RelationTypeHandler
	schema        *SchemaHandler
	entities      *EntityHandler
	relations     *RelationHandler
	relationTypes *services.RelationTypeService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	repo, err := sqlite.NewRepository(config.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.EnsureSchema(ctx))

	logger := zaptest.NewLogger(t).Sugar()
	pickers := entities.NewPickerEditorSet(nil)

	relationTypes := services.NewRelationTypeService(repo)
	require.NoError(t, relationTypes.LoadDefaults(ctx))
	relationships := services.NewRelationshipService(repo, repo)

	h := host.New(repo, repo, pickers, logger)
	synchronizer := services.NewRelationSynchronizer(repo, repo, repo, repo, logger).WithAuditLog(repo)
	coordinator := services.NewSaveCoordinator(synchronizer, repo, h.Accessor(), saveformat.Decoder{}, repo, logger, services.CoordinatorOptions{})
	coordinator.Register(h.Sources()...)

	return &testApp{
		repo:          repo,
		types:         NewRelationTypeHandler(relationTypes, relationships),
		schema:        NewSchemaHandler(repo, relationTypes, pickers),
		entities:      NewEntityHandler(h, repo, repo, services.NewRelationReader(repo, repo), pickers),
		relations:     NewRelationHandler(relationships, repo),
		relationTypes: relationTypes,
	}
}

// seedArticles creates an "article" content type with a "tags" picker mapped to a
// "tagged" relation type in the given save format.
func (a *testApp) seedArticles(t *testing.T, format entities.SaveFormat) {
	t.Helper()
	ctx := context.Background()

	_, err := a.types.HandleAdd(ctx, RelationTypeInput{Alias: "tagged", ParentKind: "content", ChildKind: "content"})
	require.NoError(t, err)
	_, err = a.schema.HandleAddContentType(ctx, "article", "content", "Article")
	require.NoError(t, err)
	_, err = a.schema.HandleAddDataType(ctx, DataTypeInput{
		Name:              "Tag picker",
		EditorAlias:       "nuPickers.DotNetCheckBoxPicker",
		RelationTypeAlias: "tagged",
		SaveFormat:        string(format),
	})
	require.NoError(t, err)
	_, err = a.schema.HandleAddDataType(ctx, DataTypeInput{Name: "Text", EditorAlias: "Umbraco.Textbox"})
	require.NoError(t, err)
	_, err = a.schema.HandleAddProperty(ctx, "article", "tags", "Tag picker")
	require.NoError(t, err)
	_, err = a.schema.HandleAddProperty(ctx, "article", "title", "Text")
	require.NoError(t, err)
}

func (a *testApp) saveArticle(t *testing.T, name string) *entities.Entity {
	t.Helper()
	out, err := a.entities.HandleSave(context.Background(), EntityInput{ContentType: "article", Name: name})
	require.NoError(t, err)
	return out.Entity
}
