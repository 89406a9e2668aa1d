package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"

	"github.com/ersonp/relmap/internal/domain/entities"
	"github.com/ersonp/relmap/internal/domain/mocks"
	"github.com/ersonp/relmap/internal/domain/ports"
	"github.com/ersonp/relmap/pkg/errutil"
)

func strPtr(s string) *string { return &s }

// withDataTypes maps the tags data type onto "tagged" with the given format and the
// friends data type onto "friends" as relations only.
func (f *fixture) withDataTypes(tagsFormat entities.SaveFormat) {
	f.host.AddDataType(entities.DataType{ID: tagsDataType, Name: "Tags", EditorAlias: "nuPickers.XmlCheckBoxPicker", RelationTypeAlias: "tagged", SaveFormat: tagsFormat})
	f.host.AddDataType(entities.DataType{ID: friendsDataType, Name: "Friends", EditorAlias: "nuPickers.JsonPrefetchListPicker", RelationTypeAlias: "friends", SaveFormat: entities.SaveFormatRelationsOnly})
}

func (f *fixture) coordinator(opts CoordinatorOptions) *SaveCoordinator {
	return NewSaveCoordinator(f.synchronizer(), f.host, f.host, f.host, f.host, f.logger, opts)
}

func article(id int) *entities.Entity {
	return &entities.Entity{ID: id, Key: uuid.New(), Kind: entities.KindContent, ContentType: ctArticle, Dirty: true}
}

func saveEvent(ents ...*entities.Entity) ports.SaveEvent {
	return ports.SaveEvent{BatchID: uuid.New(), Kind: entities.KindContent, Entities: ents}
}

func TestSaveCoordinator_RelationsOnly(t *testing.T) {
	f := newFixture(t)
	f.withDataTypes(entities.SaveFormatRelationsOnly)
	c := f.coordinator(CoordinatorOptions{})
	ctx := context.Background()

	entity := article(10)
	entity.SetValue("tags", strPtr("7,8"))
	event := saveEvent(entity)

	require.NoError(t, c.Saving(ctx, event))
	assert.Nil(t, entity.Value("tags"))
	assert.Equal(t, 1, c.Staged())

	require.NoError(t, c.Saved(ctx, event))
	assert.Zero(t, c.Staged())

	owned := f.owned(f.tagged, 10, tagsPropID)
	require.Len(t, owned, 2)
	assert.Equal(t, 2, owned[7].ChildSortOrder)
	assert.Equal(t, 1, owned[8].ChildSortOrder)
}

func TestSaveCoordinator_ValueFormatKeepsValue(t *testing.T) {
	f := newFixture(t)
	f.withDataTypes(entities.SaveFormatCSV)
	c := f.coordinator(CoordinatorOptions{})
	ctx := context.Background()

	entity := article(10)
	entity.SetValue("tags", strPtr("5"))
	event := saveEvent(entity)

	require.NoError(t, c.Saving(ctx, event))
	require.NotNil(t, entity.Value("tags"))
	assert.Equal(t, "5", *entity.Value("tags"))

	require.NoError(t, c.Saved(ctx, event))
	assert.Contains(t, f.owned(f.tagged, 10, tagsPropID), 5)
}

func TestSaveCoordinator_NullValuePolicy(t *testing.T) {
	tests := []struct {
		name      string
		policy    NullValuePolicy
		wantKept  bool
		wantStage int
	}{
		{name: "clear deletes relations", policy: NullValueClear, wantKept: false, wantStage: 1},
		{name: "ignore keeps relations", policy: NullValueIgnore, wantKept: true, wantStage: 1},
		{name: "unknown falls back to clear", policy: "", wantKept: false, wantStage: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.withDataTypes(entities.SaveFormatRelationsOnly)
			f.relate(f.tagged, 5, 10, tagsMeta(entities.SortOrderUnset, 1))
			c := f.coordinator(CoordinatorOptions{NullValue: tt.policy})
			ctx := context.Background()

			// friends carries a value so the entity is staged under both policies.
			entity := article(10)
			entity.SetValue("friends", strPtr("6"))
			event := saveEvent(entity)

			require.NoError(t, c.Saving(ctx, event))
			assert.Equal(t, tt.wantStage, c.Staged())
			require.NoError(t, c.Saved(ctx, event))

			_, kept := f.owned(f.tagged, 10, tagsPropID)[5]
			assert.Equal(t, tt.wantKept, kept)
		})
	}
}

func TestSaveCoordinator_NullValueOnValueFormatClears(t *testing.T) {
	f := newFixture(t)
	f.withDataTypes(entities.SaveFormatCSV)
	f.relate(f.tagged, 5, 10, tagsMeta(entities.SortOrderUnset, 1))
	c := f.coordinator(CoordinatorOptions{NullValue: NullValueIgnore})
	ctx := context.Background()

	event := saveEvent(article(10))

	require.NoError(t, c.Saving(ctx, event))
	require.NoError(t, c.Saved(ctx, event))
	assert.Empty(t, f.owned(f.tagged, 10, tagsPropID))
}

func TestSaveCoordinator_CleanEntityNotStaged(t *testing.T) {
	f := newFixture(t)
	f.withDataTypes(entities.SaveFormatRelationsOnly)
	f.relate(f.tagged, 5, 10, tagsMeta(entities.SortOrderUnset, 1))
	c := f.coordinator(CoordinatorOptions{})
	ctx := context.Background()

	entity := article(10)
	entity.Dirty = false
	event := saveEvent(entity)

	require.NoError(t, c.Saving(ctx, event))
	assert.Zero(t, c.Staged())
	require.NoError(t, c.Saved(ctx, event))

	assert.Contains(t, f.owned(f.tagged, 10, tagsPropID), 5)
	assert.Zero(t, f.store.Saves)
	assert.Zero(t, f.store.Deletes)
}

func TestSaveCoordinator_NewEntityIDAssignedBetweenEvents(t *testing.T) {
	f := newFixture(t)
	f.withDataTypes(entities.SaveFormatRelationsOnly)
	f.host.AddEntity(11, entities.KindContent, ctArticle)
	c := f.coordinator(CoordinatorOptions{})
	ctx := context.Background()

	entity := article(0)
	entity.SetValue("tags", strPtr("7"))
	event := saveEvent(entity)

	require.NoError(t, c.Saving(ctx, event))
	entity.ID = 11
	require.NoError(t, c.Saved(ctx, event))

	assert.Contains(t, f.owned(f.tagged, 11, tagsPropID), 7)
}

func TestSaveCoordinator_ResolvesInstanceKeys(t *testing.T) {
	f := newFixture(t)
	f.withDataTypes(entities.SaveFormatRelationsOnly)
	known := uuid.New()
	f.host.AddKey(known, 6)
	c := f.coordinator(CoordinatorOptions{})
	ctx := context.Background()

	entity := article(10)
	entity.SetValue("tags", strPtr(fmt.Sprintf("%s,%s,bogus,7", known, uuid.New())))
	event := saveEvent(entity)

	require.NoError(t, c.Saving(ctx, event))
	require.NoError(t, c.Saved(ctx, event))

	owned := f.owned(f.tagged, 10, tagsPropID)
	require.Len(t, owned, 2)
	assert.Equal(t, 2, owned[6].ChildSortOrder)
	assert.Equal(t, 1, owned[7].ChildSortOrder)

	warnings := f.logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage("skipping unresolvable picked key")
	assert.Equal(t, 2, warnings.Len())
}

func TestSaveCoordinator_DecodeFailureKeepsValue(t *testing.T) {
	f := newFixture(t)
	f.withDataTypes(entities.SaveFormatRelationsOnly)
	f.host.DecodeErr = errors.New("bad value")
	c := f.coordinator(CoordinatorOptions{})

	entity := article(10)
	entity.SetValue("tags", strPtr("<broken"))

	err := c.Saving(context.Background(), saveEvent(entity))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "PICKER_DECODE_FAILED")
	require.NotNil(t, entity.Value("tags"))
	assert.Equal(t, "<broken", *entity.Value("tags"))
}

func TestSaveCoordinator_MissingKey(t *testing.T) {
	f := newFixture(t)
	f.withDataTypes(entities.SaveFormatRelationsOnly)
	c := f.coordinator(CoordinatorOptions{})

	entity := article(10)
	entity.Key = uuid.Nil
	entity.SetValue("tags", strPtr("7"))

	err := c.Saving(context.Background(), saveEvent(entity))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "STAGING_KEY_MISSING")
	assert.Zero(t, c.Staged())
}

func TestSaveCoordinator_FailureIsolatedAndStagingDrained(t *testing.T) {
	f := newFixture(t)
	f.withDataTypes(entities.SaveFormatRelationsOnly)
	f.store.SaveHook = func(rel *entities.Relation) error {
		if rel.ChildID == 9 {
			return errors.New("write failed")
		}
		return nil
	}
	c := f.coordinator(CoordinatorOptions{})
	ctx := context.Background()

	failing := article(9)
	failing.SetValue("tags", strPtr("5"))
	ok := article(10)
	ok.SetValue("tags", strPtr("7"))
	event := saveEvent(failing, ok)

	require.NoError(t, c.Saving(ctx, event))
	err := c.Saved(ctx, event)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "RELATION_RECONCILE_FAILED")

	assert.Zero(t, c.Staged())
	assert.Contains(t, f.owned(f.tagged, 10, tagsPropID), 7)
	assert.Empty(t, f.owned(f.tagged, 9, tagsPropID))
	assert.Positive(t, f.logs.FilterLevelExact(zapcore.ErrorLevel).FilterMessage("reconciling relations").Len())
}

func TestSaveCoordinator_SavedWithoutSaving(t *testing.T) {
	f := newFixture(t)
	f.withDataTypes(entities.SaveFormatRelationsOnly)
	f.relate(f.tagged, 5, 10, tagsMeta(entities.SortOrderUnset, 1))
	c := f.coordinator(CoordinatorOptions{})

	require.NoError(t, c.Saved(context.Background(), saveEvent(article(10))))
	assert.Contains(t, f.owned(f.tagged, 10, tagsPropID), 5)
}

func TestSaveCoordinator_BatchesAreIndependent(t *testing.T) {
	f := newFixture(t)
	f.withDataTypes(entities.SaveFormatRelationsOnly)
	c := f.coordinator(CoordinatorOptions{})
	ctx := context.Background()

	first := article(9)
	first.SetValue("tags", strPtr("5"))
	second := article(10)
	second.SetValue("tags", strPtr("6"))
	eventA := saveEvent(first)
	eventB := saveEvent(second)

	require.NoError(t, c.Saving(ctx, eventA))
	require.NoError(t, c.Saving(ctx, eventB))
	assert.Equal(t, 2, c.Staged())

	require.NoError(t, c.Saved(ctx, eventB))
	assert.Equal(t, 1, c.Staged())
	assert.Empty(t, f.owned(f.tagged, 9, tagsPropID))
	assert.Contains(t, f.owned(f.tagged, 10, tagsPropID), 6)

	require.NoError(t, c.Saved(ctx, eventA))
	assert.Zero(t, c.Staged())
	assert.Contains(t, f.owned(f.tagged, 9, tagsPropID), 5)
}

func TestSaveCoordinator_RegisteredSources(t *testing.T) {
	f := newFixture(t)
	f.withDataTypes(entities.SaveFormatRelationsOnly)
	c := f.coordinator(CoordinatorOptions{})
	ctx := context.Background()

	sources := make([]*mocks.SaveSource, 0, len(entities.AllKinds))
	for _, kind := range entities.AllKinds {
		sources = append(sources, mocks.NewSaveSource(kind))
	}
	c.Register(sources[0], sources[1], sources[2])

	entity := article(10)
	entity.SetValue("tags", strPtr("8,7"))
	event := saveEvent(entity)

	require.NoError(t, sources[0].FireSaving(ctx, event))
	require.NoError(t, sources[0].FireSaved(ctx, event))

	owned := f.owned(f.tagged, 10, tagsPropID)
	assert.Equal(t, 2, owned[8].ChildSortOrder)
	assert.Equal(t, 1, owned[7].ChildSortOrder)
}

func TestSaveCoordinator_AbortedBatchDiscarded(t *testing.T) {
	f := newFixture(t)
	f.withDataTypes(entities.SaveFormatRelationsOnly)
	c := f.coordinator(CoordinatorOptions{})
	ctx := context.Background()

	source := mocks.NewSaveSource(entities.KindContent)
	c.Register(source)

	entity := article(10)
	entity.SetValue("tags", strPtr("7"))
	event := saveEvent(entity)

	require.NoError(t, source.FireSaving(ctx, event))
	assert.Equal(t, 1, c.Staged())

	assert.Nil(t, entity.Value("tags"))

	require.NoError(t, source.FireAborted(ctx, event))
	assert.Zero(t, c.Staged())
	assert.Empty(t, f.owned(f.tagged, 10, tagsPropID))
	require.NotNil(t, entity.Value("tags"))
	assert.Equal(t, "7", *entity.Value("tags"))

	retry := saveEvent(entity)
	require.NoError(t, source.FireSaving(ctx, retry))
	require.NoError(t, source.FireSaved(ctx, retry))
	assert.Contains(t, f.owned(f.tagged, 10, tagsPropID), 7)
}

func TestSaveCoordinator_Workers(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	f.withDataTypes(entities.SaveFormatRelationsOnly)
	c := f.coordinator(CoordinatorOptions{Workers: 4})
	ctx := context.Background()

	var batch []*entities.Entity
	for id := 3; id <= 10; id++ {
		e := article(id)
		e.SetValue("tags", strPtr(fmt.Sprintf("%d,30", 3+(id+1)%8)))
		batch = append(batch, e)
	}
	event := saveEvent(batch...)

	require.NoError(t, c.Saving(ctx, event))
	require.NoError(t, c.Saved(ctx, event))
	assert.Zero(t, c.Staged())

	for id := 3; id <= 10; id++ {
		owned := f.owned(f.tagged, id, tagsPropID)
		assert.Len(t, owned, 2, "entity %d", id)
		assert.Equal(t, 1, owned[30].ChildSortOrder)
	}
}
