package services

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ersonp/relmap/internal/domain/entities"
	"github.com/ersonp/relmap/internal/domain/mocks"
)

const (
	ctArticle = "article"
	ctAuthor  = "author"

	tagsPropID    = 100
	relatedPropID = 101
	tagsDataType  = 500

	articleFriendsPropID = 200
	authorFriendsPropID  = 201
	friendsDataType      = 600

	nestedPropID = 300
	nestedAlias  = "archetype-property-abc-links"
)

type fixture struct {
	store  *mocks.RelationStore
	host   *mocks.Host
	logs   *observer.ObservedLogs
	logger *zap.SugaredLogger

	tagged  *entities.RelationType
	friends *entities.RelationType
}

// newFixture seeds two relation types, content entities 3..10 and 30, a media entity 20,
// and the picker properties on the article and author content types.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	f := &fixture{
		store:  mocks.NewRelationStore(),
		host:   mocks.NewHost(),
		logs:   logs,
		logger: zap.New(core).Sugar(),
	}

	f.tagged = f.store.AddRelationType(entities.RelationType{
		Alias: "tagged", Name: "Tagged", ParentKind: entities.KindContent, ChildKind: entities.KindContent,
	})
	f.friends = f.store.AddRelationType(entities.RelationType{
		Alias: "friends", Name: "Friends", Bidirectional: true, ParentKind: entities.KindContent, ChildKind: entities.KindContent,
	})

	for id := 3; id <= 10; id++ {
		f.host.AddEntity(id, entities.KindContent, ctArticle)
	}
	f.host.AddEntity(30, entities.KindContent, ctAuthor)
	f.host.AddEntity(20, entities.KindMedia, "image")

	f.host.AddProperty(ctArticle, entities.PropertyDescriptor{ID: tagsPropID, Kind: entities.KindContent, Alias: "tags", DataTypeID: tagsDataType, EditorAlias: "nuPickers.XmlCheckBoxPicker"})
	f.host.AddProperty(ctArticle, entities.PropertyDescriptor{ID: relatedPropID, Kind: entities.KindContent, Alias: "related", DataTypeID: tagsDataType, EditorAlias: "nuPickers.XmlCheckBoxPicker"})
	f.host.AddProperty(ctArticle, entities.PropertyDescriptor{ID: articleFriendsPropID, Kind: entities.KindContent, Alias: "friends", DataTypeID: friendsDataType, EditorAlias: "nuPickers.JsonPrefetchListPicker"})
	f.host.AddProperty(ctArticle, entities.PropertyDescriptor{ID: nestedPropID, Kind: entities.KindContent, Alias: nestedAlias, DataTypeID: tagsDataType, EditorAlias: "nuPickers.XmlCheckBoxPicker"})
	f.host.AddProperty(ctAuthor, entities.PropertyDescriptor{ID: authorFriendsPropID, Kind: entities.KindContent, Alias: "friends", DataTypeID: friendsDataType, EditorAlias: "nuPickers.JsonPrefetchListPicker"})

	return f
}

func (f *fixture) synchronizer() *RelationSynchronizer {
	return NewRelationSynchronizer(f.store, f.store, f.host, f.host, f.logger)
}

// relate stores a relation written by the property with the given identity.
func (f *fixture) relate(rt *entities.RelationType, parent, child int, meta entities.RelationMetadata) int {
	return f.store.AddRelation(entities.Relation{
		ParentID:       parent,
		ChildID:        child,
		RelationTypeID: rt.ID,
		Comment:        entities.EncodeRelationMetadata(meta),
	})
}

func tagsMeta(parentOrder, childOrder int) entities.RelationMetadata {
	return entities.RelationMetadata{
		PropertyAlias:   "tags",
		PropertyTypeID:  tagsPropID,
		DataTypeID:      tagsDataType,
		ParentSortOrder: parentOrder,
		ChildSortOrder:  childOrder,
	}
}

func friendsMeta(propID, parentOrder, childOrder int) entities.RelationMetadata {
	return entities.RelationMetadata{
		PropertyAlias:   "friends",
		PropertyTypeID:  propID,
		DataTypeID:      friendsDataType,
		ParentSortOrder: parentOrder,
		ChildSortOrder:  childOrder,
	}
}

// owned returns the relations of rt whose child is contextID and whose comment was written
// by propID, keyed by parent id.
func (f *fixture) owned(rt *entities.RelationType, contextID, propID int) map[int]entities.RelationMetadata {
	result := make(map[int]entities.RelationMetadata)
	for _, rel := range f.store.Relations() {
		if rel.RelationTypeID != rt.ID || rel.ChildID != contextID {
			continue
		}
		meta := entities.DecodeRelationMetadata(rel.Comment)
		if meta.PropertyTypeID == propID {
			result[rel.ParentID] = meta
		}
	}
	return result
}

// pairCount counts the relations of rt linking a and b in either direction.
func (f *fixture) pairCount(rt *entities.RelationType, a, b int) int {
	n := 0
	for _, rel := range f.store.Relations() {
		if rel.RelationTypeID != rt.ID {
			continue
		}
		if (rel.ParentID == a && rel.ChildID == b) || (rel.ParentID == b && rel.ChildID == a) {
			n++
		}
	}
	return n
}
