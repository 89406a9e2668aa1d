package entities

import "strings"

// DefaultPickerEditors are the editor aliases recognised as pickers when the
// configuration does not list its own.
var DefaultPickerEditors = []string{
	"nuPickers.DotNetCheckBoxPicker",
	"nuPickers.DotNetDropDownPicker",
	"nuPickers.DotNetPrefetchListPicker",
	"nuPickers.DotNetTypeaheadListPicker",
	"nuPickers.JsonCheckBoxPicker",
	"nuPickers.JsonPrefetchListPicker",
	"nuPickers.SqlCheckBoxPicker",
	"nuPickers.SqlPrefetchListPicker",
	"nuPickers.XmlCheckBoxPicker",
	"nuPickers.XmlDropDownPicker",
	"nuPickers.XmlPrefetchListPicker",
	"nuPickers.XmlTypeaheadListPicker",
}

// PickerEditorSet is a case-insensitive set of picker editor aliases.
type PickerEditorSet map[string]struct{}

// NewPickerEditorSet builds a set from aliases, falling back to DefaultPickerEditors.
func NewPickerEditorSet(aliases []string) PickerEditorSet {
	if len(aliases) == 0 {
		aliases = DefaultPickerEditors
	}
	set := make(PickerEditorSet, len(aliases))
	for _, a := range aliases {
		set[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	return set
}

// Contains reports whether editorAlias is a picker editor.
func (s PickerEditorSet) Contains(editorAlias string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(editorAlias))]
	return ok
}

// DefaultRelationTypes are seeded by init. They mirror the relation types a host ships
// with and are never removed.
var DefaultRelationTypes = []RelationType{
	{Alias: "relateDocumentOnCopy", Name: "Relate Document On Copy", Bidirectional: true, ParentKind: KindContent, ChildKind: KindContent},
	{Alias: "relateParentDocumentOnDelete", Name: "Relate Parent Document On Delete", ParentKind: KindContent, ChildKind: KindContent},
	{Alias: "relateParentMediaFolderOnDelete", Name: "Relate Parent Media Folder On Delete", ParentKind: KindMedia, ChildKind: KindMedia},
}

// IsDefaultRelationType reports whether alias names a seeded relation type.
func IsDefaultRelationType(alias string) bool {
	for _, rt := range DefaultRelationTypes {
		if strings.EqualFold(rt.Alias, alias) {
			return true
		}
	}
	return false
}
