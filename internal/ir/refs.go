package ir

import "fmt"

// ComplexReferenceParentType is the kind of entity that contains a child in a
// complex reference.
type ComplexReferenceParentType int

const (
	ParentUnknown ComplexReferenceParentType = iota
	ParentFeature
	ParentModule
	ParentComponentGroup
)

var parentTypeNames = map[ComplexReferenceParentType]string{
	ParentUnknown:        "unknown",
	ParentFeature:        "feature",
	ParentModule:         "module",
	ParentComponentGroup: "componentGroup",
}

func (t ComplexReferenceParentType) String() string {
	if name, ok := parentTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ParentType(%d)", int(t))
}

// ComplexReferenceChildType is the kind of entity being contained.
type ComplexReferenceChildType int

const (
	ChildUnknown ComplexReferenceChildType = iota
	ChildFeature
	ChildComponent
	ChildComponentGroup
	ChildModule
)

var childTypeNames = map[ComplexReferenceChildType]string{
	ChildUnknown:        "unknown",
	ChildFeature:        "feature",
	ChildComponent:      "component",
	ChildComponentGroup: "componentGroup",
	ChildModule:         "module",
}

func (t ComplexReferenceChildType) String() string {
	if name, ok := childTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ChildType(%d)", int(t))
}

// ComplexReference is a containment edge between authoring entities. A child
// may have many non-primary parents; the linker decides what to do with
// more than one primary parent.
type ComplexReference struct {
	Section        string                     `json:"section"`
	SourceLine     SourceLine                 `json:"source_line"`
	ParentType     ComplexReferenceParentType `json:"parent_type"`
	ParentID       string                     `json:"parent_id"`
	ParentLanguage string                     `json:"parent_language,omitempty"`
	ChildType      ComplexReferenceChildType  `json:"child_type"`
	ChildID        string                     `json:"child_id"`
	Primary        bool                       `json:"primary"`
}

// FeatureBacklinkKind names the row family a feature backlink patches.
type FeatureBacklinkKind int

const (
	BacklinkUnknown FeatureBacklinkKind = iota
	BacklinkClass
	BacklinkExtension
	BacklinkShortcut
	BacklinkPublishComponent
	BacklinkTypeLib
)

var backlinkKindNames = map[FeatureBacklinkKind]string{
	BacklinkUnknown:          "unknown",
	BacklinkClass:            "class",
	BacklinkExtension:        "extension",
	BacklinkShortcut:         "shortcut",
	BacklinkPublishComponent: "publishComponent",
	BacklinkTypeLib:          "typeLib",
}

func (k FeatureBacklinkKind) String() string {
	if name, ok := backlinkKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("BacklinkKind(%d)", int(k))
}

// FeatureBacklink asks the linker to patch the target row's feature field
// with the feature that ends up owning the component.
type FeatureBacklink struct {
	Section     string              `json:"section"`
	SourceLine  SourceLine          `json:"source_line"`
	ComponentID string              `json:"component_id"`
	Kind        FeatureBacklinkKind `json:"kind"`
	Target      Symbol              `json:"target"`
}

// ValidReference asserts that a row with the given key exists in the table
// once all sections are linked.
type ValidReference struct {
	Section    string     `json:"section"`
	SourceLine SourceLine `json:"source_line"`
	Table      string     `json:"table"`
	Key        string     `json:"key"`
}

// Symbol returns the referenced symbol.
func (r ValidReference) Symbol() Symbol {
	return Symbol{Table: r.Table, Key: r.Key}
}
