package compiler

import (
	"github.com/beevik/etree"

	"github.com/roach88/candle/internal/attrval"
	"github.com/roach88/candle/internal/extension"
	"github.com/roach88/candle/internal/ir"
)

// scope carries the values of enclosing elements down the traversal. It is
// passed by value; a handler changes what its children see by passing a
// modified copy.
type scope struct {
	parent string

	directoryID string
	componentID string
	featureID   string
	groupID     string
	fileID      string
	diskID      optInt
	win64       bool

	// Advertise state resolved by the nearest advertising ancestor.
	advertise   attrval.YesNo
	appID       string
	classID     string
	progID      string
	extensionID string
	typeLibID   string

	// Registry root and key inherited by nested registry elements.
	registryRoot optInt
	registryKey  string

	// Signature of the enclosing search element.
	signature string

	upgradeCode string
	sequence    string
	dialogID    string
	controlID   string
	customTable string
}

// ext projects the scope into the map handed to extensions.
func (s scope) ext() extension.Scope {
	out := extension.Scope{}
	if s.componentID != "" {
		out[extension.ScopeComponentID] = s.componentID
	}
	if s.directoryID != "" {
		out[extension.ScopeDirectoryID] = s.directoryID
	}
	if s.featureID != "" {
		out[extension.ScopeFeatureID] = s.featureID
	}
	if s.win64 {
		out[extension.ScopeWin64] = "yes"
	}
	return out
}

// parentType maps the enclosing element to the complex reference parent
// kind it represents, and the identifier of that parent.
func (c *compileContext) parentType(s scope) (ir.ComplexReferenceParentType, string, string) {
	switch s.parent {
	case "Feature", "FeatureRef":
		return ir.ParentFeature, s.featureID, ""
	case "ComponentGroup":
		return ir.ParentComponentGroup, s.groupID, ""
	case "Module":
		return ir.ParentModule, c.moduleID, c.moduleLanguage
	default:
		return ir.ParentUnknown, "", ""
	}
}

// keyPathKind names what a key path candidate points at.
type keyPathKind int

const (
	keyPathFile keyPathKind = iota
	keyPathRegistry
	keyPathDirectory
)

// keyPath is a component key path candidate bubbled up from a child.
type keyPath struct {
	id       string
	explicit bool
	kind     keyPathKind
}

// control is what a Control element hands back to its Dialog.
type control struct {
	row       *ir.Row
	id        string
	tabbable  bool
	isDefault bool
	isCancel  bool
}

// column is a CustomTable column declaration.
type column struct {
	name        string
	typ         string
	width       int64
	primaryKey  bool
	nullable    bool
	localizable bool
	category    string
	keyTable    string
	keyColumn   optInt
	minValue    optInt
	maxValue    optInt
	set         string
	description string
	modularize  string
}

// result is the explicit return of a handler: the derived values that
// bubble up through the recursion.
type result struct {
	element string

	keyPath *keyPath
	// signature is the search signature a search element resolved to.
	signature string
	// condition is the inner text of a Condition nested in a Component.
	condition string
	// id is the identity a child contributes to its parent, such as a
	// ProgId for its Class or a default MIME type for its Extension.
	id        string
	isDefault bool
	// value is the text a MultiStringValue contributes to its RegistryValue.
	value string

	control *control
	column  *column
	data    *cellData
	cells   []cellData
}

// cellData is one Data element of a custom table Row.
type cellData struct {
	column string
	value  string
}

type handlerFunc func(c *compileContext, el *etree.Element, s scope) result
