// Package extension defines the compiler plug-in contract and the registry
// that admits plug-ins by target namespace.
//
// A plug-in claims one XML namespace. The dispatcher hands it every element
// and attribute in that namespace, together with a Core handle scoped to the
// compile in progress. Plug-ins contribute table definitions, merged into a
// copy-on-write effective schema, and an XSD merged by the schema validator.
package extension

import (
	"io/fs"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/ident"
	"github.com/roach88/candle/internal/ir"
)

// Well-known Scope keys.
const (
	ScopeComponentID = "ComponentId"
	ScopeDirectoryID = "DirectoryId"
	ScopeFeatureID   = "FeatureId"
	ScopeWin64       = "Win64"
)

// Scope carries values of the enclosing elements, such as the owning
// component, into plug-in callbacks.
type Scope map[string]string

// With returns a copy of s with key set to value.
func (s Scope) With(key, value string) Scope {
	cp := make(Scope, len(s)+1)
	for k, v := range s {
		cp[k] = v
	}
	cp[key] = value
	return cp
}

// Core is the compiler surface available to plug-ins during one compile.
type Core interface {
	// SourceLine returns the position recorded for el.
	SourceLine(el *etree.Element) ir.SourceLine
	// CreateRow appends a zero-initialized row to the active section.
	CreateRow(loc ir.SourceLine, table string) (*ir.Row, error)
	// EnsureTable guarantees the table exists in the output.
	EnsureTable(loc ir.SourceLine, table string)
	AddValidReference(loc ir.SourceLine, table string, keys ...string)
	AddComplexReference(ref ir.ComplexReference)
	AddFeatureBacklink(loc ir.SourceLine, componentID string, kind ir.FeatureBacklinkKind, target ir.Symbol)
	GenerateIdentifier(kind ident.Kind, args ...string) string
	OnMessage(m diag.Message)
	UnexpectedAttribute(el *etree.Element, attr etree.Attr)
	UnexpectedElement(parent, child *etree.Element)
	Logger() *zap.Logger
}

// Extension is a compiler plug-in. Compiles sharing a configuration may run
// concurrently, so callbacks must keep per-compile state off the receiver or
// guard it.
type Extension interface {
	// Namespace is the XML namespace the plug-in claims.
	Namespace() string
	TableDefinitions() []*ir.TableDefinition
	// Schema returns the file system holding the plug-in's XSD and its path,
	// or a nil file system when the plug-in has none.
	Schema() (fs.FS, string)
	Initialize(core Core)
	ParseAttribute(core Core, parent *etree.Element, attr etree.Attr, scope Scope)
	ParseElement(core Core, parent, el *etree.Element, scope Scope)
	Finalize()
}

// SchemaSource is one plug-in XSD.
type SchemaSource struct {
	Namespace string
	FS        fs.FS
	Path      string
}
