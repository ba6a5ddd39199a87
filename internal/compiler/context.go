package compiler

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/candle/internal/attrval"
	"github.com/roach88/candle/internal/builder"
	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/extension"
	"github.com/roach88/candle/internal/ident"
	"github.com/roach88/candle/internal/ir"
	"github.com/roach88/candle/internal/sourceline"
	"github.com/roach88/candle/internal/xref"
)

// compileContext is the per-call state of one compile. It implements
// extension.Core so plug-ins write through the same builder and tracker.
type compileContext struct {
	opts       Options
	logger     *zap.Logger
	registry   *extension.Registry
	builder    *builder.Builder
	refs       *xref.Tracker
	sink       *diag.Collector
	sourcePath string

	// Active module identity, set while inside a Module element.
	moduleID       string
	moduleLanguage string

	// Language of the active Product or Module.
	activeLanguage string

	// Last Feature/@Display value handed out.
	featureDisplay int64
}

var _ extension.Core = (*compileContext)(nil)

// SourceLine implements extension.Core.
func (c *compileContext) SourceLine(el *etree.Element) ir.SourceLine {
	loc := sourceline.Lookup(el)
	if loc.IsZero() {
		loc.File = c.sourcePath
	}
	return loc
}

// CreateRow implements extension.Core.
func (c *compileContext) CreateRow(loc ir.SourceLine, table string) (*ir.Row, error) {
	return c.builder.CreateRow(loc, table)
}

// EnsureTable implements extension.Core.
func (c *compileContext) EnsureTable(loc ir.SourceLine, table string) {
	if err := c.builder.EnsureTable(loc, table); err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "ensuring table %s", table))
	}
}

// AddValidReference implements extension.Core.
func (c *compileContext) AddValidReference(loc ir.SourceLine, table string, keys ...string) {
	c.refs.AddValidReference(c.sectionID(), loc, table, keys...)
}

// AddComplexReference implements extension.Core.
func (c *compileContext) AddComplexReference(ref ir.ComplexReference) {
	if ref.Section == "" {
		ref.Section = c.sectionID()
	}
	c.refs.AddComplexReference(ref)
}

// AddFeatureBacklink implements extension.Core.
func (c *compileContext) AddFeatureBacklink(loc ir.SourceLine, componentID string, kind ir.FeatureBacklinkKind, target ir.Symbol) {
	c.refs.AddFeatureBacklink(ir.FeatureBacklink{
		Section:     c.sectionID(),
		SourceLine:  loc,
		ComponentID: componentID,
		Kind:        kind,
		Target:      target,
	})
}

// GenerateIdentifier implements extension.Core.
func (c *compileContext) GenerateIdentifier(kind ident.Kind, args ...string) string {
	return ident.Generate(kind, args...)
}

// OnMessage implements extension.Core.
func (c *compileContext) OnMessage(m diag.Message) {
	c.sink.OnMessage(m)
}

// UnexpectedAttribute implements extension.Core.
func (c *compileContext) UnexpectedAttribute(el *etree.Element, attr etree.Attr) {
	c.OnMessage(diag.UnexpectedAttribute(c.SourceLine(el), el.Tag, attr.FullKey()))
}

// UnexpectedElement implements extension.Core.
func (c *compileContext) UnexpectedElement(parent, child *etree.Element) {
	c.OnMessage(diag.UnexpectedElement(c.SourceLine(child), parent.Tag, child.FullTag()))
}

// Logger implements extension.Core.
func (c *compileContext) Logger() *zap.Logger {
	return c.logger
}

func (c *compileContext) sectionID() string {
	if s := c.builder.ActiveSection(); s != nil {
		return s.ID
	}
	return ""
}

// row creates a row for a core handler. Core handlers only write tables of
// the core schema, so a failure here is a programming error.
func (c *compileContext) row(loc ir.SourceLine, table string) *ir.Row {
	row, err := c.builder.CreateRow(loc, table)
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "core handler writing %s", table))
	}
	return row
}

func (c *compileContext) pedantic(level PedanticLevel) bool {
	return c.opts.Pedantic >= level
}

// generate synthesizes an identifier and reports it at verbose level.
func (c *compileContext) generate(loc ir.SourceLine, element string, kind ident.Kind, args ...string) string {
	id := ident.Generate(kind, args...)
	c.OnMessage(diag.GeneratedIdentifier(loc, element, id))
	return id
}

// ============================================================================
// Attribute iteration
// ============================================================================

// isNamespaceDeclaration reports xmlns and xmlns:prefix attributes.
func isNamespaceDeclaration(attr etree.Attr) bool {
	return attr.Space == "xmlns" || (attr.Space == "" && attr.Key == "xmlns")
}

// eachAttribute calls fn for every core attribute of el that the grammar
// declares. Undeclared core attributes are reported; attributes in a
// foreign namespace go to the extension claiming it.
func (c *compileContext) eachAttribute(el *etree.Element, s scope, fn func(key string, in *attrval.Input)) {
	loc := c.SourceLine(el)
	def := grammar[el.Tag]
	for i := range el.Attr {
		attr := el.Attr[i]
		if isNamespaceDeclaration(attr) {
			continue
		}
		if attr.Space != "" {
			c.foreignAttribute(el, attr, s)
			continue
		}
		if def == nil || !def.hasAttribute(attr.Key) {
			c.UnexpectedAttribute(el, attr)
			continue
		}
		fn(attr.Key, attrval.From(loc, el, &attr))
	}
}

func (c *compileContext) foreignAttribute(el *etree.Element, attr etree.Attr, s scope) {
	ns := attr.NamespaceURI()
	if ns == Namespace {
		c.UnexpectedAttribute(el, attr)
		return
	}
	ext, ok := c.registry.Lookup(ns)
	if !ok {
		c.UnexpectedAttribute(el, attr)
		return
	}
	c.guard(ns, c.SourceLine(el), func() {
		ext.ParseAttribute(c, el, attr, s.ext())
	})
}

// guard runs an extension callback, turning a panic into a diagnostic so one
// faulty plug-in does not abort the traversal. It reports whether fn returned
// normally.
func (c *compileContext) guard(ns string, loc ir.SourceLine, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err, ok := r.(error)
			if !ok {
				err = errors.Newf("%v", r)
			}
			c.logger.Error("extension callback panicked", zap.String("namespace", ns), zap.Error(err))
			c.OnMessage(diag.ExtensionFailure(loc, ns, err))
		}
	}()
	fn()
	return true
}

// ============================================================================
// Child dispatch
// ============================================================================

// parseChildren dispatches every child element of el and returns the
// results of core handlers in document order.
func (c *compileContext) parseChildren(el *etree.Element, s scope) []result {
	parentDef := grammar[el.Tag]
	s.parent = el.Tag
	var results []result
	for _, child := range el.ChildElements() {
		ns := child.NamespaceURI()
		if ns != Namespace {
			if ext, ok := c.registry.Lookup(ns); ok {
				c.guard(ns, c.SourceLine(child), func() {
					ext.ParseElement(c, el, child, s.ext())
				})
			} else {
				c.UnexpectedElement(el, child)
			}
			continue
		}

		def, ok := grammar[child.Tag]
		if !ok || parentDef == nil || !parentDef.hasChild(child.Tag) {
			c.UnexpectedElement(el, child)
			continue
		}
		r := def.handler(c, child, s)
		r.element = child.Tag
		results = append(results, r)
	}
	return results
}

// innerText returns the trimmed character data of el.
func innerText(el *etree.Element) string {
	return strings.TrimSpace(el.Text())
}

// ============================================================================
// Typed extraction
// ============================================================================

func (c *compileContext) report(m *diag.Message) {
	if m != nil {
		c.OnMessage(*m)
	}
}

func (c *compileContext) expected(el *etree.Element, attribute string) {
	c.OnMessage(diag.ExpectedAttribute(c.SourceLine(el), el.Tag, attribute))
}

func (c *compileContext) exclusive(el *etree.Element, attribute, other string) {
	c.OnMessage(diag.IllegalAttributeWithOtherAttribute(c.SourceLine(el), el.Tag, attribute, other))
}

func (c *compileContext) requires(el *etree.Element, attribute, other string) {
	c.OnMessage(diag.AttributeRequiresOther(c.SourceLine(el), el.Tag, attribute, other))
}

func (c *compileContext) requiresParent(el *etree.Element, attribute, parent string) {
	c.OnMessage(diag.ExpectedAttributeOrParent(c.SourceLine(el), el.Tag, attribute, parent))
}

func (c *compileContext) text(in *attrval.Input) string {
	v, m := attrval.Text(in, false)
	c.report(m)
	return v
}

func (c *compileContext) identifier(in *attrval.Input) string {
	v, m := attrval.Identifier(in)
	c.report(m)
	return v
}

func (c *compileContext) guid(in *attrval.Input, opts attrval.GUIDOptions) string {
	v, m := attrval.GUID(in, opts)
	c.report(m)
	return v
}

func (c *compileContext) yesNo(in *attrval.Input) attrval.YesNo {
	v, m := attrval.ParseYesNo(in)
	c.report(m)
	return v
}

func (c *compileContext) yesNoDefault(in *attrval.Input) attrval.YesNoDefault {
	v, m := attrval.ParseYesNoDefault(in)
	c.report(m)
	return v
}

func (c *compileContext) integer(in *attrval.Input, minValue, maxValue int64) int64 {
	v, m := attrval.Integer(in, minValue, maxValue)
	c.report(m)
	return v
}

func (c *compileContext) localizableInteger(in *attrval.Input, minValue, maxValue int64) ir.Value {
	v, m := attrval.LocalizableInteger(in, minValue, maxValue)
	c.report(m)
	return v
}

func (c *compileContext) enum(in *attrval.Input, legal ...string) string {
	v, m := attrval.Enum(in, legal...)
	c.report(m)
	return v
}

func (c *compileContext) version(in *attrval.Input) string {
	v, m := attrval.Version(in)
	c.report(m)
	return v
}

func (c *compileContext) language(in *attrval.Input) string {
	v, m := attrval.Language(in)
	c.report(m)
	return v
}

func (c *compileContext) codepage(in *attrval.Input) int {
	v, m := attrval.Codepage(in)
	c.report(m)
	return v
}

func (c *compileContext) longFilename(in *attrval.Input, allowWildcards bool) string {
	v, m := attrval.LongFilename(in, allowWildcards)
	c.report(m)
	return v
}

func (c *compileContext) shortFilename(in *attrval.Input, allowWildcards bool) string {
	v, m := attrval.ShortFilename(in, allowWildcards)
	c.report(m)
	return v
}

func (c *compileContext) date(in *attrval.Input) int64 {
	v, m := attrval.Date(in)
	c.report(m)
	return v
}

func (c *compileContext) registryRoot(in *attrval.Input, allowHKMU bool) int64 {
	v, m := attrval.RegistryRoot(in, allowHKMU)
	c.report(m)
	return v
}

func (c *compileContext) upperCase(in *attrval.Input) {
	c.report(attrval.UpperCase(in))
}

// ============================================================================
// Row helpers
// ============================================================================

// optInt stores n in a nullable number column when set.
type optInt struct {
	value int64
	set   bool
}

func some(n int64) optInt {
	return optInt{value: n, set: true}
}

func setOptInt(row *ir.Row, column string, v optInt) {
	if v.set {
		row.SetInt(column, v.value)
	} else {
		row.Set(column, ir.Null{})
	}
}

// fileName joins a short and long name the way the File and Directory
// tables store them.
func fileName(short, long string) string {
	if short == "" || short == long {
		return long
	}
	return short + "|" + long
}

// registryRow writes one literal Registry row and returns its generated id.
func (c *compileContext) registryRow(loc ir.SourceLine, componentID string, root int64, key, name, value string) string {
	id := ident.Generate(ident.Registry, componentID, strconv.FormatInt(root, 10), strings.ToLower(key), strings.ToLower(name))
	row := c.row(loc, "Registry")
	row.SetString("Registry", id)
	row.SetInt("Root", root)
	row.SetString("Key", key)
	row.SetString("Name", name)
	row.SetString("Value", value)
	row.SetString("Component_", componentID)
	return id
}
