// Package xref records the cross-section facts a linker resolves later:
// valid-reference assertions, containment edges and feature backlinks.
//
// Nothing is deduplicated or checked here. Duplicate assertions are harmless
// and duplicate primary edges are the linker's to diagnose.
package xref

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/roach88/candle/internal/ir"
)

// KeySeparator joins multi-column primary keys.
const KeySeparator = "/"

// Tracker accumulates references for one compile.
type Tracker struct {
	valid     []ir.ValidReference
	complex   []ir.ComplexReference
	backlinks []ir.FeatureBacklink
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{}
}

// AddValidReference asserts that table holds a row keyed by keys.
func (t *Tracker) AddValidReference(section string, loc ir.SourceLine, table string, keys ...string) {
	t.valid = append(t.valid, ir.ValidReference{
		Section:    section,
		SourceLine: loc,
		Table:      table,
		Key:        strings.Join(keys, KeySeparator),
	})
}

// AddComplexReference records a containment edge.
func (t *Tracker) AddComplexReference(ref ir.ComplexReference) {
	t.complex = append(t.complex, ref)
}

// AddFeatureBacklink records a deferred feature patch.
func (t *Tracker) AddFeatureBacklink(link ir.FeatureBacklink) {
	t.backlinks = append(t.backlinks, link)
}

// ValidReferences returns every assertion in arrival order.
func (t *Tracker) ValidReferences() []ir.ValidReference {
	return append([]ir.ValidReference(nil), t.valid...)
}

// ComplexReferences returns every edge in arrival order.
func (t *Tracker) ComplexReferences() []ir.ComplexReference {
	return append([]ir.ComplexReference(nil), t.complex...)
}

// FeatureBacklinks returns every backlink in arrival order.
func (t *Tracker) FeatureBacklinks() []ir.FeatureBacklink {
	return append([]ir.FeatureBacklink(nil), t.backlinks...)
}

// UniqueValidReferences returns the distinct referenced symbols sorted by
// table then key.
func (t *Tracker) UniqueValidReferences() []ir.Symbol {
	symbols := lo.Uniq(lo.Map(t.valid, func(r ir.ValidReference, _ int) ir.Symbol {
		return r.Symbol()
	}))
	sort.Slice(symbols, func(i, j int) bool {
		if symbols[i].Table != symbols[j].Table {
			return symbols[i].Table < symbols[j].Table
		}
		return symbols[i].Key < symbols[j].Key
	})
	return symbols
}

// ComplexReferencesTo returns the edges whose child is (childType, childID).
func (t *Tracker) ComplexReferencesTo(childType ir.ComplexReferenceChildType, childID string) []ir.ComplexReference {
	return lo.Filter(t.complex, func(r ir.ComplexReference, _ int) bool {
		return r.ChildType == childType && r.ChildID == childID
	})
}

// PrimaryParents returns the edges to the child that are marked primary.
func (t *Tracker) PrimaryParents(childType ir.ComplexReferenceChildType, childID string) []ir.ComplexReference {
	return lo.Filter(t.ComplexReferencesTo(childType, childID), func(r ir.ComplexReference, _ int) bool {
		return r.Primary
	})
}

// BacklinksFor returns the backlinks that wait on componentID's feature.
func (t *Tracker) BacklinksFor(componentID string) []ir.FeatureBacklink {
	return lo.Filter(t.backlinks, func(b ir.FeatureBacklink, _ int) bool {
		return b.ComponentID == componentID
	})
}
