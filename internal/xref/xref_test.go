package xref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/candle/internal/ir"
)

var loc = ir.SourceLine{File: "a.wxs", Line: 4}

func TestValidReferencesKeepDuplicates(t *testing.T) {
	tr := New()
	tr.AddValidReference("S", loc, "Directory", "INSTALLDIR")
	tr.AddValidReference("S", loc, "Directory", "INSTALLDIR")
	tr.AddValidReference("S", loc, "Control", "Dlg", "Next")
	tr.AddValidReference("S", loc, "Binary", "B")

	refs := tr.ValidReferences()
	require.Len(t, refs, 4)
	assert.Equal(t, "Dlg/Next", refs[2].Key)
	assert.Equal(t, "S", refs[0].Section)

	assert.Equal(t, []ir.Symbol{
		{Table: "Binary", Key: "B"},
		{Table: "Control", Key: "Dlg/Next"},
		{Table: "Directory", Key: "INSTALLDIR"},
	}, tr.UniqueValidReferences())
}

func TestDuplicatePrimaryEdgesAreBothStored(t *testing.T) {
	tr := New()
	edge := ir.ComplexReference{
		Section:    "S",
		ParentType: ir.ParentFeature,
		ParentID:   "F1",
		ChildType:  ir.ChildComponent,
		ChildID:    "C1",
		Primary:    true,
	}
	tr.AddComplexReference(edge)
	second := edge
	second.ParentID = "F2"
	tr.AddComplexReference(second)
	tr.AddComplexReference(ir.ComplexReference{
		ParentType: ir.ParentFeature, ParentID: "F3",
		ChildType: ir.ChildComponent, ChildID: "C1",
	})
	tr.AddComplexReference(ir.ComplexReference{
		ParentType: ir.ParentFeature, ParentID: "F1",
		ChildType: ir.ChildComponentGroup, ChildID: "C1",
		Primary: true,
	})

	assert.Len(t, tr.ComplexReferences(), 4)
	assert.Len(t, tr.ComplexReferencesTo(ir.ChildComponent, "C1"), 3)

	primaries := tr.PrimaryParents(ir.ChildComponent, "C1")
	require.Len(t, primaries, 2)
	assert.Equal(t, "F1", primaries[0].ParentID)
	assert.Equal(t, "F2", primaries[1].ParentID)
}

func TestFeatureBacklinks(t *testing.T) {
	tr := New()
	tr.AddFeatureBacklink(ir.FeatureBacklink{
		ComponentID: "C1",
		Kind:        ir.BacklinkClass,
		Target:      ir.Symbol{Table: "Class", Key: "{GUID}/LocalServer32/C1"},
	})
	tr.AddFeatureBacklink(ir.FeatureBacklink{ComponentID: "C2", Kind: ir.BacklinkShortcut})

	assert.Len(t, tr.FeatureBacklinks(), 2)
	links := tr.BacklinksFor("C1")
	require.Len(t, links, 1)
	assert.Equal(t, ir.BacklinkClass, links[0].Kind)
}

func TestAccessorsReturnCopies(t *testing.T) {
	tr := New()
	tr.AddValidReference("S", loc, "T", "k")
	refs := tr.ValidReferences()
	refs[0].Key = "changed"
	assert.Equal(t, "k", tr.ValidReferences()[0].Key)
}
