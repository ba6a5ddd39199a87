package builder

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/candle/internal/ir"
	"github.com/roach88/candle/internal/tables"
	"github.com/roach88/candle/internal/xref"
)

var loc = ir.SourceLine{File: "a.wxs", Line: 9}

func newBuilder() (*Builder, *xref.Tracker) {
	refs := xref.New()
	return New("a.wxs", tables.Core(), refs), refs
}

func TestCreateRowRequiresActiveSection(t *testing.T) {
	b, _ := newBuilder()
	_, err := b.CreateRow(loc, "Component")
	assert.True(t, errors.Is(err, ErrNoActiveSection))
	assert.True(t, errors.Is(b.EnsureTable(loc, "Component"), ErrNoActiveSection))
}

func TestCreateRowUnknownTable(t *testing.T) {
	b, _ := newBuilder()
	b.CreateActiveSection("S", ir.SectionFragment, 0)
	_, err := b.CreateRow(loc, "NoSuchTable")
	assert.True(t, errors.Is(err, ErrUnknownTable))
	assert.Empty(t, b.ActiveSection().Tables())
}

func TestCreateRowZeroInitialized(t *testing.T) {
	b, _ := newBuilder()
	b.CreateActiveSection("S", ir.SectionFragment, 1252)

	row, err := b.CreateRow(loc, "Component")
	require.NoError(t, err)
	assert.Equal(t, loc, row.SourceLine)
	assert.Len(t, row.Fields, 6)
	assert.Equal(t, ir.String(""), row.Get("Component"))
	assert.Equal(t, ir.Null{}, row.Get("ComponentId"))
	assert.Equal(t, ir.Int(0), row.Get("Attributes"))
	assert.Len(t, b.ActiveSection().Rows("Component"), 1)
}

func TestActiveSectionSwitches(t *testing.T) {
	b, _ := newBuilder()
	first := b.CreateActiveSection("P", ir.SectionProduct, 0)
	_, err := b.CreateRow(loc, "Property")
	require.NoError(t, err)

	second := b.CreateActiveSection("F", ir.SectionFragment, 0)
	_, err = b.CreateRow(loc, "Property")
	require.NoError(t, err)
	_, err = b.CreateRow(loc, "Property")
	require.NoError(t, err)

	assert.Len(t, first.Rows("Property"), 1)
	assert.Len(t, second.Rows("Property"), 2)
	assert.Len(t, b.Intermediate().Sections, 2)
	assert.Len(t, b.Intermediate().Rows("Property"), 3)
	assert.Equal(t, "a.wxs", b.Intermediate().SourcePath)
}

func TestEnsureTableKnown(t *testing.T) {
	b, refs := newBuilder()
	b.CreateActiveSection("S", ir.SectionFragment, 0)
	require.NoError(t, b.EnsureTable(loc, "Media"))

	_, ok := b.ActiveSection().Table("Media")
	assert.True(t, ok, "table present without rows")
	assert.Empty(t, b.ActiveSection().Rows("Media"))

	ensured := b.ActiveSection().Rows(EnsureTableTable)
	require.Len(t, ensured, 1)
	assert.Equal(t, "Media", ensured[0].GetString("Table"))
	assert.Empty(t, refs.ValidReferences())
}

func TestEnsureTableCustom(t *testing.T) {
	b, refs := newBuilder()
	b.CreateActiveSection("S", ir.SectionFragment, 0)
	require.NoError(t, b.EnsureTable(loc, "MyCustomTable"))

	got := refs.ValidReferences()
	require.Len(t, got, 1)
	assert.Equal(t, ir.Symbol{Table: CustomTableTable, Key: "MyCustomTable"}, got[0].Symbol())
	assert.Equal(t, "S", got[0].Section)
	assert.Len(t, b.ActiveSection().Rows(EnsureTableTable), 1)
}
