package tables

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/candle/internal/ir"
)

func TestCoreTables(t *testing.T) {
	defs := Core()

	for _, name := range []string{
		"_SummaryInformation", "AppId", "AppSearch", "Binary", "Class", "CompLocator",
		"Component", "Condition", "Control", "ControlCondition", "CreateFolder",
		"CustomAction", "Dialog", "Directory", "DrLocator", "Environment", "Error",
		"Extension", "Feature", "File", "Icon", "ImageFamilies", "LaunchCondition",
		"Media", "MIME", "ModuleDependency", "ModuleSignature", "ProgId", "Properties",
		"Property", "RegLocator", "Registry", "RemoveFile", "Shortcut", "Signature",
		"TypeLib", "Upgrade", "Verb", "WixAction", "WixComponentGroup", "WixCustomRow",
		"WixCustomTable", "WixEnsureTable", "WixFile", "WixMerge", "WixProperty",
	} {
		assert.True(t, defs.Contains(name), name)
	}
	assert.Same(t, defs, Core(), "core definitions are compiled once")
}

func TestComponentColumns(t *testing.T) {
	def, ok := Core().Lookup("Component")
	require.True(t, ok)

	names := make([]string, len(def.Columns))
	for i, c := range def.Columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"Component", "ComponentId", "Directory_", "Attributes", "Condition", "KeyPath"}, names)
	assert.Equal(t, []int{0}, def.PrimaryKeys())

	id := def.Columns[0]
	assert.Equal(t, ir.ColumnTypeString, id.Type)
	assert.Equal(t, 72, id.Length)
	assert.Equal(t, ir.CategoryIdentifier, id.Category)
	assert.Equal(t, ir.ModularizeColumn, id.Modularize)

	attrs := def.Columns[3]
	assert.True(t, attrs.IsNumber())
	assert.False(t, attrs.Nullable)

	assert.True(t, def.Columns[5].Nullable)
	assert.Equal(t, "File;Registry;ODBCDataSource", def.Columns[5].KeyTable)
}

func TestShorthandOverrides(t *testing.T) {
	ca, ok := Core().Lookup("CustomAction")
	require.True(t, ok)
	assert.Equal(t, ir.CategoryCustomSource, ca.Columns[ca.ColumnIndex("Source")].Category)

	class, ok := Core().Lookup("Class")
	require.True(t, ok)
	icon := class.Columns[class.ColumnIndex("Icon_")]
	assert.Equal(t, ir.ModularizeIcon, icon.Modularize)
	require.NotNil(t, class.Columns[class.ColumnIndex("IconIndex")].MinValue)
	assert.Equal(t, int64(-32767), *class.Columns[class.ColumnIndex("IconIndex")].MinValue)

	reg, ok := Core().Lookup("Registry")
	require.True(t, ok)
	assert.Equal(t, ir.ColumnTypeLocalized, reg.Columns[reg.ColumnIndex("Key")].Type)
	assert.Equal(t, ir.ModularizeNone, reg.Columns[reg.ColumnIndex("Key")].Modularize)
}

func TestUnrealTables(t *testing.T) {
	for _, name := range []string{"WixAction", "WixFile", "WixProperty", "WixEnsureTable"} {
		def, ok := Core().Lookup(name)
		require.True(t, ok)
		assert.True(t, def.Unreal, name)
	}
	def, _ := Core().Lookup("File")
	assert.False(t, def.Unreal)
}

func TestCompileExtensionTables(t *testing.T) {
	src := []byte(`
tables: Widget: columns: [
	{name: "Widget", length: 72, primaryKey: true, category: "Identifier"},
	{name: "Size", type: "number", length: 4, nullable: true},
]
`)
	defs, err := Compile(src, "widget.cue")
	require.NoError(t, err)
	def, ok := defs.Lookup("Widget")
	require.True(t, ok)
	assert.Len(t, def.Columns, 2)
	assert.True(t, def.Columns[1].IsNumber())
	assert.Equal(t, ir.ModularizeNone, def.Columns[1].Modularize)
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile([]byte(`other: 1`), "x.cue")
	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "tables", ce.Field)

	_, err = Compile([]byte(`tables: T: columns: [{name: "A", type: "number", length: 2}]`), "x.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no primary key")

	_, err = Compile([]byte(`tables: T: columns: [{name: "A", primaryKey: true}]`+"\ntables: T: columns: [{name: 1}]"), "x.cue")
	require.Error(t, err)

	_, err = Compile([]byte(`tables: {`), "x.cue")
	require.Error(t, err)
}
