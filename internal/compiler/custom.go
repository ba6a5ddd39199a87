package compiler

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/samber/lo"

	"github.com/roach88/candle/internal/attrval"
	"github.com/roach88/candle/internal/diag"
)

// Separators of the WixCustomRow FieldData encoding.
const (
	fieldSeparator = "\u001E"
	valueSeparator = "\u001F"
)

const maxCustomColumns = 32

var columnModularizations = []string{"None", "Column", "Condition", "Icon", "Property", "SemicolonDelimited"}

func parseEnsureTable(c *compileContext, el *etree.Element, s scope) result {
	var id string
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		if key == "Id" {
			id = c.identifier(in)
		}
	})
	if id == "" {
		c.expected(el, "Id")
		return result{}
	}
	c.EnsureTable(c.SourceLine(el), id)
	return result{id: id}
}

// columnType renders the installer column type string of col.
func columnType(col *column) string {
	var letter string
	switch col.typ {
	case "int":
		letter = "i"
	case "binary":
		letter = "v"
	default:
		letter = "s"
		if col.localizable {
			letter = "l"
		}
	}
	if col.nullable {
		letter = strings.ToUpper(letter)
	}
	return letter + strconv.FormatInt(col.width, 10)
}

func joinColumns(columns []*column, field func(*column) string) string {
	return strings.Join(lo.Map(columns, func(col *column, _ int) string { return field(col) }), "\t")
}

func optIntText(v optInt) string {
	if !v.set {
		return ""
	}
	return strconv.FormatInt(v.value, 10)
}

// emptyToNull clears a tab-joined list that carries no values.
func emptyToNull(joined string) string {
	if strings.Trim(joined, "\t") == "" {
		return ""
	}
	return joined
}

func parseCustomTable(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id string
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		if key == "Id" {
			id = c.identifier(in)
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalIdentifier
	}

	s.customTable = id
	var columns []*column
	var rows [][]cellData
	for _, r := range c.parseChildren(el, s) {
		switch {
		case r.column != nil:
			columns = append(columns, r.column)
		case r.element == "Row":
			rows = append(rows, r.cells)
		}
	}

	if len(columns) == 0 {
		// Rows for a table declared in another section.
		c.AddValidReference(loc, "WixCustomTable", id)
	} else {
		c.customTableRow(el, id, columns)
	}

	names := lo.SliceToMap(columns, func(col *column) (string, bool) { return col.name, true })
	for _, cells := range rows {
		if len(columns) > 0 {
			for _, cell := range cells {
				if !names[cell.column] {
					c.OnMessage(diag.IllegalAttributeValue(loc, "Data", "Column", cell.column,
						lo.Map(columns, func(col *column, _ int) string { return col.name })...))
				}
			}
		}
		row := c.row(loc, "WixCustomRow")
		row.SetString("Table", id)
		row.SetString("FieldData", strings.Join(lo.Map(cells, func(cell cellData, _ int) string {
			return cell.column + valueSeparator + cell.value
		}), fieldSeparator))
	}
	return result{id: id}
}

func (c *compileContext) customTableRow(el *etree.Element, id string, columns []*column) {
	loc := c.SourceLine(el)
	if len(columns) > maxCustomColumns {
		c.OnMessage(diag.TooManyElements(loc, el.Tag, "Column", maxCustomColumns))
	}
	keys := lo.Filter(columns, func(col *column, _ int) bool { return col.primaryKey })
	if len(keys) == 0 {
		c.OnMessage(diag.ExpectedAttribute(loc, "Column", "PrimaryKey"))
	}

	row := c.row(loc, "WixCustomTable")
	row.SetString("Table", id)
	row.SetInt("ColumnCount", int64(len(columns)))
	row.SetString("ColumnNames", joinColumns(columns, func(col *column) string { return col.name }))
	row.SetString("ColumnTypes", joinColumns(columns, columnType))
	row.SetString("PrimaryKeys", joinColumns(keys, func(col *column) string { return col.name }))
	row.SetString("MinValues", emptyToNull(joinColumns(columns, func(col *column) string { return optIntText(col.minValue) })))
	row.SetString("MaxValues", emptyToNull(joinColumns(columns, func(col *column) string { return optIntText(col.maxValue) })))
	row.SetString("KeyTables", emptyToNull(joinColumns(columns, func(col *column) string { return col.keyTable })))
	row.SetString("KeyColumns", emptyToNull(joinColumns(columns, func(col *column) string { return optIntText(col.keyColumn) })))
	row.SetString("Categories", emptyToNull(joinColumns(columns, func(col *column) string { return col.category })))
	row.SetString("Sets", emptyToNull(joinColumns(columns, func(col *column) string { return col.set })))
	row.SetString("Descriptions", emptyToNull(joinColumns(columns, func(col *column) string { return col.description })))
	row.SetString("Modularizations", emptyToNull(joinColumns(columns, func(col *column) string { return col.modularize })))
}

func parseColumn(c *compileContext, el *etree.Element, s scope) result {
	col := &column{}
	var widthSet bool
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			col.name = c.identifier(in)
		case "Type":
			col.typ = c.enum(in, "binary", "int", "string")
		case "PrimaryKey":
			col.primaryKey = c.yesNo(in) == attrval.Yes
		case "Nullable":
			col.nullable = c.yesNo(in) == attrval.Yes
		case "Localizable":
			col.localizable = c.yesNo(in) == attrval.Yes
		case "Width":
			col.width, widthSet = c.integer(in, 0, attrval.MaxInt16), true
		case "Category":
			col.category = c.text(in)
		case "KeyTable":
			col.keyTable = c.text(in)
		case "KeyColumn":
			col.keyColumn = some(c.integer(in, 1, maxCustomColumns))
		case "MinValue":
			col.minValue = some(c.integer(in, attrval.MinInt32, attrval.MaxInt32))
		case "MaxValue":
			col.maxValue = some(c.integer(in, attrval.MinInt32, attrval.MaxInt32))
		case "Set":
			col.set = c.text(in)
		case "Description":
			col.description = c.text(in)
		case "Modularize":
			col.modularize = c.enum(in, columnModularizations...)
		}
	})
	if col.name == "" {
		c.expected(el, "Id")
		col.name = attrval.IllegalIdentifier
	}
	if col.typ == "" {
		c.expected(el, "Type")
	}
	switch col.typ {
	case "int":
		if !widthSet {
			c.expected(el, "Width")
			col.width = 2
		} else if col.width != 2 && col.width != 4 {
			c.OnMessage(diag.IllegalAttributeValue(c.SourceLine(el), el.Tag, "Width", strconv.FormatInt(col.width, 10), "2", "4"))
		}
	case "binary":
		col.width = 0
	}
	if col.localizable && col.typ != "string" {
		c.requires(el, "Localizable", "Type")
	}
	return result{id: col.name, column: col}
}

func parseRow(c *compileContext, el *etree.Element, s scope) result {
	c.eachAttribute(el, s, func(string, *attrval.Input) {})
	var cells []cellData
	for _, r := range c.parseChildren(el, s) {
		if r.data != nil {
			cells = append(cells, *r.data)
		}
	}
	return result{cells: cells}
}

func parseData(c *compileContext, el *etree.Element, s scope) result {
	var name string
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		if key == "Column" {
			name = c.identifier(in)
		}
	})
	if name == "" {
		c.expected(el, "Column")
	}
	return result{data: &cellData{column: name, value: el.Text()}}
}
