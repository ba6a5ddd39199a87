package compiler

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/candle/internal/attrval"
	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/ident"
	"github.com/roach88/candle/internal/ir"
)

// WixProperty attribute bits.
var propertyFlags = ir.NewFlagDef("Attributes",
	ir.Flag{Name: "Admin", Bit: 1},
	ir.Flag{Name: "Hidden", Bit: 2},
	ir.Flag{Name: "Secure", Bit: 4},
)

// RegLocator type values.
var registrySearchTypes = map[string]int64{
	"directory": 0,
	"file":      1,
	"raw":       2,
}

const registrySearch64Bit = 16

func (c *compileContext) propertyRow(loc ir.SourceLine, id, value string) {
	row := c.row(loc, "Property")
	row.SetString("Property", id)
	row.SetString("Value", value)
}

func parseProperty(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, value string
	var idInput *attrval.Input
	flags := propertyFlags.New()
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
			idInput = in
		case "Value":
			value, _ = attrval.Text(in, true)
		case "Admin", "Hidden", "Secure":
			flags.SetIf(key, c.yesNo(in) == attrval.Yes)
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalIdentifier
	}
	if flags.Has("Secure") && idInput != nil {
		c.upperCase(idInput)
	}

	var signatures []string
	for _, r := range c.parseChildren(el, s) {
		if r.signature != "" {
			signatures = append(signatures, r.signature)
		}
	}
	if len(signatures) > 1 {
		c.OnMessage(diag.TooManySearchElements(loc, el.Tag))
	}

	if value == "" && len(signatures) == 0 && flags.Value() == 0 {
		c.OnMessage(diag.PropertyUseless(loc, id))
		return result{}
	}
	if len(signatures) > 0 {
		row := c.row(loc, "AppSearch")
		row.SetString("Property", id)
		row.SetString("Signature_", signatures[0])
	}
	if value != "" {
		c.propertyRow(loc, id, value)
	}
	if flags.Value() != 0 {
		row := c.row(loc, "WixProperty")
		row.SetString("Property_", id)
		row.SetInt("Attributes", flags.Value())
	}
	return result{}
}

// childSignature returns the signature of the first nested search that
// resolved to one, or fallback.
func childSignature(results []result, fallback string) string {
	for _, r := range results {
		if r.signature != "" {
			return r.signature
		}
	}
	return fallback
}

func parseRegistrySearch(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, key, name, typ string
	var root optInt
	win64 := s.win64
	c.eachAttribute(el, s, func(k string, in *attrval.Input) {
		switch k {
		case "Id":
			id = c.identifier(in)
		case "Root":
			root = some(c.registryRoot(in, false))
		case "Key":
			key = c.text(in)
		case "Name":
			name = c.text(in)
		case "Type":
			typ = c.enum(in, "directory", "file", "raw")
		case "Win64":
			win64 = c.yesNo(in) == attrval.Yes
		}
	})
	if !root.set {
		c.expected(el, "Root")
	}
	if key == "" {
		c.expected(el, "Key")
	}
	if typ == "" {
		c.expected(el, "Type")
	}
	if id == "" {
		id = c.generate(loc, el.Tag, ident.Signature, strconv.FormatInt(root.value, 10), strings.ToLower(key), strings.ToLower(name), typ)
	}

	searchType := registrySearchTypes[typ]
	if win64 {
		searchType |= registrySearch64Bit
	}
	row := c.row(loc, "RegLocator")
	row.SetString("Signature_", id)
	row.SetInt("Root", root.value)
	row.SetString("Key", key)
	row.SetString("Name", name)
	row.SetInt("Type", searchType)

	s.signature = id
	return result{signature: childSignature(c.parseChildren(el, s), id)}
}

func parseComponentSearch(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, guid string
	var typ optInt
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
		case "Guid":
			guid = c.guid(in, attrval.GUIDOptions{})
		case "Type":
			switch c.enum(in, "directory", "file") {
			case "directory":
				typ = some(0)
			case "file":
				typ = some(1)
			}
		}
	})
	if guid == "" {
		c.expected(el, "Guid")
	}
	if id == "" {
		id = c.generate(loc, el.Tag, ident.Signature, guid)
	}

	row := c.row(loc, "CompLocator")
	row.SetString("Signature_", id)
	row.SetString("ComponentId", guid)
	setOptInt(row, "Type", typ)

	s.signature = id
	return result{signature: childSignature(c.parseChildren(el, s), id)}
}

func parseDirectorySearch(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, path string
	var depth optInt
	assign := attrval.YesNoNotSet
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
		case "Path":
			path = c.text(in)
		case "Depth":
			depth = some(c.integer(in, 0, attrval.MaxInt16))
		case "AssignToProperty":
			assign = c.yesNo(in)
		}
	})
	if id == "" {
		id = c.generate(loc, el.Tag, ident.Signature, s.signature, path)
	}

	row := c.row(loc, "DrLocator")
	row.SetString("Signature_", id)
	row.SetString("Parent", s.signature)
	row.SetString("Path", path)
	setOptInt(row, "Depth", depth)

	s.signature = id
	nested := childSignature(c.parseChildren(el, s), id)
	if assign == attrval.Yes {
		return result{signature: id}
	}
	return result{signature: nested}
}

func parseFileSearch(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, name, shortName, minVersion, maxVersion, languages string
	var minSize, maxSize, minDate, maxDate optInt
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
		case "Name":
			name = c.longFilename(in, false)
		case "ShortName":
			shortName = c.shortFilename(in, false)
		case "MinVersion":
			minVersion = c.version(in)
		case "MaxVersion":
			maxVersion = c.version(in)
		case "MinSize":
			minSize = some(c.integer(in, 0, attrval.MaxInt32))
		case "MaxSize":
			maxSize = some(c.integer(in, 0, attrval.MaxInt32))
		case "MinDate":
			minDate = some(c.date(in))
		case "MaxDate":
			maxDate = some(c.date(in))
		case "Languages":
			languages = c.language(in)
		}
	})
	if name == "" && shortName == "" {
		c.OnMessage(diag.ExpectedAttributes(loc, el.Tag, "Name", "ShortName"))
	}
	if id == "" {
		switch s.parent {
		case "RegistrySearch", "ComponentSearch":
			// The file is located through its parent's locator row.
			id = s.signature
		default:
			id = c.generate(loc, el.Tag, ident.Signature, s.signature, strings.ToLower(name))
		}
	}

	row := c.row(loc, "Signature")
	row.SetString("Signature", id)
	row.SetString("FileName", fileName(shortName, name))
	row.SetString("MinVersion", minVersion)
	row.SetString("MaxVersion", maxVersion)
	setOptInt(row, "MinSize", minSize)
	setOptInt(row, "MaxSize", maxSize)
	setOptInt(row, "MinDate", minDate)
	setOptInt(row, "MaxDate", maxDate)
	row.SetString("Languages", languages)
	return result{signature: id}
}

// Control condition actions, stored title-cased.
var controlConditionActions = []string{"default", "disable", "enable", "hide", "show"}

func parseCondition(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var message, action string
	var level optInt
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Message":
			message = c.text(in)
		case "Level":
			level = some(c.integer(in, 0, attrval.MaxInt16))
		case "Action":
			action = c.enum(in, controlConditionActions...)
		}
	})
	condition := innerText(el)
	if condition == "" {
		c.OnMessage(diag.ConditionExpected(loc, el.Tag))
	}

	switch s.parent {
	case "Component":
		if message != "" {
			c.OnMessage(diag.IllegalAttributeValueInScope(loc, el.Tag, "Message", message, s.parent))
		}
		return result{condition: condition}
	case "Feature":
		if !level.set {
			c.expected(el, "Level")
		}
		row := c.row(loc, "Condition")
		row.SetString("Feature_", s.featureID)
		row.SetInt("Level", level.value)
		row.SetString("Condition", condition)
	case "Control":
		if action == "" {
			c.expected(el, "Action")
		}
		row := c.row(loc, "ControlCondition")
		row.SetString("Dialog_", s.dialogID)
		row.SetString("Control_", s.controlID)
		row.SetString("Action", cases.Title(language.Und).String(action))
		row.SetString("Condition", condition)
	default:
		if message == "" {
			c.expected(el, "Message")
		}
		row := c.row(loc, "LaunchCondition")
		row.SetString("Condition", condition)
		row.SetString("Description", message)
	}
	return result{}
}
