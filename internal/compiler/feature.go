package compiler

import (
	"github.com/beevik/etree"

	"github.com/roach88/candle/internal/attrval"
	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/ir"
)

// Feature identifiers are primary keys limited by the installer database.
const maxFeatureID = 38

// Feature attribute bits.
var featureFlags = ir.NewFlagDef("Attributes",
	ir.Flag{Name: "FavorSource", Bit: 1},
	ir.Flag{Name: "FollowParent", Bit: 2},
	ir.Flag{Name: "FavorAdvertise", Bit: 4},
	ir.Flag{Name: "DisallowAdvertise", Bit: 8},
	ir.Flag{Name: "UIDisallowAbsent", Bit: 16},
	ir.Flag{Name: "NoUnsupportedAdvertise", Bit: 32},
)

// nextDisplay hands out the Display value for a named display mode. Odd
// values show the feature expanded and even values collapsed, ordered
// after every feature seen before.
func (c *compileContext) nextDisplay(mode string) int64 {
	switch mode {
	case "hidden":
		return 0
	case "expand":
		return (c.featureDisplay + 1) | 1
	default:
		return (c.featureDisplay | 1) + 1
	}
}

func isFeatureParent(s scope) bool {
	return s.parent == "Feature" || s.parent == "FeatureRef"
}

func parseFeature(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, title, description, directory, displayMode string
	var display optInt
	level := int64(1)
	flags := featureFlags.New()
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
			if len(id) > maxFeatureID {
				c.OnMessage(diag.IdentifierTooLong(loc, el.Tag, key, id, maxFeatureID))
			}
		case "Absent":
			flags.SetIf("UIDisallowAbsent", c.enum(in, "allow", "disallow") == "disallow")
		case "AllowAdvertise":
			switch c.enum(in, "no", "system", "yes") {
			case "no":
				flags.Set("DisallowAdvertise")
			case "system":
				flags.Set("NoUnsupportedAdvertise")
			}
		case "ConfigurableDirectory":
			directory = c.identifier(in)
			c.AddValidReference(loc, "Directory", directory)
		case "Description":
			description = c.text(in)
		case "Display":
			switch in.Value {
			case "collapse", "expand", "hidden":
				displayMode = in.Value
			default:
				display = some(c.integer(in, 0, attrval.MaxInt16))
			}
		case "InstallDefault":
			switch c.enum(in, "followParent", "local", "source") {
			case "followParent":
				flags.Set("FollowParent")
			case "source":
				flags.Set("FavorSource")
			}
		case "Level":
			level = c.integer(in, 0, attrval.MaxInt16)
		case "Title":
			title = c.text(in)
		case "TypicalDefault":
			flags.SetIf("FavorAdvertise", c.enum(in, "advertise", "install") == "advertise")
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalIdentifier
	}
	if !display.set {
		display = some(c.nextDisplay(displayMode))
	}
	if display.value != 0 {
		c.featureDisplay = display.value
	}

	row := c.row(loc, "Feature")
	row.SetString("Feature", id)
	if isFeatureParent(s) {
		row.SetString("Feature_Parent", s.featureID)
	}
	row.SetString("Title", title)
	row.SetString("Description", description)
	row.SetInt("Display", display.value)
	row.SetInt("Level", level)
	row.SetString("Directory_", directory)
	row.SetInt("Attributes", flags.Value())

	if isFeatureParent(s) {
		c.AddComplexReference(ir.ComplexReference{
			SourceLine: loc,
			ParentType: ir.ParentFeature,
			ParentID:   s.featureID,
			ChildType:  ir.ChildFeature,
			ChildID:    id,
			Primary:    true,
		})
	}

	s.featureID = id
	c.parseChildren(el, s)
	return result{id: id}
}

func parseFeatureRef(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id string
	ignoreParent := attrval.YesNoNotSet
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
		case "IgnoreParent":
			ignoreParent = c.yesNo(in)
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalIdentifier
	}
	c.AddValidReference(loc, "Feature", id)

	if isFeatureParent(s) && ignoreParent != attrval.Yes {
		c.AddComplexReference(ir.ComplexReference{
			SourceLine: loc,
			ParentType: ir.ParentFeature,
			ParentID:   s.featureID,
			ChildType:  ir.ChildFeature,
			ChildID:    id,
			Primary:    true,
		})
	}

	s.featureID = id
	c.parseChildren(el, s)
	return result{id: id}
}

func parseMergeRef(c *compileContext, el *etree.Element, s scope) result {
	return parseReference(c, el, s, "WixMerge", ir.ChildModule)
}
