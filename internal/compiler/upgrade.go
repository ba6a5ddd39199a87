package compiler

import (
	"strconv"

	"github.com/beevik/etree"

	"github.com/roach88/candle/internal/attrval"
	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/ident"
	"github.com/roach88/candle/internal/ir"
)

// Upgrade attribute bits.
var upgradeFlags = ir.NewFlagDef("Attributes",
	ir.Flag{Name: "MigrateFeatures", Bit: 0x1},
	ir.Flag{Name: "OnlyDetect", Bit: 0x2},
	ir.Flag{Name: "IgnoreRemoveFailure", Bit: 0x4},
	ir.Flag{Name: "VersionMinInclusive", Bit: 0x100},
	ir.Flag{Name: "VersionMaxInclusive", Bit: 0x200},
	ir.Flag{Name: "LanguagesExclusive", Bit: 0x400},
)

func parseUpgrade(c *compileContext, el *etree.Element, s scope) result {
	var id string
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		if key == "Id" {
			id = c.guid(in, attrval.GUIDOptions{})
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalGUID
	}

	s.upgradeCode = id
	c.parseChildren(el, s)
	return result{id: id}
}

func parseUpgradeVersion(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var minimum, maximum, lang, property, remove string
	var propertyInput *attrval.Input
	flags := upgradeFlags.New()
	flags.Set("VersionMinInclusive")
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Minimum":
			minimum = c.version(in)
		case "Maximum":
			maximum = c.version(in)
		case "Language":
			lang = c.language(in)
		case "Property":
			property = c.identifier(in)
			propertyInput = in
		case "IncludeMinimum":
			flags.SetIf("VersionMinInclusive", c.yesNo(in) != attrval.No)
		case "IncludeMaximum":
			flags.SetIf("VersionMaxInclusive", c.yesNo(in) == attrval.Yes)
		case "OnlyDetect", "IgnoreRemoveFailure", "MigrateFeatures":
			flags.SetIf(key, c.yesNo(in) == attrval.Yes)
		case "ExcludeLanguages":
			flags.SetIf("LanguagesExclusive", c.yesNo(in) == attrval.Yes)
		case "RemoveFeatures":
			remove = c.text(in)
		}
	})
	if minimum == "" && maximum == "" {
		c.OnMessage(diag.ExpectedAttributes(loc, el.Tag, "Minimum", "Maximum"))
	}
	if flags.Has("OnlyDetect") && flags.Has("MigrateFeatures") {
		c.exclusive(el, "MigrateFeatures", "OnlyDetect")
	}
	if propertyInput != nil {
		c.upperCase(propertyInput)
	} else {
		property = c.generate(loc, el.Tag, ident.UpgradeProperty,
			s.upgradeCode, minimum, maximum, lang, strconv.FormatInt(flags.Value(), 10))
	}

	row := c.row(loc, "Upgrade")
	row.SetString("UpgradeCode", s.upgradeCode)
	row.SetString("VersionMin", minimum)
	row.SetString("VersionMax", maximum)
	row.SetString("Language", lang)
	row.SetInt("Attributes", flags.Value())
	row.SetString("Remove", remove)
	row.SetString("ActionProperty", property)

	// Action properties are set during the server-side sequence.
	secure := c.row(loc, "WixProperty")
	secure.SetString("Property_", property)
	secure.SetInt("Attributes", propertySecure())
	return result{id: property}
}

// propertySecure is the WixProperty attribute value of a secure property.
func propertySecure() int64 {
	flags := propertyFlags.New()
	flags.Set("Secure")
	return flags.Value()
}
