package compiler

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/samber/lo"

	"github.com/roach88/candle/internal/attrval"
	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/ident"
	"github.com/roach88/candle/internal/ir"
)

// Custom action execution scheduling, stored in bits 0x100-0x700.
var customActionExecute = map[string]int64{
	"immediate":      0,
	"firstSequence":  0x100,
	"oncePerProcess": 0x200,
	"secondSequence": 0x300,
	"deferred":       0x400,
	"rollback":       0x500,
	"commit":         0x600,
}

// Custom action return processing, stored in bits 0x40-0xC0.
var customActionReturn = map[string]int64{
	"check":       0,
	"ignore":      0x40,
	"asyncWait":   0x80,
	"asyncNoWait": 0xC0,
}

// Single-bit custom action options.
var customActionFlags = ir.NewFlagDef("Type",
	ir.Flag{Name: "NoImpersonate", Bit: 0x800},
	ir.Flag{Name: "64BitScript", Bit: 0x1000},
	ir.Flag{Name: "HideTarget", Bit: 0x2000},
	ir.Flag{Name: "TSAware", Bit: 0x4000},
)

const customActionPatchUninstall = 0x8000

// Base custom action types by source kind and target kind.
var customActionTypes = map[string]map[string]int64{
	"BinaryKey": {"DllEntry": 1, "ExeCommand": 2, "JScriptCall": 5, "VBScriptCall": 6},
	"FileKey":   {"DllEntry": 17, "ExeCommand": 18, "JScriptCall": 21, "VBScriptCall": 22},
	"Property":  {"ExeCommand": 50, "Value": 51},
	"Directory": {"ExeCommand": 34, "Value": 35},
}

var customActionSources = []string{"BinaryKey", "FileKey", "Property", "Directory", "Script", "Error"}

var customActionTargets = []string{"DllEntry", "ExeCommand", "JScriptCall", "VBScriptCall", "Value"}

var onExitSequences = map[string]int64{
	"success": -1,
	"cancel":  -2,
	"error":   -3,
	"suspend": -4,
}

// sourceReferences maps a custom action source attribute to the table its
// value names.
var sourceReferences = map[string]string{
	"BinaryKey": "Binary",
	"FileKey":   "File",
	"Directory": "Directory",
}

func parseCustomAction(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, sourceKind, source, targetKind, target, script, execute, ret string
	extended := optInt{}
	flags := customActionFlags.New()
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
		case "BinaryKey", "FileKey", "Property", "Directory":
			if sourceKind != "" {
				c.exclusive(el, key, sourceKind)
			}
			sourceKind, source = key, c.identifier(in)
		case "Script":
			if sourceKind != "" {
				c.exclusive(el, key, sourceKind)
			}
			sourceKind, script = key, c.enum(in, "jscript", "vbscript")
		case "Error":
			if sourceKind != "" {
				c.exclusive(el, key, sourceKind)
			}
			sourceKind, target = key, c.text(in)
		case "DllEntry", "ExeCommand", "JScriptCall", "VBScriptCall", "Value":
			if targetKind != "" {
				c.exclusive(el, key, targetKind)
			}
			targetKind, target = key, c.text(in)
		case "Execute":
			execute = c.enum(in, "immediate", "deferred", "rollback", "commit", "firstSequence", "oncePerProcess", "secondSequence")
		case "Return":
			ret = c.enum(in, "check", "ignore", "asyncWait", "asyncNoWait")
		case "Impersonate":
			flags.SetIf("NoImpersonate", c.yesNo(in) == attrval.No)
		case "Win64":
			flags.SetIf("64BitScript", c.yesNo(in) == attrval.Yes)
		case "HideTarget":
			flags.SetIf("HideTarget", c.yesNo(in) == attrval.Yes)
		case "TerminalServerAware":
			flags.SetIf("TSAware", c.yesNo(in) == attrval.Yes)
		case "PatchUninstall":
			if c.yesNo(in) == attrval.Yes {
				extended = some(customActionPatchUninstall)
			}
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalIdentifier
	}

	var typ int64
	switch sourceKind {
	case "":
		c.OnMessage(diag.ExpectedAttributes(loc, el.Tag, customActionSources...))
	case "Script":
		if targetKind != "" {
			c.exclusive(el, targetKind, "Script")
		}
		typ = 37
		if script == "vbscript" {
			typ = 38
		}
		target = innerText(el)
		if target == "" {
			c.OnMessage(diag.ConditionExpected(loc, el.Tag))
		}
	case "Error":
		if targetKind != "" {
			c.exclusive(el, targetKind, "Error")
		}
		typ = 19
		// A literal error number is a reference into the Error table; a
		// formatted string is not.
		if n, err := strconv.ParseInt(strings.TrimSpace(target), 10, 32); err == nil {
			c.AddValidReference(loc, "Error", strconv.FormatInt(n, 10))
		}
	default:
		base, ok := customActionTypes[sourceKind][targetKind]
		if !ok {
			legal := lo.Filter(customActionTargets, func(t string, _ int) bool {
				_, ok := customActionTypes[sourceKind][t]
				return ok
			})
			c.OnMessage(diag.ExpectedAttributes(loc, el.Tag, legal...))
		}
		typ = base
		if table, ok := sourceReferences[sourceKind]; ok {
			c.AddValidReference(loc, table, source)
		}
	}
	typ |= customActionExecute[execute] | customActionReturn[ret] | flags.Value()

	row := c.row(loc, "CustomAction")
	row.SetString("Action", id)
	row.SetInt("Type", typ)
	row.SetString("Source", source)
	row.SetString("Target", target)
	setOptInt(row, "ExtendedType", extended)
	return result{id: id}
}

// parseStream handles Binary and Icon, which both embed one file.
func parseStream(c *compileContext, el *etree.Element, s scope, table string) result {
	loc := c.SourceLine(el)
	var id, sourceFile string
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
		case "SourceFile":
			sourceFile = c.text(in)
		}
	})
	if sourceFile == "" {
		c.expected(el, "SourceFile")
	}
	if id == "" {
		if table == "Icon" && sourceFile != "" {
			id = c.generate(loc, el.Tag, ident.Icon, strings.ToLower(baseName(sourceFile)))
		} else {
			c.expected(el, "Id")
			id = attrval.IllegalIdentifier
		}
	}

	row := c.row(loc, table)
	row.SetString("Name", id)
	row.SetString("Data", sourceFile)
	return result{id: id}
}

func parseBinary(c *compileContext, el *etree.Element, s scope) result {
	return parseStream(c, el, s, "Binary")
}

func parseIcon(c *compileContext, el *etree.Element, s scope) result {
	return parseStream(c, el, s, "Icon")
}

func parseMedia(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var cabinet, diskPrompt, source, volumeLabel string
	var diskID optInt
	embed := false
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			diskID = some(c.integer(in, 1, attrval.MaxInt16))
		case "Cabinet":
			cabinet = c.text(in)
		case "DiskPrompt":
			diskPrompt = c.text(in)
		case "EmbedCab":
			embed = c.yesNo(in) == attrval.Yes
		case "Source":
			source = c.text(in)
		case "VolumeLabel":
			volumeLabel = c.text(in)
		}
	})
	if !diskID.set {
		c.expected(el, "Id")
	}
	if embed {
		if cabinet == "" {
			c.requires(el, "EmbedCab", "Cabinet")
		} else {
			cabinet = "#" + cabinet
		}
	}
	if diskPrompt != "" {
		c.AddValidReference(loc, "Property", "DiskPrompt")
	}

	row := c.row(loc, "Media")
	row.SetInt("DiskId", diskID.value)
	row.SetInt("LastSequence", 0)
	row.SetString("DiskPrompt", diskPrompt)
	row.SetString("Cabinet", cabinet)
	row.SetString("VolumeLabel", volumeLabel)
	row.SetString("Source", source)
	return result{}
}

func parseSequence(c *compileContext, el *etree.Element, s scope) result {
	c.eachAttribute(el, s, func(string, *attrval.Input) {})
	s.sequence = el.Tag
	c.parseChildren(el, s)
	return result{}
}

func parseCustom(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var action, after, before string
	var sequence, overridable optInt
	var placements []string
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Action":
			action = c.identifier(in)
		case "After":
			after = c.identifier(in)
			placements = append(placements, key)
		case "Before":
			before = c.identifier(in)
			placements = append(placements, key)
		case "Sequence":
			sequence = some(c.integer(in, 1, attrval.MaxInt16))
			placements = append(placements, key)
		case "OnExit":
			sequence = some(onExitSequences[c.enum(in, "success", "cancel", "error", "suspend")])
			placements = append(placements, key)
		case "Overridable":
			if c.yesNo(in) == attrval.Yes {
				overridable = some(1)
			}
		}
	})
	if action == "" {
		c.expected(el, "Action")
		action = attrval.IllegalIdentifier
	}
	switch len(placements) {
	case 0:
		c.OnMessage(diag.ExpectedAttributes(loc, el.Tag, "After", "Before", "Sequence", "OnExit"))
	case 1:
	default:
		c.exclusive(el, placements[1], placements[0])
	}

	row := c.row(loc, "WixAction")
	row.SetString("SequenceTable", s.sequence)
	row.SetString("Action", action)
	row.SetString("Condition", innerText(el))
	setOptInt(row, "Sequence", sequence)
	row.SetString("Before", before)
	row.SetString("After", after)
	setOptInt(row, "Overridable", overridable)

	c.AddValidReference(loc, "CustomAction", action)
	for _, other := range []string{before, after} {
		if other != "" {
			c.AddValidReference(loc, "WixAction", s.sequence, other)
		}
	}
	return result{id: action}
}
