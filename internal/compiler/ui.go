package compiler

import (
	"github.com/beevik/etree"

	"github.com/roach88/candle/internal/attrval"
	"github.com/roach88/candle/internal/ident"
	"github.com/roach88/candle/internal/ir"
)

// Dialog attribute bits.
var dialogFlags = ir.NewFlagDef("Attributes",
	ir.Flag{Name: "Visible", Bit: 1},
	ir.Flag{Name: "Modal", Bit: 2},
	ir.Flag{Name: "Minimize", Bit: 4},
	ir.Flag{Name: "SysModal", Bit: 8},
	ir.Flag{Name: "KeepModeless", Bit: 16},
	ir.Flag{Name: "TrackDiskSpace", Bit: 32},
	ir.Flag{Name: "UseCustomPalette", Bit: 64},
	ir.Flag{Name: "RTLRO", Bit: 128},
	ir.Flag{Name: "RightAligned", Bit: 256},
	ir.Flag{Name: "LeftScroll", Bit: 512},
	ir.Flag{Name: "Error", Bit: 65536},
)

// Control attribute bits shared by every control type.
var controlFlags = ir.NewFlagDef("Attributes",
	ir.Flag{Name: "Visible", Bit: 1},
	ir.Flag{Name: "Enabled", Bit: 2},
	ir.Flag{Name: "Sunken", Bit: 4},
	ir.Flag{Name: "Indirect", Bit: 8},
	ir.Flag{Name: "Integer", Bit: 16},
	ir.Flag{Name: "RTLRO", Bit: 32},
	ir.Flag{Name: "RightAligned", Bit: 64},
	ir.Flag{Name: "LeftScroll", Bit: 128},
	ir.Flag{Name: "Transparent", Bit: 65536},
	ir.Flag{Name: "NoPrefix", Bit: 131072},
)

// Control types that never take focus.
var untabbableControls = map[string]bool{
	"Billboard":   true,
	"Bitmap":      true,
	"GroupBox":    true,
	"Icon":        true,
	"Line":        true,
	"ProgressBar": true,
	"Text":        true,
}

const dialogCentered = 50

func parseUI(c *compileContext, el *etree.Element, s scope) result {
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		if key == "Id" {
			c.identifier(in)
		}
	})
	c.parseChildren(el, s)
	return result{}
}

func parseError(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id optInt
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		if key == "Id" {
			id = some(c.integer(in, 0, attrval.MaxInt16))
		}
	})
	if !id.set {
		c.expected(el, "Id")
	}

	row := c.row(loc, "Error")
	row.SetInt("Error", id.value)
	row.SetString("Message", innerText(el))
	return result{}
}

// setRTL applies the right-to-left attribute shared by dialogs and controls.
func setRTL(flags *ir.FlagSet, on bool) {
	for _, name := range []string{"RTLRO", "RightAligned", "LeftScroll"} {
		flags.SetIf(name, on)
	}
}

func parseDialog(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, title string
	var width, height ir.Value = ir.Int(0), ir.Int(0)
	var widthSet, heightSet bool
	hCenter, vCenter := int64(dialogCentered), int64(dialogCentered)
	flags := dialogFlags.New()
	flags.Set("Visible")
	flags.Set("Modal")
	flags.Set("Minimize")
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
		case "Width":
			width, widthSet = c.localizableInteger(in, 0, attrval.MaxInt16), true
		case "Height":
			height, heightSet = c.localizableInteger(in, 0, attrval.MaxInt16), true
		case "X":
			hCenter = c.integer(in, 0, 100)
		case "Y":
			vCenter = c.integer(in, 0, 100)
		case "Title":
			title = c.text(in)
		case "Hidden":
			flags.SetIf("Visible", c.yesNo(in) != attrval.Yes)
		case "Modeless":
			flags.SetIf("Modal", c.yesNo(in) != attrval.Yes)
		case "NoMinimize":
			flags.SetIf("Minimize", c.yesNo(in) != attrval.Yes)
		case "SystemModal":
			flags.SetIf("SysModal", c.yesNo(in) == attrval.Yes)
		case "KeepModeless", "TrackDiskSpace":
			flags.SetIf(key, c.yesNo(in) == attrval.Yes)
		case "CustomPalette":
			flags.SetIf("UseCustomPalette", c.yesNo(in) == attrval.Yes)
		case "RightToLeft":
			setRTL(flags, c.yesNo(in) == attrval.Yes)
		case "ErrorDialog":
			flags.SetIf("Error", c.yesNo(in) == attrval.Yes)
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalIdentifier
	}
	if !widthSet {
		c.expected(el, "Width")
	}
	if !heightSet {
		c.expected(el, "Height")
	}

	s.dialogID = id
	var controls []*control
	for _, r := range c.parseChildren(el, s) {
		if r.control != nil {
			controls = append(controls, r.control)
		}
	}

	var first, defaultControl, cancelControl string
	var tabbable []*control
	for _, ctl := range controls {
		if ctl.tabbable {
			tabbable = append(tabbable, ctl)
		}
		if ctl.isDefault && defaultControl == "" {
			defaultControl = ctl.id
		}
		if ctl.isCancel && cancelControl == "" {
			cancelControl = ctl.id
		}
	}
	if len(tabbable) > 0 {
		first = tabbable[0].id
	}
	if len(tabbable) > 1 {
		for i, ctl := range tabbable {
			ctl.row.SetString("Control_Next", tabbable[(i+1)%len(tabbable)].id)
		}
	}

	row := c.row(loc, "Dialog")
	row.SetString("Dialog", id)
	row.SetInt("HCentering", hCenter)
	row.SetInt("VCentering", vCenter)
	row.Set("Width", width)
	row.Set("Height", height)
	row.SetInt("Attributes", flags.Value())
	row.SetString("Title", title)
	row.SetString("Control_First", first)
	row.SetString("Control_Default", defaultControl)
	row.SetString("Control_Cancel", cancelControl)
	return result{id: id}
}

func parseControl(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, typ, property, text, help string
	var x, y, width, height ir.Value = ir.Int(0), ir.Int(0), ir.Int(0), ir.Int(0)
	tabSkip := attrval.YesNoNotSet
	var isDefault, isCancel bool
	flags := controlFlags.New()
	flags.Set("Visible")
	flags.Set("Enabled")
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
		case "Type":
			typ = c.text(in)
		case "X":
			x = c.localizableInteger(in, 0, attrval.MaxInt16)
		case "Y":
			y = c.localizableInteger(in, 0, attrval.MaxInt16)
		case "Width":
			width = c.localizableInteger(in, 0, attrval.MaxInt16)
		case "Height":
			height = c.localizableInteger(in, 0, attrval.MaxInt16)
		case "Property":
			property = c.identifier(in)
		case "Text":
			text, _ = attrval.Text(in, true)
		case "Help":
			help = c.text(in)
		case "TabSkip":
			tabSkip = c.yesNo(in)
		case "Default":
			isDefault = c.yesNo(in) == attrval.Yes
		case "Cancel":
			isCancel = c.yesNo(in) == attrval.Yes
		case "Disabled":
			flags.SetIf("Enabled", c.yesNo(in) != attrval.Yes)
		case "Hidden":
			flags.SetIf("Visible", c.yesNo(in) != attrval.Yes)
		case "Sunken", "Indirect", "Integer", "Transparent", "NoPrefix":
			flags.SetIf(key, c.yesNo(in) == attrval.Yes)
		case "RightToLeft":
			setRTL(flags, c.yesNo(in) == attrval.Yes)
		}
	})
	if typ == "" {
		c.expected(el, "Type")
	}
	if id == "" {
		id = c.generate(loc, el.Tag, ident.Control, s.dialogID, typ, text)
	}

	tabbable := !untabbableControls[typ]
	if tabSkip.IsSet() {
		tabbable = tabSkip == attrval.No
	}

	row := c.row(loc, "Control")
	row.SetString("Dialog_", s.dialogID)
	row.SetString("Control", id)
	row.SetString("Type", typ)
	row.Set("X", x)
	row.Set("Y", y)
	row.Set("Width", width)
	row.Set("Height", height)
	row.SetInt("Attributes", flags.Value())
	row.SetString("Property", property)
	row.SetString("Text", text)
	row.SetString("Help", help)

	s.controlID = id
	c.parseChildren(el, s)
	return result{id: id, control: &control{
		row:       row,
		id:        id,
		tabbable:  tabbable,
		isDefault: isDefault,
		isCancel:  isCancel,
	}}
}
