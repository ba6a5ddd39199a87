package compiler

import (
	"path"
	"strings"

	"github.com/beevik/etree"

	"github.com/roach88/candle/internal/attrval"
	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/ident"
	"github.com/roach88/candle/internal/ir"
)

// Component attribute bits.
var componentFlags = ir.NewFlagDef("Attributes",
	ir.Flag{Name: "SourceOnly", Bit: 1},
	ir.Flag{Name: "Optional", Bit: 2},
	ir.Flag{Name: "RegistryKeyPath", Bit: 4},
	ir.Flag{Name: "SharedDllRefCount", Bit: 8},
	ir.Flag{Name: "Permanent", Bit: 16},
	ir.Flag{Name: "ODBCDataSource", Bit: 32},
	ir.Flag{Name: "Transitive", Bit: 64},
	ir.Flag{Name: "NeverOverwrite", Bit: 128},
	ir.Flag{Name: "64bit", Bit: 256},
	ir.Flag{Name: "DisableRegistryReflection", Bit: 512},
	ir.Flag{Name: "UninstallOnSupersedence", Bit: 1024},
	ir.Flag{Name: "Shared", Bit: 2048},
)

// File attribute bits.
var fileFlags = ir.NewFlagDef("Attributes",
	ir.Flag{Name: "ReadOnly", Bit: 1},
	ir.Flag{Name: "Hidden", Bit: 2},
	ir.Flag{Name: "System", Bit: 4},
	ir.Flag{Name: "Vital", Bit: 512},
	ir.Flag{Name: "Checksum", Bit: 1024},
	ir.Flag{Name: "Noncompressed", Bit: 8192},
	ir.Flag{Name: "Compressed", Bit: 16384},
)

var installModes = map[string]int64{
	"install":   1,
	"uninstall": 2,
	"both":      3,
}

var shortcutShow = map[string]int64{
	"normal":    1,
	"maximized": 3,
	"minimized": 7,
}

// Component flags that map one-to-one onto a yes/no attribute.
var componentYesNoFlags = map[string]string{
	"NeverOverwrite":            "NeverOverwrite",
	"Permanent":                 "Permanent",
	"SharedDllRefCount":         "SharedDllRefCount",
	"Shared":                    "Shared",
	"Transitive":                "Transitive",
	"DisableRegistryReflection": "DisableRegistryReflection",
	"UninstallWhenSuperseded":   "UninstallOnSupersedence",
}

func parseComponent(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, guid, directory, feature string
	var diskID optInt
	keyPathSelf := attrval.YesNoNotSet
	flags := componentFlags.New()
	win64 := s.win64
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
		case "Guid":
			guid = c.guid(in, attrval.GUIDOptions{AllowEmpty: true, AllowGenerate: true})
		case "Directory":
			directory = c.identifier(in)
			c.AddValidReference(loc, "Directory", directory)
		case "DiskId":
			diskID = some(c.integer(in, 1, attrval.MaxInt16))
		case "Feature":
			feature = c.identifier(in)
		case "KeyPath":
			keyPathSelf = c.yesNo(in)
		case "Location":
			switch c.enum(in, "local", "source", "either") {
			case "source":
				flags.Set("SourceOnly")
			case "either":
				flags.Set("Optional")
			}
		case "Win64":
			win64 = c.yesNo(in) == attrval.Yes
		default:
			if flag, ok := componentYesNoFlags[key]; ok {
				flags.SetIf(flag, c.yesNo(in) == attrval.Yes)
			}
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalIdentifier
	}
	if directory == "" {
		directory = s.directoryID
	}
	if directory == "" {
		c.requiresParent(el, "Directory", "Directory")
	}
	flags.SetIf("64bit", win64)

	cs := s
	cs.componentID = id
	cs.directoryID = directory
	cs.win64 = win64
	cs.advertise = attrval.YesNoNotSet
	cs.fileID = ""
	if diskID.set {
		cs.diskID = diskID
	}

	var chosen *keyPath
	explicit := false
	if keyPathSelf == attrval.Yes {
		chosen = &keyPath{explicit: true, kind: keyPathDirectory}
		explicit = true
	}
	var condition string
	for _, r := range c.parseChildren(el, cs) {
		if r.condition != "" {
			condition = r.condition
		}
		if r.keyPath == nil {
			continue
		}
		switch {
		case r.keyPath.explicit && explicit:
			c.OnMessage(diag.ComponentMultipleKeyPaths(loc, id))
		case r.keyPath.explicit:
			chosen = r.keyPath
			explicit = true
		case chosen == nil:
			chosen = r.keyPath
		}
	}
	if !explicit && c.pedantic(Legendary) {
		c.OnMessage(diag.ImplicitComponentKeyPath(loc, id))
	}

	var keyPathID string
	if chosen != nil {
		keyPathID = chosen.id
		flags.SetIf("RegistryKeyPath", chosen.kind == keyPathRegistry)
	}

	row := c.row(loc, "Component")
	row.SetString("Component", id)
	row.SetString("ComponentId", guid)
	row.SetString("Directory_", directory)
	row.SetInt("Attributes", flags.Value())
	row.SetString("Condition", condition)
	row.SetString("KeyPath", keyPathID)

	if feature != "" {
		c.AddValidReference(loc, "Feature", feature)
		c.AddComplexReference(ir.ComplexReference{
			SourceLine: loc,
			ParentType: ir.ParentFeature,
			ParentID:   feature,
			ChildType:  ir.ChildComponent,
			ChildID:    id,
			Primary:    true,
		})
	}
	if parentType, _, _ := c.parentType(s); parentType != ir.ParentUnknown || c.moduleID != "" {
		c.containedBy(loc, s, ir.ChildComponent, id, false)
	}
	return result{id: id}
}

// containedBy records the complex reference from the enclosing Feature,
// ComponentGroup or Module to a child. Inside a merge module an otherwise
// unparented child belongs to the module.
func (c *compileContext) containedBy(loc ir.SourceLine, s scope, childType ir.ComplexReferenceChildType, childID string, primary bool) {
	parentType, parentID, parentLanguage := c.parentType(s)
	if parentType == ir.ParentUnknown && c.moduleID != "" {
		parentType, parentID, parentLanguage = ir.ParentModule, c.moduleID, c.moduleLanguage
	}
	c.AddComplexReference(ir.ComplexReference{
		SourceLine:     loc,
		ParentType:     parentType,
		ParentID:       parentID,
		ParentLanguage: parentLanguage,
		ChildType:      childType,
		ChildID:        childID,
		Primary:        primary,
	})
}

// parseReference handles the *Ref elements that only carry an Id and a
// Primary flag.
func parseReference(c *compileContext, el *etree.Element, s scope, table string, childType ir.ComplexReferenceChildType) result {
	loc := c.SourceLine(el)
	var id string
	primary := attrval.YesNoNotSet
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
		case "Primary":
			primary = c.yesNo(in)
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalIdentifier
	}
	c.AddValidReference(loc, table, id)
	c.containedBy(loc, s, childType, id, primary == attrval.Yes)
	c.parseChildren(el, s)
	return result{id: id}
}

func parseComponentRef(c *compileContext, el *etree.Element, s scope) result {
	return parseReference(c, el, s, "Component", ir.ChildComponent)
}

func parseComponentGroupRef(c *compileContext, el *etree.Element, s scope) result {
	return parseReference(c, el, s, "WixComponentGroup", ir.ChildComponentGroup)
}

func parseComponentGroup(c *compileContext, el *etree.Element, s scope) result {
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

	row := c.row(loc, "WixComponentGroup")
	row.SetString("WixComponentGroup", id)

	s.groupID = id
	c.parseChildren(el, s)
	return result{id: id}
}

// baseName returns the last segment of a source path written with either
// separator.
func baseName(source string) string {
	return path.Base(strings.ReplaceAll(source, `\`, "/"))
}

func parseFile(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, name, shortName, source, manifest, application, arch, defaultVersion, defaultLanguage string
	var assemblyType, diskID, defaultSize, patchGroup optInt
	keyPathSet := attrval.YesNoNotSet
	flags := fileFlags.New()
	flags.Set("Vital")
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
		case "Name":
			name = c.longFilename(in, false)
		case "ShortName":
			shortName = c.shortFilename(in, false)
		case "Source":
			source = c.text(in)
		case "KeyPath":
			keyPathSet = c.yesNo(in)
		case "Vital":
			flags.SetIf("Vital", c.yesNo(in) != attrval.No)
		case "ReadOnly", "Hidden", "System", "Checksum":
			flags.SetIf(key, c.yesNo(in) == attrval.Yes)
		case "Compressed":
			switch c.yesNoDefault(in) {
			case attrval.YesNoDefaultYes:
				flags.Set("Compressed")
			case attrval.YesNoDefaultNo:
				flags.Set("Noncompressed")
			}
		case "DiskId":
			diskID = some(c.integer(in, 1, attrval.MaxInt16))
		case "Assembly":
			switch c.enum(in, ".net", "win32", "no") {
			case ".net":
				assemblyType = some(0)
			case "win32":
				assemblyType = some(1)
			}
		case "AssemblyManifest":
			manifest = c.identifier(in)
			c.AddValidReference(loc, "File", manifest)
		case "AssemblyApplication":
			application = c.identifier(in)
			c.AddValidReference(loc, "File", application)
		case "ProcessorArchitecture":
			arch = c.enum(in, "msil", "x86", "x64", "ia64")
		case "DefaultVersion":
			defaultVersion = c.version(in)
		case "DefaultLanguage":
			defaultLanguage = c.language(in)
		case "DefaultSize":
			defaultSize = some(c.integer(in, 0, attrval.MaxInt32))
		case "PatchGroup":
			patchGroup = some(c.integer(in, 1, attrval.MaxInt32))
		}
	})
	if name == "" {
		if source == "" {
			c.OnMessage(diag.ExpectedAttributes(loc, el.Tag, "Name", "Source"))
		} else {
			name = baseName(source)
		}
	}
	if manifest != "" && !assemblyType.set {
		c.requires(el, "AssemblyManifest", "Assembly")
	}
	if id == "" {
		id = c.generate(loc, el.Tag, ident.File, s.directoryID, strings.ToLower(name))
	}
	if shortName == "" && name != "" && !attrval.IsShortFilename(name, false) {
		shortName = ident.ShortName(name, false, s.componentID)
	}
	if source == "" {
		source = name
	}
	if !diskID.set {
		diskID = s.diskID
	}

	row := c.row(loc, "File")
	row.SetString("File", id)
	row.SetString("Component_", s.componentID)
	row.SetString("FileName", fileName(shortName, name))
	row.SetInt("FileSize", defaultSize.value)
	row.SetString("Version", defaultVersion)
	row.SetString("Language", defaultLanguage)
	row.SetInt("Attributes", flags.Value())
	row.SetInt("Sequence", 0)

	wix := c.row(loc, "WixFile")
	wix.SetString("File_", id)
	setOptInt(wix, "AssemblyType", assemblyType)
	wix.SetString("File_AssemblyManifest", manifest)
	wix.SetString("File_AssemblyApplication", application)
	wix.SetString("Directory_", s.directoryID)
	setOptInt(wix, "DiskId", diskID)
	wix.SetString("Source", source)
	wix.SetString("ProcessorArchitecture", arch)
	setOptInt(wix, "PatchGroup", patchGroup)
	wix.SetInt("Attributes", 0)

	s.fileID = id
	c.parseChildren(el, s)

	if keyPathSet == attrval.No {
		return result{id: id}
	}
	return result{id: id, keyPath: &keyPath{id: id, explicit: keyPathSet == attrval.Yes, kind: keyPathFile}}
}

func parseCreateFolder(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	if dir := el.SelectAttrValue("Directory", ""); dir != "" {
		s.directoryID = dir
	}
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		if key == "Directory" {
			c.AddValidReference(loc, "Directory", c.identifier(in))
		}
	})

	row := c.row(loc, "CreateFolder")
	row.SetString("Directory_", s.directoryID)
	row.SetString("Component_", s.componentID)

	c.parseChildren(el, s)
	return result{}
}

// removeTarget is what RemoveFile and RemoveFolder have in common.
type removeTarget struct {
	id, directory, property string
	mode                    int64
}

func (c *compileContext) removeAttribute(key string, in *attrval.Input, t *removeTarget) bool {
	switch key {
	case "Id":
		t.id = c.identifier(in)
	case "On":
		t.mode = installModes[c.enum(in, "install", "uninstall", "both")]
	case "Directory":
		t.directory = c.identifier(in)
		c.AddValidReference(in.Loc, "Directory", t.directory)
	case "Property":
		t.property = c.identifier(in)
	default:
		return false
	}
	return true
}

// dirProperty resolves the directory a removal applies to.
func (c *compileContext) dirProperty(el *etree.Element, s scope, t removeTarget) string {
	switch {
	case t.directory != "" && t.property != "":
		c.exclusive(el, "Directory", "Property")
		return t.directory
	case t.directory != "":
		return t.directory
	case t.property != "":
		return t.property
	default:
		return s.directoryID
	}
}

func (c *compileContext) removeFileRow(loc ir.SourceLine, s scope, t removeTarget, dir, name string) {
	row := c.row(loc, "RemoveFile")
	row.SetString("FileKey", t.id)
	row.SetString("Component_", s.componentID)
	row.SetString("FileName", name)
	row.SetString("DirProperty", dir)
	row.SetInt("InstallMode", t.mode)
}

func parseRemoveFile(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var t removeTarget
	var name, shortName string
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		if c.removeAttribute(key, in, &t) {
			return
		}
		switch key {
		case "Name":
			name = c.longFilename(in, true)
		case "ShortName":
			shortName = c.shortFilename(in, true)
		}
	})
	if name == "" {
		c.expected(el, "Name")
	}
	if t.mode == 0 {
		c.expected(el, "On")
	}
	dir := c.dirProperty(el, s, t)
	if t.id == "" {
		t.id = c.generate(loc, el.Tag, ident.RemoveFile, s.componentID, dir, strings.ToLower(name), installModeName(t.mode))
	}
	c.removeFileRow(loc, s, t, dir, fileName(shortName, name))
	return result{}
}

func parseRemoveFolder(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var t removeTarget
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		c.removeAttribute(key, in, &t)
	})
	if t.mode == 0 {
		c.expected(el, "On")
	}
	dir := c.dirProperty(el, s, t)
	if t.id == "" {
		t.id = c.generate(loc, el.Tag, ident.RemoveFile, s.componentID, dir, installModeName(t.mode))
	}
	c.removeFileRow(loc, s, t, dir, "")
	return result{}
}

func installModeName(mode int64) string {
	for name, v := range installModes {
		if v == mode {
			return name
		}
	}
	return ""
}

func parseEnvironment(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, name, value, action, part string
	separator := ";"
	var permanent, system bool
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
		case "Name":
			name = c.text(in)
		case "Value":
			value, _ = attrval.Text(in, true)
		case "Action":
			action = c.enum(in, "create", "set", "remove")
		case "Part":
			part = c.enum(in, "all", "first", "last")
		case "Permanent":
			permanent = c.yesNo(in) == attrval.Yes
		case "Separator":
			separator = c.text(in)
		case "System":
			system = c.yesNo(in) == attrval.Yes
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalIdentifier
	}
	if name == "" {
		c.expected(el, "Name")
	}

	var prefix strings.Builder
	switch action {
	case "create":
		prefix.WriteString("+")
	case "set":
		prefix.WriteString("=")
	case "remove":
		prefix.WriteString("!")
	}
	if permanent {
		prefix.WriteString("-")
	}
	if system {
		prefix.WriteString("*")
	}

	switch part {
	case "first":
		value = value + separator + "[~]"
	case "last":
		value = "[~]" + separator + value
	}

	row := c.row(loc, "Environment")
	row.SetString("Environment", id)
	row.SetString("Name", prefix.String()+name)
	row.SetString("Value", value)
	row.SetString("Component_", s.componentID)
	return result{}
}

func parseShortcut(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, name, shortName, directory, target, arguments, description, icon, workingDir string
	var hotkey, iconIndex, show optInt
	advertise := attrval.YesNoNotSet
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
		case "Name":
			name = c.longFilename(in, false)
		case "ShortName":
			shortName = c.shortFilename(in, false)
		case "Directory":
			directory = c.identifier(in)
			c.AddValidReference(loc, "Directory", directory)
		case "Target":
			target = c.text(in)
		case "Advertise":
			advertise = c.yesNo(in)
		case "Arguments":
			arguments = c.text(in)
		case "Description":
			description = c.text(in)
		case "Hotkey":
			hotkey = some(c.integer(in, 0, attrval.MaxInt16))
		case "Icon":
			icon = c.identifier(in)
			c.AddValidReference(loc, "Icon", icon)
		case "IconIndex":
			iconIndex = some(c.integer(in, attrval.MinInt16, attrval.MaxInt16))
		case "Show":
			show = some(shortcutShow[c.enum(in, "normal", "maximized", "minimized")])
		case "WorkingDirectory":
			workingDir = c.identifier(in)
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalIdentifier
	}
	if name == "" {
		c.expected(el, "Name")
	}
	if directory == "" {
		directory = s.directoryID
	}
	if directory == "" {
		c.requiresParent(el, "Directory", "Component")
	}

	advertised := advertise == attrval.Yes
	switch {
	case advertised && target != "":
		c.exclusive(el, "Target", "Advertise")
		target = ""
	case !advertised && target == "" && s.fileID != "":
		target = "[#" + s.fileID + "]"
	case !advertised && target == "":
		c.expected(el, "Target")
	}
	if shortName == "" && name != "" && !attrval.IsShortFilename(name, false) {
		shortName = ident.ShortName(name, false, s.componentID)
	}

	row := c.row(loc, "Shortcut")
	row.SetString("Shortcut", id)
	row.SetString("Directory_", directory)
	row.SetString("Name", fileName(shortName, name))
	row.SetString("Component_", s.componentID)
	row.SetString("Target", target)
	row.SetString("Arguments", arguments)
	row.SetString("Description", description)
	setOptInt(row, "Hotkey", hotkey)
	row.SetString("Icon_", icon)
	setOptInt(row, "IconIndex", iconIndex)
	setOptInt(row, "ShowCmd", show)
	row.SetString("WkDir", workingDir)

	if advertised {
		c.AddFeatureBacklink(loc, s.componentID, ir.BacklinkShortcut, row.Symbol())
	}
	return result{}
}
