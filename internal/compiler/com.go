package compiler

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/roach88/candle/internal/attrval"
	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/ir"
)

// Default proxy/stub for automation interfaces.
const automationProxyStub = "{00020424-0000-0000-C000-000000000046}"

var classContexts = []string{"LocalServer", "LocalServer32", "InprocServer", "InprocServer32"}

var threadingModels = []string{"apartment", "free", "both", "neutral", "single", "rental"}

// TypeLib FLAGS bits.
var typeLibFlags = ir.NewFlagDef("FLAGS",
	ir.Flag{Name: "Restricted", Bit: 1},
	ir.Flag{Name: "Control", Bit: 2},
	ir.Flag{Name: "Hidden", Bit: 4},
)

// resolveAdvertise merges an element's own Advertise choice with the one it
// inherits. Disagreement is reported; the element's own choice wins.
func (c *compileContext) resolveAdvertise(el *etree.Element, own attrval.YesNo, s scope) attrval.YesNo {
	if !own.IsSet() {
		if s.advertise.IsSet() {
			return s.advertise
		}
		return attrval.No
	}
	if s.advertise.IsSet() && own != s.advertise {
		c.OnMessage(diag.AdvertiseStateMismatch(c.SourceLine(el), el.Tag, own.String(), s.advertise.String()))
	}
	return own
}

// classesRoot writes a literal HKCR value for the current component.
func (c *compileContext) classesRoot(loc ir.SourceLine, s scope, key, name, value string) {
	c.registryRow(loc, s.componentID, attrval.RootHKCR, key, name, value)
}

func fileReference(id string) string {
	return "[#" + id + "]"
}

func parseAppID(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, description, dllSurrogate, localService, remoteServer, serviceParameters string
	var activateAtStorage, runAsInteractive optInt
	own := attrval.YesNoNotSet
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.guid(in, attrval.GUIDOptions{})
		case "Advertise":
			own = c.yesNo(in)
		case "Description":
			description = c.text(in)
		case "DllSurrogate":
			dllSurrogate, _ = attrval.Text(in, true)
		case "LocalService":
			localService = c.text(in)
		case "RemoteServerName":
			remoteServer = c.text(in)
		case "ServiceParameters":
			serviceParameters = c.text(in)
		case "ActivateAtStorage":
			if c.yesNo(in) == attrval.Yes {
				activateAtStorage = some(1)
			}
		case "RunAsInteractiveUser":
			if c.yesNo(in) == attrval.Yes {
				runAsInteractive = some(1)
			}
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalGUID
	}
	advertise := c.resolveAdvertise(el, own, s)

	if advertise == attrval.Yes {
		row := c.row(loc, "AppId")
		row.SetString("AppId", id)
		row.SetString("RemoteServerName", remoteServer)
		row.SetString("LocalService", localService)
		row.SetString("ServiceParameters", serviceParameters)
		row.SetString("DllSurrogate", dllSurrogate)
		setOptInt(row, "ActivateAtStorage", activateAtStorage)
		setOptInt(row, "RunAsInteractiveUser", runAsInteractive)
	} else {
		key := `AppID\` + id
		c.classesRoot(loc, s, key, "", description)
		for _, v := range []struct{ name, value string }{
			{"RemoteServerName", remoteServer},
			{"LocalService", localService},
			{"ServiceParameters", serviceParameters},
			{"DllSurrogate", dllSurrogate},
		} {
			if v.value != "" {
				c.classesRoot(loc, s, key, v.name, v.value)
			}
		}
		if activateAtStorage.set {
			c.classesRoot(loc, s, key, "ActivateAtStorage", "Y")
		}
		if runAsInteractive.set {
			c.classesRoot(loc, s, key, "RunAs", "Interactive User")
		}
	}

	s.appID = id
	s.advertise = advertise
	c.parseChildren(el, s)
	return result{id: id}
}

func parseClass(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, description, icon, handler, argument, server, threading, version string
	var contexts []string
	var iconIndex optInt
	appID := s.appID
	own := attrval.YesNoNotSet
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.guid(in, attrval.GUIDOptions{})
		case "Context":
			for _, field := range strings.Fields(in.Value) {
				ctx := *in
				ctx.Value = field
				if v := c.enum(&ctx, classContexts...); v != "" {
					contexts = append(contexts, v)
				}
			}
		case "Advertise":
			own = c.yesNo(in)
		case "Description":
			description = c.text(in)
		case "AppId":
			appID = c.guid(in, attrval.GUIDOptions{})
		case "Icon":
			icon = c.identifier(in)
		case "IconIndex":
			iconIndex = some(c.integer(in, attrval.MinInt16, attrval.MaxInt16))
		case "Handler":
			handler = c.text(in)
		case "Argument":
			argument = c.text(in)
		case "Server":
			server = c.text(in)
		case "ThreadingModel":
			threading = c.enum(in, threadingModels...)
		case "Version":
			version = c.version(in)
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalGUID
	}
	if len(contexts) == 0 {
		c.expected(el, "Context")
	}
	advertise := c.resolveAdvertise(el, own, s)

	cs := s
	cs.classID = id
	cs.progID = ""
	cs.advertise = advertise
	var defaultProgID string
	for _, r := range c.parseChildren(el, cs) {
		if r.element == "ProgId" && defaultProgID == "" {
			defaultProgID = r.id
		}
	}

	if advertise == attrval.Yes {
		if icon != "" {
			c.AddValidReference(loc, "Icon", icon)
		}
		for _, ctx := range contexts {
			row := c.row(loc, "Class")
			row.SetString("CLSID", id)
			row.SetString("Context", ctx)
			row.SetString("Component_", s.componentID)
			row.SetString("ProgId_Default", defaultProgID)
			row.SetString("Description", description)
			row.SetString("AppId_", appID)
			row.SetString("Icon_", icon)
			setOptInt(row, "IconIndex", iconIndex)
			row.SetString("DefInprocHandler", handler)
			row.SetString("Argument", argument)
			row.SetString("Feature_", "")
			c.AddFeatureBacklink(loc, s.componentID, ir.BacklinkClass, row.Symbol())
		}
		if appID != "" && s.parent != "AppId" {
			c.AddValidReference(loc, "AppId", appID)
		}
	} else {
		key := `CLSID\` + id
		c.classesRoot(loc, s, key, "", description)
		value := server
		if value == "" && s.fileID != "" {
			value = fileReference(s.fileID)
		}
		if argument != "" {
			value += " " + argument
		}
		for _, ctx := range contexts {
			c.classesRoot(loc, s, key+`\`+ctx, "", value)
			if threading != "" && strings.HasPrefix(ctx, "InprocServer") {
				c.classesRoot(loc, s, key+`\`+ctx, "ThreadingModel", threadingModelName(threading))
			}
		}
		if defaultProgID != "" {
			c.classesRoot(loc, s, key+`\ProgID`, "", defaultProgID)
		}
		if appID != "" {
			c.classesRoot(loc, s, key, "AppID", appID)
		}
		if icon != "" {
			iconValue := fileReference(icon)
			if iconIndex.set {
				iconValue += "," + strconv.FormatInt(iconIndex.value, 10)
			}
			c.classesRoot(loc, s, key+`\DefaultIcon`, "", iconValue)
		}
		if handler != "" {
			c.classesRoot(loc, s, key+`\InprocHandler32`, "", handler)
		}
	}
	if version != "" {
		c.classesRoot(loc, s, `CLSID\`+id+`\Version`, "", version)
	}
	if s.typeLibID != "" {
		c.classesRoot(loc, s, `CLSID\`+id+`\TypeLib`, "", s.typeLibID)
	}
	return result{id: id}
}

// threadingModelName capitalizes a threading model the way COM spells it.
func threadingModelName(model string) string {
	if model == "" {
		return ""
	}
	return strings.ToUpper(model[:1]) + model[1:]
}

func parseProgID(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, description, icon string
	var iconIndex optInt
	own := attrval.YesNoNotSet
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.text(in)
		case "Description":
			description = c.text(in)
		case "Icon":
			icon = c.identifier(in)
		case "IconIndex":
			iconIndex = some(c.integer(in, attrval.MinInt16, attrval.MaxInt16))
		case "Advertise":
			own = c.yesNo(in)
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalIdentifier
	}
	advertise := c.resolveAdvertise(el, own, s)
	parentProgID := ""
	if s.parent == "ProgId" {
		parentProgID = s.progID
	}

	if advertise == attrval.Yes {
		row := c.row(loc, "ProgId")
		row.SetString("ProgId", id)
		row.SetString("ProgId_Parent", parentProgID)
		if parentProgID == "" {
			row.SetString("Class_", s.classID)
		}
		row.SetString("Description", description)
		row.SetString("Icon_", icon)
		setOptInt(row, "IconIndex", iconIndex)
		if icon != "" {
			c.AddValidReference(loc, "Icon", icon)
		}
	} else {
		c.classesRoot(loc, s, id, "", description)
		if s.classID != "" {
			c.classesRoot(loc, s, id+`\CLSID`, "", s.classID)
		}
		if parentProgID != "" {
			c.classesRoot(loc, s, id+`\CurVer`, "", parentProgID)
		}
		if icon != "" {
			iconValue := fileReference(icon)
			if iconIndex.set {
				iconValue += "," + strconv.FormatInt(iconIndex.value, 10)
			}
			c.classesRoot(loc, s, id+`\DefaultIcon`, "", iconValue)
		}
	}

	s.progID = id
	s.advertise = advertise
	c.parseChildren(el, s)
	return result{id: id}
}

func parseExtension(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, contentType string
	own := attrval.YesNoNotSet
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.text(in)
		case "ContentType":
			contentType = c.text(in)
		case "Advertise":
			own = c.yesNo(in)
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalIdentifier
	}
	advertise := c.resolveAdvertise(el, own, s)

	cs := s
	cs.extensionID = id
	cs.advertise = advertise
	for _, r := range c.parseChildren(el, cs) {
		if r.element == "MIME" && r.isDefault {
			if contentType != "" && contentType != r.id {
				c.exclusive(el, "ContentType", "MIME/@Default")
			}
			contentType = r.id
		}
	}

	if advertise == attrval.Yes {
		row := c.row(loc, "Extension")
		row.SetString("Extension", id)
		row.SetString("Component_", s.componentID)
		row.SetString("ProgId_", s.progID)
		row.SetString("MIME_", contentType)
		row.SetString("Feature_", "")
		c.AddFeatureBacklink(loc, s.componentID, ir.BacklinkExtension, row.Symbol())
		if contentType != "" {
			c.AddValidReference(loc, "MIME", contentType)
		}
	} else {
		key := "." + id
		if s.progID != "" {
			c.classesRoot(loc, s, key, "", s.progID)
		}
		if contentType != "" {
			c.classesRoot(loc, s, key, "Content Type", contentType)
		}
	}
	return result{id: id}
}

func parseVerb(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, command, argument, target, targetFile string
	var sequence optInt
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.text(in)
		case "Command":
			command = c.text(in)
		case "Argument":
			argument = c.text(in)
		case "Sequence":
			sequence = some(c.integer(in, 1, attrval.MaxInt16))
		case "Target":
			target = c.text(in)
		case "TargetFile":
			targetFile = c.identifier(in)
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalIdentifier
	}

	if s.advertise == attrval.Yes {
		if target != "" {
			c.exclusive(el, "Target", "Advertise")
		}
		if targetFile != "" {
			c.exclusive(el, "TargetFile", "Advertise")
		}
		row := c.row(loc, "Verb")
		row.SetString("Extension_", s.extensionID)
		row.SetString("Verb", id)
		setOptInt(row, "Sequence", sequence)
		row.SetString("Command", command)
		row.SetString("Argument", argument)
		return result{id: id}
	}

	switch {
	case target != "" && targetFile != "":
		c.exclusive(el, "Target", "TargetFile")
	case targetFile != "":
		c.AddValidReference(loc, "File", targetFile)
		target = fileReference(targetFile)
	case target == "":
		c.OnMessage(diag.ExpectedAttributes(loc, el.Tag, "Target", "TargetFile"))
	}
	prefix := s.progID
	if prefix == "" {
		prefix = "." + s.extensionID
	}
	key := prefix + `\shell\` + id
	if command != "" {
		c.classesRoot(loc, s, key, "", command)
	}
	value := `"` + target + `"`
	if argument != "" {
		value += " " + argument
	}
	c.classesRoot(loc, s, key+`\command`, "", value)
	return result{id: id}
}

func parseMIME(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var contentType, class string
	isDefault := false
	own := attrval.YesNoNotSet
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "ContentType":
			contentType = c.text(in)
		case "Class":
			class = c.guid(in, attrval.GUIDOptions{})
		case "Default":
			isDefault = c.yesNo(in) == attrval.Yes
		case "Advertise":
			own = c.yesNo(in)
		}
	})
	if contentType == "" {
		c.expected(el, "ContentType")
	}
	advertise := c.resolveAdvertise(el, own, s)

	if advertise == attrval.Yes {
		row := c.row(loc, "MIME")
		row.SetString("ContentType", contentType)
		row.SetString("Extension_", s.extensionID)
		row.SetString("CLSID", class)
	} else {
		key := `MIME\Database\Content Type\` + contentType
		c.classesRoot(loc, s, key, "Extension", "."+s.extensionID)
		if class != "" {
			c.classesRoot(loc, s, key, "CLSID", class)
		}
	}
	return result{id: contentType, isDefault: isDefault}
}

func parseTypeLib(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, description, helpDirectory string
	var lang, major, minor, cost optInt
	flags := typeLibFlags.New()
	own := attrval.YesNoNotSet
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.guid(in, attrval.GUIDOptions{})
		case "Advertise":
			own = c.yesNo(in)
		case "Language":
			lang = some(c.integer(in, 0, attrval.MaxInt16))
		case "MajorVersion":
			major = some(c.integer(in, 0, attrval.MaxUint16>>8))
		case "MinorVersion":
			minor = some(c.integer(in, 0, attrval.MaxUint16>>8))
		case "Description":
			description = c.text(in)
		case "HelpDirectory":
			helpDirectory = c.identifier(in)
			c.AddValidReference(loc, "Directory", helpDirectory)
		case "Cost":
			cost = some(c.integer(in, 0, attrval.MaxInt32))
		case "Control", "Hidden", "Restricted":
			flags.SetIf(key, c.yesNo(in) == attrval.Yes)
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalGUID
	}
	if !lang.set {
		c.expected(el, "Language")
	}
	advertise := c.resolveAdvertise(el, own, s)

	if advertise == attrval.Yes {
		if flags.Value() != 0 {
			c.exclusive(el, strings.Join(flags.Names(), ", "), "Advertise")
		}
		row := c.row(loc, "TypeLib")
		row.SetString("LibID", id)
		row.SetInt("Language", lang.value)
		row.SetString("Component_", s.componentID)
		if major.set {
			row.SetInt("Version", major.value<<8|minor.value)
		}
		row.SetString("Description", description)
		row.SetString("Directory_", helpDirectory)
		row.SetString("Feature_", "")
		setOptInt(row, "Cost", cost)
		c.AddFeatureBacklink(loc, s.componentID, ir.BacklinkTypeLib, row.Symbol())
	} else {
		key := `TypeLib\` + id + `\` + strconv.FormatInt(major.value, 16) + "." + strconv.FormatInt(minor.value, 16)
		c.classesRoot(loc, s, key, "", description)
		c.classesRoot(loc, s, key+`\FLAGS`, "", strconv.FormatInt(flags.Value(), 10))
		if s.fileID != "" {
			c.classesRoot(loc, s, key+`\`+strconv.FormatInt(lang.value, 10)+`\win32`, "", fileReference(s.fileID))
		}
		if helpDirectory != "" {
			c.classesRoot(loc, s, key+`\HELPDIR`, "", "["+helpDirectory+"]")
		}
	}

	s.typeLibID = id
	s.advertise = advertise
	c.parseChildren(el, s)
	return result{id: id}
}

func parseInterface(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, name string
	proxyStub, proxyStub32 := automationProxyStub, automationProxyStub
	var numMethods optInt
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.guid(in, attrval.GUIDOptions{})
		case "Name":
			name = c.text(in)
		case "ProxyStubClassId":
			proxyStub = c.guid(in, attrval.GUIDOptions{})
		case "ProxyStubClassId32":
			proxyStub32 = c.guid(in, attrval.GUIDOptions{})
		case "NumMethods":
			numMethods = some(c.integer(in, 0, attrval.MaxInt32))
		}
	})
	if id == "" {
		c.expected(el, "Id")
		id = attrval.IllegalGUID
	}
	if name == "" {
		c.expected(el, "Name")
	}

	key := `Interface\` + id
	c.classesRoot(loc, s, key, "", name)
	if numMethods.set {
		c.classesRoot(loc, s, key+`\NumMethods`, "", strconv.FormatInt(numMethods.value, 10))
	}
	c.classesRoot(loc, s, key+`\ProxyStubClsid`, "", proxyStub)
	c.classesRoot(loc, s, key+`\ProxyStubClsid32`, "", proxyStub32)
	if s.typeLibID != "" {
		c.classesRoot(loc, s, key+`\TypeLib`, "", s.typeLibID)
	}
	return result{id: id}
}
