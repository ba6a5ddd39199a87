package compiler

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/roach88/candle/internal/attrval"
	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/ident"
	"github.com/roach88/candle/internal/ir"
)

// Special Registry/@Name values for key-only rows.
const (
	registryCreateKey          = "+"
	registryCreateAndRemoveKey = "*"
	multiStringSeparator       = "[~]"
)

var registryTypes = []string{"string", "integer", "binary", "expandable", "multiString"}

// subKey appends key to an inherited parent key.
func subKey(parent, key string) string {
	switch {
	case parent == "":
		return key
	case key == "":
		return parent
	default:
		return parent + `\` + key
	}
}

// encodeRegistryValue renders typed registry data the way the Registry
// table stores it.
func encodeRegistryValue(typ, action string, values []string) string {
	if typ == "multiString" {
		joined := strings.Join(values, multiStringSeparator)
		switch {
		case action == "append":
			return multiStringSeparator + joined
		case action == "prepend":
			return joined + multiStringSeparator
		case len(values) == 1:
			return multiStringSeparator + joined + multiStringSeparator
		default:
			return joined
		}
	}

	var v string
	if len(values) > 0 {
		v = values[0]
	}
	switch typ {
	case "integer":
		return "#" + v
	case "binary":
		return "#x" + v
	case "expandable":
		return "#%" + v
	default:
		if strings.HasPrefix(v, "#") {
			return "#" + v
		}
		return v
	}
}

// registryEntry is the resolved content of one registry element.
type registryEntry struct {
	id      string
	root    optInt
	key     string
	name    string
	value   string
	keyPath attrval.YesNo
}

// writeRegistry emits the Registry row for e, generating its id when absent.
func (c *compileContext) writeRegistry(el *etree.Element, s scope, e registryEntry) string {
	loc := c.SourceLine(el)
	if !e.root.set {
		c.requiresParent(el, "Root", "RegistryKey")
	}
	if e.key == "" {
		c.requiresParent(el, "Key", "RegistryKey")
	}
	if e.id == "" {
		e.id = c.generate(loc, el.Tag, ident.Registry, s.componentID,
			strconv.FormatInt(e.root.value, 10), strings.ToLower(e.key), strings.ToLower(e.name))
	}

	row := c.row(loc, "Registry")
	row.SetString("Registry", e.id)
	row.SetInt("Root", e.root.value)
	row.SetString("Key", e.key)
	row.SetString("Name", e.name)
	row.SetString("Value", e.value)
	row.SetString("Component_", s.componentID)
	return e.id
}

// registryKeyPath turns a KeyPath choice into a key path candidate.
func registryKeyPath(id string, yn attrval.YesNo) *keyPath {
	if yn != attrval.Yes {
		return nil
	}
	return &keyPath{id: id, explicit: true, kind: keyPathRegistry}
}

// inheritRegistry copies the parent's root and key into e.
func inheritRegistry(s scope, e *registryEntry, key string, keySet bool) {
	if !e.root.set {
		e.root = s.registryRoot
	}
	if keySet {
		e.key = subKey(s.registryKey, key)
	} else {
		e.key = s.registryKey
	}
}

// childKeyPath folds the key path candidates of nested registry elements.
func (c *compileContext) childKeyPath(loc ir.SourceLine, s scope, results []result, own *keyPath) *keyPath {
	chosen := own
	for _, r := range results {
		if r.keyPath == nil {
			continue
		}
		if chosen != nil {
			c.OnMessage(diag.ComponentMultipleKeyPaths(loc, s.componentID))
			continue
		}
		chosen = r.keyPath
	}
	return chosen
}

func parseRegistry(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	if c.pedantic(Heroic) {
		c.OnMessage(diag.DeprecatedElement(loc, el.Tag, "RegistryValue"))
	}

	var e registryEntry
	var key, typ, action, value string
	var keySet, valueSet bool
	c.eachAttribute(el, s, func(k string, in *attrval.Input) {
		switch k {
		case "Id":
			e.id = c.identifier(in)
		case "Root":
			e.root = some(c.registryRoot(in, true))
		case "Key":
			key, keySet = c.text(in), true
		case "Name":
			e.name = c.text(in)
		case "Value":
			value, _ = attrval.Text(in, true)
			valueSet = true
		case "Type":
			typ = c.enum(in, registryTypes...)
		case "Action":
			action = c.enum(in, "append", "createKey", "createKeyAndRemoveKeyOnUninstall", "prepend", "write")
		case "KeyPath":
			e.keyPath = c.yesNo(in)
		}
	})
	inheritRegistry(s, &e, key, keySet)

	switch action {
	case "createKey", "createKeyAndRemoveKeyOnUninstall":
		if e.name != "" {
			c.exclusive(el, "Name", "Action")
		}
		if valueSet {
			c.exclusive(el, "Value", "Action")
		}
		e.name = registryCreateKey
		if action == "createKeyAndRemoveKeyOnUninstall" {
			e.name = registryCreateAndRemoveKey
		}
	default:
		if valueSet && typ == "" {
			c.requires(el, "Value", "Type")
		}
		if valueSet || typ != "" {
			e.value = encodeRegistryValue(typ, action, []string{value})
		}
	}

	var own *keyPath
	hasChildren := len(el.ChildElements()) > 0
	if !hasChildren || valueSet || e.name != "" {
		e.id = c.writeRegistry(el, s, e)
		own = registryKeyPath(e.id, e.keyPath)
	}

	s.registryRoot = e.root
	s.registryKey = e.key
	return result{keyPath: c.childKeyPath(loc, s, c.parseChildren(el, s), own)}
}

func parseRegistryKey(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var e registryEntry
	var key, action string
	var keySet, forceCreate, forceDelete bool
	c.eachAttribute(el, s, func(k string, in *attrval.Input) {
		switch k {
		case "Id":
			e.id = c.identifier(in)
		case "Root":
			e.root = some(c.registryRoot(in, true))
		case "Key":
			key, keySet = c.text(in), true
		case "Action":
			action = c.enum(in, "create", "createAndRemoveOnUninstall", "none")
		case "ForceCreateOnInstall":
			forceCreate = c.yesNo(in) == attrval.Yes
		case "ForceDeleteOnUninstall":
			forceDelete = c.yesNo(in) == attrval.Yes
		}
	})
	inheritRegistry(s, &e, key, keySet)

	switch {
	case action == "createAndRemoveOnUninstall" || forceDelete:
		e.name = registryCreateAndRemoveKey
	case action == "create" || forceCreate:
		e.name = registryCreateKey
	}
	if e.name != "" {
		c.writeRegistry(el, s, e)
	}

	s.registryRoot = e.root
	s.registryKey = e.key
	return result{keyPath: c.childKeyPath(loc, s, c.parseChildren(el, s), nil)}
}

func parseRegistryValue(c *compileContext, el *etree.Element, s scope) result {
	var e registryEntry
	var key, typ, action, value string
	var keySet, valueSet bool
	c.eachAttribute(el, s, func(k string, in *attrval.Input) {
		switch k {
		case "Id":
			e.id = c.identifier(in)
		case "Root":
			e.root = some(c.registryRoot(in, true))
		case "Key":
			key, keySet = c.text(in), true
		case "Name":
			e.name = c.text(in)
		case "Value":
			value, _ = attrval.Text(in, true)
			valueSet = true
		case "Type":
			typ = c.enum(in, registryTypes...)
		case "Action":
			action = c.enum(in, "append", "prepend", "write")
		case "KeyPath":
			e.keyPath = c.yesNo(in)
		}
	})
	inheritRegistry(s, &e, key, keySet)
	if typ == "" {
		c.expected(el, "Type")
	}

	var values []string
	if valueSet {
		values = append(values, value)
	}
	for _, r := range c.parseChildren(el, s) {
		if r.element == "MultiStringValue" {
			values = append(values, r.value)
		}
	}
	switch {
	case len(values) == 0:
		c.OnMessage(diag.ExpectedAttributeOrElement(c.SourceLine(el), el.Tag, "Value", "MultiStringValue"))
	case len(values) > 1 && typ != "multiString":
		c.OnMessage(diag.IllegalAttributeValue(c.SourceLine(el), el.Tag, "Type", typ, "multiString"))
	}
	if (action == "append" || action == "prepend") && typ != "multiString" {
		c.OnMessage(diag.IllegalAttributeValue(c.SourceLine(el), el.Tag, "Action", action, "write"))
	}
	e.value = encodeRegistryValue(typ, action, values)

	id := c.writeRegistry(el, s, e)
	return result{id: id, keyPath: registryKeyPath(id, e.keyPath)}
}

func parseMultiStringValue(c *compileContext, el *etree.Element, s scope) result {
	c.eachAttribute(el, s, func(string, *attrval.Input) {})
	return result{value: innerText(el)}
}
