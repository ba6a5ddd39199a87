// Package util is the utility compiler extension. It claims the
// UtilExtension namespace and adds user accounts, recursive folder removal
// and folder cleanup on uninstall.
package util

import (
	"embed"
	"io/fs"
	"strconv"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/candle/internal/attrval"
	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/extension"
	"github.com/roach88/candle/internal/ident"
	"github.com/roach88/candle/internal/ir"
	"github.com/roach88/candle/internal/tables"
)

// Namespace is the XML namespace the extension claims.
const Namespace = "http://schemas.microsoft.com/wix/UtilExtension"

const schemaPath = "util.xsd"

// Custom actions that process the extension's tables at install time.
const (
	configureUsersAction  = "ConfigureUsers"
	removeFoldersExAction = "WixRemoveFoldersEx"
	installModeUninstall  = 2
	removeOnUninstallAttr = "RemoveOnUninstall"
)

//go:embed tables.cue
var tableSource []byte

//go:embed util.xsd
var schemaFS embed.FS

// User attribute bits.
var userFlags = ir.NewFlagDef("Attributes",
	ir.Flag{Name: "DontExpirePassword", Bit: 0x1},
	ir.Flag{Name: "PasswordCantChange", Bit: 0x2},
	ir.Flag{Name: "PasswordChangeRequired", Bit: 0x4},
	ir.Flag{Name: "DisableAccount", Bit: 0x8},
	ir.Flag{Name: "FailIfExists", Bit: 0x10},
	ir.Flag{Name: "UpdateIfExists", Bit: 0x20},
	ir.Flag{Name: "LogonAsService", Bit: 0x40},
	ir.Flag{Name: "LogonAsBatchJob", Bit: 0x80},
	ir.Flag{Name: "DontRemoveOnUninstall", Bit: 0x100},
	ir.Flag{Name: "DontCreateUser", Bit: 0x200},
)

// userYesFlags maps attributes that set a bit when "yes".
var userYesFlags = map[string]string{
	"PasswordNeverExpires": "DontExpirePassword",
	"CanNotChangePassword": "PasswordCantChange",
	"PasswordExpired":      "PasswordChangeRequired",
	"Disabled":             "DisableAccount",
	"FailIfExists":         "FailIfExists",
	"UpdateIfExists":       "UpdateIfExists",
	"LogonAsService":       "LogonAsService",
	"LogonAsBatchJob":      "LogonAsBatchJob",
}

// userNoFlags maps attributes that set a bit when "no".
var userNoFlags = map[string]string{
	"RemoveOnUninstall": "DontRemoveOnUninstall",
	"CreateUser":        "DontCreateUser",
}

var installModes = map[string]int64{
	"install":   1,
	"uninstall": 2,
	"both":      3,
}

// Parents that may hold a User outside any component; such a user refers to
// an existing account.
var sectionParents = map[string]bool{
	"Fragment": true,
	"Product":  true,
	"Module":   true,
}

// Extension is the utility plug-in. It keeps no per-compile state, so one
// value serves concurrent compiles.
type Extension struct {
	defs []*ir.TableDefinition
}

var _ extension.Extension = (*Extension)(nil)

// New compiles the extension's table definitions.
func New() (*Extension, error) {
	defs, err := tables.Compile(tableSource, "util/tables.cue")
	if err != nil {
		return nil, errors.Wrap(err, "compiling utility tables")
	}
	return &Extension{defs: defs.All()}, nil
}

// Namespace implements extension.Extension.
func (e *Extension) Namespace() string {
	return Namespace
}

// TableDefinitions implements extension.Extension.
func (e *Extension) TableDefinitions() []*ir.TableDefinition {
	return e.defs
}

// Schema implements extension.Extension.
func (e *Extension) Schema() (fs.FS, string) {
	return schemaFS, schemaPath
}

// Initialize implements extension.Extension.
func (e *Extension) Initialize(core extension.Core) {
	core.Logger().Debug("utility extension initialized", zap.String("namespace", Namespace))
}

// Finalize implements extension.Extension.
func (e *Extension) Finalize() {}

// ParseAttribute implements extension.Extension.
func (e *Extension) ParseAttribute(core extension.Core, el *etree.Element, attr etree.Attr, scope extension.Scope) {
	if el.Tag != "CreateFolder" || attr.Key != removeOnUninstallAttr {
		core.UnexpectedAttribute(el, attr)
		return
	}
	loc := core.SourceLine(el)
	yn, m := attrval.ParseYesNo(&attrval.Input{Loc: loc, Element: el.Tag, Attribute: attr.Key, Value: attr.Value})
	if m != nil {
		core.OnMessage(*m)
		return
	}
	if yn != attrval.Yes {
		return
	}

	componentID := scope[extension.ScopeComponentID]
	directoryID := scope[extension.ScopeDirectoryID]
	row, ok := createRow(core, loc, "RemoveFile")
	if !ok {
		return
	}
	row.SetString("FileKey", core.GenerateIdentifier(ident.RemoveFile, componentID, directoryID, strconv.Itoa(installModeUninstall)))
	row.SetString("Component_", componentID)
	row.SetString("DirProperty", directoryID)
	row.SetInt("InstallMode", installModeUninstall)
}

// ParseElement implements extension.Extension.
func (e *Extension) ParseElement(core extension.Core, parent, el *etree.Element, scope extension.Scope) {
	switch {
	case el.Tag == "User" && (parent.Tag == "Component" || sectionParents[parent.Tag]):
		parseUser(core, el, scope)
	case el.Tag == "RemoveFolderEx" && parent.Tag == "Component":
		parseRemoveFolderEx(core, el, scope)
	default:
		core.UnexpectedElement(parent, el)
	}
}

func createRow(core extension.Core, loc ir.SourceLine, table string) (*ir.Row, bool) {
	row, err := core.CreateRow(loc, table)
	if err != nil {
		core.OnMessage(diag.ExtensionFailure(loc, Namespace, err))
		return nil, false
	}
	return row, true
}

// attributes yields every unqualified attribute of el as an Input and
// reports attributes of any other namespace.
func attributes(core extension.Core, el *etree.Element, fn func(*attrval.Input)) {
	loc := core.SourceLine(el)
	for i := range el.Attr {
		attr := el.Attr[i]
		if attr.Space == "xmlns" || (attr.Space == "" && attr.Key == "xmlns") {
			continue
		}
		if attr.Space != "" {
			core.UnexpectedAttribute(el, attr)
			continue
		}
		fn(attrval.From(loc, el, &attr))
	}
}

func report(core extension.Core, m *diag.Message) {
	if m != nil {
		core.OnMessage(*m)
	}
}

func parseUser(core extension.Core, el *etree.Element, scope extension.Scope) {
	loc := core.SourceLine(el)
	componentID := scope[extension.ScopeComponentID]
	var id, name, domain, password string
	flags := userFlags.New()
	attributes(core, el, func(in *attrval.Input) {
		var m *diag.Message
		switch in.Attribute {
		case "Id":
			id, m = attrval.Identifier(in)
		case "Name":
			name, m = attrval.Text(in, false)
		case "Domain":
			domain, m = attrval.Text(in, false)
		case "Password":
			password, m = attrval.Text(in, true)
		default:
			yesFlag, isYes := userYesFlags[in.Attribute]
			noFlag, isNo := userNoFlags[in.Attribute]
			if !isYes && !isNo {
				core.UnexpectedAttribute(el, etree.Attr{Key: in.Attribute, Value: in.Value})
				return
			}
			if componentID == "" {
				// Account options only apply to users the component creates.
				core.OnMessage(diag.IllegalAttributeValueInScope(loc, el.Tag, in.Attribute, in.Value, el.Parent().Tag))
				return
			}
			var yn attrval.YesNo
			yn, m = attrval.ParseYesNo(in)
			if isYes {
				flags.SetIf(yesFlag, yn == attrval.Yes)
			} else {
				flags.SetIf(noFlag, yn == attrval.No)
			}
		}
		report(core, m)
	})
	if name == "" {
		core.OnMessage(diag.ExpectedAttribute(loc, el.Tag, "Name"))
	}
	if id == "" {
		id = core.GenerateIdentifier(ident.User, componentID, domain, name)
	}

	row, ok := createRow(core, loc, "User")
	if !ok {
		return
	}
	row.SetString("User", id)
	row.SetString("Component_", componentID)
	row.SetString("Name", name)
	row.SetString("Domain", domain)
	row.SetString("Password", password)
	row.SetInt("Attributes", flags.Value())

	if componentID != "" {
		core.AddValidReference(loc, "CustomAction", configureUsersAction)
	}
	core.Logger().Debug("user account", zap.String("user", id), zap.Strings("flags", flags.Names()))
}

func parseRemoveFolderEx(core extension.Core, el *etree.Element, scope extension.Scope) {
	loc := core.SourceLine(el)
	componentID := scope[extension.ScopeComponentID]
	var id, property string
	mode := int64(installModeUninstall)
	attributes(core, el, func(in *attrval.Input) {
		var m *diag.Message
		switch in.Attribute {
		case "Id":
			id, m = attrval.Identifier(in)
		case "Property":
			property, m = attrval.Identifier(in)
		case "On":
			var on string
			on, m = attrval.Enum(in, "install", "uninstall", "both")
			if on != "" {
				mode = installModes[on]
			}
		default:
			core.UnexpectedAttribute(el, etree.Attr{Key: in.Attribute, Value: in.Value})
		}
		report(core, m)
	})
	if property == "" {
		core.OnMessage(diag.ExpectedAttribute(loc, el.Tag, "Property"))
	}
	if id == "" {
		id = core.GenerateIdentifier(ident.RemoveFolderEx, componentID, property, strconv.FormatInt(mode, 10))
	}

	row, ok := createRow(core, loc, "WixRemoveFolderEx")
	if !ok {
		return
	}
	row.SetString("WixRemoveFolderEx", id)
	row.SetString("Component_", componentID)
	row.SetString("Property", property)
	row.SetInt("InstallMode", mode)

	core.AddValidReference(loc, "CustomAction", removeFoldersExAction)
}
