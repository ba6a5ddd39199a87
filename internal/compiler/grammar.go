package compiler

import (
	"github.com/samber/lo"
)

// elementDef is one entry of the core grammar: the handler for an element,
// the attributes it may carry and the core children it may contain.
// Foreign-namespace children and attributes are always routed to the
// extension that claims them.
type elementDef struct {
	handler    handlerFunc
	attributes []string
	children   []string

	attributeSet map[string]bool
	childSet     map[string]bool
}

func (d *elementDef) hasAttribute(name string) bool {
	return d.attributeSet[name]
}

func (d *elementDef) hasChild(name string) bool {
	return d.childSet[name]
}

func rule(handler handlerFunc, attributes []string, children ...string) *elementDef {
	return &elementDef{handler: handler, attributes: attributes, children: children}
}

func attrs(names ...string) []string {
	return names
}

var (
	sequenceTables = []string{
		"InstallExecuteSequence", "InstallUISequence", "AdminExecuteSequence",
		"AdminUISequence", "AdvertiseExecuteSequence",
	}
	searchElements = []string{"RegistrySearch", "ComponentSearch", "DirectorySearch", "FileSearch"}
	sectionContent = []string{
		"Property", "Directory", "DirectoryRef", "CustomAction", "Binary", "Icon",
		"UI", "AppId", "EnsureTable", "CustomTable",
	}
)

// grammar maps a core element's local name to its definition. It is
// populated in init because handlers recurse through it.
var grammar map[string]*elementDef

func init() {
	productChildren := lo.Flatten([][]string{sectionContent, sequenceTables, {
		"Package", "Feature", "FeatureRef", "ComponentGroupRef", "Upgrade", "Media", "Condition",
	}})
	moduleChildren := lo.Flatten([][]string{sectionContent, sequenceTables, {
		"Package", "ComponentRef", "ComponentGroupRef", "Dependency",
	}})
	fragmentChildren := lo.Flatten([][]string{sectionContent, sequenceTables, {
		"Feature", "FeatureRef", "ComponentGroup", "ComponentGroupRef", "Upgrade", "Media", "Condition",
	}})
	searchChildren := []string{"DirectorySearch", "FileSearch"}
	featureChildren := []string{"Feature", "FeatureRef", "Component", "ComponentRef", "ComponentGroupRef", "MergeRef", "Condition"}
	directoryChildren := []string{"Directory", "Component", "Merge"}

	grammar = map[string]*elementDef{
		"Wix": rule(parseWix, attrs("RequiredVersion"), "Product", "Module", "Fragment", "PatchCreation"),

		// Sections
		"Product": rule(parseProduct,
			attrs("Id", "Codepage", "Language", "Manufacturer", "Name", "UpgradeCode", "Version"),
			productChildren...),
		"Module":   rule(parseModule, attrs("Id", "Codepage", "Language", "Version"), moduleChildren...),
		"Fragment": rule(parseFragment, attrs("Id"), fragmentChildren...),
		"PatchCreation": rule(parsePatchCreation,
			attrs("Id", "Codepage", "AllowMajorVersionMismatches", "AllowProductCodeMismatches",
				"CleanWorkingFolder", "OutputPath", "WholeFilesOnly"),
			"PatchInformation", "PatchProperty", "Family"),
		"PatchInformation": rule(parsePatchInformation,
			attrs("AdminImage", "Comments", "Compressed", "Description", "Keywords", "Languages",
				"Manufacturer", "Platforms", "ShortNames", "SummaryCodepage")),
		"PatchProperty": rule(parsePatchProperty, attrs("Name", "Value")),
		"Family": rule(parseFamily,
			attrs("Name", "DiskId", "DiskPrompt", "MediaSrcProp", "SequenceStart", "VolumeLabel")),
		"Package": rule(parsePackage,
			attrs("Id", "AdminImage", "Comments", "Compressed", "Description", "InstallerVersion",
				"InstallPrivileges", "InstallScope", "Keywords", "Languages", "Manufacturer", "Platform",
				"ReadOnly", "ShortNames", "SummaryCodepage")),
		"Dependency": rule(parseDependency, attrs("RequiredId", "RequiredLanguage", "RequiredVersion")),

		// Properties and searches
		"Property":        rule(parseProperty, attrs("Id", "Value", "Admin", "Hidden", "Secure"), searchElements...),
		"RegistrySearch":  rule(parseRegistrySearch, attrs("Id", "Root", "Key", "Name", "Type", "Win64"), searchChildren...),
		"ComponentSearch": rule(parseComponentSearch, attrs("Id", "Guid", "Type"), searchChildren...),
		"DirectorySearch": rule(parseDirectorySearch, attrs("Id", "Path", "Depth", "AssignToProperty"), searchChildren...),
		"FileSearch": rule(parseFileSearch,
			attrs("Id", "Name", "ShortName", "MinVersion", "MaxVersion", "MinSize", "MaxSize",
				"MinDate", "MaxDate", "Languages")),
		"Condition": rule(parseCondition, attrs("Message", "Level", "Action")),

		// Directories and components
		"Directory": rule(parseDirectory,
			attrs("Id", "Name", "ShortName", "SourceName", "ShortSourceName", "DiskId"),
			directoryChildren...),
		"DirectoryRef": rule(parseDirectoryRef, attrs("Id", "DiskId"), directoryChildren...),
		"Merge":        rule(parseMerge, attrs("Id", "Language", "SourceFile", "DiskId", "FileCompression")),
		"Component": rule(parseComponent,
			attrs("Id", "Guid", "Directory", "DiskId", "Feature", "KeyPath", "Location", "NeverOverwrite",
				"Permanent", "SharedDllRefCount", "Shared", "Transitive", "Win64",
				"DisableRegistryReflection", "UninstallWhenSuperseded"),
			"File", "Registry", "RegistryKey", "RegistryValue", "CreateFolder", "RemoveFile",
			"RemoveFolder", "Environment", "Shortcut", "Class", "ProgId", "AppId", "TypeLib", "Condition"),
		"ComponentRef":      rule(parseComponentRef, attrs("Id", "Primary")),
		"ComponentGroup":    rule(parseComponentGroup, attrs("Id"), "Component", "ComponentRef", "ComponentGroupRef"),
		"ComponentGroupRef": rule(parseComponentGroupRef, attrs("Id", "Primary")),
		"File": rule(parseFile,
			attrs("Id", "Name", "ShortName", "Source", "KeyPath", "Vital", "ReadOnly", "Hidden", "System",
				"Compressed", "Checksum", "DiskId", "Assembly", "AssemblyManifest", "AssemblyApplication",
				"ProcessorArchitecture", "DefaultVersion", "DefaultLanguage", "DefaultSize", "PatchGroup"),
			"Class", "TypeLib", "Shortcut"),
		"CreateFolder": rule(parseCreateFolder, attrs("Directory")),
		"RemoveFile":   rule(parseRemoveFile, attrs("Id", "Name", "ShortName", "On", "Directory", "Property")),
		"RemoveFolder": rule(parseRemoveFolder, attrs("Id", "On", "Directory", "Property")),
		"Environment": rule(parseEnvironment,
			attrs("Id", "Name", "Value", "Action", "Part", "Permanent", "Separator", "System")),
		"Shortcut": rule(parseShortcut,
			attrs("Id", "Name", "ShortName", "Directory", "Target", "Advertise", "Arguments", "Description",
				"Hotkey", "Icon", "IconIndex", "Show", "WorkingDirectory")),

		// Registry
		"Registry": rule(parseRegistry,
			attrs("Id", "Root", "Key", "Name", "Value", "Type", "Action", "KeyPath"), "Registry"),
		"RegistryKey": rule(parseRegistryKey,
			attrs("Id", "Root", "Key", "Action", "ForceCreateOnInstall", "ForceDeleteOnUninstall"),
			"RegistryKey", "RegistryValue"),
		"RegistryValue": rule(parseRegistryValue,
			attrs("Id", "Root", "Key", "Name", "Value", "Type", "Action", "KeyPath"), "MultiStringValue"),
		"MultiStringValue": rule(parseMultiStringValue, nil),

		// COM and shell integration
		"Class": rule(parseClass,
			attrs("Id", "Context", "Advertise", "Description", "AppId", "Icon", "IconIndex", "Handler",
				"Argument", "Server", "ThreadingModel", "Version"),
			"ProgId", "Interface"),
		"ProgId":    rule(parseProgID, attrs("Id", "Description", "Icon", "IconIndex", "Advertise"), "ProgId", "Extension"),
		"Extension": rule(parseExtension, attrs("Id", "ContentType", "Advertise"), "Verb", "MIME"),
		"Verb":      rule(parseVerb, attrs("Id", "Command", "Argument", "Sequence", "Target", "TargetFile")),
		"MIME":      rule(parseMIME, attrs("ContentType", "Class", "Default", "Advertise")),
		"AppId": rule(parseAppID,
			attrs("Id", "Advertise", "Description", "DllSurrogate", "LocalService", "RemoteServerName",
				"ActivateAtStorage", "RunAsInteractiveUser", "ServiceParameters"),
			"Class"),
		"TypeLib": rule(parseTypeLib,
			attrs("Id", "Advertise", "Language", "MajorVersion", "MinorVersion", "Description",
				"HelpDirectory", "Cost", "Control", "Hidden", "Restricted"),
			"Class", "Interface"),
		"Interface": rule(parseInterface, attrs("Id", "Name", "ProxyStubClassId", "ProxyStubClassId32", "NumMethods")),

		// Features
		"Feature": rule(parseFeature,
			attrs("Id", "Absent", "AllowAdvertise", "ConfigurableDirectory", "Description", "Display",
				"InstallDefault", "Level", "Title", "TypicalDefault"),
			featureChildren...),
		"FeatureRef": rule(parseFeatureRef, attrs("Id", "IgnoreParent"), featureChildren...),
		"MergeRef":   rule(parseMergeRef, attrs("Id", "Primary")),

		// Upgrades
		"Upgrade": rule(parseUpgrade, attrs("Id"), "UpgradeVersion"),
		"UpgradeVersion": rule(parseUpgradeVersion,
			attrs("Minimum", "Maximum", "Language", "Property", "IncludeMinimum", "IncludeMaximum",
				"OnlyDetect", "IgnoreRemoveFailure", "MigrateFeatures", "ExcludeLanguages", "RemoveFeatures")),

		// Actions and media
		"CustomAction": rule(parseCustomAction,
			attrs("Id", "BinaryKey", "FileKey", "Property", "Directory", "Script", "DllEntry", "ExeCommand",
				"JScriptCall", "VBScriptCall", "Value", "Error", "Execute", "Return", "Impersonate", "Win64",
				"HideTarget", "TerminalServerAware", "PatchUninstall")),
		"Binary": rule(parseBinary, attrs("Id", "SourceFile")),
		"Icon":   rule(parseIcon, attrs("Id", "SourceFile")),
		"Media":  rule(parseMedia, attrs("Id", "Cabinet", "DiskPrompt", "EmbedCab", "Source", "VolumeLabel")),
		"Custom": rule(parseCustom, attrs("Action", "After", "Before", "Sequence", "OnExit", "Overridable")),

		// User interface
		"UI":    rule(parseUI, attrs("Id"), "Dialog", "Property", "Error", "Binary", "InstallUISequence", "AdminUISequence"),
		"Error": rule(parseError, attrs("Id")),
		"Dialog": rule(parseDialog,
			attrs("Id", "Width", "Height", "X", "Y", "Title", "Hidden", "Modeless", "NoMinimize",
				"SystemModal", "KeepModeless", "TrackDiskSpace", "CustomPalette", "RightToLeft", "ErrorDialog"),
			"Control"),
		"Control": rule(parseControl,
			attrs("Id", "Type", "X", "Y", "Width", "Height", "Property", "Text", "Help", "TabSkip", "Default",
				"Cancel", "Disabled", "Hidden", "Sunken", "Indirect", "Integer", "RightToLeft", "Transparent",
				"NoPrefix"),
			"Condition"),

		// Custom tables
		"EnsureTable": rule(parseEnsureTable, attrs("Id")),
		"CustomTable": rule(parseCustomTable, attrs("Id"), "Column", "Row"),
		"Column": rule(parseColumn,
			attrs("Id", "Type", "PrimaryKey", "Nullable", "Width", "Category", "KeyTable", "KeyColumn",
				"MinValue", "MaxValue", "Set", "Description", "Localizable", "Modularize")),
		"Row":  rule(parseRow, nil, "Data"),
		"Data": rule(parseData, attrs("Column")),
	}

	for _, name := range sequenceTables {
		grammar[name] = rule(parseSequence, nil, "Custom")
	}

	for _, def := range grammar {
		def.attributeSet = lo.SliceToMap(def.attributes, func(a string) (string, bool) { return a, true })
		def.childSet = lo.SliceToMap(def.children, func(c string) (string, bool) { return c, true })
	}
}
