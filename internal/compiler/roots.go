package compiler

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/beevik/etree"

	"github.com/roach88/candle/internal/attrval"
	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/ir"
)

// Summary information property ids.
const (
	pidCodepage         = 1
	pidTitle            = 2
	pidSubject          = 3
	pidAuthor           = 4
	pidKeywords         = 5
	pidComments         = 6
	pidTemplate         = 7
	pidRevision         = 9
	pidPageCount        = 14
	pidWordCount        = 15
	pidSecurity         = 19
	defaultSummaryCP    = 1252
	defaultInstallerVer = 100
	x64InstallerVer     = 200
)

// Summary word count bits.
var wordCountFlags = ir.NewFlagDef("WordCount",
	ir.Flag{Name: "ShortNames", Bit: 1},
	ir.Flag{Name: "Compressed", Bit: 2},
	ir.Flag{Name: "AdminImage", Bit: 4},
	ir.Flag{Name: "LimitedPrivileges", Bit: 8},
)

func parseWix(c *compileContext, el *etree.Element, s scope) result {
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "RequiredVersion":
			c.requireVersion(in)
		}
	})
	c.parseChildren(el, s)
	return result{}
}

// requireVersion fails the compile when the document asks for a newer
// compiler. Only the first three version fields take part.
func (c *compileContext) requireVersion(in *attrval.Input) {
	required := c.version(in)
	if required == "" || ir.IsPlaceholder(required) {
		return
	}
	parts := strings.Split(required, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	want, err := semver.NewVersion(strings.Join(parts, "."))
	if err != nil {
		c.OnMessage(diag.IllegalVersionValue(in.Loc, in.Element, in.Attribute, in.Value))
		return
	}
	current := semver.MustParse(ir.CompilerVersion)
	if want.GreaterThan(current) {
		c.OnMessage(diag.InsufficientVersion(in.Loc, current.String(), required))
	}
}

func parseProduct(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, language, manufacturer, name, upgradeCode, version string
	codepage := 0
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.guid(in, attrval.GUIDOptions{AllowGenerate: true})
			if id == attrval.GenerateGUID {
				id = attrval.NewGUID()
			}
		case "Codepage":
			codepage = c.codepage(in)
		case "Language":
			language = c.language(in)
		case "Manufacturer":
			manufacturer = c.text(in)
		case "Name":
			name = c.text(in)
		case "UpgradeCode":
			upgradeCode = c.guid(in, attrval.GUIDOptions{})
		case "Version":
			version = c.version(in)
		}
	})
	if id == "" {
		c.expected(el, "Id")
	}
	if language == "" {
		c.expected(el, "Language")
	}
	if manufacturer == "" {
		c.expected(el, "Manufacturer")
	}
	if name == "" {
		c.expected(el, "Name")
	}
	if version == "" {
		c.expected(el, "Version")
	}

	c.builder.CreateActiveSection(id, ir.SectionProduct, codepage)
	c.activeLanguage = language
	defer func() { c.activeLanguage = "" }()

	c.propertyRow(loc, "Manufacturer", manufacturer)
	c.propertyRow(loc, "ProductCode", id)
	c.propertyRow(loc, "ProductLanguage", language)
	c.propertyRow(loc, "ProductName", name)
	c.propertyRow(loc, "ProductVersion", version)
	if upgradeCode != "" {
		c.propertyRow(loc, "UpgradeCode", upgradeCode)
	}

	c.requireOnePackage(el, c.parseChildren(el, s))
	return result{}
}

func parseModule(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, version string
	var language int64
	languageSet := false
	codepage := 0
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
		case "Codepage":
			codepage = c.codepage(in)
		case "Language":
			language = c.integer(in, 0, attrval.MaxUint16)
			languageSet = true
		case "Version":
			version = c.version(in)
		}
	})
	if id == "" {
		c.expected(el, "Id")
	}
	if !languageSet {
		c.expected(el, "Language")
	}
	if version == "" {
		c.expected(el, "Version")
	}

	c.builder.CreateActiveSection(id, ir.SectionModule, codepage)
	c.moduleID, c.moduleLanguage = id, strconv.FormatInt(language, 10)
	c.activeLanguage = c.moduleLanguage
	defer func() { c.moduleID, c.moduleLanguage, c.activeLanguage = "", "", "" }()

	row := c.row(loc, "ModuleSignature")
	row.SetString("ModuleID", id)
	row.SetInt("Language", language)
	row.SetString("Version", version)

	c.requireOnePackage(el, c.parseChildren(el, s))
	return result{}
}

func (c *compileContext) requireOnePackage(el *etree.Element, results []result) {
	packages := 0
	for _, r := range results {
		if r.element == "Package" {
			packages++
		}
	}
	switch {
	case packages == 0:
		c.OnMessage(diag.ExpectedElement(c.SourceLine(el), el.Tag, "Package"))
	case packages > 1:
		c.OnMessage(diag.TooManyElements(c.SourceLine(el), el.Tag, "Package", 1))
	}
}

func parseFragment(c *compileContext, el *etree.Element, s scope) result {
	var id string
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.identifier(in)
		}
	})
	c.builder.CreateActiveSection(id, ir.SectionFragment, 0)
	c.parseChildren(el, s)
	return result{}
}

func parsePatchCreation(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var id, outputPath string
	codepage := 0
	var majorMismatch, productCodeMismatch, cleanWorkingFolder, wholeFilesOnly attrval.YesNo
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			id = c.guid(in, attrval.GUIDOptions{})
		case "Codepage":
			codepage = c.codepage(in)
		case "AllowMajorVersionMismatches":
			majorMismatch = c.yesNo(in)
		case "AllowProductCodeMismatches":
			productCodeMismatch = c.yesNo(in)
		case "CleanWorkingFolder":
			cleanWorkingFolder = c.yesNo(in)
		case "OutputPath":
			outputPath = c.text(in)
		case "WholeFilesOnly":
			wholeFilesOnly = c.yesNo(in)
		}
	})
	if id == "" {
		c.expected(el, "Id")
	}

	c.builder.CreateActiveSection(id, ir.SectionPatchCreation, codepage)
	c.patchProperty(loc, "PatchGUID", id)
	if majorMismatch == attrval.Yes {
		c.patchProperty(loc, "AllowMajorVersionMismatches", "1")
	}
	if productCodeMismatch == attrval.Yes {
		c.patchProperty(loc, "AllowProductCodeMismatches", "1")
	}
	if cleanWorkingFolder == attrval.No {
		c.patchProperty(loc, "DontRemoveTempFolderWhenFinished", "1")
	}
	if outputPath != "" {
		c.patchProperty(loc, "PatchOutputPath", outputPath)
	}
	if wholeFilesOnly == attrval.Yes {
		c.patchProperty(loc, "IncludeWholeFilesOnly", "1")
	}

	c.parseChildren(el, s)
	return result{}
}

func (c *compileContext) patchProperty(loc ir.SourceLine, name, value string) {
	row := c.row(loc, "Properties")
	row.SetString("Name", name)
	row.SetString("Value", value)
}

func parsePatchInformation(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	keywords := "Installer,Patching,PCP,Database"
	platforms, languages := "Intel", "1033"
	var comments, description, manufacturer string
	codepage := defaultSummaryCP
	flags := wordCountFlags.New()
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "AdminImage":
			flags.SetIf("AdminImage", c.yesNo(in) == attrval.Yes)
		case "Comments":
			comments = c.text(in)
		case "Compressed":
			flags.SetIf("Compressed", c.yesNo(in) == attrval.Yes)
		case "Description":
			description = c.text(in)
		case "Keywords":
			keywords = c.text(in)
		case "Languages":
			languages = c.language(in)
		case "Manufacturer":
			manufacturer = c.text(in)
		case "Platforms":
			platforms = c.text(in)
		case "ShortNames":
			flags.SetIf("ShortNames", c.yesNo(in) == attrval.Yes)
		case "SummaryCodepage":
			codepage = c.codepage(in)
		}
	})

	c.summaryRow(loc, pidCodepage, strconv.Itoa(codepage))
	c.summaryRow(loc, pidSubject, description)
	c.summaryRow(loc, pidAuthor, manufacturer)
	c.summaryRow(loc, pidKeywords, keywords)
	c.summaryRow(loc, pidComments, comments)
	c.summaryRow(loc, pidTemplate, platforms+";"+languages)
	c.summaryRow(loc, pidWordCount, strconv.FormatInt(flags.Value(), 10))
	return result{}
}

func parsePatchProperty(c *compileContext, el *etree.Element, s scope) result {
	var name, value string
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Name":
			name = c.text(in)
		case "Value":
			value = c.text(in)
		}
	})
	if name == "" {
		c.expected(el, "Name")
	}
	if value == "" {
		c.expected(el, "Value")
	}
	c.patchProperty(c.SourceLine(el), name, value)
	return result{}
}

// maxFamilyName bounds ImageFamilies names.
const maxFamilyName = 8

func parseFamily(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var name, diskPrompt, mediaSrcProp, volumeLabel string
	var diskID, sequenceStart optInt
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Name":
			name = c.identifier(in)
			if len(name) > maxFamilyName {
				c.OnMessage(diag.IdentifierTooLong(loc, el.Tag, key, name, maxFamilyName))
			}
		case "DiskId":
			diskID = some(c.integer(in, 1, attrval.MaxInt16))
		case "DiskPrompt":
			diskPrompt = c.text(in)
		case "MediaSrcProp":
			mediaSrcProp = c.text(in)
		case "SequenceStart":
			sequenceStart = some(c.integer(in, 1, attrval.MaxInt32))
		case "VolumeLabel":
			volumeLabel = c.text(in)
		}
	})
	if name == "" {
		c.expected(el, "Name")
	}

	row := c.row(loc, "ImageFamilies")
	row.SetString("Family", name)
	row.SetString("MediaSrcPropName", mediaSrcProp)
	setOptInt(row, "MediaDiskId", diskID)
	setOptInt(row, "FileSequenceStart", sequenceStart)
	row.SetString("DiskPrompt", diskPrompt)
	row.SetString("VolumeLabel", volumeLabel)
	return result{}
}

func parsePackage(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var packageCode, comments, description, manufacturer string
	keywords := "Installer"
	languages := c.activeLanguage
	platform := "Intel"
	codepage := defaultSummaryCP
	var installerVersion optInt
	security := int64(2)
	flags := wordCountFlags.New()
	perMachine := false

	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "Id":
			packageCode = c.guid(in, attrval.GUIDOptions{AllowGenerate: c.moduleID == ""})
		case "AdminImage":
			flags.SetIf("AdminImage", c.yesNo(in) == attrval.Yes)
		case "Comments":
			comments = c.text(in)
		case "Compressed":
			flags.SetIf("Compressed", c.yesNo(in) == attrval.Yes)
		case "Description":
			description = c.text(in)
		case "InstallerVersion":
			installerVersion = some(c.integer(in, 0, attrval.MaxInt32))
		case "InstallPrivileges":
			flags.SetIf("LimitedPrivileges", c.enum(in, "elevated", "limited") == "limited")
		case "InstallScope":
			switch c.enum(in, "perMachine", "perUser") {
			case "perMachine":
				perMachine = true
			case "perUser":
				flags.Set("LimitedPrivileges")
			}
		case "Keywords":
			keywords = c.text(in)
		case "Languages":
			languages = c.language(in)
		case "Manufacturer":
			manufacturer = c.text(in)
		case "Platform":
			switch c.enum(in, "x86", "intel", "x64", "intel64", "ia64") {
			case "x64":
				platform = "x64"
			case "ia64", "intel64":
				platform = "Intel64"
			}
		case "ReadOnly":
			switch c.yesNoDefault(in) {
			case attrval.YesNoDefaultYes:
				security = 4
			case attrval.YesNoDefaultNo:
				security = 0
			}
		case "ShortNames":
			flags.SetIf("ShortNames", c.yesNo(in) == attrval.Yes)
		case "SummaryCodepage":
			codepage = c.codepage(in)
		}
	})

	switch {
	case c.moduleID != "" && packageCode == "":
		c.expected(el, "Id")
	case packageCode == "" || packageCode == attrval.GenerateGUID:
		packageCode = attrval.NewGUID()
	}
	if !installerVersion.set {
		installerVersion = some(defaultInstallerVer)
		if platform != "Intel" {
			installerVersion = some(x64InstallerVer)
		}
	}
	title := "Installation Database"
	if c.moduleID != "" {
		title = "Merge Module"
	}

	c.summaryRow(loc, pidCodepage, strconv.Itoa(codepage))
	c.summaryRow(loc, pidTitle, title)
	c.summaryRow(loc, pidSubject, description)
	c.summaryRow(loc, pidAuthor, manufacturer)
	c.summaryRow(loc, pidKeywords, keywords)
	c.summaryRow(loc, pidComments, comments)
	c.summaryRow(loc, pidTemplate, platform+";"+languages)
	c.summaryRow(loc, pidRevision, packageCode)
	c.summaryRow(loc, pidPageCount, strconv.FormatInt(installerVersion.value, 10))
	c.summaryRow(loc, pidWordCount, strconv.FormatInt(flags.Value(), 10))
	c.summaryRow(loc, pidSecurity, strconv.FormatInt(security, 10))

	if perMachine {
		c.propertyRow(loc, "ALLUSERS", "1")
	}
	return result{}
}

func (c *compileContext) summaryRow(loc ir.SourceLine, pid int64, value string) {
	if value == "" {
		return
	}
	row := c.row(loc, "_SummaryInformation")
	row.SetInt("PropertyId", pid)
	row.SetString("Value", value)
}

func parseDependency(c *compileContext, el *etree.Element, s scope) result {
	loc := c.SourceLine(el)
	var requiredID, requiredVersion string
	var requiredLanguage optInt
	c.eachAttribute(el, s, func(key string, in *attrval.Input) {
		switch key {
		case "RequiredId":
			requiredID = c.identifier(in)
		case "RequiredLanguage":
			requiredLanguage = some(c.integer(in, 0, attrval.MaxUint16))
		case "RequiredVersion":
			requiredVersion = c.version(in)
		}
	})
	if requiredID == "" {
		c.expected(el, "RequiredId")
	}
	if !requiredLanguage.set {
		c.expected(el, "RequiredLanguage")
	}

	moduleLanguage, _ := strconv.ParseInt(c.moduleLanguage, 10, 64)
	row := c.row(loc, "ModuleDependency")
	row.SetString("ModuleID", c.moduleID)
	row.SetInt("ModuleLanguage", moduleLanguage)
	row.SetString("RequiredID", requiredID)
	row.SetInt("RequiredLanguage", requiredLanguage.value)
	row.SetString("RequiredVersion", requiredVersion)
	return result{}
}
