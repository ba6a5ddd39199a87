package compiler

import (
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/extension"
	"github.com/roach88/candle/internal/ident"
	"github.com/roach88/candle/internal/ir"
	"github.com/roach88/candle/internal/sourceline"
)

const (
	guidA = "{11111111-1111-1111-1111-111111111111}"
	guidB = "{22222222-2222-2222-2222-222222222222}"
	guidC = "{33333333-3333-3333-3333-333333333333}"
)

func wix(body string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<Wix xmlns="http://schemas.microsoft.com/wix/2006/wi">
` + body + `
</Wix>
`
}

// inComponent wraps authoring in a fragment, a directory and a component.
func inComponent(body string) string {
	return wix(`<Fragment>
  <DirectoryRef Id="TARGETDIR">
    <Component Id="C1" Guid="` + guidA + `">
` + body + `
    </Component>
  </DirectoryRef>
</Fragment>`)
}

type outcome struct {
	result   *Result
	err      error
	messages []diag.Message
}

func (o outcome) codes() []diag.Code {
	codes := make([]diag.Code, len(o.messages))
	for i, m := range o.messages {
		codes[i] = m.Code
	}
	return codes
}

func (o outcome) count(code diag.Code) int {
	n := 0
	for _, c := range o.codes() {
		if c == code {
			n++
		}
	}
	return n
}

func (o outcome) rows(t *testing.T, table string) []*ir.Row {
	t.Helper()
	require.NoError(t, o.err, "messages: %v", o.messages)
	return o.result.Intermediate.Rows(table)
}

func compileWith(t *testing.T, cm *Compiler, text string) outcome {
	t.Helper()
	doc, err := sourceline.Load([]byte(text), "test.wxs")
	require.NoError(t, err)

	var out outcome
	out.result, out.err = cm.Compile(doc, "test.wxs", diag.SinkFunc(func(m diag.Message) {
		out.messages = append(out.messages, m)
	}))
	return out
}

func compile(t *testing.T, text string, opts ...func(*Options)) outcome {
	t.Helper()
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return compileWith(t, New(o), text)
}

func legendary(o *Options) { o.Pedantic = Legendary }

// =============================================================================
// Documents and dispatch
// =============================================================================

func TestCompileEmptyFragment(t *testing.T) {
	out := compile(t, wix(`<Fragment Id="F1"/>`))
	require.NoError(t, out.err)
	require.Len(t, out.result.Intermediate.Sections, 1)

	section := out.result.Intermediate.Sections[0]
	assert.Equal(t, "F1", section.ID)
	assert.Equal(t, ir.SectionFragment, section.Kind)
	assert.Equal(t, "test.wxs", out.result.Intermediate.SourcePath)
}

func TestCompileRejectsUnknownRoot(t *testing.T) {
	out := compile(t, `<Installer xmlns="urn:not-wix"/>`)
	require.Error(t, out.err)
	assert.True(t, errors.Is(out.err, ErrCompilationFailed))
	assert.Nil(t, out.result)
	assert.Equal(t, []diag.Code{diag.ErrInvalidDocumentElement}, out.codes())
}

func TestCompileRejectsCoreRootInWrongNamespace(t *testing.T) {
	out := compile(t, `<Wix xmlns="urn:not-wix"><Fragment/></Wix>`)
	require.Error(t, out.err)
	assert.Equal(t, 1, out.count(diag.ErrInvalidDocumentElement))
}

func TestCompileReportsUnexpectedElementAndContinues(t *testing.T) {
	out := compile(t, wix(`<Fragment>
  <Bogus/>
  <Property Id="P1" Value="v"/>
</Fragment>`))
	require.Error(t, out.err)
	assert.Equal(t, 1, out.count(diag.ErrUnexpectedElement))

	m := out.messages[0]
	assert.Equal(t, "test.wxs", m.SourceLine.File)
	assert.Equal(t, 4, m.SourceLine.Line)
}

func TestCompileReportsElementInWrongParent(t *testing.T) {
	out := compile(t, wix(`<Fragment><File Id="F1" Source="a.txt"/></Fragment>`))
	require.Error(t, out.err)
	assert.Equal(t, 1, out.count(diag.ErrUnexpectedElement))
}

func TestCompileReportsUnexpectedAttribute(t *testing.T) {
	out := compile(t, wix(`<Fragment Bogus="x"/>`))
	require.Error(t, out.err)
	assert.Equal(t, []diag.Code{diag.ErrUnexpectedAttribute}, out.codes())
}

func TestCompileReportsUnclaimedNamespace(t *testing.T) {
	out := compile(t, wix(`<Fragment xmlns:x="urn:nobody"><x:Thing/></Fragment>`))
	require.Error(t, out.err)
	assert.Equal(t, 1, out.count(diag.ErrUnexpectedElement))

	out = compile(t, wix(`<Fragment xmlns:x="urn:nobody" x:flag="1"/>`))
	require.Error(t, out.err)
	assert.Equal(t, 1, out.count(diag.ErrUnexpectedAttribute))
}

func TestCompileRequiredVersion(t *testing.T) {
	ok := compile(t, `<Wix xmlns="http://schemas.microsoft.com/wix/2006/wi" RequiredVersion="3.0.0.0"><Fragment/></Wix>`)
	assert.NoError(t, ok.err)

	tooNew := compile(t, `<Wix xmlns="http://schemas.microsoft.com/wix/2006/wi" RequiredVersion="99.0"><Fragment/></Wix>`)
	require.Error(t, tooNew.err)
	assert.Equal(t, []diag.Code{diag.ErrInsufficientVersion}, tooNew.codes())
}

func TestCompileRequiresDiagnosticSink(t *testing.T) {
	doc, err := sourceline.Load([]byte(wix(`<Fragment/>`)), "a.wxs")
	require.NoError(t, err)

	_, err = New(Options{}).Compile(doc, "a.wxs", nil)
	assert.Error(t, err)
	_, err = New(Options{}).Compile(nil, "a.wxs", diag.Discard)
	assert.Error(t, err)
}

// =============================================================================
// Components and key paths
// =============================================================================

func TestImplicitKeyPathWarningAtLegendary(t *testing.T) {
	out := compile(t, inComponent(``), legendary)

	rows := out.rows(t, "Component")
	require.Len(t, rows, 1)
	assert.Equal(t, 1, out.count(diag.WarnImplicitComponentKeyPath))
	assert.True(t, ir.IsNull(rows[0].Get("KeyPath")))
	assert.Equal(t, guidA, rows[0].GetString("ComponentId"))
	assert.Equal(t, "TARGETDIR", rows[0].GetString("Directory_"))
}

func TestImplicitKeyPathSilentBelowLegendary(t *testing.T) {
	out := compile(t, inComponent(`<File Id="F1" Source="app.exe"/>`))

	rows := out.rows(t, "Component")
	require.Len(t, rows, 1)
	assert.Zero(t, out.count(diag.WarnImplicitComponentKeyPath))
	assert.Equal(t, "F1", rows[0].GetString("KeyPath"), "first file is the implicit key path")
}

func TestExplicitFileKeyPath(t *testing.T) {
	out := compile(t, inComponent(`
      <File Id="F1" Source="a.dll"/>
      <File Id="F2" Source="b.dll" KeyPath="yes"/>`), legendary)

	rows := out.rows(t, "Component")
	require.Len(t, rows, 1)
	assert.Equal(t, "F2", rows[0].GetString("KeyPath"))
	assert.Zero(t, out.count(diag.WarnImplicitComponentKeyPath))
	assert.Len(t, out.rows(t, "File"), 2)
}

func TestMultipleExplicitKeyPaths(t *testing.T) {
	out := compile(t, inComponent(`
      <File Id="F1" Source="a.dll" KeyPath="yes"/>
      <File Id="F2" Source="b.dll" KeyPath="yes"/>`))
	require.Error(t, out.err)
	assert.Equal(t, 1, out.count(diag.ErrComponentMultipleKeyPaths))
}

func TestRegistryKeyPathGeneratesIdentifier(t *testing.T) {
	out := compile(t, inComponent(
		`<Registry Root="HKLM" Key="Software\Acme" Name="Version" Value="1" Type="string" KeyPath="yes"/>`))

	registry := out.rows(t, "Registry")
	require.Len(t, registry, 1)
	id := registry[0].GetString("Registry")
	assert.Regexp(t, regexp.MustCompile(`^reg[0-9A-F]{64}$`), id)
	assert.Equal(t, ident.Generate(ident.Registry, "C1", "2", `software\acme`, "version"), id)

	component := out.rows(t, "Component")
	require.Len(t, component, 1)
	assert.Equal(t, id, component[0].GetString("KeyPath"))
	attrs, ok := component[0].GetInt("Attributes")
	require.True(t, ok)
	assert.Equal(t, int64(4), attrs&4, "registry key path bit")
}

func TestGeneratedIdentifiersAreStable(t *testing.T) {
	text := inComponent(`<RegistryValue Root="HKCU" Key="Software\Acme" Name="Path" Value="[INSTALLDIR]" Type="string"/>`)
	first := compile(t, text).rows(t, "Registry")
	second := compile(t, text).rows(t, "Registry")
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].GetString("Registry"), second[0].GetString("Registry"))
}

func TestRegistryValueEncoding(t *testing.T) {
	out := compile(t, inComponent(`
      <RegistryKey Root="HKLM" Key="Software\Acme">
        <RegistryValue Id="R1" Name="Count" Value="5" Type="integer"/>
        <RegistryValue Id="R2" Name="Blob" Value="ff00" Type="binary"/>
        <RegistryValue Id="R3" Name="Hash" Value="#tag" Type="string"/>
        <RegistryValue Id="R4" Name="List" Type="multiString">
          <MultiStringValue>one</MultiStringValue>
          <MultiStringValue>two</MultiStringValue>
        </RegistryValue>
      </RegistryKey>`))

	values := map[string]string{}
	for _, row := range out.rows(t, "Registry") {
		values[row.GetString("Registry")] = row.GetString("Value")
		assert.Equal(t, `Software\Acme`, row.GetString("Key"))
	}
	assert.Equal(t, "#5", values["R1"])
	assert.Equal(t, "#xff00", values["R2"])
	assert.Equal(t, "##tag", values["R3"])
	assert.Equal(t, "one[~]two", values["R4"])
}

func TestRegistryValueWithoutValue(t *testing.T) {
	out := compile(t, inComponent(`<RegistryValue Root="HKLM" Key="Software\Acme" Type="string"/>`))
	require.Error(t, out.err)
	assert.Equal(t, 1, out.count(diag.ErrExpectedAttributeOrElement))
}

func TestDeprecatedRegistryAtHeroic(t *testing.T) {
	out := compile(t, inComponent(`<Registry Root="HKLM" Key="Software\Acme" Name="A" Value="1" Type="string"/>`),
		func(o *Options) { o.Pedantic = Heroic })
	require.NoError(t, out.err)
	assert.Equal(t, 1, out.count(diag.WarnDeprecatedElement))
}

func TestComponentFeatureAttributeIsPrimary(t *testing.T) {
	out := compile(t, wix(`<Fragment>
  <DirectoryRef Id="TARGETDIR">
    <Component Id="C1" Guid="`+guidA+`" Feature="Main"/>
  </DirectoryRef>
</Fragment>`))
	require.NoError(t, out.err)

	refs := out.result.References
	assert.Contains(t, refs.UniqueValidReferences(), ir.Symbol{Table: "Feature", Key: "Main"})
	parents := refs.PrimaryParents(ir.ChildComponent, "C1")
	require.Len(t, parents, 1)
	assert.Equal(t, ir.ParentFeature, parents[0].ParentType)
	assert.Equal(t, "Main", parents[0].ParentID)
}

func TestComponentRefUnderFeature(t *testing.T) {
	out := compile(t, wix(`<Fragment>
  <Feature Id="Main">
    <ComponentRef Id="C1"/>
    <ComponentGroupRef Id="G1" Primary="yes"/>
  </Feature>
</Fragment>`))
	require.NoError(t, out.err)

	refs := out.result.References
	edges := refs.ComplexReferencesTo(ir.ChildComponent, "C1")
	require.Len(t, edges, 1)
	assert.False(t, edges[0].Primary)
	assert.Equal(t, "Main", edges[0].ParentID)

	groups := refs.PrimaryParents(ir.ChildComponentGroup, "G1")
	require.Len(t, groups, 1)
	assert.Contains(t, refs.UniqueValidReferences(), ir.Symbol{Table: "Component", Key: "C1"})
}

func TestComponentInModuleBelongsToModule(t *testing.T) {
	out := compile(t, wix(`<Module Id="Mod" Language="1033" Version="1.0.0">
  <Package Id="`+guidB+`" Manufacturer="Acme"/>
  <Directory Id="TARGETDIR" Name="SourceDir">
    <Component Id="C1" Guid="`+guidA+`"/>
  </Directory>
</Module>`))
	require.NoError(t, out.err, "messages: %v", out.messages)

	edges := out.result.References.ComplexReferencesTo(ir.ChildComponent, "C1")
	require.Len(t, edges, 1)
	assert.Equal(t, ir.ParentModule, edges[0].ParentType)
	assert.Equal(t, "Mod", edges[0].ParentID)
	assert.Equal(t, "1033", edges[0].ParentLanguage)
	assert.Len(t, out.rows(t, "ModuleSignature"), 1)
}

func TestComponentRequiresDirectory(t *testing.T) {
	out := compile(t, wix(`<Fragment><ComponentGroup Id="G"><Component Id="C1" Guid="`+guidA+`"/></ComponentGroup></Fragment>`))
	require.Error(t, out.err)
	assert.Equal(t, 1, out.count(diag.ErrExpectedAttributeOrParent))
}

func TestShortcutAdvertisedCreatesBacklink(t *testing.T) {
	out := compile(t, inComponent(`<File Id="F1" Source="app.exe">
        <Shortcut Id="S1" Directory="ProgramMenuFolder" Name="App" Advertise="yes"/>
      </File>`))
	require.NoError(t, out.err, "messages: %v", out.messages)

	links := out.result.References.BacklinksFor("C1")
	require.Len(t, links, 1)
	assert.Equal(t, ir.BacklinkShortcut, links[0].Kind)
}

// =============================================================================
// COM advertising
// =============================================================================

func TestAdvertiseMismatchKeepsEachElementsChoice(t *testing.T) {
	out := compile(t, inComponent(`<AppId Id="`+guidB+`" Advertise="yes">
        <Class Id="`+guidC+`" Context="InprocServer32" Advertise="no" Description="Widget"/>
      </AppId>`))
	require.NoError(t, out.err, "messages: %v", out.messages)
	assert.Equal(t, 1, out.count(diag.WarnAdvertiseStateMismatch))

	appIDs := out.rows(t, "AppId")
	require.Len(t, appIDs, 1)
	assert.Equal(t, guidB, appIDs[0].GetString("AppId"))
	assert.Empty(t, out.rows(t, "Class"), "the class is not advertised")

	var keys []string
	for _, row := range out.rows(t, "Registry") {
		assert.Equal(t, "C1", row.GetString("Component_"))
		keys = append(keys, row.GetString("Key"))
	}
	assert.Contains(t, keys, `CLSID\`+guidC)
	assert.Contains(t, keys, `CLSID\`+guidC+`\InprocServer32`)
}

func TestAdvertisedClassInheritsAdvertise(t *testing.T) {
	out := compile(t, inComponent(`<AppId Id="`+guidB+`" Advertise="yes">
        <Class Id="`+guidC+`" Context="LocalServer32 InprocServer32"/>
      </AppId>`))
	require.NoError(t, out.err, "messages: %v", out.messages)
	assert.Zero(t, out.count(diag.WarnAdvertiseStateMismatch))

	classes := out.rows(t, "Class")
	require.Len(t, classes, 2)
	assert.Equal(t, guidB, classes[0].GetString("AppId_"))
	assert.Len(t, out.result.References.BacklinksFor("C1"), 2)
}

// =============================================================================
// Upgrades, features and properties
// =============================================================================

func TestUpgradeVersionSynthesizesSecureProperty(t *testing.T) {
	out := compile(t, wix(`<Fragment>
  <Upgrade Id="`+guidA+`">
    <UpgradeVersion Minimum="1.0.0" OnlyDetect="yes"/>
  </Upgrade>
</Fragment>`))

	upgrades := out.rows(t, "Upgrade")
	require.Len(t, upgrades, 1)
	property := upgrades[0].GetString("ActionProperty")
	assert.Equal(t, ident.Generate(ident.UpgradeProperty, guidA, "1.0.0", "", "", "258"), property)
	assert.Equal(t, strings.ToUpper(property), property)
	assert.Equal(t, guidA, upgrades[0].GetString("UpgradeCode"))

	secure := out.rows(t, "WixProperty")
	require.Len(t, secure, 1)
	assert.Equal(t, property, secure[0].GetString("Property_"))
	attrs, _ := secure[0].GetInt("Attributes")
	assert.Equal(t, int64(4), attrs)
}

func TestUpgradeVersionRequiresUppercaseProperty(t *testing.T) {
	out := compile(t, wix(`<Fragment>
  <Upgrade Id="`+guidA+`">
    <UpgradeVersion Minimum="1.0.0" Property="oldVersion"/>
  </Upgrade>
</Fragment>`))
	require.Error(t, out.err)
	assert.Equal(t, 1, out.count(diag.ErrUppercaseRequired))
}

func TestFeatureDisplayOrdering(t *testing.T) {
	out := compile(t, wix(`<Fragment>
  <Feature Id="A"/>
  <Feature Id="B" Display="expand">
    <Feature Id="B1"/>
  </Feature>
  <Feature Id="H" Display="hidden"/>
  <Feature Id="N" Display="10"/>
  <Feature Id="Z"/>
</Fragment>`))

	display := map[string]int64{}
	parents := map[string]string{}
	for _, row := range out.rows(t, "Feature") {
		n, _ := row.GetInt("Display")
		display[row.GetString("Feature")] = n
		parents[row.GetString("Feature")] = row.GetString("Feature_Parent")
	}
	assert.Equal(t, map[string]int64{"A": 2, "B": 3, "B1": 4, "H": 0, "N": 10, "Z": 12}, display)
	assert.Equal(t, "B", parents["B1"])

	edges := out.result.References.PrimaryParents(ir.ChildFeature, "B1")
	require.Len(t, edges, 1)
	assert.Equal(t, "B", edges[0].ParentID)
}

func TestPropertyUseless(t *testing.T) {
	out := compile(t, wix(`<Fragment><Property Id="NOTHING"/></Fragment>`))
	require.NoError(t, out.err)
	assert.Equal(t, 1, out.count(diag.WarnPropertyUseless))
	assert.Empty(t, out.result.Intermediate.Rows("Property"))
}

func TestPropertyWithSearch(t *testing.T) {
	out := compile(t, wix(`<Fragment>
  <Property Id="INSTALLED" Secure="yes">
    <RegistrySearch Id="S1" Root="HKLM" Key="Software\Acme" Name="Path" Type="raw"/>
  </Property>
</Fragment>`))

	search := out.rows(t, "AppSearch")
	require.Len(t, search, 1)
	assert.Equal(t, "S1", search[0].GetString("Signature_"))
	assert.Len(t, out.rows(t, "RegLocator"), 1)
	assert.Len(t, out.rows(t, "WixProperty"), 1)
}

func TestPropertyWithTwoSearches(t *testing.T) {
	out := compile(t, wix(`<Fragment>
  <Property Id="FOUND">
    <RegistrySearch Id="S1" Root="HKLM" Key="Software\A" Type="raw"/>
    <RegistrySearch Id="S2" Root="HKLM" Key="Software\B" Type="raw"/>
  </Property>
</Fragment>`))
	require.Error(t, out.err)
	assert.Equal(t, 1, out.count(diag.ErrTooManySearchElements))
}

func TestProductRequiresOnePackage(t *testing.T) {
	out := compile(t, wix(`<Product Id="*" Name="App" Language="1033" Version="1.0.0" Manufacturer="Acme"/>`))
	require.Error(t, out.err)
	assert.Equal(t, 1, out.count(diag.ErrExpectedElement))
}

func TestProductWritesProperties(t *testing.T) {
	out := compile(t, wix(`<Product Id="`+guidA+`" Name="App" Language="1033" Version="1.0.0" Manufacturer="Acme" UpgradeCode="`+guidB+`">
  <Package Compressed="yes" InstallScope="perMachine"/>
</Product>`))

	props := map[string]string{}
	for _, row := range out.rows(t, "Property") {
		props[row.GetString("Property")] = row.GetString("Value")
	}
	assert.Equal(t, "Acme", props["Manufacturer"])
	assert.Equal(t, guidA, props["ProductCode"])
	assert.Equal(t, guidB, props["UpgradeCode"])
	assert.Equal(t, "1", props["ALLUSERS"])
	assert.NotEmpty(t, out.rows(t, "_SummaryInformation"))
	assert.Equal(t, ir.SectionProduct, out.result.Intermediate.Sections[0].Kind)
}

func TestPackageInheritsProductLanguage(t *testing.T) {
	out := compile(t, wix(`<Product Id="`+guidA+`" Name="App" Language="1031" Version="1.0.0" Manufacturer="Acme" UpgradeCode="`+guidB+`">
  <Package Compressed="yes"/>
</Product>`))

	var template string
	for _, row := range out.rows(t, "_SummaryInformation") {
		if pid, _ := row.GetInt("PropertyId"); pid == pidTemplate {
			template = row.GetString("Value")
		}
	}
	assert.Equal(t, "Intel;1031", template)
}

// =============================================================================
// Custom actions, UI and custom tables
// =============================================================================

func TestCustomActionErrorReference(t *testing.T) {
	out := compile(t, wix(`<Fragment>
  <CustomAction Id="Literal" Error="25000"/>
  <CustomAction Id="Formatted" Error="[ERRMSG]"/>
  <CustomAction Id="Huge" Error="99999999999"/>
</Fragment>`))

	types := map[string]int64{}
	for _, row := range out.rows(t, "CustomAction") {
		types[row.GetString("Action")], _ = row.GetInt("Type")
	}
	assert.Equal(t, map[string]int64{"Literal": 19, "Formatted": 19, "Huge": 19}, types)

	var errorRefs []ir.Symbol
	for _, sym := range out.result.References.UniqueValidReferences() {
		if sym.Table == "Error" {
			errorRefs = append(errorRefs, sym)
		}
	}
	assert.Equal(t, []ir.Symbol{{Table: "Error", Key: "25000"}}, errorRefs)
}

func TestCustomActionTypeBits(t *testing.T) {
	out := compile(t, wix(`<Fragment>
  <Binary Id="Helper" SourceFile="helper.dll"/>
  <CustomAction Id="Run" BinaryKey="Helper" DllEntry="Go" Execute="deferred" Return="ignore" Impersonate="no"/>
  <InstallExecuteSequence>
    <Custom Action="Run" After="InstallFiles">NOT Installed</Custom>
  </InstallExecuteSequence>
</Fragment>`))

	actions := out.rows(t, "CustomAction")
	require.Len(t, actions, 1)
	typ, _ := actions[0].GetInt("Type")
	assert.Equal(t, int64(1|0x400|0x40|0x800), typ)

	sequence := out.rows(t, "WixAction")
	require.Len(t, sequence, 1)
	assert.Equal(t, "InstallExecuteSequence", sequence[0].GetString("SequenceTable"))
	assert.Equal(t, "NOT Installed", sequence[0].GetString("Condition"))
	assert.Contains(t, out.result.References.UniqueValidReferences(),
		ir.Symbol{Table: "WixAction", Key: "InstallExecuteSequence/InstallFiles"})
}

func TestCustomRequiresOnePlacement(t *testing.T) {
	out := compile(t, wix(`<Fragment>
  <InstallExecuteSequence>
    <Custom Action="Run" After="A" Sequence="10"/>
  </InstallExecuteSequence>
</Fragment>`))
	require.Error(t, out.err)
	assert.Equal(t, 1, out.count(diag.ErrIllegalAttributeWithOther))
}

func TestDialogTabChain(t *testing.T) {
	out := compile(t, wix(`<Fragment>
  <UI>
    <Dialog Id="Welcome" Width="370" Height="270" Title="Welcome">
      <Control Id="Next" Type="PushButton" X="236" Y="243" Width="56" Height="17" Default="yes" Text="Next"/>
      <Control Id="Banner" Type="Text" X="0" Y="0" Width="370" Height="44" Text="Hello"/>
      <Control Id="Cancel" Type="PushButton" X="304" Y="243" Width="56" Height="17" Cancel="yes" Text="Cancel"/>
    </Dialog>
  </UI>
</Fragment>`))

	dialogs := out.rows(t, "Dialog")
	require.Len(t, dialogs, 1)
	assert.Equal(t, "Next", dialogs[0].GetString("Control_First"))
	assert.Equal(t, "Next", dialogs[0].GetString("Control_Default"))
	assert.Equal(t, "Cancel", dialogs[0].GetString("Control_Cancel"))

	next := map[string]ir.Value{}
	for _, row := range out.rows(t, "Control") {
		next[row.GetString("Control")] = row.Get("Control_Next")
	}
	assert.Equal(t, ir.String("Cancel"), next["Next"])
	assert.Equal(t, ir.String("Next"), next["Cancel"])
	assert.True(t, ir.IsNull(next["Banner"]))
}

func TestCustomTableRows(t *testing.T) {
	out := compile(t, wix(`<Fragment>
  <CustomTable Id="Settings">
    <Column Id="Name" Type="string" Width="72" PrimaryKey="yes"/>
    <Column Id="Count" Type="int" Width="4" Nullable="yes" MinValue="0"/>
    <Row>
      <Data Column="Name">retries</Data>
      <Data Column="Count">3</Data>
    </Row>
  </CustomTable>
</Fragment>`))

	tables := out.rows(t, "WixCustomTable")
	require.Len(t, tables, 1)
	count, _ := tables[0].GetInt("ColumnCount")
	assert.Equal(t, int64(2), count)
	assert.Equal(t, "Name\tCount", tables[0].GetString("ColumnNames"))
	assert.Equal(t, "s72\tI4", tables[0].GetString("ColumnTypes"))
	assert.Equal(t, "Name", tables[0].GetString("PrimaryKeys"))
	assert.Equal(t, "\t0", tables[0].GetString("MinValues"))
	assert.True(t, ir.IsNull(tables[0].Get("MaxValues")))

	rows := out.rows(t, "WixCustomRow")
	require.Len(t, rows, 1)
	assert.Equal(t, "Name\x1Fretries\x1ECount\x1F3", rows[0].GetString("FieldData"))
}

func TestCustomTableRowsForTableDefinedElsewhere(t *testing.T) {
	out := compile(t, wix(`<Fragment>
  <CustomTable Id="Settings">
    <Row><Data Column="Name">x</Data></Row>
  </CustomTable>
  <EnsureTable Id="Extras"/>
  <EnsureTable Id="Registry"/>
</Fragment>`))

	assert.Len(t, out.rows(t, "WixCustomRow"), 1)
	assert.Empty(t, out.result.Intermediate.Rows("WixCustomTable"))

	refs := out.result.References.UniqueValidReferences()
	assert.Contains(t, refs, ir.Symbol{Table: "WixCustomTable", Key: "Settings"})
	assert.Contains(t, refs, ir.Symbol{Table: "WixCustomTable", Key: "Extras"})
	assert.NotContains(t, refs, ir.Symbol{Table: "WixCustomTable", Key: "Registry"}, "known tables are not custom")

	_, ok := out.result.Intermediate.Sections[0].Table("Registry")
	assert.True(t, ok, "ensured table exists without rows")
	assert.Len(t, out.rows(t, "WixEnsureTable"), 2)
}

func TestCustomTableWithoutPrimaryKey(t *testing.T) {
	out := compile(t, wix(`<Fragment>
  <CustomTable Id="T"><Column Id="A" Type="string" Width="10"/></CustomTable>
</Fragment>`))
	require.Error(t, out.err)
	assert.Equal(t, 1, out.count(diag.ErrExpectedAttribute))
}

// =============================================================================
// Collector options
// =============================================================================

func TestWarningsAsErrors(t *testing.T) {
	out := compile(t, inComponent(``), legendary, func(o *Options) { o.WarningsAsErrors = true })
	require.Error(t, out.err)
	require.Len(t, out.messages, 1)
	assert.Equal(t, diag.SeverityError, out.messages[0].Severity)
}

func TestSuppressWarnings(t *testing.T) {
	out := compile(t, inComponent(``), legendary, func(o *Options) { o.SuppressWarnings = []string{"w101"} })
	require.NoError(t, out.err)
	assert.Empty(t, out.messages)
}

func TestVerboseReportsGeneratedIdentifiers(t *testing.T) {
	out := compile(t, inComponent(`<File Source="app.exe"/>`), func(o *Options) {
		o.Verbose = true
		o.SuppressValidation = true
	})
	require.NoError(t, out.err)
	assert.Equal(t, 1, out.count(diag.VerboseGeneratedIdentifier))
	assert.Equal(t, 1, out.count(diag.VerboseValidationSkipped))
}

func TestParsePedanticLevel(t *testing.T) {
	level, err := ParsePedanticLevel("Legendary")
	require.NoError(t, err)
	assert.Equal(t, Legendary, level)
	assert.Equal(t, "heroic", Heroic.String())

	_, err = ParsePedanticLevel("godlike")
	assert.Error(t, err)
}

// =============================================================================
// Schema
// =============================================================================

func TestCoreSchemaDeclaresGrammar(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(CoreSchema()))

	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, Namespace, root.SelectAttrValue("targetNamespace", ""))

	declared := map[string]bool{}
	for _, el := range root.SelectElements("element") {
		declared[el.SelectAttrValue("name", "")] = true
	}
	for name := range grammar {
		assert.True(t, declared[name], "element %s", name)
	}
}

func TestValidateDocument(t *testing.T) {
	cm := New(Options{})
	doc, err := sourceline.Load([]byte(inComponent(`<File Id="F1" Source="a.txt"/>`)), "a.wxs")
	require.NoError(t, err)
	assert.NoError(t, cm.ValidateDocument(doc))

	assert.Error(t, cm.ValidateDocument(nil))
}

// =============================================================================
// Extensions
// =============================================================================

// boomExtension panics from every element callback.
type boomExtension struct{}

func (boomExtension) Namespace() string                       { return "urn:test:boom" }
func (boomExtension) TableDefinitions() []*ir.TableDefinition { return nil }
func (boomExtension) Schema() (fs.FS, string)                 { return nil, "" }
func (boomExtension) Initialize(extension.Core)               {}
func (boomExtension) Finalize()                               {}

func (boomExtension) ParseAttribute(extension.Core, *etree.Element, etree.Attr, extension.Scope) {
	panic("attribute handler failed")
}

func (boomExtension) ParseElement(extension.Core, *etree.Element, *etree.Element, extension.Scope) {
	panic(errors.New("element handler failed"))
}

func TestExtensionPanicBecomesDiagnostic(t *testing.T) {
	cm := New(Options{})
	require.NoError(t, cm.Register(boomExtension{}))

	out := compileWith(t, cm, wix(`<Fragment xmlns:b="urn:test:boom" b:flag="yes">
  <b:Thing/>
  <Property Id="P1" Value="still parsed"/>
</Fragment>`))
	require.Error(t, out.err)
	assert.Equal(t, 2, out.count(diag.ErrExtensionFailure))
}

// lifecycleExtension counts its Initialize and Finalize calls.
type lifecycleExtension struct {
	boomExtension
	namespace   string
	failInit    bool
	initialized int
	finalized   int
}

func (e *lifecycleExtension) Namespace() string { return e.namespace }

func (e *lifecycleExtension) Initialize(extension.Core) {
	e.initialized++
	if e.failInit {
		panic("initialize failed")
	}
}

func (e *lifecycleExtension) Finalize() { e.finalized++ }

func TestExtensionLifecycleOncePerCompile(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr diag.Code
	}{
		{
			name: "successful compile",
			text: wix(`<Fragment><Property Id="P1" Value="v"/></Fragment>`),
		},
		{
			name:    "failed compile",
			text:    wix(`<Fragment><Gizmo Id="G1"/></Fragment>`),
			wantErr: diag.ErrUnexpectedElement,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm := New(Options{})
			ext := &lifecycleExtension{namespace: "urn:test:lifecycle"}
			require.NoError(t, cm.Register(ext))

			out := compileWith(t, cm, tt.text)
			if tt.wantErr != "" {
				require.Error(t, out.err)
				assert.Equal(t, 1, out.count(tt.wantErr))
			} else {
				require.NoError(t, out.err, "messages: %v", out.messages)
			}
			assert.Equal(t, 1, ext.initialized)
			assert.Equal(t, 1, ext.finalized)

			compileWith(t, cm, tt.text)
			assert.Equal(t, 2, ext.initialized)
			assert.Equal(t, 2, ext.finalized)
		})
	}
}

func TestExtensionInitializePanicBecomesDiagnostic(t *testing.T) {
	cm := New(Options{})
	healthy := &lifecycleExtension{namespace: "urn:test:healthy"}
	broken := &lifecycleExtension{namespace: "urn:test:broken", failInit: true}
	require.NoError(t, cm.Register(healthy))
	require.NoError(t, cm.Register(broken))

	var out outcome
	require.NotPanics(t, func() {
		out = compileWith(t, cm, wix(`<Fragment><Property Id="P1" Value="v"/></Fragment>`))
	})
	require.Error(t, out.err)
	assert.True(t, errors.Is(out.err, ErrCompilationFailed))
	assert.Equal(t, 1, out.count(diag.ErrExtensionFailure))

	assert.Equal(t, 1, healthy.initialized)
	assert.Equal(t, 1, healthy.finalized)
	assert.Equal(t, 1, broken.initialized)
	assert.Equal(t, 0, broken.finalized, "an extension that failed to initialize is not finalized")
}

func TestRegisterRejectsDuplicateNamespace(t *testing.T) {
	cm := New(Options{})
	require.NoError(t, cm.Register(boomExtension{}))

	err := cm.Register(boomExtension{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, extension.ErrNamespaceConflict))
	assert.Len(t, cm.Registry().Extensions(), 1)

	err = cm.Register(coreNamespaceExtension{})
	assert.True(t, errors.Is(err, extension.ErrNamespaceConflict), "core namespace is reserved")
}

type coreNamespaceExtension struct{ boomExtension }

func (coreNamespaceExtension) Namespace() string { return Namespace }

// =============================================================================
// Concurrency
// =============================================================================

func TestConcurrentCompilesShareConfiguration(t *testing.T) {
	cm := New(Options{Pedantic: Legendary})
	text := inComponent(`
      <File Source="app.exe"/>
      <RegistryValue Root="HKLM" Key="Software\Acme" Name="Path" Value="[INSTALLDIR]" Type="string"/>`)

	const workers = 8
	snapshots := make([]map[string]any, workers)
	warnings := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := sourceline.Load([]byte(text), "test.wxs")
			if err != nil {
				return
			}
			var n int
			res, err := cm.Compile(doc, "test.wxs", diag.SinkFunc(func(m diag.Message) {
				if m.Code == diag.WarnImplicitComponentKeyPath {
					n++
				}
			}))
			if err != nil {
				return
			}
			snapshots[i] = res.Intermediate.Snapshot(true)
			warnings[i] = n
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NotNil(t, snapshots[i], "worker %d", i)
		assert.Equal(t, snapshots[0], snapshots[i])
		assert.Equal(t, 1, warnings[i], "each compile reports its own warnings")
	}
}
