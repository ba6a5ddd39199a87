package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const propertySource = `<?xml version="1.0" encoding="utf-8"?>
<Wix xmlns="http://schemas.microsoft.com/wix/2006/wi">
  <Fragment Id="Props">
    <Property Id="MYPROP" Value="Acme"/>
  </Fragment>
</Wix>
`

const componentSource = `<?xml version="1.0" encoding="utf-8"?>
<Wix xmlns="http://schemas.microsoft.com/wix/2006/wi">
  <Fragment Id="Files">
    <DirectoryRef Id="TARGETDIR">
      <Component Id="C1" Guid="{11111111-1111-1111-1111-111111111111}" Feature="Main">
        <File Id="app.exe" Name="app.exe" Source="bin/app.exe"/>
      </Component>
    </DirectoryRef>
  </Fragment>
</Wix>
`

const brokenSource = `<?xml version="1.0" encoding="utf-8"?>
<Wix xmlns="http://schemas.microsoft.com/wix/2006/wi">
  <Fragment Bogus="x"/>
</Wix>
`

const utilSource = `<?xml version="1.0" encoding="utf-8"?>
<Wix xmlns="http://schemas.microsoft.com/wix/2006/wi"
     xmlns:util="http://schemas.microsoft.com/wix/UtilExtension">
  <Fragment>
    <DirectoryRef Id="TARGETDIR">
      <Component Id="C1" Guid="{11111111-1111-1111-1111-111111111111}">
        <util:User Id="SvcUser" Name="svc" Colour="blue"/>
      </Component>
    </DirectoryRef>
  </Fragment>
</Wix>
`

func writeSource(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestCompileWritesObjectFile(t *testing.T) {
	dir := isolate(t)
	src := writeSource(t, dir, "props.wxs", propertySource)
	out := filepath.Join(dir, "props.wixobj")

	code, stdout, stderr := execute(t, "compile", src, "-o", out)
	require.Equal(t, ExitSuccess, code, "stderr: %s", stderr)
	assert.Contains(t, stdout, "✓ "+src+" -> "+out)
	assert.Contains(t, stdout, "1 section(s), 1 row(s)")
	assert.FileExists(t, out)

	code, stdout, stderr = execute(t, "show", out)
	require.Equal(t, ExitSuccess, code, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Section Props [fragment, codepage 0]")
	assert.Contains(t, stdout, "Property (1 row(s))")
	assert.Contains(t, stdout, "MYPROP | Acme")
}

func TestCompileJSON(t *testing.T) {
	dir := isolate(t)
	src := writeSource(t, dir, "props.wxs", propertySource)

	code, stdout, _ := execute(t, "compile", src, "-o", filepath.Join(dir, "out.wixobj"), "--format", "json")
	require.Equal(t, ExitSuccess, code)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Sources, 1)
	assert.True(t, resp.Data.Sources[0].Success)
	assert.Equal(t, 1, resp.Data.Sources[0].Rows)
}

func TestCompileReportsDiagnostics(t *testing.T) {
	dir := isolate(t)
	src := writeSource(t, dir, "broken.wxs", brokenSource)
	out := filepath.Join(dir, "broken.wixobj")

	code, stdout, stderr := execute(t, "compile", src, "-o", out)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "E102")
	assert.Contains(t, stdout, "✗ "+src+" (1 error(s), 0 warning(s))")
	assert.NoFileExists(t, out, "failed compiles write nothing")
}

func TestCompileWarningsAsErrors(t *testing.T) {
	dir := isolate(t)
	src := writeSource(t, dir, "useless.wxs", `<Wix xmlns="http://schemas.microsoft.com/wix/2006/wi"><Fragment><Property Id="P1"/></Fragment></Wix>`)
	out := filepath.Join(dir, "useless.wixobj")

	code, _, stderr := execute(t, "compile", src, "-o", out)
	require.Equal(t, ExitSuccess, code, "stderr: %s", stderr)
	assert.Contains(t, stderr, "W104")

	code, _, _ = execute(t, "compile", src, "-o", out, "--wx")
	assert.Equal(t, ExitFailure, code)

	code, _, stderr = execute(t, "compile", src, "-o", out, "--sw", "W104")
	require.Equal(t, ExitSuccess, code)
	assert.NotContains(t, stderr, "W104")
}

func TestCompileMultipleSourcesIntoDirectory(t *testing.T) {
	dir := isolate(t)
	a := writeSource(t, dir, "a.wxs", propertySource)
	b := writeSource(t, dir, "b.wxs", componentSource)
	outDir := filepath.Join(dir, "obj")

	code, stdout, stderr := execute(t, "compile", a, b, "-o", outDir)
	require.Equal(t, ExitSuccess, code, "stderr: %s", stderr)
	assert.FileExists(t, filepath.Join(outDir, "a.wixobj"))
	assert.FileExists(t, filepath.Join(outDir, "b.wixobj"))
	assert.Contains(t, stdout, "Compiled 2 of 2 source(s)")
}

func TestCompileMissingSource(t *testing.T) {
	dir := isolate(t)
	code, _, stderr := execute(t, "compile", filepath.Join(dir, "absent.wxs"))
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, ErrCodeReadFailed)
}

func TestCompileMalformedSource(t *testing.T) {
	dir := isolate(t)
	src := writeSource(t, dir, "bad.wxs", "<Wix")
	code, _, stderr := execute(t, "compile", src)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, ErrCodeParseFailed)
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "product.wixobj", outputPath("", "src/product.wxs", false))
	assert.Equal(t, "custom.obj", outputPath("custom.obj", "src/product.wxs", false))
	assert.Equal(t, filepath.Join("obj", "product.wixobj"), outputPath("obj", "src/product.wxs", true))
	assert.Equal(t, filepath.Join(dir, "product.wixobj"), outputPath(dir, "product.wxs", false))
	assert.Equal(t, filepath.Join("obj", "product.wixobj"), outputPath("obj"+string(filepath.Separator), "product.wxs", false))
}

func TestShowReferencesAndStructuredOutput(t *testing.T) {
	dir := isolate(t)
	src := writeSource(t, dir, "files.wxs", componentSource)
	out := filepath.Join(dir, "files.wixobj")
	code, _, stderr := execute(t, "compile", src, "-o", out)
	require.Equal(t, ExitSuccess, code, "stderr: %s", stderr)

	code, stdout, _ := execute(t, "show", out, "--references")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "Complex references (1)")
	assert.Contains(t, stdout, "Main -> ")
	assert.Contains(t, stdout, "(primary)")

	code, stdout, _ = execute(t, "show", out, "--format", "json")
	require.Equal(t, ExitSuccess, code)
	var resp struct {
		Data ObjectDump `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, src, resp.Data.Intermediate["source_path"])
	assert.Len(t, resp.Data.References.Complex, 1)
}

func TestShowMissingObject(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "absent.wixobj")
	code, _, stderr := execute(t, "show", path)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, ErrCodeLoadFailed)
	assert.NoFileExists(t, path)
}

func TestValidateValidSource(t *testing.T) {
	dir := isolate(t)
	src := writeSource(t, dir, "files.wxs", componentSource)

	code, stdout, _ := execute(t, "validate", src)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "✓ "+src)
}

func TestValidateReportsViolations(t *testing.T) {
	dir := isolate(t)
	src := writeSource(t, dir, "util.wxs", utilSource)

	code, stdout, _ := execute(t, "validate", src, "--ext", "util", "--format", "json")
	assert.Equal(t, ExitFailure, code)

	var resp struct {
		Status string             `json:"status"`
		Data   []ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.False(t, resp.Data[0].Valid)
	assert.NotEmpty(t, resp.Data[0].Violations)
}

func TestTablesListsCoreDefinitions(t *testing.T) {
	isolate(t)
	code, stdout, _ := execute(t, "tables", "--format", "json", "--filter", "component")
	require.Equal(t, ExitSuccess, code)

	var resp struct {
		Data []TableSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	names := make([]string, len(resp.Data))
	for i, s := range resp.Data {
		names[i] = s.Name
	}
	assert.Contains(t, names, "Component")
	for _, s := range resp.Data {
		if s.Name == "Component" {
			assert.Equal(t, []string{"Component"}, s.PrimaryKeys)
		}
	}
}

func TestTablesWithoutExtensionOmitsItsTables(t *testing.T) {
	isolate(t)
	code, stdout, _ := execute(t, "tables", "--filter", "WixRemoveFolderEx")
	require.Equal(t, ExitSuccess, code)
	assert.NotContains(t, stdout, "WixRemoveFolderEx")

	code, stdout, _ = execute(t, "tables", "--filter", "WixRemoveFolderEx", "--ext", "util")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "WixRemoveFolderEx")
}

func TestTestCommandRunsScenarios(t *testing.T) {
	isolate(t)
	scenarios := filepath.Join("..", "harness", "testdata", "scenarios")

	code, stdout, stderr := execute(t, "test", scenarios)
	require.Equal(t, ExitSuccess, code, "stdout: %s\nstderr: %s", stdout, stderr)
	assert.Contains(t, stdout, "✓ property-value")
	assert.Contains(t, stdout, "✓ All scenarios passed")
}

func TestTestCommandFilterAndJSON(t *testing.T) {
	isolate(t)
	scenarios := filepath.Join("..", "harness", "testdata", "scenarios")

	code, stdout, _ := execute(t, "test", scenarios, "--filter", "util-*", "--format", "json")
	require.Equal(t, ExitSuccess, code)

	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "util-user", resp.Data.Scenarios[0].Name)
}

func TestTestCommandUpdatesGoldenFiles(t *testing.T) {
	dir := isolate(t)
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0o755))
	writeSource(t, scenarios, "props.yaml", `name: props
description: golden property
document: |
  <Wix xmlns="http://schemas.microsoft.com/wix/2006/wi"><Fragment Id="P"><Property Id="A" Value="1"/></Fragment></Wix>
expect:
  success: true
golden: true
`)
	golden := filepath.Join(dir, "golden", "props.golden")

	code, stdout, _ := execute(t, "test", scenarios)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "golden comparison failed")

	code, _, _ = execute(t, "test", scenarios, "--update")
	require.Equal(t, ExitSuccess, code)
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"fields":["A","1"]`)

	code, _, _ = execute(t, "test", scenarios)
	assert.Equal(t, ExitSuccess, code)
}

func TestTestCommandMissingDirectory(t *testing.T) {
	dir := isolate(t)
	code, _, _ := execute(t, "test", filepath.Join(dir, "nope"))
	assert.Equal(t, ExitCommandError, code)
}
