package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/candle/internal/compiler"
	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/sourceline"
)

// createTestStore opens a fresh object file in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wixobj")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// testDocument exercises rows, references, containment and backlinks.
const testDocument = `<?xml version="1.0" encoding="utf-8"?>
<Wix xmlns="http://schemas.microsoft.com/wix/2006/wi">
  <Fragment Id="Files">
    <DirectoryRef Id="TARGETDIR">
      <Component Id="C1" Guid="{11111111-1111-1111-1111-111111111111}" Feature="Main">
        <File Id="app.exe" Name="app.exe" Source="bin/app.exe">
          <Shortcut Id="AppShortcut" Name="App" Directory="ProgramMenuFolder" Advertise="yes"/>
        </File>
        <RegistryValue Root="HKLM" Key="Software\Acme" Name="Path" Value="[INSTALLDIR]" Type="string"/>
      </Component>
    </DirectoryRef>
  </Fragment>
  <Fragment Id="Features">
    <Feature Id="Main" Title="Main" Level="1"/>
    <EnsureTable Id="Environment"/>
  </Fragment>
</Wix>
`

// compileTestDocument compiles text with the core compiler.
func compileTestDocument(t *testing.T, text string) *compiler.Result {
	t.Helper()
	doc, err := sourceline.Load([]byte(text), "store.wxs")
	require.NoError(t, err)
	var messages []diag.Message
	res, err := compiler.New(compiler.Options{}).Compile(doc, "store.wxs", diag.SinkFunc(func(m diag.Message) {
		messages = append(messages, m)
	}))
	require.NoError(t, err, "messages: %v", messages)
	return res
}
