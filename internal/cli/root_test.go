package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps tests away from the developer's config and environment.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, key := range []string{"FORMAT", "VERBOSE", "PEDANTIC", "SUPPRESS_VALIDATION", "WX", "SW", "EXT"} {
		t.Setenv(envPrefix+"_"+key, "")
		require.NoError(t, os.Unsetenv(envPrefix+"_"+key))
	}
	return dir
}

// execute runs the CLI and returns the exit code and both streams.
func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := run(args, stdout, stderr)
	return code, stdout.String(), stderr.String()
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "candle", cmd.Use)
	assert.Contains(t, cmd.Long, "CANDLE_*")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "validate", "tables", "show", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "pedantic", "suppress-validation", "wx", "sw", "ext"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag %s", name)
	}
}

func TestCompileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	compileCmd, _, err := cmd.Find([]string{"compile"})
	require.NoError(t, err)

	outputFlag := compileCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
}

func TestInvalidFormat(t *testing.T) {
	isolate(t)
	code, _, stderr := execute(t, "tables", "--format", "xml")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, `invalid format "xml"`)
}

func TestInvalidPedanticLevel(t *testing.T) {
	isolate(t)
	code, _, stderr := execute(t, "tables", "--pedantic", "mythic")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "mythic")
}

func TestUnknownExtension(t *testing.T) {
	isolate(t)
	code, _, stderr := execute(t, "tables", "--ext", "iis")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "unknown extension")
}

func TestConfigFileSetsDefaults(t *testing.T) {
	dir := isolate(t)
	config := filepath.Join(dir, "candle.yaml")
	require.NoError(t, os.WriteFile(config, []byte("format: json\next: [util]\n"), 0o644))

	code, stdout, _ := execute(t, "tables", "--config", config, "--filter", "WixRemoveFolderEx")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, `"status": "ok"`)
	assert.Contains(t, stdout, `"name": "WixRemoveFolderEx"`)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	dir := isolate(t)
	config := filepath.Join(dir, "candle.yaml")
	require.NoError(t, os.WriteFile(config, []byte("format: json\n"), 0o644))

	code, stdout, _ := execute(t, "tables", "--config", config, "--format", "text", "--filter", "Property")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "TABLE")
	assert.NotContains(t, stdout, `"status"`)
}

func TestEnvironmentSetsFormat(t *testing.T) {
	isolate(t)
	t.Setenv("CANDLE_FORMAT", "yaml")

	code, stdout, _ := execute(t, "tables", "--filter", "Upgrade")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "status: ok")
	assert.Contains(t, stdout, "name: Upgrade")
}

func TestMissingConfigFile(t *testing.T) {
	dir := isolate(t)
	code, _, stderr := execute(t, "tables", "--config", filepath.Join(dir, "absent.yaml"))
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "read config")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"W101", "W104", "W105"}, splitList([]string{"W101,W104", " W105 ", ""}))
	assert.Nil(t, splitList(nil))
}
