package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotOmitsSourceLines(t *testing.T) {
	result, err := Run(inlineScenario("snapshot"))
	require.NoError(t, err)

	data, err := Snapshot(result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"sections":[{"codepage":0,"id":"F1","kind":"fragment","tables":[{"name":"Property","rows":[{"fields":["MYPROP","Acme"]}]}]}],"source_path":"snapshot.wxs","version":"1"}`,
		string(data))
}

func TestSnapshotRequiresIntermediate(t *testing.T) {
	_, err := Snapshot(NewResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "the compile failed")
}

func TestAssertGoldenEmptyFragment(t *testing.T) {
	s := inlineScenario("empty-fragment")
	s.Document = `<?xml version="1.0" encoding="utf-8"?>
<Wix xmlns="http://schemas.microsoft.com/wix/2006/wi">
  <Fragment Id="F1"/>
</Wix>
`
	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	require.NoError(t, AssertGolden(t, s.Name, result))
}
