package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	// Compile-time check: only these types satisfy Value.
	var _ Value = Null{}
	var _ Value = String("")
	var _ Value = Int(0)
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(Null{}))
	assert.False(t, IsNull(String("")))
	assert.False(t, IsNull(Int(0)))
}

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"!(loc.ProductName)", true},
		{"!(bind.FileVersion.app.exe)", true},
		{"!(wix.Var)", true},
		{"$(var.X)", false},
		{"!(loc.)", false},
		{"42", false},
		{"!(loc.A)extra", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPlaceholder(tt.input))
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "abc", FormatValue(String("abc")))
	assert.Equal(t, "-7", FormatValue(Int(-7)))
	assert.Equal(t, "", FormatValue(Null{}))
	assert.Equal(t, "", FormatValue(nil))
}

func TestMarshalValue(t *testing.T) {
	data, err := MarshalValue(String("x"))
	require.NoError(t, err)
	assert.Equal(t, `"x"`, string(data))

	data, err = MarshalValue(Int(5))
	require.NoError(t, err)
	assert.Equal(t, "5", string(data))

	data, err = MarshalValue(Null{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestUnmarshalValue(t *testing.T) {
	v, err := UnmarshalValue([]byte(`"hello"`))
	require.NoError(t, err)
	assert.Equal(t, String("hello"), v)

	v, err = UnmarshalValue([]byte(`-12`))
	require.NoError(t, err)
	assert.Equal(t, Int(-12), v)

	v, err = UnmarshalValue([]byte(`null`))
	require.NoError(t, err)
	assert.Equal(t, Null{}, v)
}

func TestUnmarshalValueRejects(t *testing.T) {
	for _, input := range []string{`1.5`, `1e3`, `true`, `[1]`, `{"a":1}`, ``, `nul`} {
		t.Run(input, func(t *testing.T) {
			_, err := UnmarshalValue([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestUnmarshalValues(t *testing.T) {
	values, err := UnmarshalValues([]byte(`["a",null,3]`))
	require.NoError(t, err)
	assert.Equal(t, []Value{String("a"), Null{}, Int(3)}, values)

	_, err = UnmarshalValues([]byte(`["a",2.5]`))
	assert.Error(t, err)
}
