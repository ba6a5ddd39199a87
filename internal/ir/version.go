package ir

// Version constants for the intermediate format and the compiler.
const (
	// FormatVersion is the intermediate serialization version.
	FormatVersion = "1"

	// CompilerVersion is checked against Wix/@RequiredVersion.
	CompilerVersion = "3.14.1"
)
