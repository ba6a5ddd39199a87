package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/roach88/candle/internal/compiler"
	"github.com/roach88/candle/internal/extensions"
)

const (
	configFileName = ".candle"
	configFileType = "yaml"
	envPrefix      = "CANDLE"

	// Config keys match the persistent flag names.
	cfgKeyFormat             = "format"
	cfgKeyVerbose            = "verbose"
	cfgKeyPedantic           = "pedantic"
	cfgKeySuppressValidation = "suppress-validation"
	cfgKeyWarningsAsErrors   = "wx"
	cfgKeySuppressWarnings   = "sw"
	cfgKeyExtensions         = "ext"
)

// Settings is the resolved configuration shared by every command.
type Settings struct {
	Format             string
	Verbose            bool
	Pedantic           compiler.PedanticLevel
	SuppressValidation bool
	WarningsAsErrors   bool
	SuppressWarnings   []string
	Extensions         []string

	// ConfigFile is the config file that was read, empty when none was found.
	ConfigFile string
}

// loadSettings resolves settings from flags, CANDLE_* environment variables,
// the config file and defaults, in that order of precedence.
//
// Without an explicit path the config file is .candle.yaml in the working
// directory or $HOME/.config/candle. A missing file is not an error.
func loadSettings(cmd *cobra.Command, configPath string) (*Settings, error) {
	v := viper.New()
	v.SetDefault(cfgKeyFormat, "text")
	v.SetDefault(cfgKeyPedantic, "easy")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "candle"))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, errors.Wrap(err, "bind flags")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	level, err := compiler.ParsePedanticLevel(v.GetString(cfgKeyPedantic))
	if err != nil {
		return nil, err
	}
	s := &Settings{
		Format:             strings.ToLower(v.GetString(cfgKeyFormat)),
		Verbose:            v.GetBool(cfgKeyVerbose),
		Pedantic:           level,
		SuppressValidation: v.GetBool(cfgKeySuppressValidation),
		WarningsAsErrors:   v.GetBool(cfgKeyWarningsAsErrors),
		SuppressWarnings:   splitList(v.GetStringSlice(cfgKeySuppressWarnings)),
		Extensions:         splitList(v.GetStringSlice(cfgKeyExtensions)),
		ConfigFile:         v.ConfigFileUsed(),
	}
	if !isValidFormat(s.Format) {
		return nil, errors.Newf("invalid format %q: must be one of %v", s.Format, ValidFormats)
	}
	for _, name := range s.Extensions {
		if _, err := extensions.New(name); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// splitList flattens comma separated entries so "W101,W104" from the
// environment and repeated flags read the same.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// CompilerOptions converts settings to compiler options.
func (s *Settings) CompilerOptions(logger *zap.Logger) compiler.Options {
	return compiler.Options{
		Pedantic:           s.Pedantic,
		SuppressValidation: s.SuppressValidation,
		WarningsAsErrors:   s.WarningsAsErrors,
		SuppressWarnings:   s.SuppressWarnings,
		Verbose:            s.Verbose,
		Logger:             logger,
	}
}

// NewCompiler builds a compiler with the configured extensions registered.
func (s *Settings) NewCompiler(logger *zap.Logger) (*compiler.Compiler, error) {
	cm := compiler.New(s.CompilerOptions(logger))
	if err := extensions.RegisterAll(cm, s.Extensions); err != nil {
		return nil, err
	}
	return cm, nil
}

// newLogger builds the process logger: a development console logger when
// verbose, a production JSON logger for structured output, and a no-op
// logger otherwise.
func newLogger(s *Settings) (*zap.Logger, error) {
	switch {
	case s.Verbose:
		return zap.NewDevelopment()
	case s.Format == "json":
		return zap.NewProduction()
	default:
		return zap.NewNop(), nil
	}
}
