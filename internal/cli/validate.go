package cli

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/candle/internal/schema"
)

// ValidationResult is the schema outcome for one source.
type ValidationResult struct {
	Source     string      `json:"source" yaml:"source"`
	Valid      bool        `json:"valid" yaml:"valid"`
	Violations []Violation `json:"violations,omitempty" yaml:"violations,omitempty"`
}

// Violation is one schema violation in output form.
type Violation struct {
	File    string `json:"file,omitempty" yaml:"file,omitempty"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Code    string `json:"code,omitempty" yaml:"code,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <source.wxs>...",
		Short: "Validate authoring against the schema",
		Long: `Validate authoring against the core schema merged with the schemas of
every registered extension. Nothing is compiled or written.

Exit codes:
  0 - Every source is valid
  1 - One or more sources violate the schema
  2 - Command error (unreadable source, broken schema, etc.)

Examples:
  candle validate product.wxs
  candle validate --ext util setup.wxs --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, sources []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cm, err := opts.Settings.NewCompiler(opts.Logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeExtension, "register extensions", err)
	}

	results := make([]ValidationResult, 0, len(sources))
	invalid := 0
	for _, src := range sources {
		doc, err := loadDocument(src, formatter)
		if err != nil {
			return err
		}

		vr := ValidationResult{Source: src, Valid: true}
		err = cm.ValidateDocument(doc)
		var verr *schema.ValidationError
		switch {
		case err == nil:
		case errors.As(err, &verr):
			vr.Valid = false
			for _, v := range verr.Violations {
				vr.Violations = append(vr.Violations, Violation{
					File:    v.SourceLine.File,
					Line:    v.SourceLine.Line,
					Path:    v.Path,
					Code:    v.Code,
					Message: v.Message,
				})
			}
			invalid++
		default:
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "build schema", err)
		}
		opts.Logger.Debug("validated", zap.String("source", src), zap.Bool("valid", vr.Valid))
		results = append(results, vr)
	}

	if formatter.Structured() {
		resp := CLIResponse{Status: "ok", Data: results}
		if invalid > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeInvalid, Message: fmt.Sprintf("%d source(s) invalid", invalid)}
		}
		if err := formatter.Encode(resp); err != nil {
			return err
		}
	} else {
		outputValidateText(formatter, results)
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d source(s) invalid", ErrCodeInvalid, invalid))
	}
	return nil
}

func outputValidateText(formatter *OutputFormatter, results []ValidationResult) {
	w := formatter.Writer
	for _, vr := range results {
		if vr.Valid {
			fmt.Fprintf(w, "✓ %s\n", vr.Source)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", vr.Source)
		for _, v := range vr.Violations {
			fmt.Fprintf(w, "  %s(%d): %s\n", v.File, v.Line, v.Message)
		}
	}
}
