package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/candle/internal/compiler"
	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/ir"
	"github.com/roach88/candle/internal/sourceline"
	"github.com/roach88/candle/internal/store"
)

// objectExt is the extension of compiled object files.
const objectExt = ".wixobj"

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file, or directory when compiling several sources
}

// SourceResult is the outcome of compiling one source document.
type SourceResult struct {
	Source      string         `json:"source" yaml:"source"`
	Output      string         `json:"output,omitempty" yaml:"output,omitempty"`
	Success     bool           `json:"success" yaml:"success"`
	Sections    int            `json:"sections" yaml:"sections"`
	Rows        int            `json:"rows" yaml:"rows"`
	Diagnostics []diag.Message `json:"diagnostics" yaml:"diagnostics"`
}

// CompilationResult holds the per-source results of one invocation.
type CompilationResult struct {
	Sources   []SourceResult `json:"sources" yaml:"sources"`
	Succeeded int            `json:"succeeded" yaml:"succeeded"`
	Failed    int            `json:"failed" yaml:"failed"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <source.wxs>...",
		Short: "Compile authoring into object files",
		Long: `Compile XML installer authoring into intermediate object files.

Each source produces <name>.wixobj in the working directory, or the path
given by --output. With several sources --output names a directory.

Exit codes:
  0 - Every source compiled
  1 - One or more sources reported errors
  2 - Command error (unreadable source, write failure, etc.)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file or directory")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, sources []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	cm, err := opts.Settings.NewCompiler(opts.Logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeExtension, "register extensions", err)
	}

	result := CompilationResult{Sources: make([]SourceResult, 0, len(sources))}
	for _, src := range sources {
		output := outputPath(opts.Output, src, len(sources) > 1)
		formatter.VerboseLog("Compiling %s", src)

		sr, err := compileSource(ctx, cm, src, output, formatter)
		if err != nil {
			return err
		}
		result.Sources = append(result.Sources, sr)
		if sr.Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	opts.Logger.Info("compile finished",
		zap.Int("succeeded", result.Succeeded), zap.Int("failed", result.Failed))

	if formatter.Structured() {
		if err := formatter.Encode(compileResponse(result)); err != nil {
			return err
		}
	} else {
		outputCompileText(formatter, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d source(s) failed to compile", ErrCodeCompile, result.Failed))
	}
	return nil
}

// compileSource compiles one document and saves its object file. Authoring
// errors are part of the result; only I/O failures are returned as errors.
func compileSource(ctx context.Context, cm *compiler.Compiler, src, output string, formatter *OutputFormatter) (SourceResult, error) {
	sr := SourceResult{Source: src, Diagnostics: []diag.Message{}}

	doc, err := loadDocument(src, formatter)
	if err != nil {
		return sr, err
	}

	res, err := cm.Compile(doc, src, diag.SinkFunc(func(m diag.Message) {
		sr.Diagnostics = append(sr.Diagnostics, m)
		if !formatter.Structured() {
			fmt.Fprintln(formatter.GetErrWriter(), m.String())
		}
	}))
	switch {
	case errors.Is(err, compiler.ErrCompilationFailed):
		return sr, nil
	case err != nil:
		return sr, formatter.Fail(ExitCommandError, ErrCodeGeneric, "compile "+src, err)
	}

	sr.Success = true
	sr.Sections = len(res.Intermediate.Sections)
	sr.Rows = lo.SumBy(res.Intermediate.Sections, func(s *ir.Section) int {
		return lo.SumBy(s.Tables(), func(t *ir.Table) int { return len(t.Rows) })
	})

	if err := saveObject(ctx, output, res); err != nil {
		return sr, formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "write "+output, err)
	}
	sr.Output = output
	return sr, nil
}

// loadDocument reads and parses a source file with line tracking.
func loadDocument(src string, formatter *OutputFormatter) (*etree.Document, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeReadFailed, "read "+src, err)
	}
	doc, err := sourceline.Load(data, src)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeParseFailed, "parse "+src, err)
	}
	return doc, nil
}

// saveObject writes res to a fresh object file at path.
func saveObject(ctx context.Context, path string, res *compiler.Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create output directory")
		}
	}
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.Save(ctx, res)
}

// outputPath picks the object file for src. A trailing separator, an
// existing directory or several sources make output a directory.
func outputPath(output, src string, multiple bool) string {
	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + objectExt
	if output == "" {
		return name
	}
	if multiple || strings.HasSuffix(output, string(filepath.Separator)) || isDir(output) {
		return filepath.Join(output, name)
	}
	return output
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func compileResponse(result CompilationResult) CLIResponse {
	resp := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    ErrCodeCompile,
			Message: fmt.Sprintf("%d source(s) failed to compile", result.Failed),
		}
	}
	return resp
}

// outputCompileText prints a per-source summary. Diagnostics were already
// streamed to the error writer.
func outputCompileText(formatter *OutputFormatter, result CompilationResult) {
	w := formatter.Writer
	for _, sr := range result.Sources {
		warnings := lo.CountBy(sr.Diagnostics, func(m diag.Message) bool { return m.Severity == diag.SeverityWarning })
		errs := lo.CountBy(sr.Diagnostics, func(m diag.Message) bool { return m.IsError() })
		if sr.Success {
			fmt.Fprintf(w, "✓ %s -> %s (%d section(s), %d row(s), %d warning(s))\n",
				sr.Source, sr.Output, sr.Sections, sr.Rows, warnings)
			continue
		}
		fmt.Fprintf(w, "✗ %s (%d error(s), %d warning(s))\n", sr.Source, errs, warnings)
	}
	if len(result.Sources) > 1 {
		fmt.Fprintf(w, "\nCompiled %d of %d source(s)\n", result.Succeeded, len(result.Sources))
	}
}
