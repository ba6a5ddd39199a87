package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/roach88/candle/internal/compiler"
	"github.com/roach88/candle/internal/ir"
	"github.com/roach88/candle/internal/store"
)

// ObjectDump is the structured form of a stored object file.
type ObjectDump struct {
	Intermediate map[string]any `json:"intermediate" yaml:"intermediate"`
	References   ReferenceDump  `json:"references" yaml:"references"`
}

// ReferenceDump lists the cross references recorded with an intermediate.
type ReferenceDump struct {
	Valid     []string `json:"valid" yaml:"valid"`
	Complex   []string `json:"complex" yaml:"complex"`
	Backlinks []string `json:"backlinks" yaml:"backlinks"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	var references bool
	cmd := &cobra.Command{
		Use:   "show <object.wixobj>",
		Short: "Print a compiled object file",
		Long: `Print the sections, tables and rows of a compiled object file.

Tables contributed by extensions are only readable when the same
extensions are registered with --ext.

Examples:
  candle show product.wixobj
  candle show product.wixobj --references
  candle show product.wixobj --format yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), rootOpts, args[0], references, cmd)
		},
	}
	cmd.Flags().BoolVar(&references, "references", false, "include cross references in text output")
	return cmd
}

func runShow(ctx context.Context, opts *RootOptions, path string, references bool, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	cm, err := opts.Settings.NewCompiler(opts.Logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeExtension, "register extensions", err)
	}

	res, err := loadObject(ctx, path, cm.Registry().TableDefinitions())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "load "+path, err)
	}

	dump := ObjectDump{
		Intermediate: res.Intermediate.Snapshot(true),
		References:   dumpReferences(res),
	}
	if formatter.Structured() {
		return formatter.Success(dump)
	}
	outputShowText(formatter, res, dump.References, references)
	return nil
}

// loadObject opens an existing object file and reads its intermediate.
func loadObject(ctx context.Context, path string, defs *ir.TableDefinitionCollection) (*compiler.Result, error) {
	// Opening creates missing files; an absent object is an error here.
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(err, "stat object file")
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.Load(ctx, defs)
}

func dumpReferences(res *compiler.Result) ReferenceDump {
	refs := res.References
	return ReferenceDump{
		Valid: lo.Map(refs.UniqueValidReferences(), func(s ir.Symbol, _ int) string { return s.String() }),
		Complex: lo.Map(refs.ComplexReferences(), func(r ir.ComplexReference, _ int) string {
			edge := fmt.Sprintf("%s:%s -> %s:%s", r.ParentType, r.ParentID, r.ChildType, r.ChildID)
			if r.Primary {
				edge += " (primary)"
			}
			return edge
		}),
		Backlinks: lo.Map(refs.FeatureBacklinks(), func(l ir.FeatureBacklink, _ int) string {
			return fmt.Sprintf("%s -> %s (%s)", l.ComponentID, l.Target, l.Kind)
		}),
	}
}

func outputShowText(formatter *OutputFormatter, res *compiler.Result, refs ReferenceDump, references bool) {
	w := formatter.Writer
	fmt.Fprintf(w, "Source: %s\n", res.Intermediate.SourcePath)
	for _, s := range res.Intermediate.Sections {
		id := s.ID
		if id == "" {
			id = "(anonymous)"
		}
		fmt.Fprintf(w, "\nSection %s [%s, codepage %d]\n", id, s.Kind, s.Codepage)
		for _, t := range s.Tables() {
			fmt.Fprintf(w, "  %s (%d row(s))\n", t.Name(), len(t.Rows))
			for _, r := range t.Rows {
				fields := lo.Map(r.Fields, func(v ir.Value, _ int) string {
					if ir.IsNull(v) {
						return "<null>"
					}
					return ir.FormatValue(v)
				})
				fmt.Fprintf(w, "    %s\n", strings.Join(fields, " | "))
			}
		}
	}

	if !references {
		return
	}
	for _, group := range []struct {
		title string
		items []string
	}{
		{"Valid references", refs.Valid},
		{"Complex references", refs.Complex},
		{"Feature backlinks", refs.Backlinks},
	} {
		fmt.Fprintf(w, "\n%s (%d)\n", group.title, len(group.items))
		for _, item := range group.items {
			fmt.Fprintf(w, "  %s\n", item)
		}
	}
}
