package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/roach88/candle/internal/ir"
)

// TableSummary describes one table definition.
type TableSummary struct {
	Name        string   `json:"name" yaml:"name"`
	Unreal      bool     `json:"unreal,omitempty" yaml:"unreal,omitempty"`
	PrimaryKeys []string `json:"primary_keys" yaml:"primary_keys"`
	Columns     []Column `json:"columns" yaml:"columns"`
}

// Column describes one column of a table definition.
type Column struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Length   int    `json:"length,omitempty" yaml:"length,omitempty"`
	Nullable bool   `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	KeyTable string `json:"key_table,omitempty" yaml:"key_table,omitempty"`
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the effective table definitions",
		Long: `List the core table definitions together with those contributed by every
registered extension.

Examples:
  candle tables
  candle tables --ext util --filter User`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(rootOpts, filter, cmd)
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "only tables whose name contains this text")
	return cmd
}

func runTables(opts *RootOptions, filter string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cm, err := opts.Settings.NewCompiler(opts.Logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeExtension, "register extensions", err)
	}

	defs := lo.Filter(cm.Registry().TableDefinitions().All(), func(d *ir.TableDefinition, _ int) bool {
		return filter == "" || strings.Contains(strings.ToLower(d.Name), strings.ToLower(filter))
	})
	summaries := lo.Map(defs, func(d *ir.TableDefinition, _ int) TableSummary { return summarizeTable(d) })

	if formatter.Structured() {
		return formatter.Success(summaries)
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tCOLUMNS\tPRIMARY KEY")
	for _, s := range summaries {
		name := s.Name
		if s.Unreal {
			name += " (unreal)"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", name, len(s.Columns), strings.Join(s.PrimaryKeys, ", "))
	}
	return tw.Flush()
}

func summarizeTable(d *ir.TableDefinition) TableSummary {
	return TableSummary{
		Name:   d.Name,
		Unreal: d.Unreal,
		PrimaryKeys: lo.Map(d.PrimaryKeys(), func(i int, _ int) string {
			return d.Columns[i].Name
		}),
		Columns: lo.Map(d.Columns, func(c *ir.ColumnDefinition, _ int) Column {
			return Column{
				Name:     c.Name,
				Type:     c.Type.String(),
				Length:   c.Length,
				Nullable: c.Nullable,
				KeyTable: c.KeyTable,
			}
		}),
	}
}
