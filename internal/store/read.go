package store

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/roach88/candle/internal/compiler"
	"github.com/roach88/candle/internal/ir"
	"github.com/roach88/candle/internal/xref"
)

// Load reads the stored intermediate back, resolving every table against
// defs. It returns ErrNotFound when nothing has been saved. The result
// carries no diagnostics; those are not persisted.
func (s *Store) Load(ctx context.Context, defs *ir.TableDefinitionCollection) (*compiler.Result, error) {
	if defs == nil {
		return nil, errors.AssertionFailedf("load requires table definitions")
	}

	var sourcePath, formatVersion string
	err := s.db.QueryRowContext(ctx, `
		SELECT source_path, format_version FROM intermediate WHERE id = 1
	`).Scan(&sourcePath, &formatVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load: read intermediate")
	}
	if formatVersion != ir.FormatVersion {
		return nil, errors.Newf("load: intermediate format %s, supported %s", formatVersion, ir.FormatVersion)
	}

	im := ir.NewIntermediate(sourcePath)
	sections, err := s.readSections(ctx)
	if err != nil {
		return nil, err
	}
	for _, section := range sections {
		if err := s.readTables(ctx, defs, section); err != nil {
			return nil, err
		}
		im.AddSection(section.Section)
	}

	refs := xref.New()
	if err := s.readValidReferences(ctx, refs); err != nil {
		return nil, err
	}
	if err := s.readComplexReferences(ctx, refs); err != nil {
		return nil, err
	}
	if err := s.readFeatureBacklinks(ctx, refs); err != nil {
		return nil, err
	}

	return &compiler.Result{Intermediate: im, References: refs}, nil
}

type storedSection struct {
	seq int
	*ir.Section
}

func (s *Store) readSections(ctx context.Context) ([]storedSection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, section_id, kind, codepage
		FROM sections
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "query sections")
	}
	defer rows.Close()

	var sections []storedSection
	for rows.Next() {
		var (
			seq, codepage int
			id, kindName  string
		)
		if err := rows.Scan(&seq, &id, &kindName, &codepage); err != nil {
			return nil, errors.Wrap(err, "scan section")
		}
		kind, err := ir.ParseSectionKind(kindName)
		if err != nil {
			return nil, errors.Wrapf(err, "section %q", id)
		}
		sections = append(sections, storedSection{seq: seq, Section: ir.NewSection(id, kind, codepage)})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate sections")
	}
	return sections, nil
}

func (s *Store) readTables(ctx context.Context, defs *ir.TableDefinitionCollection, section storedSection) error {
	names, err := s.db.QueryContext(ctx, `
		SELECT table_name FROM section_tables
		WHERE section_seq = ?
		ORDER BY table_name ASC
	`, section.seq)
	if err != nil {
		return errors.Wrap(err, "query section tables")
	}
	defer names.Close()

	for names.Next() {
		var name string
		if err := names.Scan(&name); err != nil {
			return errors.Wrap(err, "scan section table")
		}
		def, ok := defs.Lookup(name)
		if !ok {
			return errors.Newf("load: section %q holds table %s, which is not defined", section.ID, name)
		}
		section.EnsureTable(def)
	}
	if err := names.Err(); err != nil {
		return errors.Wrap(err, "iterate section tables")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT table_name, fields, source_file, source_line
		FROM table_rows
		WHERE section_seq = ?
		ORDER BY table_name ASC, seq ASC
	`, section.seq)
	if err != nil {
		return errors.Wrap(err, "query rows")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name, fields, file string
			line               int
		)
		if err := rows.Scan(&name, &fields, &file, &line); err != nil {
			return errors.Wrap(err, "scan row")
		}
		table, ok := section.Table(name)
		if !ok {
			return errors.Newf("load: row for table %s outside its section", name)
		}
		values, err := unmarshalFields(table.Definition, fields)
		if err != nil {
			return errors.Wrap(err, "load")
		}
		row, err := restoreRow(table.Definition, sourceLine(file, line), values)
		if err != nil {
			return errors.Wrap(err, "load")
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterate rows")
	}
	return nil
}

func (s *Store) readValidReferences(ctx context.Context, refs *xref.Tracker) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT section_id, table_name, ref_key, source_file, source_line
		FROM valid_references
		ORDER BY seq ASC
	`)
	if err != nil {
		return errors.Wrap(err, "query valid references")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			section, table, key, file string
			line                      int
		)
		if err := rows.Scan(&section, &table, &key, &file, &line); err != nil {
			return errors.Wrap(err, "scan valid reference")
		}
		refs.AddValidReference(section, sourceLine(file, line), table, key)
	}
	return errors.Wrap(rows.Err(), "iterate valid references")
}

func (s *Store) readComplexReferences(ctx context.Context, refs *xref.Tracker) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT section_id, parent_type, parent_id, parent_language, child_type, child_id, is_primary, source_file, source_line
		FROM complex_references
		ORDER BY seq ASC
	`)
	if err != nil {
		return errors.Wrap(err, "query complex references")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ref                   ir.ComplexReference
			parentType, childType int
			primary               int
			file                  string
			line                  int
		)
		if err := rows.Scan(&ref.Section, &parentType, &ref.ParentID, &ref.ParentLanguage,
			&childType, &ref.ChildID, &primary, &file, &line); err != nil {
			return errors.Wrap(err, "scan complex reference")
		}
		ref.ParentType = ir.ComplexReferenceParentType(parentType)
		ref.ChildType = ir.ComplexReferenceChildType(childType)
		ref.Primary = primary == 1
		ref.SourceLine = sourceLine(file, line)
		refs.AddComplexReference(ref)
	}
	return errors.Wrap(rows.Err(), "iterate complex references")
}

func (s *Store) readFeatureBacklinks(ctx context.Context, refs *xref.Tracker) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT section_id, component_id, kind, target_table, target_key, source_file, source_line
		FROM feature_backlinks
		ORDER BY seq ASC
	`)
	if err != nil {
		return errors.Wrap(err, "query feature backlinks")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			link ir.FeatureBacklink
			kind int
			file string
			line int
		)
		if err := rows.Scan(&link.Section, &link.ComponentID, &kind,
			&link.Target.Table, &link.Target.Key, &file, &line); err != nil {
			return errors.Wrap(err, "scan feature backlink")
		}
		link.Kind = ir.FeatureBacklinkKind(kind)
		link.SourceLine = sourceLine(file, line)
		refs.AddFeatureBacklink(link)
	}
	return errors.Wrap(rows.Err(), "iterate feature backlinks")
}
