package store

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/roach88/candle/internal/compiler"
	"github.com/roach88/candle/internal/ir"
)

// clearStatements empty the file before a save, children first.
var clearStatements = []string{
	"DELETE FROM table_rows",
	"DELETE FROM section_tables",
	"DELETE FROM sections",
	"DELETE FROM valid_references",
	"DELETE FROM complex_references",
	"DELETE FROM feature_backlinks",
	"DELETE FROM intermediate",
}

// Save replaces the file's contents with res in one transaction. A failed
// save leaves the previous contents in place.
func (s *Store) Save(ctx context.Context, res *compiler.Result) error {
	if res == nil || res.Intermediate == nil {
		return errors.AssertionFailedf("save requires a compile result")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "save: begin tx")
	}
	defer tx.Rollback() // No-op if committed

	for _, stmt := range clearStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "save: %s", stmt)
		}
	}

	im := res.Intermediate
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO intermediate (id, source_path, format_version, compiler_version)
		VALUES (1, ?, ?, ?)
	`, im.SourcePath, ir.FormatVersion, ir.CompilerVersion); err != nil {
		return errors.Wrap(err, "save: write intermediate")
	}

	for seq, section := range im.Sections {
		if err := writeSection(ctx, tx, seq, section); err != nil {
			return errors.Wrapf(err, "save: section %q", section.ID)
		}
	}

	if res.References != nil {
		if err := writeReferences(ctx, tx, res); err != nil {
			return errors.Wrap(err, "save")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "save: commit")
	}
	return nil
}

func writeSection(ctx context.Context, tx *sql.Tx, seq int, section *ir.Section) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sections (seq, section_id, kind, codepage)
		VALUES (?, ?, ?, ?)
	`, seq, section.ID, section.Kind.String(), section.Codepage); err != nil {
		return errors.Wrap(err, "write section")
	}

	for _, table := range section.Tables() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO section_tables (section_seq, table_name)
			VALUES (?, ?)
		`, seq, table.Name()); err != nil {
			return errors.Wrapf(err, "write table %s", table.Name())
		}
		for rowSeq, row := range table.Rows {
			fields, err := marshalFields(row.Fields)
			if err != nil {
				return errors.Wrapf(err, "row %s[%d]", table.Name(), rowSeq)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO table_rows (section_seq, table_name, seq, fields, source_file, source_line)
				VALUES (?, ?, ?, ?, ?, ?)
			`, seq, table.Name(), rowSeq, fields, row.SourceLine.File, row.SourceLine.Line); err != nil {
				return errors.Wrapf(err, "write row %s[%d]", table.Name(), rowSeq)
			}
		}
	}
	return nil
}

func writeReferences(ctx context.Context, tx *sql.Tx, res *compiler.Result) error {
	for seq, ref := range res.References.ValidReferences() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO valid_references (seq, section_id, table_name, ref_key, source_file, source_line)
			VALUES (?, ?, ?, ?, ?, ?)
		`, seq, ref.Section, ref.Table, ref.Key, ref.SourceLine.File, ref.SourceLine.Line); err != nil {
			return errors.Wrapf(err, "write valid reference %s", ref.Symbol())
		}
	}

	for seq, ref := range res.References.ComplexReferences() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO complex_references
			(seq, section_id, parent_type, parent_id, parent_language, child_type, child_id, is_primary, source_file, source_line)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			seq,
			ref.Section,
			int(ref.ParentType),
			ref.ParentID,
			ref.ParentLanguage,
			int(ref.ChildType),
			ref.ChildID,
			boolToInt(ref.Primary),
			ref.SourceLine.File,
			ref.SourceLine.Line,
		); err != nil {
			return errors.Wrapf(err, "write complex reference %s %s", ref.ChildType, ref.ChildID)
		}
	}

	for seq, link := range res.References.FeatureBacklinks() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO feature_backlinks
			(seq, section_id, component_id, kind, target_table, target_key, source_file, source_line)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			seq,
			link.Section,
			link.ComponentID,
			int(link.Kind),
			link.Target.Table,
			link.Target.Key,
			link.SourceLine.File,
			link.SourceLine.Line,
		); err != nil {
			return errors.Wrapf(err, "write feature backlink %s", link.Target)
		}
	}
	return nil
}
