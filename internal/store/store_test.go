package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/candle/internal/compiler"
	"github.com/roach88/candle/internal/ir"
	"github.com/roach88/candle/internal/tables"
)

// =============================================================================
// Open and schema
// =============================================================================

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wixobj")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "object file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wixobj")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	for _, table := range []string{"intermediate", "sections", "section_tables", "table_rows",
		"valid_references", "complex_references", "feature_backlinks"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %q not found", table)
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))

	version, err := s.schemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.wixobj")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNewerSchema))
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

// =============================================================================
// Save and Load
// =============================================================================

func TestLoad_EmptyFile(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Load(context.Background(), tables.Core())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	res := compileTestDocument(t, testDocument)

	require.NoError(t, s.Save(ctx, res))
	loaded, err := s.Load(ctx, tables.Core())
	require.NoError(t, err)

	assert.Equal(t, res.Intermediate.Snapshot(true), loaded.Intermediate.Snapshot(true))
	assert.Equal(t, res.References.ValidReferences(), loaded.References.ValidReferences())
	assert.Equal(t, res.References.ComplexReferences(), loaded.References.ComplexReferences())
	assert.Equal(t, res.References.FeatureBacklinks(), loaded.References.FeatureBacklinks())
	assert.Empty(t, loaded.Messages)
}

func TestSaveLoad_PreservesSectionsAndEmptyTables(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	res := compileTestDocument(t, testDocument)
	require.NoError(t, s.Save(ctx, res))

	loaded, err := s.Load(ctx, tables.Core())
	require.NoError(t, err)

	require.Len(t, loaded.Intermediate.Sections, 2)
	assert.Equal(t, "Files", loaded.Intermediate.Sections[0].ID)
	assert.Equal(t, ir.SectionFragment, loaded.Intermediate.Sections[0].Kind)
	assert.Equal(t, "Features", loaded.Intermediate.Sections[1].ID)
	assert.Equal(t, "store.wxs", loaded.Intermediate.SourcePath)

	rows := loaded.Intermediate.Rows("WixEnsureTable")
	require.Len(t, rows, 1)
	assert.Equal(t, "Environment", rows[0].GetString("Table"))
}

func TestSaveLoad_FeatureBacklinkQueries(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Save(ctx, compileTestDocument(t, testDocument)))

	loaded, err := s.Load(ctx, tables.Core())
	require.NoError(t, err)

	links := loaded.References.BacklinksFor("C1")
	require.Len(t, links, 1)
	assert.Equal(t, ir.BacklinkShortcut, links[0].Kind)
	assert.Equal(t, ir.Symbol{Table: "Shortcut", Key: "AppShortcut"}, links[0].Target)

	parents := loaded.References.PrimaryParents(ir.ChildComponent, "C1")
	require.Len(t, parents, 1)
	assert.Equal(t, "Main", parents[0].ParentID)
}

func TestSave_ReplacesPreviousContents(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Save(ctx, compileTestDocument(t, testDocument)))

	small := compileTestDocument(t, `<?xml version="1.0"?>
<Wix xmlns="http://schemas.microsoft.com/wix/2006/wi"><Fragment Id="Only"/></Wix>`)
	require.NoError(t, s.Save(ctx, small))

	loaded, err := s.Load(ctx, tables.Core())
	require.NoError(t, err)
	require.Len(t, loaded.Intermediate.Sections, 1)
	assert.Equal(t, "Only", loaded.Intermediate.Sections[0].ID)
	assert.Empty(t, loaded.References.ValidReferences())
}

func TestSave_RequiresResult(t *testing.T) {
	s := createTestStore(t)
	assert.Error(t, s.Save(context.Background(), nil))
	assert.Error(t, s.Save(context.Background(), &compiler.Result{}))
}

func TestLoad_UndefinedTable(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Save(ctx, compileTestDocument(t, testDocument)))

	defs, err := ir.NewTableDefinitionCollection()
	require.NoError(t, err)
	_, err = s.Load(ctx, defs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not defined")
}

func TestLoad_CorruptFieldVector(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Save(ctx, compileTestDocument(t, testDocument)))

	_, err := s.db.Exec(`UPDATE table_rows SET fields = '[1.5]' WHERE table_name = 'Component'`)
	require.NoError(t, err)

	_, err = s.Load(ctx, tables.Core())
	require.Error(t, err)
}

func TestLoad_WrongFieldType(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Save(ctx, compileTestDocument(t, testDocument)))

	// Attributes is a number column; a string there must not load.
	_, err := s.db.Exec(`UPDATE table_rows SET fields = '["C1","{11111111-1111-1111-1111-111111111111}","TARGETDIR","x",null,"app.exe"]'
		WHERE table_name = 'Component'`)
	require.NoError(t, err)

	_, err = s.Load(ctx, tables.Core())
	require.Error(t, err)
}

// =============================================================================
// Failure paths
// =============================================================================

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Store{db: db}, mock
}

func TestSave_BeginFails(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("disk full"))

	err := s.Save(context.Background(), compileTestDocument(t, testDocument))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_RollsBackOnInsertFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	for range clearStatements {
		mock.ExpectExec(`DELETE FROM`).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(`INSERT INTO intermediate`).
		WithArgs("store.wxs", ir.FormatVersion, ir.CompilerVersion).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO sections`).
		WithArgs(0, "Files", "fragment", sqlmock.AnyArg()).
		WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	err := s.Save(context.Background(), compileTestDocument(t, testDocument))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `section "Files"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_CommitFails(t *testing.T) {
	s, mock := newMockStore(t)
	res := compileTestDocument(t, `<?xml version="1.0"?>
<Wix xmlns="http://schemas.microsoft.com/wix/2006/wi"><Fragment Id="Only"/></Wix>`)

	mock.ExpectBegin()
	for range clearStatements {
		mock.ExpectExec(`DELETE FROM`).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(`INSERT INTO intermediate`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO sections`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("busy"))

	err := s.Save(context.Background(), res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_QueryFails(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT source_path, format_version FROM intermediate`).
		WillReturnError(errors.New("io error"))

	_, err := s.Load(context.Background(), tables.Core())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_RejectsOtherFormatVersion(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT source_path, format_version FROM intermediate`).
		WillReturnRows(sqlmock.NewRows([]string{"source_path", "format_version"}).AddRow("a.wxs", "999"))

	_, err := s.Load(context.Background(), tables.Core())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format 999")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_SectionsQueryFails(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT source_path, format_version FROM intermediate`).
		WillReturnRows(sqlmock.NewRows([]string{"source_path", "format_version"}).AddRow("a.wxs", ir.FormatVersion))
	mock.ExpectQuery(`SELECT seq, section_id, kind, codepage`).
		WillReturnError(errors.New("io error"))

	_, err := s.Load(context.Background(), tables.Core())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query sections")
	assert.NoError(t, mock.ExpectationsWereMet())
}
