package storage_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/globetrotter/internal/storage"
)

// ---- mock MigrationPool ----

type mockMigrationPool struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)
	execFn  func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockMigrationPool) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.beginFn(ctx)
}

func (m *mockMigrationPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFn == nil {
		return pgconn.CommandTag{}, nil
	}
	return m.execFn(ctx, sql, args...)
}

// mockTx is a minimal pgx.Tx implementation for testing migrations.
type mockTx struct {
	applied    map[string]bool
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error
}

func (t *mockTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.execFn(ctx, sql, args...)
}
func (t *mockTx) Commit(ctx context.Context) error   { return t.commitFn(ctx) }
func (t *mockTx) Rollback(ctx context.Context) error { return t.rollbackFn(ctx) }

// QueryRow answers the schema_migrations lookup from the applied set.
func (t *mockTx) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	name, _ := args[0].(string)
	return &fakeRow{scanFn: func(dest ...any) error {
		*dest[0].(*bool) = t.applied[name]
		return nil
	}}
}

// pgx.Tx has many more methods; stub them all out.
func (t *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (t *mockTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *mockTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (t *mockTx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }
func (t *mockTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *mockTx) Conn() *pgx.Conn { return nil }

func okTx() *mockTx {
	return &mockTx{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, nil
		},
		commitFn:   func(_ context.Context) error { return nil },
		rollbackFn: func(_ context.Context) error { return nil },
	}
}

func poolFor(tx pgx.Tx) *mockMigrationPool {
	return &mockMigrationPool{beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil }}
}

func writeSQLFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// ---- RunMigrations tests ----

func TestRunMigrations_MissingDir(t *testing.T) {
	_, err := storage.RunMigrations(context.Background(), nil, "/nonexistent/dir")
	require.Error(t, err)
}

func TestRunMigrations_EmptyDir(t *testing.T) {
	applied, err := storage.RunMigrations(context.Background(), nil, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestRunMigrations_Success(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "SELECT 1;")
	writeSQLFile(t, dir, "README.md", "not a migration")

	applied, err := storage.RunMigrations(context.Background(), poolFor(okTx()), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_test.sql"}, applied)
}

func TestRunMigrations_RecordsFilename(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "SELECT 1;")

	var recorded []any
	tx := okTx()
	tx.execFn = func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
		if strings.Contains(sql, "schema_migrations") {
			recorded = args
		}
		return pgconn.CommandTag{}, nil
	}

	_, err := storage.RunMigrations(context.Background(), poolFor(tx), dir)
	require.NoError(t, err)
	assert.Equal(t, []any{"001_test.sql"}, recorded)
}

func TestRunMigrations_SkipsApplied(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_a.sql", "SELECT 1;")
	writeSQLFile(t, dir, "002_b.sql", "SELECT 2;")

	var executed []string
	rollbacks := 0
	tx := okTx()
	tx.applied = map[string]bool{"001_a.sql": true}
	tx.execFn = func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
		if !strings.Contains(sql, "schema_migrations") {
			executed = append(executed, sql)
		}
		return pgconn.CommandTag{}, nil
	}
	tx.rollbackFn = func(_ context.Context) error { rollbacks++; return nil }

	applied, err := storage.RunMigrations(context.Background(), poolFor(tx), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"002_b.sql"}, applied)
	assert.Equal(t, []string{"SELECT 2;"}, executed)
	assert.Equal(t, 1, rollbacks)
}

func TestRunMigrations_TableCreateError(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "SELECT 1;")

	pool := poolFor(okTx())
	pool.execFn = func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
		return pgconn.CommandTag{}, fmt.Errorf("permission denied")
	}

	_, err := storage.RunMigrations(context.Background(), pool, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema_migrations")
}

func TestRunMigrations_BeginError(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "SELECT 1;")

	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return nil, fmt.Errorf("cannot begin") },
	}

	_, err := storage.RunMigrations(context.Background(), pool, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executing migration")
}

func TestRunMigrations_ExecError(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_a.sql", "SELECT 1;")
	writeSQLFile(t, dir, "002_b.sql", "INVALID SQL;")

	tx := okTx()
	tx.execFn = func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
		if sql == "INVALID SQL;" {
			return pgconn.CommandTag{}, fmt.Errorf("syntax error")
		}
		return pgconn.CommandTag{}, nil
	}

	applied, err := storage.RunMigrations(context.Background(), poolFor(tx), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "002_b.sql")
	assert.Equal(t, []string{"001_a.sql"}, applied)
}

func TestRunMigrations_CommitError(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "SELECT 1;")

	tx := okTx()
	tx.commitFn = func(_ context.Context) error { return fmt.Errorf("commit failed") }

	_, err := storage.RunMigrations(context.Background(), poolFor(tx), dir)
	require.Error(t, err)
}

func TestRunMigrations_SortsFilesLexicographically(t *testing.T) {
	dir := t.TempDir()
	var order []string
	writeSQLFile(t, dir, "003_c.sql", "SELECT 3;")
	writeSQLFile(t, dir, "001_a.sql", "SELECT 1;")
	writeSQLFile(t, dir, "002_b.sql", "SELECT 2;")

	tx := okTx()
	tx.execFn = func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
		if !strings.Contains(sql, "schema_migrations") {
			order = append(order, sql)
		}
		return pgconn.CommandTag{}, nil
	}

	_, err := storage.RunMigrations(context.Background(), poolFor(tx), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 1;", "SELECT 2;", "SELECT 3;"}, order)
}

func TestRunMigrations_ShippedFiles(t *testing.T) {
	dir := filepath.Join("..", "..", "migrations")

	applied, err := storage.RunMigrations(context.Background(), poolFor(okTx()), dir)
	require.NoError(t, err)
	require.NotEmpty(t, applied)
	assert.Equal(t, "001_schema.sql", applied[0])
}

// ---- Connect tests ----

func TestConnect_BadURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := storage.Connect(ctx, "postgres://invalid-host-xyz:5432/db?sslmode=disable")
	require.Error(t, err)
}

func TestConnect_UnparseableURL(t *testing.T) {
	_, err := storage.Connect(context.Background(), "::not a url::")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing database URL")
}
