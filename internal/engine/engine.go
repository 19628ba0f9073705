// Package engine wraps the embedded analytical SQL engine behind a single
// mutex-guarded handle. Every statement — schema bootstrap, catalog reads,
// artifact installation, evaluator views, audit writes, admin queries —
// serializes through this handle.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"

	apperrors "webhookgw.io/gateway/internal/pkg/errors"
)

// sqliteOpenMu guards sql.Open against SQLite's "database is locked" errors
// on a raced first open of a newly created file.
var sqliteOpenMu sync.Mutex

// Row is one result row from Query, keyed by column name.
type Row map[string]any

// Result is the column-names-plus-rows shape every Query call returns.
type Result struct {
	Columns []string
	Rows    []Row
}

// Handle is the single point of access to the embedded engine.
type Handle struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (or creates) the engine file at path and bootstraps the schema.
// Only one open connection is ever held: SetMaxOpenConns(1) plus the
// explicit mutex below both guard against interleaved statements, since
// go-sqlite3 is not safe for concurrent writers on one file.
func Open(ctx context.Context, path string) (*Handle, error) {
	driverName, err := registerDriver()
	if err != nil {
		return nil, apperrors.ErrEngine(fmt.Errorf("register sqlite driver: %w", err))
	}

	sqliteOpenMu.Lock()
	db, err := sql.Open(driverName, path)
	if err == nil {
		err = db.PingContext(ctx)
	}
	sqliteOpenMu.Unlock()
	if err != nil {
		return nil, apperrors.ErrEngine(fmt.Errorf("open engine at %q: %w", path, err))
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &Handle{db: db}
	if err := h.bootstrapSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

// driverCounter lets every Handle register its own named driver instance.
// No ConnectHook is set; RegisterScalarFunction installs functions on the
// handle's single connection through sql.Conn.Raw, so one handle's UDFs
// never reach another handle's connection.
var driverCounter struct {
	mu sync.Mutex
	n  int
}

func registerDriver() (string, error) {
	driverCounter.mu.Lock()
	defer driverCounter.mu.Unlock()
	driverCounter.n++
	name := fmt.Sprintf("sqlite3_webhookgw_%d", driverCounter.n)
	sql.Register(name, &sqlite3.SQLiteDriver{})
	return name, nil
}

// Close releases the underlying connection.
func (h *Handle) Close() error {
	return h.db.Close()
}

// Exec runs a statement that does not return rows.
func (h *Handle) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	res, err := h.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.ErrEngine(fmt.Errorf("exec: %w", err))
	}
	return res, nil
}

// Query runs a statement that returns rows, materializing every row into a
// Result so the mutex is released before the caller processes anything.
func (h *Handle) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.queryLocked(ctx, query, args...)
}

func (h *Handle) queryLocked(ctx context.Context, query string, args ...any) (*Result, error) {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.ErrEngine(fmt.Errorf("query: %w", err))
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, apperrors.ErrEngine(fmt.Errorf("columns: %w", err))
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		scanDest := make([]any, len(cols))
		scanPtrs := make([]any, len(cols))
		for i := range scanDest {
			scanPtrs[i] = &scanDest[i]
		}
		if err := rows.Scan(scanPtrs...); err != nil {
			return nil, apperrors.ErrEngine(fmt.Errorf("scan: %w", err))
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = scanDest[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.ErrEngine(fmt.Errorf("rows: %w", err))
	}
	return result, nil
}

// WithTx runs fn inside a transaction taken under the engine mutex, rolling
// back unless fn returns nil.
func (h *Handle) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.ErrEngine(fmt.Errorf("begin tx: %w", err))
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// RegisterScalarFunction registers a pure scalar function under name,
// reaching into the driver connection via sql.Conn.Raw.
func (h *Handle) RegisterScalarFunction(ctx context.Context, name string, nargs int, fn func(args ...any) (any, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, err := h.db.Conn(ctx)
	if err != nil {
		return apperrors.ErrEngine(fmt.Errorf("acquire conn: %w", err))
	}
	defer conn.Close()

	trampoline := func(args ...any) (any, error) {
		if len(args) != nargs {
			return nil, fmt.Errorf("%s expects %d argument(s), got %d", name, nargs, len(args))
		}
		return fn(args...)
	}

	err = conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection type %T", driverConn)
		}
		return sc.RegisterFunc(name, trampoline, true)
	})
	if err != nil {
		return apperrors.ErrEngine(fmt.Errorf("register scalar function %s: %w", name, err))
	}
	return nil
}

// DropScalarFunction unregisters name. go-sqlite3 has no API to deregister a
// scalar function, so this re-registers name with a trampoline that always
// errors — any further call to it surfaces a normal SQL error instead of
// silently resolving to stale behavior. That makes the drop idempotent by
// construction: dropping an unknown or already-dropped name just installs
// the same sentinel again, so cascade-delete callers never see a failure
// for an object that's already absent.
func (h *Handle) DropScalarFunction(ctx context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, err := h.db.Conn(ctx)
	if err != nil {
		return apperrors.ErrEngine(fmt.Errorf("acquire conn: %w", err))
	}
	defer conn.Close()

	sentinel := func(args ...any) (any, error) {
		return nil, fmt.Errorf("scalar function %s has been dropped", name)
	}

	err = conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection type %T", driverConn)
		}
		return sc.RegisterFunc(name, sentinel, true)
	})
	if err != nil {
		return apperrors.ErrEngine(fmt.Errorf("drop scalar function %s: %w", name, err))
	}
	return nil
}

// ListObjects returns the names of the tables recorded in sqlite_master
// whose name begins with prefix. Used by the reconciler to find orphaned
// ref_* tables. Registered scalar functions are never listed, since
// go-sqlite3 keeps no catalog of them.
func (h *Handle) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	res, err := h.queryLocked(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE ? ESCAPE '\'`,
		escapeLikePrefix(prefix)+"%",
	)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if n, ok := row["name"].(string); ok {
			names = append(names, n)
		}
	}
	return names, nil
}

func escapeLikePrefix(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
