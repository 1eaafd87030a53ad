// Package repo contains all data access for the credential console.
// Every statement goes through an Invoker: SQL text plus positional
// parameters in, column-keyed rows out. Each resource has its own file with
// an interface and an Invoker-backed implementation.
// No business logic lives here; only SQL and type mapping.
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/tagconsole/internal/auth"
	"github.com/pkordes/tagconsole/internal/domain"
	"github.com/pkordes/tagconsole/internal/metrics"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Invoker executes a parameterized statement and returns its rows.
// Statements that return no rows yield an empty, non-nil slice.
//
// Implementations return domain.ErrNoSession when the caller has no session
// and *domain.RemoteExecutionError for any execution or transport failure.
// They never retry.
type Invoker interface {
	Query(ctx context.Context, query string, params ...any) ([]Row, error)
}

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting it instead of *pgxpool.Pool lets integration tests pass a
// transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PoolInvoker runs statements directly against Postgres. The query gateway
// uses it to serve remote callers; single-process deployments use it as the
// console's own Invoker behind RequireSession.
type PoolInvoker struct {
	db db
}

// NewPoolInvoker constructs a PoolInvoker. In production pass *pgxpool.Pool;
// in tests pass a pgx.Tx for rollback isolation.
func NewPoolInvoker(db db) *PoolInvoker {
	return &PoolInvoker{db: db}
}

// Query executes query and collects every returned row.
func (p *PoolInvoker) Query(ctx context.Context, query string, params ...any) ([]Row, error) {
	rows, err := p.db.Query(ctx, query, params...)
	if err != nil {
		metrics.ObserveQuery("pool", err)
		return nil, &domain.RemoteExecutionError{Message: err.Error(), Err: err}
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := []Row{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			metrics.ObserveQuery("pool", err)
			return nil, &domain.RemoteExecutionError{Message: err.Error(), Err: err}
		}
		row := make(Row, len(fields))
		for i, f := range fields {
			row[f.Name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		metrics.ObserveQuery("pool", err)
		return nil, &domain.RemoteExecutionError{Message: err.Error(), Err: err}
	}
	metrics.ObserveQuery("pool", nil)
	return out, nil
}

// sessionGuard fails fast when ctx carries no session token.
type sessionGuard struct {
	next Invoker
}

// RequireSession wraps next so that calls without a session token return
// domain.ErrNoSession without reaching next.
func RequireSession(next Invoker) Invoker {
	return sessionGuard{next: next}
}

func (g sessionGuard) Query(ctx context.Context, query string, params ...any) ([]Row, error) {
	if _, ok := auth.TokenFromContext(ctx); !ok {
		return nil, domain.ErrNoSession
	}
	return g.next.Query(ctx, query, params...)
}

// String returns the column as text; NULL and missing columns give "".
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case json.Number:
		return v.String()
	case time.Time:
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the column as an integer; NULL, missing and non-numeric
// values give 0.
func (r Row) Int(col string) int64 {
	switch v := r[col].(type) {
	case int:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// Time returns the column as a timestamp, or nil for NULL and unparseable
// values. Rows decoded from JSON carry RFC 3339 strings.
func (r Row) Time(col string) *time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return &v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &t
		}
	}
	return nil
}

// IsNull reports whether the column is NULL or absent.
func (r Row) IsNull(col string) bool {
	return r[col] == nil
}
