package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/joysssdasd/1127/internal/config"
	"github.com/joysssdasd/1127/internal/errorx"
	"github.com/joysssdasd/1127/internal/logger"
	"github.com/joysssdasd/1127/internal/store"
)

// Conn is the subset of *pgx.Conn the store uses.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close(ctx context.Context) error
}

// Connector opens a single connection for dsn.
type Connector func(ctx context.Context, dsn string) (Conn, error)

// Connect is the default Connector: one pgx connection, no pool.
// Statements sent outside a transaction commit individually.
func Connect(ctx context.Context, dsn string) (Conn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// PostgresStore implements store.Store on a single Postgres connection.
type PostgresStore struct {
	dsn     string
	connect Connector
	conn    Conn
	log     logger.Logger
}

// New creates a PostgresStore. A nil log uses logger.Default.
func New(dsn string, log logger.Logger) *PostgresStore {
	if log == nil {
		log = logger.Default
	}
	return &PostgresStore{
		dsn:     dsn,
		connect: Connect,
		log:     log,
	}
}

// WithConnector replaces the function used by Open.
func (s *PostgresStore) WithConnector(c Connector) *PostgresStore {
	s.connect = c
	return s
}

// Open connects to the database. An empty DSN fails before any network I/O.
func (s *PostgresStore) Open(ctx context.Context) error {
	if s.dsn == "" {
		return errorx.New(errorx.CodeConfig, "database connection string is empty")
	}

	s.log.Info("connecting to %s", config.RedactDSN(s.dsn))
	conn, err := s.connect(ctx, s.dsn)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeExec, "failed to connect")
	}

	s.conn = conn
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close(ctx)
	s.conn = nil
	return err
}

// Reset runs every statement in order, each in its own implicit transaction.
// The first failure stops the run; statements already executed stay applied.
func (s *PostgresStore) Reset(ctx context.Context) error {
	if s.conn == nil {
		return errorx.New(errorx.CodeExec, "database not opened")
	}

	for i, stmt := range statements {
		s.log.Debug("statement %d/%d: %s", i+1, len(statements), stmt)
		if _, err := s.conn.Exec(ctx, stmt.SQL); err != nil {
			s.log.Error("statement %d/%d (%s) failed: %v", i+1, len(statements), stmt, err)
			return errorx.Wrapf(err, errorx.CodeExec, "statement %d (%s)", i+1, stmt)
		}
	}

	s.log.Info("recreated %d tables and %d indexes", len(tables), countKind(KindIndex))
	return nil
}

const (
	columnsQuery = `SELECT c.relname, a.attname, format_type(a.atttypid, a.atttypmod),
       coalesce(pg_get_expr(d.adbin, d.adrelid), ''), a.attnotnull
FROM pg_attribute a
JOIN pg_class c ON c.oid = a.attrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
WHERE n.nspname = 'public' AND c.relkind = 'r' AND c.relname = ANY($1)
  AND a.attnum > 0 AND NOT a.attisdropped
ORDER BY c.relname, a.attnum`

	constraintsQuery = `SELECT c.relname, pg_get_constraintdef(con.oid)
FROM pg_constraint con
JOIN pg_class c ON c.oid = con.conrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = 'public' AND c.relname = ANY($1) AND con.contype IN ('p', 'f', 'u')
ORDER BY c.relname, con.conname`

	indexesQuery = `SELECT indexname
FROM pg_indexes
WHERE schemaname = 'public' AND tablename = ANY($1)
ORDER BY indexname`
)

// Inspect reads the live catalogue for the marketplace tables in schema public:
// column types, defaults and nullability, key and unique constraints, and index names.
func (s *PostgresStore) Inspect(ctx context.Context) (*store.Inspection, error) {
	if s.conn == nil {
		return nil, errorx.New(errorx.CodeExec, "database not opened")
	}

	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}

	live, err := s.liveColumns(ctx, names)
	if err != nil {
		return nil, err
	}
	if err := s.liveConstraints(ctx, names, live); err != nil {
		return nil, err
	}

	rows, err := s.conn.Query(ctx, indexesQuery, names)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeExec, "failed to query indexes")
	}
	liveIndexes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeExec, "failed to read indexes")
	}

	in := store.Compare(tables, indexes, live, liveIndexes)
	s.log.Debug("inspection: state=%s tables=%d indexes=%d", in.State, len(in.Tables), len(in.Indexes))
	return in, nil
}

func (s *PostgresStore) liveColumns(ctx context.Context, names []string) (map[string]store.LiveTable, error) {
	rows, err := s.conn.Query(ctx, columnsQuery, names)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeExec, "failed to query columns")
	}
	defer rows.Close()

	live := map[string]store.LiveTable{}
	for rows.Next() {
		var table string
		var col store.Column
		if err := rows.Scan(&table, &col.Name, &col.Type, &col.Default, &col.NotNull); err != nil {
			return nil, errorx.Wrap(err, errorx.CodeExec, "failed to scan column")
		}
		lt := live[table]
		lt.Columns = append(lt.Columns, col)
		live[table] = lt
	}
	if err := rows.Err(); err != nil {
		return nil, errorx.Wrap(err, errorx.CodeExec, "failed to read columns")
	}
	return live, nil
}

// liveConstraints attaches constraint definitions to tables already in live.
func (s *PostgresStore) liveConstraints(ctx context.Context, names []string, live map[string]store.LiveTable) error {
	rows, err := s.conn.Query(ctx, constraintsQuery, names)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeExec, "failed to query constraints")
	}
	defer rows.Close()

	for rows.Next() {
		var table, def string
		if err := rows.Scan(&table, &def); err != nil {
			return errorx.Wrap(err, errorx.CodeExec, "failed to scan constraint")
		}
		if lt, ok := live[table]; ok {
			lt.Constraints = append(lt.Constraints, def)
			live[table] = lt
		}
	}
	if err := rows.Err(); err != nil {
		return errorx.Wrap(err, errorx.CodeExec, "failed to read constraints")
	}
	return nil
}

func countKind(k StatementKind) int {
	n := 0
	for _, s := range statements {
		if s.Kind == k {
			n++
		}
	}
	return n
}

var _ store.Store = (*PostgresStore)(nil)
