package introspect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lightsource/sessions-api/internal/observability"
)

// KeyPrimary is the COLUMN_KEY value marking a primary key column.
const KeyPrimary = "PRI"

// Column describes one INFORMATION_SCHEMA.COLUMNS row.
type Column struct {
	// Name is the column name as stored, for example "visit_number".
	Name string

	// DataType is the bare MySQL type, for example "int" or "varchar".
	DataType string

	// ColumnType is the full type declaration, for example
	// "int(10) unsigned". Signedness only appears here.
	ColumnType string

	// Nullable reports whether the column accepts NULL.
	Nullable bool

	// Key is the COLUMN_KEY value, KeyPrimary for primary keys.
	Key string

	// Position is the 1-based ORDINAL_POSITION within the table.
	Position int
}

// ForeignKey describes a foreign key constraint on a single column.
type ForeignKey struct {
	Column           string
	ReferencedTable  string
	ReferencedColumn string
}

// Table is the described layout of one database table. Columns are
// ordered by ordinal position and ForeignKeys is keyed by column name.
type Table struct {
	Name        string
	Columns     []Column
	ForeignKeys map[string]ForeignKey
}

const (
	columnsQuery = `SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, IS_NULLABLE, COLUMN_KEY, ORDINAL_POSITION
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME IN (%s)
ORDER BY TABLE_NAME, ORDINAL_POSITION`

	foreignKeysQuery = `SELECT TABLE_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME IN (%s) AND REFERENCED_TABLE_NAME IS NOT NULL`
)

// Reader describes tables of the schema the pool is connected to.
type Reader struct {
	db     *sql.DB
	logger observability.Logger
}

// ReaderOption is a functional option for the reader.
type ReaderOption func(*Reader)

// WithReaderLogger sets the logger.
func WithReaderLogger(logger observability.Logger) ReaderOption {
	return func(r *Reader) {
		r.logger = logger
	}
}

// NewReader creates a Reader over the given pool.
func NewReader(db *sql.DB, opts ...ReaderOption) *Reader {
	r := &Reader{
		db:     db,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ReadTables describes the named tables in the connected schema.
// Tables come back in the order requested, and a requested table with
// no INFORMATION_SCHEMA rows is an error.
func (r *Reader) ReadTables(ctx context.Context, names []string) ([]Table, error) {
	if len(names) == 0 {
		return nil, errors.New("no tables requested")
	}

	args := make([]interface{}, 0, len(names))
	for _, name := range names {
		args = append(args, name)
	}

	byName, err := r.readColumns(ctx, names, args)
	if err != nil {
		return nil, err
	}

	if err := r.readForeignKeys(ctx, names, args, byName); err != nil {
		return nil, err
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		table, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("table %s not found in schema", name)
		}
		tables = append(tables, *table)
	}

	r.logger.Debug("described tables", observability.Int("tables", len(tables)))

	return tables, nil
}

func (r *Reader) readColumns(ctx context.Context, names []string, args []interface{}) (map[string]*Table, error) {
	query := fmt.Sprintf(columnsQuery, placeholders(len(names)))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("describe columns: %w", err)
	}
	defer rows.Close()

	byName := make(map[string]*Table)
	for rows.Next() {
		var (
			tableName string
			nullable  string
			col       Column
		)
		if err := rows.Scan(&tableName, &col.Name, &col.DataType, &col.ColumnType, &nullable, &col.Key, &col.Position); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		col.Nullable = strings.EqualFold(nullable, "YES")

		table := byName[tableName]
		if table == nil {
			table = &Table{Name: tableName, ForeignKeys: make(map[string]ForeignKey)}
			byName[tableName] = table
		}
		table.Columns = append(table.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describe columns: %w", err)
	}

	return byName, nil
}

func (r *Reader) readForeignKeys(ctx context.Context, names []string, args []interface{}, byName map[string]*Table) error {
	query := fmt.Sprintf(foreignKeysQuery, placeholders(len(names)))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("describe foreign keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName string
		var fk ForeignKey
		if err := rows.Scan(&tableName, &fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			return fmt.Errorf("scan foreign key row: %w", err)
		}
		if table := byName[tableName]; table != nil {
			table.ForeignKeys[fk.Column] = fk
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("describe foreign keys: %w", err)
	}

	return nil
}

// placeholders returns n comma separated SQL placeholders. Only the
// placeholder count is formatted into the query, values always travel
// as arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
