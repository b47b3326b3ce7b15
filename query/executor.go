package query

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sqlmate/dbcore/mapper"
	"github.com/sqlmate/dbcore/registry"
)

// Executor runs one-shot queries and DDL-adjacent helpers against pools resolved from a
// Registry. It holds no state of its own beyond the Registry reference.
type Executor struct {
	registry *registry.Registry
}

// NewExecutor returns an Executor backed by reg.
func NewExecutor(reg *registry.Registry) *Executor {
	return &Executor{registry: reg}
}

// ExecuteQuery runs sql against id's pool. When both page and pageSize are non-nil and
// pageSize > 0, the statement is rewritten to a LIMIT/OFFSET subquery. Whenever page is
// non-nil, a best-effort COUNT(*) is additionally run to populate TotalCount; a failing
// COUNT never fails the query itself.
func (e *Executor) ExecuteQuery(ctx context.Context, id uuid.UUID, stmt string, page, pageSize *int) (*QueryResult, error) {
	pool, dialect, err := e.registry.ResolvePool(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	effective := stmt
	if page != nil && pageSize != nil && *pageSize > 0 {
		effective = rewritePaginated(stmt, *page, *pageSize)
	}

	result, err := runSelect(ctx, pool, dialect, effective)
	if err != nil {
		return nil, errors.Wrap(err, "query failed")
	}
	result.ExecutionTimeMs = time.Since(start).Milliseconds()

	if page != nil {
		if count, err := runCount(ctx, pool, stmt); err == nil {
			result.TotalCount = &count
			result.Page = page
			result.PageSize = pageSize
		}
	}

	return result, nil
}

// rewritePaginated wraps a SELECT statement for page p (0-based) of size k; anything else
// passes through unchanged.
func rewritePaginated(stmt string, page, pageSize int) string {
	trimmed := strings.TrimSpace(stmt)
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return stmt
	}

	inner := strings.TrimSuffix(trimmed, ";")
	return fmt.Sprintf("SELECT * FROM (%s) AS _q LIMIT %d OFFSET %d", inner, pageSize, page*pageSize)
}

func runCount(ctx context.Context, pool *sqlx.DB, stmt string) (int64, error) {
	inner := strings.TrimSuffix(strings.TrimSpace(stmt), ";")
	countStmt := fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS _q", inner)

	var count int64
	if err := pool.GetContext(ctx, &count, countStmt); err != nil {
		return 0, err
	}
	return count, nil
}

// runSelect executes stmt and maps every row through mapper.MapValue using each column's
// declared database type name.
func runSelect(ctx context.Context, pool *sqlx.DB, dialect registry.Dialect, stmt string) (*QueryResult, error) {
	rows, err := pool.QueryxContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = t.DatabaseTypeName()
	}

	mapDialect := mapper.Dialect(dialect)

	resultRows := make([][]any, 0)
	for rows.Next() {
		raw, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}

		row := make([]any, len(raw))
		for i, v := range raw {
			typeName := ""
			if i < len(typeNames) {
				typeName = typeNames[i]
			}
			row[i] = mapper.MapValue(mapDialect, typeName, v)
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueryResult{Columns: columns, Rows: resultRows}, nil
}

// ExecuteMutations runs statements in order against id's pool, accumulating affected rows.
// It stops and returns at the first error.
func (e *Executor) ExecuteMutations(ctx context.Context, id uuid.UUID, statements []string) (int64, error) {
	pool, _, err := e.registry.ResolvePool(id)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, stmt := range statements {
		res, err := pool.ExecContext(ctx, stmt)
		if err != nil {
			return total, errors.Wrap(err, "mutation failed")
		}
		affected, err := res.RowsAffected()
		if err == nil {
			total += affected
		}
	}

	return total, nil
}

// CreateDatabase issues the dialect-appropriate CREATE DATABASE statement. SQLite rejects
// this outright: a SQLite "database" is a file, not a namespace a connection can create.
func (e *Executor) CreateDatabase(ctx context.Context, id uuid.UUID, name string) error {
	pool, dialect, err := e.registry.ResolvePool(id)
	if err != nil {
		return err
	}

	if dialect == registry.SQLite {
		return errors.New("creating new databases is not supported for sqlite; create a new connection for a different file instead")
	}

	_, err = pool.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", quoteIdentifier(dialect, name)))
	return err
}

// GetDatabases enumerates databases visible from id's connection.
func (e *Executor) GetDatabases(ctx context.Context, id uuid.UUID) ([]string, error) {
	pool, dialect, err := e.registry.ResolvePool(id)
	if err != nil {
		return nil, err
	}

	var stmt string
	var col int
	switch dialect {
	case registry.Postgres:
		stmt = `SELECT datname FROM pg_database WHERE datistemplate = false AND datallowconn = true ORDER BY datname`
	case registry.MySQL:
		stmt = `SHOW DATABASES`
	case registry.SQLite:
		stmt = `PRAGMA database_list`
		col = 1
	}

	return scanStringColumn(ctx, pool, stmt, col)
}

// GetTables enumerates table names visible from id's connection.
func (e *Executor) GetTables(ctx context.Context, id uuid.UUID) ([]string, error) {
	pool, dialect, err := e.registry.ResolvePool(id)
	if err != nil {
		return nil, err
	}

	var stmt string
	switch dialect {
	case registry.Postgres:
		stmt = `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public'`
	case registry.MySQL:
		stmt = `SHOW TABLES`
	case registry.SQLite:
		stmt = `SELECT name FROM sqlite_schema WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`
	}

	return scanStringColumn(ctx, pool, stmt, 0)
}

// GetTableCount returns the row count of table under filters, the counterpart of
// get_table_data's pagination total but callable on its own for a plain count command.
func (e *Executor) GetTableCount(ctx context.Context, id uuid.UUID, table string, filters []FilterConfig) (int64, error) {
	pool, dialect, err := e.registry.ResolvePool(id)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := pool.GetContext(ctx, &count, BuildCountScan(dialect, table, filters)); err != nil {
		return 0, errors.Wrap(err, "count failed")
	}
	return count, nil
}

// GetSidebarItems enumerates every object shown in the connection's sidebar: tables and
// views for every dialect, plus stored functions/procedures for Postgres and MySQL (SQLite
// has no such objects). The result is sorted by name.
func (e *Executor) GetSidebarItems(ctx context.Context, id uuid.UUID) ([]SidebarItem, error) {
	pool, dialect, err := e.registry.ResolvePool(id)
	if err != nil {
		return nil, err
	}

	var items []SidebarItem
	switch dialect {
	case registry.Postgres:
		const stmt = `
			SELECT table_name AS name, 'Table' AS item_type FROM information_schema.tables
				WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
			UNION ALL
			SELECT table_name, 'View' FROM information_schema.tables
				WHERE table_schema = 'public' AND table_type = 'VIEW'
			UNION ALL
			SELECT routine_name, INITCAP(routine_type) FROM information_schema.routines
				WHERE routine_schema = 'public'
			ORDER BY 1`

		var rows []struct {
			Name string `db:"name"`
			Type string `db:"item_type"`
		}
		if err := pool.SelectContext(ctx, &rows, stmt); err != nil {
			return nil, err
		}
		for _, r := range rows {
			items = append(items, SidebarItem{Name: r.Name, Type: SidebarItemType(r.Type)})
		}

	case registry.MySQL:
		tableRows, err := pool.QueryxContext(ctx, "SHOW FULL TABLES")
		if err != nil {
			return nil, err
		}
		for tableRows.Next() {
			raw, err := tableRows.SliceScan()
			if err != nil {
				tableRows.Close()
				return nil, err
			}
			name := asText(raw[0])
			itemType := SidebarTable
			if len(raw) > 1 && strings.EqualFold(asText(raw[1]), "VIEW") {
				itemType = SidebarView
			}
			items = append(items, SidebarItem{Name: name, Type: itemType})
		}
		if err := tableRows.Err(); err != nil {
			tableRows.Close()
			return nil, err
		}
		tableRows.Close()

		var routines []struct {
			Name string `db:"ROUTINE_NAME"`
			Type string `db:"ROUTINE_TYPE"`
		}
		const routineStmt = `SELECT ROUTINE_NAME, ROUTINE_TYPE FROM information_schema.ROUTINES
			WHERE ROUTINE_SCHEMA = DATABASE()`
		if err := pool.SelectContext(ctx, &routines, routineStmt); err != nil {
			return nil, err
		}
		for _, r := range routines {
			itemType := SidebarFunction
			if strings.EqualFold(r.Type, "PROCEDURE") {
				itemType = SidebarProcedure
			}
			items = append(items, SidebarItem{Name: r.Name, Type: itemType})
		}

		sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	case registry.SQLite:
		const stmt = `SELECT name, type FROM sqlite_schema
			WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
			ORDER BY name`

		var rows []struct {
			Name string `db:"name"`
			Type string `db:"type"`
		}
		if err := pool.SelectContext(ctx, &rows, stmt); err != nil {
			return nil, err
		}
		for _, r := range rows {
			itemType := SidebarTable
			if r.Type == "view" {
				itemType = SidebarView
			}
			items = append(items, SidebarItem{Name: r.Name, Type: itemType})
		}
	}

	return items, nil
}

// GetTableMetadata returns dialect-specific size/comment information for table. SQLite has
// no standard per-table size query, so its fields report "Unknown".
func (e *Executor) GetTableMetadata(ctx context.Context, id uuid.UUID, table string) (*TableMetadata, error) {
	pool, dialect, err := e.registry.ResolvePool(id)
	if err != nil {
		return nil, err
	}

	switch dialect {
	case registry.Postgres:
		const stmt = `SELECT
			pg_size_pretty(pg_total_relation_size(quote_ident($1))) AS total_size,
			pg_size_pretty(pg_relation_size(quote_ident($1))) AS data_size,
			pg_size_pretty(pg_indexes_size(quote_ident($1))) AS index_size,
			obj_description(quote_ident($1)::regclass, 'pg_class') AS comment`

		var m struct {
			TotalSize sql.NullString `db:"total_size"`
			DataSize  sql.NullString `db:"data_size"`
			IndexSize sql.NullString `db:"index_size"`
			Comment   sql.NullString `db:"comment"`
		}
		if err := pool.GetContext(ctx, &m, stmt, table); err != nil {
			return nil, err
		}
		return &TableMetadata{
			TotalSize: nullableString(m.TotalSize),
			DataSize:  nullableString(m.DataSize),
			IndexSize: nullableString(m.IndexSize),
			Comment:   nullableString(m.Comment),
		}, nil

	case registry.MySQL:
		const stmt = `SELECT
			(DATA_LENGTH + INDEX_LENGTH) AS total_size,
			DATA_LENGTH AS data_size,
			INDEX_LENGTH AS index_size,
			TABLE_COMMENT AS comment
		FROM information_schema.TABLES WHERE TABLE_NAME = ?`

		var m struct {
			TotalSize sql.NullInt64  `db:"total_size"`
			DataSize  sql.NullInt64  `db:"data_size"`
			IndexSize sql.NullInt64  `db:"index_size"`
			Comment   sql.NullString `db:"comment"`
		}
		if err := pool.GetContext(ctx, &m, stmt, table); err != nil {
			return nil, err
		}
		return &TableMetadata{
			TotalSize: nullableKB(m.TotalSize),
			DataSize:  nullableKB(m.DataSize),
			IndexSize: nullableKB(m.IndexSize),
			Comment:   nullableString(m.Comment),
		}, nil

	case registry.SQLite:
		unknown := "Unknown"
		return &TableMetadata{TotalSize: &unknown, DataSize: &unknown, IndexSize: &unknown}, nil
	}

	return nil, errors.Errorf("unknown dialect %q", dialect)
}

// GetTableStructure returns the full shape of table: its columns, indexes, and constraints,
// via the dialect-specific information-schema (or PRAGMA) queries.
func (e *Executor) GetTableStructure(ctx context.Context, id uuid.UUID, table string) (*TableStructure, error) {
	pool, dialect, err := e.registry.ResolvePool(id)
	if err != nil {
		return nil, err
	}

	switch dialect {
	case registry.Postgres:
		return postgresTableStructure(ctx, pool, table)
	case registry.MySQL:
		return mysqlTableStructure(ctx, pool, table)
	case registry.SQLite:
		return sqliteTableStructure(ctx, pool, table)
	}

	return nil, errors.Errorf("unknown dialect %q", dialect)
}

func postgresTableStructure(ctx context.Context, pool *sqlx.DB, table string) (*TableStructure, error) {
	const colStmt = `SELECT column_name, data_type,
		(is_nullable = 'YES') AS nullable,
		COALESCE(column_default, '') AS col_default,
		EXISTS (
			SELECT 1 FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON kcu.constraint_name = tc.constraint_name AND kcu.table_name = tc.table_name
			WHERE tc.table_name = $1 AND tc.constraint_type = 'PRIMARY KEY' AND kcu.column_name = column_name
		) AS pk
	FROM information_schema.columns WHERE table_name = $1 ORDER BY ordinal_position`

	var colRows []struct {
		Name     string `db:"column_name"`
		Type     string `db:"data_type"`
		Nullable bool   `db:"nullable"`
		Default  string `db:"col_default"`
		PK       bool   `db:"pk"`
	}
	if err := pool.SelectContext(ctx, &colRows, colStmt, table); err != nil {
		return nil, err
	}

	cols := make([]ColumnStructure, len(colRows))
	for i, r := range colRows {
		cols[i] = ColumnStructure{Name: r.Name, Type: r.Type, Nullable: r.Nullable, PrimaryKey: r.PK, Default: r.Default}
	}

	var idxRows []struct {
		Name string `db:"indexname"`
		Def  string `db:"indexdef"`
	}
	if err := pool.SelectContext(ctx, &idxRows, `SELECT indexname, indexdef FROM pg_indexes WHERE tablename = $1`, table); err != nil {
		return nil, err
	}

	indexes := make([]TableIndexStructure, len(idxRows))
	for i, r := range idxRows {
		unique, method, columns := parsePgIndexDef(r.Def)
		indexes[i] = TableIndexStructure{Name: r.Name, Columns: columns, IsUnique: unique, IndexType: method}
	}

	var conRows []struct {
		Name    string         `db:"conname"`
		Type    string         `db:"contype"`
		Columns pq.StringArray `db:"columns"`
	}
	const conStmt = `SELECT c.conname, c.contype,
		ARRAY(SELECT attname FROM unnest(c.conkey) WITH ORDINALITY AS u(attnum, ord)
			JOIN pg_attribute a ON a.attrelid = c.conrelid AND a.attnum = u.attnum
			ORDER BY u.ord) AS columns
	FROM pg_constraint c WHERE c.conrelid = $1::regclass`
	if err := pool.SelectContext(ctx, &conRows, conStmt, table); err != nil {
		return nil, err
	}

	constraints := make([]TableConstraintStructure, len(conRows))
	for i, r := range conRows {
		constraints[i] = TableConstraintStructure{
			Name:           r.Name,
			ConstraintType: pgConstraintType(r.Type),
			Definition:     "(" + strings.Join(r.Columns, ", ") + ")",
		}
	}

	return &TableStructure{Columns: cols, Indexes: indexes, Constraints: constraints}, nil
}

func pgConstraintType(code string) string {
	switch code {
	case "p":
		return "PRIMARY KEY"
	case "f":
		return "FOREIGN KEY"
	case "u":
		return "UNIQUE"
	case "c":
		return "CHECK"
	}
	return code
}

var pgIndexDefRe = regexp.MustCompile(`(?i)CREATE\s+(UNIQUE\s+)?INDEX\s+\S+\s+ON\s+\S+\s+USING\s+(\S+)\s*\(([^)]*)\)`)

// parsePgIndexDef extracts uniqueness, access method, and column list out of the indexdef
// text pg_indexes reports, e.g. "CREATE UNIQUE INDEX widgets_pkey ON public.widgets USING
// btree (id)".
func parsePgIndexDef(def string) (unique bool, method string, columns []string) {
	m := pgIndexDefRe.FindStringSubmatch(def)
	if m == nil {
		return false, "", nil
	}

	unique = m[1] != ""
	method = m[2]
	for _, c := range strings.Split(m[3], ",") {
		columns = append(columns, strings.TrimSpace(strings.Trim(c, `"`)))
	}
	return unique, method, columns
}

func mysqlTableStructure(ctx context.Context, pool *sqlx.DB, table string) (*TableStructure, error) {
	const colStmt = `SELECT COLUMN_NAME, COLUMN_TYPE,
		(IS_NULLABLE = 'YES') AS nullable,
		(COLUMN_KEY = 'PRI') AS pk,
		COALESCE(COLUMN_DEFAULT, '') AS col_default
	FROM information_schema.COLUMNS WHERE TABLE_NAME = ? ORDER BY ORDINAL_POSITION`

	var colRows []struct {
		Name     string `db:"COLUMN_NAME"`
		Type     string `db:"COLUMN_TYPE"`
		Nullable bool   `db:"nullable"`
		PK       bool   `db:"pk"`
		Default  string `db:"col_default"`
	}
	if err := pool.SelectContext(ctx, &colRows, colStmt, table); err != nil {
		return nil, err
	}

	cols := make([]ColumnStructure, len(colRows))
	for i, r := range colRows {
		cols[i] = ColumnStructure{Name: r.Name, Type: r.Type, Nullable: r.Nullable, PrimaryKey: r.PK, Default: r.Default}
	}

	idxRows, err := pool.QueryxContext(ctx, fmt.Sprintf("SHOW INDEX FROM %s", quoteIdentifier(registry.MySQL, table)))
	if err != nil {
		return nil, err
	}
	idxOrder := make([]string, 0)
	idxUnique := make(map[string]bool)
	idxType := make(map[string]string)
	idxCols := make(map[string][]string)
	for idxRows.Next() {
		raw, err := idxRows.SliceScan()
		if err != nil {
			idxRows.Close()
			return nil, err
		}
		// Column_name is SHOW INDEX's 5th field (0-based index 4), Key_name is the 3rd
		// (index 2), Non_unique the 2nd (index 1), Index_type the 11th (index 10).
		keyName := asText(raw[2])
		if _, seen := idxUnique[keyName]; !seen {
			idxOrder = append(idxOrder, keyName)
		}
		idxUnique[keyName] = asText(raw[1]) == "0"
		idxType[keyName] = asText(raw[10])
		idxCols[keyName] = append(idxCols[keyName], asText(raw[4]))
	}
	if err := idxRows.Err(); err != nil {
		idxRows.Close()
		return nil, err
	}
	idxRows.Close()

	indexes := make([]TableIndexStructure, 0, len(idxOrder))
	for _, name := range idxOrder {
		indexes = append(indexes, TableIndexStructure{
			Name: name, Columns: idxCols[name], IsUnique: idxUnique[name], IndexType: idxType[name],
		})
	}

	const conStmt = `SELECT tc.CONSTRAINT_NAME, tc.CONSTRAINT_TYPE,
		GROUP_CONCAT(kcu.COLUMN_NAME ORDER BY kcu.ORDINAL_POSITION SEPARATOR ', ') AS cols
	FROM information_schema.TABLE_CONSTRAINTS tc
	JOIN information_schema.KEY_COLUMN_USAGE kcu
		ON kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME AND kcu.TABLE_NAME = tc.TABLE_NAME
	WHERE tc.TABLE_NAME = ?
	GROUP BY tc.CONSTRAINT_NAME, tc.CONSTRAINT_TYPE`

	var conRows []struct {
		Name string `db:"CONSTRAINT_NAME"`
		Type string `db:"CONSTRAINT_TYPE"`
		Cols string `db:"cols"`
	}
	if err := pool.SelectContext(ctx, &conRows, conStmt, table); err != nil {
		return nil, err
	}

	constraints := make([]TableConstraintStructure, len(conRows))
	for i, r := range conRows {
		constraints[i] = TableConstraintStructure{Name: r.Name, ConstraintType: r.Type, Definition: "(" + r.Cols + ")"}
	}

	return &TableStructure{Columns: cols, Indexes: indexes, Constraints: constraints}, nil
}

func sqliteTableStructure(ctx context.Context, pool *sqlx.DB, table string) (*TableStructure, error) {
	quoted := quoteIdentifier(registry.SQLite, table)

	var colRows []struct {
		CID     int            `db:"cid"`
		Name    string         `db:"name"`
		Type    string         `db:"type"`
		NotNull bool           `db:"notnull"`
		Default sql.NullString `db:"dflt_value"`
		PK      int            `db:"pk"`
	}
	if err := pool.SelectContext(ctx, &colRows, fmt.Sprintf("PRAGMA table_info(%s)", quoted)); err != nil {
		return nil, err
	}

	cols := make([]ColumnStructure, len(colRows))
	var pkCols []string
	for i, r := range colRows {
		cols[i] = ColumnStructure{
			Name: r.Name, Type: r.Type, Nullable: !r.NotNull, PrimaryKey: r.PK > 0,
			Default: r.Default.String,
		}
		if r.PK > 0 {
			pkCols = append(pkCols, r.Name)
		}
	}

	var idxListRows []struct {
		Seq     int    `db:"seq"`
		Name    string `db:"name"`
		Unique  bool   `db:"unique"`
		Origin  string `db:"origin"`
		Partial bool   `db:"partial"`
	}
	if err := pool.SelectContext(ctx, &idxListRows, fmt.Sprintf("PRAGMA index_list(%s)", quoted)); err != nil {
		return nil, err
	}

	indexes := make([]TableIndexStructure, 0, len(idxListRows))
	for _, idx := range idxListRows {
		var infoRows []struct {
			SeqNo int    `db:"seqno"`
			CID   int    `db:"cid"`
			Name  string `db:"name"`
		}
		if err := pool.SelectContext(ctx, &infoRows, fmt.Sprintf("PRAGMA index_info(%s)", quoteIdentifier(registry.SQLite, idx.Name))); err != nil {
			return nil, err
		}
		columns := make([]string, len(infoRows))
		for i, r := range infoRows {
			columns[i] = r.Name
		}
		indexes = append(indexes, TableIndexStructure{Name: idx.Name, Columns: columns, IsUnique: idx.Unique})
	}

	var constraints []TableConstraintStructure
	if len(pkCols) > 0 {
		constraints = append(constraints, TableConstraintStructure{
			Name: "primary_key", ConstraintType: "PRIMARY KEY", Definition: "(" + strings.Join(pkCols, ", ") + ")",
		})
	}

	var fkRows []struct {
		ID       int    `db:"id"`
		Seq      int    `db:"seq"`
		Table    string `db:"table"`
		From     string `db:"from"`
		To       string `db:"to"`
		OnUpdate string `db:"on_update"`
		OnDelete string `db:"on_delete"`
		Match    string `db:"match"`
	}
	if err := pool.SelectContext(ctx, &fkRows, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoted)); err != nil {
		return nil, err
	}
	for _, fk := range fkRows {
		constraints = append(constraints, TableConstraintStructure{
			Name:           fmt.Sprintf("fk_%d", fk.ID),
			ConstraintType: "FOREIGN KEY",
			Definition:     fmt.Sprintf("(%s) REFERENCES %s(%s)", fk.From, fk.Table, fk.To),
		})
	}

	return &TableStructure{Columns: cols, Indexes: indexes, Constraints: constraints}, nil
}

func scanStringColumn(ctx context.Context, pool *sqlx.DB, stmt string, col int) ([]string, error) {
	rows, err := pool.QueryxContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		raw, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		if col >= len(raw) {
			continue
		}
		out = append(out, asText(raw[col]))
	}
	return out, rows.Err()
}

func asText(v any) string {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func nullableString(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	return &n.String
}

func nullableKB(n sql.NullInt64) *string {
	if !n.Valid {
		return nil
	}
	s := fmt.Sprintf("%d KB", n.Int64/1024)
	return &s
}
