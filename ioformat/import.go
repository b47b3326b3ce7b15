package ioformat

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sqlmate/dbcore/query"
	"github.com/sqlmate/dbcore/registry"
)

// CsvImportOptions configures ImportCSV. ColumnMapping maps a CSV header name (or, when the
// CSV has no header, a stringified column index) to the destination column name; a nil or
// empty map means "use the CSV headers verbatim as the destination columns".
type CsvImportOptions struct {
	TableName            string
	CreateTableIfMissing bool
	ColumnMapping        map[string]string
	HasHeader            bool
	Delimiter            rune
	SkipRows             int
	BatchSize            int
}

const defaultImportBatchSize = 500

// ImportProgress mirrors ExportProgress's shape for the import direction.
type ImportProgress struct {
	ImportID      string
	RowsProcessed uint64
	Done          bool
	Err           error
}

// PreviewCSV returns up to 10 rows of r, after skipping skipRows records and optionally
// consuming a header row, without touching any database connection. It backs the
// preview_csv dry-run a user runs before committing to a full import.
func PreviewCSV(r io.Reader, delimiter rune, hasHeader bool, skipRows int) ([][]string, error) {
	reader := csv.NewReader(r)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.FieldsPerRecord = -1

	if hasHeader {
		if _, err := reader.Read(); err != nil && err != io.EOF {
			return nil, err
		}
	}
	for i := 0; i < skipRows; i++ {
		if _, err := reader.Read(); err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, err
		}
	}

	var preview [][]string
	for len(preview) < 10 {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]string, len(record))
		copy(row, record)
		preview = append(preview, row)
	}

	return preview, nil
}

// ImportCSV reads r as CSV and inserts every record into opts.TableName on id's connection,
// batching opts.BatchSize rows per transaction (defaulting to defaultImportBatchSize).
// Unlike the filter/sort builder, inserted values are bound as query parameters rather than
// interpolated, since a CSV file is untrusted external input rather than structured UI state.
func ImportCSV(ctx context.Context, reg *registry.Registry, id uuid.UUID, importID string, r io.Reader, opts CsvImportOptions, report func(ImportProgress)) (uint64, error) {
	pool, dialect, err := reg.ResolvePool(id)
	if err != nil {
		return 0, err
	}

	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1

	var headers []string
	if opts.HasHeader {
		headers, err = reader.Read()
		if err != nil {
			return 0, errors.Wrap(err, "reading csv header")
		}
	}

	for i := 0; i < opts.SkipRows; i++ {
		if _, err := reader.Read(); err != nil {
			if err == io.EOF {
				return 0, nil
			}
			return 0, err
		}
	}

	columns, csvIndices, err := resolveImportColumns(headers, opts.ColumnMapping)
	if err != nil {
		return 0, err
	}

	if opts.CreateTableIfMissing {
		if err := createTableIfMissing(ctx, pool, dialect, opts.TableName, columns); err != nil {
			return 0, errors.Wrap(err, "creating table")
		}
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultImportBatchSize
	}

	insertStmt := buildInsertStatement(dialect, opts.TableName, columns)

	var processed uint64
	batch := make([][]string, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := insertBatch(ctx, pool, insertStmt, csvIndices, batch); err != nil {
			return err
		}
		processed += uint64(len(batch))
		batch = batch[:0]
		if report != nil {
			report(ImportProgress{ImportID: importID, RowsProcessed: processed})
		}
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return processed, err
		}

		batch = append(batch, record)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return processed, err
			}
		}
	}
	if err := flush(); err != nil {
		return processed, err
	}

	if report != nil {
		report(ImportProgress{ImportID: importID, RowsProcessed: processed, Done: true})
	}

	return processed, nil
}

// resolveImportColumns decides, for each destination column, which CSV field index feeds it.
// With no mapping, every header passes through verbatim; a headerless CSV without a mapping
// is rejected with an error.
// With a mapping, a key is matched against the CSV headers first and, failing that, parsed
// as a literal field index - mirroring a user mapping a headerless file by column position.
func resolveImportColumns(headers []string, mapping map[string]string) (columns []string, indices []int, err error) {
	if len(mapping) == 0 {
		if len(headers) == 0 {
			return nil, nil, errors.New("column mapping is required when the CSV has no header row")
		}
		for i, h := range headers {
			columns = append(columns, h)
			indices = append(indices, i)
		}
		return columns, indices, nil
	}

	for csvCol, dbCol := range mapping {
		if idx := indexOf(headers, csvCol); idx >= 0 {
			columns = append(columns, dbCol)
			indices = append(indices, idx)
			continue
		}
		if idx, convErr := parseIndex(csvCol); convErr == nil {
			columns = append(columns, dbCol)
			indices = append(indices, idx)
		}
	}

	if len(columns) == 0 {
		return nil, nil, errors.New("no valid columns found for the given mapping")
	}

	return columns, indices, nil
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}

func parseIndex(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	return n, nil
}

// createTableIfMissing issues "CREATE TABLE IF NOT EXISTS" with every column declared TEXT:
// a CSV has no type information of its own, so the imported table starts untyped and a user
// widens columns afterward if needed.
func createTableIfMissing(ctx context.Context, pool *sqlx.DB, dialect registry.Dialect, table string, columns []string) error {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = query.QuoteIdentifier(dialect, c) + " TEXT"
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", query.QuoteIdentifier(dialect, table), strings.Join(defs, ", "))
	_, err := pool.ExecContext(ctx, stmt)
	return err
}

func buildInsertStatement(dialect registry.Dialect, table string, columns []string) string {
	quotedCols := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quotedCols[i] = query.QuoteIdentifier(dialect, c)
		if dialect == registry.Postgres {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		} else {
			placeholders[i] = "?"
		}
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		query.QuoteIdentifier(dialect, table), strings.Join(quotedCols, ", "), strings.Join(placeholders, ", "))
}

// insertBatch runs stmt once per record in batch inside a single transaction, binding the
// csvIndices-selected fields as parameters.
func insertBatch(ctx context.Context, pool *sqlx.DB, stmt string, csvIndices []int, batch [][]string) error {
	tx, err := pool.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	for _, record := range batch {
		args := make([]any, len(csvIndices))
		for i, idx := range csvIndices {
			if idx < len(record) {
				args[i] = record[idx]
			} else {
				args[i] = ""
			}
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

const sqlDumpProgressInterval = 100

// ImportSQLDump splits dump into individual statements (see SplitSQLDump) and executes them
// one by one against id's connection, reporting progress every sqlDumpProgressInterval
// statements. A failing statement stops the import immediately; statements already committed
// stay applied, matching execute_mutations' own all-or-nothing-per-statement behavior.
func ImportSQLDump(ctx context.Context, reg *registry.Registry, id uuid.UUID, importID string, dump string, report func(ImportProgress)) (uint64, error) {
	pool, _, err := reg.ResolvePool(id)
	if err != nil {
		return 0, err
	}

	statements := SplitSQLDump(dump)

	var executed uint64
	for _, stmt := range statements {
		if _, err := pool.ExecContext(ctx, stmt); err != nil {
			return executed, errors.Wrapf(err, "statement %d failed", executed+1)
		}
		executed++

		if report != nil && executed%sqlDumpProgressInterval == 0 {
			report(ImportProgress{ImportID: importID, RowsProcessed: executed})
		}
	}

	if report != nil {
		report(ImportProgress{ImportID: importID, RowsProcessed: executed, Done: true})
	}

	return executed, nil
}
