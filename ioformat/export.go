package ioformat

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sqlmate/dbcore/mapper"
	"github.com/sqlmate/dbcore/query"
	"github.com/sqlmate/dbcore/registry"
)

// Format selects the export/import encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatSQL  Format = "sql"
)

// ExportProgress is reported to a ProgressFunc every progressInterval rows, and once more
// with Done set after the last row of a table.
type ExportProgress struct {
	ExportID     string
	CurrentTable string
	RowsExported uint64
	Done         bool
	Err          error
}

// ProgressFunc receives ExportProgress updates; the desktop shell wires this straight to
// its "export-progress" event channel.
type ProgressFunc func(ExportProgress)

const progressInterval = 1000

// ExportTableData streams table's full contents (no LIMIT) to w in the given format, using
// registry to resolve id's pool and mapper to convert values. Progress is reported every
// progressInterval rows via report.
func ExportTableData(ctx context.Context, reg *registry.Registry, id uuid.UUID, exportID, table string, format Format, w io.Writer, report ProgressFunc) (uint64, error) {
	pool, dialect, err := reg.ResolvePool(id)
	if err != nil {
		return 0, err
	}

	stmt := query.BuildTableScan(dialect, table, nil, "", "", -1, 0)
	stmt = trimLimitOffset(stmt)

	rows, err := pool.QueryxContext(ctx, stmt)
	if err != nil {
		return 0, errors.Wrap(err, "can't query table for export")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return 0, err
	}
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = t.DatabaseTypeName()
	}

	mapDialect := mapper.Dialect(dialect)

	switch format {
	case FormatCSV:
		return exportCSV(rows, columns, typeNames, mapDialect, w, exportID, table, report)
	case FormatJSON:
		return exportJSON(rows, columns, typeNames, mapDialect, w, exportID, table, report)
	case FormatSQL:
		return exportSQL(rows, columns, typeNames, mapDialect, table, dialect, w, exportID, report)
	default:
		return 0, errors.Errorf("unsupported export format %q", format)
	}
}

// trimLimitOffset strips the trailing "LIMIT -1 OFFSET 0" BuildTableScan always appends,
// since export wants the unbounded table rather than one page of it.
func trimLimitOffset(stmt string) string {
	const suffix = " LIMIT -1 OFFSET 0"
	if len(stmt) > len(suffix) && stmt[len(stmt)-len(suffix):] == suffix {
		return stmt[:len(stmt)-len(suffix)]
	}
	return stmt
}

type rowsIterator interface {
	Next() bool
	SliceScan() ([]any, error)
	Err() error
}

func exportCSV(rows rowsIterator, columns, typeNames []string, dialect mapper.Dialect, w io.Writer, exportID, table string, report ProgressFunc) (uint64, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return 0, err
	}

	var count uint64
	record := make([]string, len(columns))

	for rows.Next() {
		raw, err := rows.SliceScan()
		if err != nil {
			return count, err
		}

		for i, v := range raw {
			typeName := typeNameAt(typeNames, i)
			record[i] = csvCell(mapper.MapValue(dialect, typeName, v))
		}
		if err := writer.Write(record); err != nil {
			return count, err
		}

		count++
		reportIfDue(report, exportID, table, count, false, nil)
	}
	if err := rows.Err(); err != nil {
		return count, err
	}

	writer.Flush()
	if report != nil {
		report(ExportProgress{ExportID: exportID, CurrentTable: table, RowsExported: count, Done: true})
	}

	return count, writer.Error()
}

func exportJSON(rows rowsIterator, columns, typeNames []string, dialect mapper.Dialect, w io.Writer, exportID, table string, report ProgressFunc) (uint64, error) {
	if _, err := w.Write([]byte("[\n")); err != nil {
		return 0, err
	}

	var count uint64
	enc := json.NewEncoder(w)

	for rows.Next() {
		raw, err := rows.SliceScan()
		if err != nil {
			return count, err
		}

		obj := make(map[string]any, len(columns))
		for i, v := range raw {
			typeName := typeNameAt(typeNames, i)
			obj[columns[i]] = mapper.MapValue(dialect, typeName, v)
		}

		if count > 0 {
			if _, err := w.Write([]byte(",\n")); err != nil {
				return count, err
			}
		}
		if err := enc.Encode(obj); err != nil {
			return count, err
		}

		count++
		reportIfDue(report, exportID, table, count, false, nil)
	}
	if err := rows.Err(); err != nil {
		return count, err
	}

	if _, err := w.Write([]byte("]\n")); err != nil {
		return count, err
	}

	if report != nil {
		report(ExportProgress{ExportID: exportID, CurrentTable: table, RowsExported: count, Done: true})
	}

	return count, nil
}

func exportSQL(rows rowsIterator, columns, typeNames []string, dialect mapper.Dialect, table string, regDialect registry.Dialect, w io.Writer, exportID string, report ProgressFunc) (uint64, error) {
	quotedTable := query.QuoteIdentifier(regDialect, table)

	quotedCols := make([]string, len(columns))
	for i, c := range columns {
		quotedCols[i] = query.QuoteIdentifier(regDialect, c)
	}
	colList := joinComma(quotedCols)

	var count uint64
	values := make([]string, len(columns))

	for rows.Next() {
		raw, err := rows.SliceScan()
		if err != nil {
			return count, err
		}

		for i, v := range raw {
			typeName := typeNameAt(typeNames, i)
			values[i] = sqlLiteral(mapper.MapValue(dialect, typeName, v))
		}

		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);\n", quotedTable, colList, joinComma(values))
		if _, err := w.Write([]byte(stmt)); err != nil {
			return count, err
		}

		count++
		reportIfDue(report, exportID, table, count, false, nil)
	}
	if err := rows.Err(); err != nil {
		return count, err
	}

	if report != nil {
		report(ExportProgress{ExportID: exportID, CurrentTable: table, RowsExported: count, Done: true})
	}

	return count, nil
}

func reportIfDue(report ProgressFunc, exportID, table string, count uint64, done bool, err error) {
	if report == nil {
		return
	}
	if count%progressInterval == 0 {
		report(ExportProgress{ExportID: exportID, CurrentTable: table, RowsExported: count, Done: done, Err: err})
	}
}

func typeNameAt(typeNames []string, i int) string {
	if i < len(typeNames) {
		return typeNames[i]
	}
	return ""
}

func csvCell(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func sqlLiteral(v any) string {
	if v == nil {
		return "NULL"
	}
	switch t := v.(type) {
	case string:
		return "'" + escapeSingleQuotes(t) + "'"
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", t)
	}
}

func escapeSingleQuotes(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\'')
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
