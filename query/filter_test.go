package query

import (
	"testing"

	"github.com/sqlmate/dbcore/registry"
	"github.com/stretchr/testify/assert"
)

func TestBuildWhereEscaping(t *testing.T) {
	filters := []FilterConfig{
		{Column: "email", Operator: OpContains, Value: "o'brien", Enabled: true},
	}

	got := BuildWhere(filters, registry.Postgres)
	assert.Equal(t, `WHERE "email" LIKE '%o''brien%'`, got)
}

func TestBuildWhereDisabledFilterIgnored(t *testing.T) {
	filters := []FilterConfig{
		{Column: "id", Operator: OpEqual, Value: "1", Enabled: false},
	}
	assert.Equal(t, "", BuildWhere(filters, registry.MySQL))
}

func TestBuildWhereMySQLLikeCoercion(t *testing.T) {
	filters := []FilterConfig{
		{Column: "name", Operator: OpILike, Value: "bob", Enabled: true},
	}
	got := BuildWhere(filters, registry.MySQL)
	assert.Equal(t, "WHERE `name` LIKE 'bob'", got)
}

func TestBuildWhereIsNull(t *testing.T) {
	filters := []FilterConfig{
		{Column: "deleted_at", Operator: OpIsNull, Enabled: true},
	}
	got := BuildWhere(filters, registry.SQLite)
	assert.Equal(t, `WHERE "deleted_at" IS NULL`, got)
}

func TestBuildWhereInVerbatim(t *testing.T) {
	filters := []FilterConfig{
		{Column: "status", Operator: OpIn, Value: "'a','b'", Enabled: true},
	}
	got := BuildWhere(filters, registry.Postgres)
	assert.Equal(t, `WHERE "status" IN ('a','b')`, got)
}

func TestBuildWhereMultipleFiltersAnded(t *testing.T) {
	filters := []FilterConfig{
		{Column: "a", Operator: OpEqual, Value: "1", Enabled: true},
		{Column: "b", Operator: OpEqual, Value: "2", Enabled: true},
	}
	got := BuildWhere(filters, registry.Postgres)
	assert.Equal(t, `WHERE "a" = '1' AND "b" = '2'`, got)
}

func TestBuildOrder(t *testing.T) {
	assert.Equal(t, `ORDER BY "id" DESC`, BuildOrder("id", SortDescending, registry.Postgres))
	assert.Equal(t, "ORDER BY `id` ASC", BuildOrder("id", "", registry.MySQL))
	assert.Equal(t, "", BuildOrder("", SortDescending, registry.Postgres))
}

func TestBuildTableScan(t *testing.T) {
	got := BuildTableScan(registry.Postgres, "users", []FilterConfig{
		{Column: "email", Operator: OpContains, Value: "o'brien", Enabled: true},
	}, "id", SortDescending, 50, 100)

	assert.Equal(t, `SELECT * FROM "users" WHERE "email" LIKE '%o''brien%' ORDER BY "id" DESC LIMIT 50 OFFSET 100`, got)
}

func TestQuoteIdentifierDoublesEmbeddedQuotes(t *testing.T) {
	assert.Equal(t, `"a""b"`, quoteIdentifier(registry.Postgres, `a"b`))
	assert.Equal(t, "`a``b`", quoteIdentifier(registry.MySQL, "a`b"))
}
