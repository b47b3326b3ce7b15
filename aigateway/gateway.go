package aigateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sqlmate/dbcore/query"
	"github.com/sqlmate/dbcore/registry"
)

// TextToSQL answers the text_to_sql command: it builds a schema description for id's
// connection from exec, then asks client to translate prompt into SQL for that connection's
// dialect.
func TextToSQL(ctx context.Context, reg *registry.Registry, exec *query.Executor, client *Client, id uuid.UUID, prompt string) (string, error) {
	_, dialect, err := reg.ResolvePool(id)
	if err != nil {
		return "", err
	}

	schemaContext, err := BuildSchemaContext(ctx, exec, id)
	if err != nil {
		return "", err
	}

	return client.GenerateSQL(ctx, prompt, schemaContext, string(dialect))
}

// BuildSchemaContext renders every table on id's connection as a "table_name(col type, ...)"
// line, giving the model just enough context to reference real tables and columns.
func BuildSchemaContext(ctx context.Context, exec *query.Executor, id uuid.UUID) (string, error) {
	tables, err := exec.GetTables(ctx, id)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, table := range tables {
		structure, err := exec.GetTableStructure(ctx, id, table)
		if err != nil {
			continue // a single unreadable table shouldn't sink the whole prompt
		}

		colDescs := make([]string, len(structure.Columns))
		for i, c := range structure.Columns {
			colDescs[i] = fmt.Sprintf("%s %s", c.Name, c.Type)
		}

		fmt.Fprintf(&b, "%s(%s)\n", table, strings.Join(colDescs, ", "))
	}

	return b.String(), nil
}
