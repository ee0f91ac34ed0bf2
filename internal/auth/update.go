package auth

import (
	"fmt"
	"strings"
)

// updateBuilder accumulates column assignments for a single parameterised UPDATE.
// Column names come from code, never from request input.
type updateBuilder struct {
	table   string
	columns []string
	args    []any
}

func newUpdateBuilder(table string) *updateBuilder {
	return &updateBuilder{table: table}
}

func (b *updateBuilder) Set(column string, value any) *updateBuilder {
	b.columns = append(b.columns, column)
	b.args = append(b.args, value)
	return b
}

func (b *updateBuilder) Empty() bool {
	return len(b.columns) == 0
}

// Build renders the statement. updated_at is always refreshed and the key is the last argument.
func (b *updateBuilder) Build(keyColumn string, key any) (string, []any) {
	assignments := make([]string, 0, len(b.columns)+1)
	for i, column := range b.columns {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, i+1))
	}
	assignments = append(assignments, "updated_at = NOW()")

	args := make([]any, 0, len(b.args)+1)
	args = append(args, b.args...)
	args = append(args, key)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		b.table, strings.Join(assignments, ", "), keyColumn, len(args))
	return query, args
}
