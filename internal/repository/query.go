package repository

import (
	"fmt"
	"strings"
)

// whereBuilder accumulates AND-combined conditions with positional args.
// Each clause references its argument as %[1]s, which is rewritten to the
// next $n placeholder.
type whereBuilder struct {
	clauses []string
	args    []interface{}
}

func (w *whereBuilder) add(clause string, arg interface{}) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(clause, fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereBuilder) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps s for a substring ILIKE match, escaping wildcards
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
