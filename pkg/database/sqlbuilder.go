package database

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

// Upsert appends ON CONFLICT (columns) DO UPDATE SET col = EXCLUDED.col for
// each of updateCols to ib.
func Upsert(ib *sqlbuilder.InsertBuilder, conflict []string, updateCols ...string) *sqlbuilder.InsertBuilder {
	sets := make([]string, 0, len(updateCols))
	for _, col := range updateCols {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	ib.SQL(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(conflict, ", "), strings.Join(sets, ", ")))
	return ib
}
