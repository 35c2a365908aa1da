package sqlite

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
)

var (
	//go:embed schema.sql
	schema string

	commentRegex = regexp.MustCompile(`--[^\n]*`)
)

// createSchema runs each statement of schema.sql. The statements are
// idempotent, so it is safe on an existing database.
func createSchema(db *sqlx.DB) error {
	for n, statement := range strings.Split(schema, ";") {
		statement = strings.TrimSpace(commentRegex.ReplaceAllString(statement, ""))
		if statement == "" {
			continue
		}
		if _, err := db.Exec(statement); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", n+1, err)
		}
	}
	return nil
}
