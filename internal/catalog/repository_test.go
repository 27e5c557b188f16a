package catalog

import (
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

// The repository's column lists have to stay in step with the DDL; a column
// referenced in SQL but absent from the schema only fails at runtime.
func TestSchemaDefinesCategoryColumns(t *testing.T) {
	raw, err := os.ReadFile("../../scripts/schema.sql")
	require.NoError(t, err)

	block := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS categories \((.*?)\);`).FindSubmatch(raw)
	require.NotNil(t, block, "categories table missing from schema")

	for _, col := range []string{"id", "name", "description"} {
		require.Regexp(t, `(?m)^\s*`+col+`\s`, string(block[1]), "categories column %q missing from schema", col)
	}
}

func TestSchemaDefinesProductColumns(t *testing.T) {
	raw, err := os.ReadFile("../../scripts/schema.sql")
	require.NoError(t, err)

	block := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS products \((.*?)\);`).FindSubmatch(raw)
	require.NotNil(t, block, "products table missing from schema")

	for _, col := range []string{"id", "sku", "barcode", "name", "description", "category_id", "price", "quantity", "image", "is_active", "created_at", "updated_at"} {
		require.Regexp(t, `(?m)^\s*`+col+`\s`, string(block[1]), "products column %q missing from schema", col)
	}
}
