package db

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsCode(t *testing.T) {
	unique := &pgconn.PgError{Code: CodeUniqueViolation}
	wrapped := fmt.Errorf("insert invoice: %w", unique)

	assert.True(t, IsCode(unique, CodeUniqueViolation))
	assert.True(t, IsCode(wrapped, CodeUniqueViolation))
	assert.False(t, IsCode(wrapped, CodeForeignKeyViolation))
	assert.False(t, IsCode(errors.New("boom"), CodeUniqueViolation))
}

func TestSchemaDeclaresDocumentTables(t *testing.T) {
	ddl := Schema()
	for _, table := range []string{"quotations", "quotation_items", "quotation_terms", "invoices", "invoice_items", "invoice_terms", "document_sequences"} {
		assert.True(t, strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS "+table+" "), table)
	}
	assert.Contains(t, ddl, "invoice_number TEXT NOT NULL UNIQUE")
}
