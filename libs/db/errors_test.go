package db

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestErrorClassifiers(t *testing.T) {
	exclusion := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23P01"})
	unique := &pgconn.PgError{Code: "23505"}

	if !IsExclusionViolation(exclusion) {
		t.Fatalf("expected wrapped 23P01 to be an exclusion violation")
	}
	if IsExclusionViolation(unique) {
		t.Fatalf("23505 is not an exclusion violation")
	}
	if !IsUniqueViolation(unique) {
		t.Fatalf("expected 23505 to be a unique violation")
	}
	if !IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)) {
		t.Fatalf("expected wrapped ErrNoRows")
	}
}
