package errors

import (
	stdErrors "errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestDiagnoseTypedError(t *testing.T) {
	cause := stdErrors.New("duplicate key value")
	err := Wrap(CodeConflict, cause, "create coupon")

	diag := Diagnose(err)
	if diag.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", diag.Code)
	}
	if len(diag.Chain) < 2 {
		t.Fatalf("expected unwrap chain, got %v", diag.Chain)
	}
	if diag.PG != nil {
		t.Fatalf("non-postgres cause must not carry pg detail, got %+v", diag.PG)
	}
}

func TestDiagnosePostgresCause(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		Message:        "duplicate key value violates unique constraint",
		ConstraintName: "coupons_code_key",
		TableName:      "coupons",
	}
	err := Wrap(CodeConflict, pgErr, "create coupon")

	diag := Diagnose(err)
	if diag.PG == nil {
		t.Fatal("expected pg detail for a pgconn cause")
	}
	if diag.PG.Code != "23505" || diag.PG.Constraint != "coupons_code_key" {
		t.Fatalf("unexpected pg detail %+v", diag.PG)
	}
}

func TestDiagnoseNil(t *testing.T) {
	diag := Diagnose(nil)
	if diag.Message != "" || diag.Code != "" || diag.Chain != nil || diag.PG != nil {
		t.Fatalf("expected zero diagnostic, got %+v", diag)
	}
}
