package aggregates

import (
	"errors"
	"testing"

	domainagg "github.com/yungbote/dae-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

func TestMapError_Validation(t *testing.T) {
	err := MapError("op", ValidationError("bad input"))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_Conflict(t *testing.T) {
	err := MapError("op", ConflictError("stale"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_NotFound(t *testing.T) {
	err := MapError("op", gorm.ErrRecordNotFound)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_PassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeRetryable, "op", "retry", errors.New("boom"))
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
}

func TestMapError_SQLiteUniqueIsConflict(t *testing.T) {
	err := MapError("op", errors.New("UNIQUE constraint failed: credentials.course_address, credentials.chain_id, credentials.ipfs_cid"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", domainagg.CodeOf(err), err)
	}
	if !IsUniqueViolation(errors.New("ERROR: duplicate key value violates unique constraint")) {
		t.Fatalf("expected postgres duplicate key text to be a unique violation")
	}
	if IsUniqueViolation(errors.New("connection reset")) {
		t.Fatalf("connection error is not a unique violation")
	}
}

func TestMapError_SQLiteBusyIsRetryable(t *testing.T) {
	err := MapError("op", errors.New("database is locked"))
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("expected retryable code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestTaggedErrorsKeepMessage(t *testing.T) {
	err := ValidationError("  missing course ")
	if err.Error() != "missing course" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict) {
		t.Fatalf("tag mismatch")
	}
}
