package aggregates

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/tripweaver/tripweaver-backend/internal/domain/aggregates"
)

func TestMapErrorNil(t *testing.T) {
	if MapError("op", nil) != nil {
		t.Fatal("nil must map to nil")
	}
}

func TestMapErrorPassesThroughTypedErrors(t *testing.T) {
	orig := domainagg.NewError(domainagg.CodeForbidden, "op", "nope", nil)
	if got := MapError("other_op", orig); got != orig {
		t.Fatalf("typed error must pass through unchanged, got %v", got)
	}
}

func TestMapErrorSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want domainagg.ErrorCode
	}{
		{ValidationError("bad input"), domainagg.CodeValidation},
		{ConflictError("version moved"), domainagg.CodeConflict},
		{RetryableError("try again"), domainagg.CodeRetryable},
		{gorm.ErrRecordNotFound, domainagg.CodeNotFound},
		{context.DeadlineExceeded, domainagg.CodeRetryable},
		{context.Canceled, domainagg.CodeRetryable},
		{errors.New("something else"), domainagg.CodeInternal},
	}
	for _, tc := range cases {
		got := MapError("op", tc.err)
		if !domainagg.IsCode(got, tc.want) {
			t.Errorf("MapError(%v): want code %s, got %v", tc.err, tc.want, got)
		}
	}
}

func TestMapErrorPostgresCodes(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	if !domainagg.IsCode(MapError("op", unique), domainagg.CodeConflict) {
		t.Error("unique violation must map to conflict")
	}
	serialization := &pgconn.PgError{Code: "40001"}
	if !domainagg.IsCode(MapError("op", serialization), domainagg.CodeRetryable) {
		t.Error("serialization failure must map to retryable")
	}
	deadlock := &pgconn.PgError{Code: "40P01"}
	if !domainagg.IsCode(MapError("op", deadlock), domainagg.CodeRetryable) {
		t.Error("deadlock must map to retryable")
	}
	other := &pgconn.PgError{Code: "23503"}
	if !domainagg.IsCode(MapError("op", other), domainagg.CodeInternal) {
		t.Error("unhandled pg error must map to internal")
	}
}
