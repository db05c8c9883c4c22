package aggregates

import (
	"context"

	"github.com/yungbote/dae-backend/internal/domain/courses"
)

var EnrollmentAggregateContract = Contract{
	Name:             "Courses.EnrollmentAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Applies observed Issued/burn events to user_credentials and clears the matching " +
		"pending marker in the same transaction.",
}

// EnrollmentAggregate owns user_credentials writes driven by chain events.
type EnrollmentAggregate interface {
	Aggregate

	// RecordMint inserts one row per minted token. Rows already present for the
	// same token are left untouched so replays are harmless.
	RecordMint(ctx context.Context, in RecordMintInput) (RecordMintResult, error)

	// RecordBurn deletes the rows for burned tokens.
	RecordBurn(ctx context.Context, in RecordBurnInput) (RecordBurnResult, error)
}

// RecordMintInput clears the transfer_credentials marker Caller recorded for
// TxHash, if any.
type RecordMintInput struct {
	Rows   []*courses.UserCredential
	TxHash string
	Caller string
}

type RecordMintResult struct {
	Inserted      int
	MarkerCleared bool
}

// RecordBurnInput clears the burn_credential marker Caller recorded for
// TxHash, if any.
type RecordBurnInput struct {
	Keys []courses.TokenKey
	// TxHash is empty for direct deletions that have no marker.
	TxHash string
	Caller string
}

type RecordBurnResult struct {
	Deleted       int
	MarkerCleared bool
}
