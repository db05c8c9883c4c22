package aggregates

import (
	"context"

	"github.com/yungbote/dae-backend/internal/domain/courses"
)

var CourseAggregateContract = Contract{
	Name:             "Courses.CourseAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Mirrors a confirmed course deployment and clears its create_course marker atomically.",
}

// CourseAggregate owns course creation.
//
// Write failures return *aggregates.Error with CodeValidation, CodeConflict,
// CodeRetryable or CodeInternal.
type CourseAggregate interface {
	Aggregate

	// RecordCreation inserts the course unless (address, chain_id) already
	// exists, in which case the stored row is returned unchanged.
	RecordCreation(ctx context.Context, in RecordCreationInput) (RecordCreationResult, error)
}

type RecordCreationInput struct {
	Course *courses.Course
	TxHash string
	// Caller owns the create_course marker to clear. Markers recorded by other
	// users are left in place.
	Caller string
}

type RecordCreationResult struct {
	Course        *courses.Course
	Created       bool
	MarkerCleared bool
}
