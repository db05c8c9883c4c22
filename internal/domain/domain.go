package domain

import (
	"github.com/yungbote/dae-backend/internal/domain/courses"
	"github.com/yungbote/dae-backend/internal/domain/transactions"
)

type (
	Course         = courses.Course
	CourseKey      = courses.Key
	Credential     = courses.Credential
	UserCredential = courses.UserCredential
	TokenKey       = courses.TokenKey

	PendingTransaction = transactions.PendingTransaction
	PendingAction      = transactions.Action
	Enrollment         = transactions.Enrollment
	TransferPayload    = transactions.TransferPayload
	BurnPayload        = transactions.BurnPayload
)

const (
	ActionCreateCourse        = transactions.ActionCreateCourse
	ActionTransferCredentials = transactions.ActionTransferCredentials
	ActionBurnCredential      = transactions.ActionBurnCredential
)
