package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/dae-backend/internal/data/repos/courses"
	"github.com/yungbote/dae-backend/internal/data/repos/transactions"
	"github.com/yungbote/dae-backend/internal/platform/logger"
)

type CourseRepo = courses.CourseRepo
type CourseListFilter = courses.CourseListFilter
type CourseMetadataUpdate = courses.CourseMetadataUpdate
type CredentialRepo = courses.CredentialRepo
type UserCredentialRepo = courses.UserCredentialRepo

type PendingTransactionRepo = transactions.PendingTransactionRepo
type MarkerKey = transactions.MarkerKey

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return courses.NewCourseRepo(db, baseLog)
}
func NewCredentialRepo(db *gorm.DB, baseLog *logger.Logger) CredentialRepo {
	return courses.NewCredentialRepo(db, baseLog)
}
func NewUserCredentialRepo(db *gorm.DB, baseLog *logger.Logger) UserCredentialRepo {
	return courses.NewUserCredentialRepo(db, baseLog)
}

func NewPendingTransactionRepo(db *gorm.DB, baseLog *logger.Logger) PendingTransactionRepo {
	return transactions.NewPendingTransactionRepo(db, baseLog)
}
