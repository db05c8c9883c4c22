package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/dae-backend/internal/data/repos"
	"github.com/yungbote/dae-backend/internal/platform/logger"
)

type Repos struct {
	Course             repos.CourseRepo
	Credential         repos.CredentialRepo
	UserCredential     repos.UserCredentialRepo
	PendingTransaction repos.PendingTransactionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Course:             repos.NewCourseRepo(db, log),
		Credential:         repos.NewCredentialRepo(db, log),
		UserCredential:     repos.NewUserCredentialRepo(db, log),
		PendingTransaction: repos.NewPendingTransactionRepo(db, log),
	}
}
