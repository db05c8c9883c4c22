package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/dae-backend/internal/data/aggregates"
	"github.com/yungbote/dae-backend/internal/observability"
	"github.com/yungbote/dae-backend/internal/platform/logger"
	"github.com/yungbote/dae-backend/internal/services"
)

type Services struct {
	Auth        services.AuthService
	Roles       services.RoleService
	Course      services.CourseService
	Credential  services.CredentialService
	Pending     services.PendingService
	CourseRec   services.CourseReconciler
	TransferRec services.TransferReconciler
	BurnRec     services.BurnReconciler
	Resync      services.ResyncService

	AggregateHooks *aggregates.LogHooks
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	logHooks := aggregates.NewLogHooks(log)
	var hooks aggregates.Hooks = logHooks
	if metrics != nil {
		hooks = aggregates.MultiHooks(logHooks, metrics)
	}
	base := aggregates.BaseDeps{DB: db, Log: log, Hooks: hooks}
	courseAgg := aggregates.NewCourseAggregate(aggregates.CourseAggregateDeps{
		Base:    base,
		Courses: repos.Course,
		Pending: repos.PendingTransaction,
	})
	enrollAgg := aggregates.NewEnrollmentAggregate(aggregates.EnrollmentAggregateDeps{
		Base:            base,
		UserCredentials: repos.UserCredential,
		Pending:         repos.PendingTransaction,
	})

	roles := services.NewRoleService(log, clients.Chains)
	courseRec := services.NewCourseReconciler(log, clients.Chains, clients.Metadata, courseAgg, clients.Locker)
	transferRec := services.NewTransferReconciler(log, clients.Chains, roles, repos.Credential, enrollAgg, clients.Locker)
	burnRec := services.NewBurnReconciler(log, clients.Chains, roles, enrollAgg, clients.Locker)

	return Services{
		Auth:           services.NewAuthService(log, clients.Nonces, cfg.JWTSecretKey, cfg.SessionTTL),
		Roles:          roles,
		Course:         services.NewCourseService(db, log, repos.Course, repos.UserCredential, clients.Chains),
		Credential:     services.NewCredentialService(db, log, repos.Course, repos.Credential, roles),
		Pending:        services.NewPendingService(db, log, repos.PendingTransaction),
		CourseRec:      courseRec,
		TransferRec:    transferRec,
		BurnRec:        burnRec,
		Resync:         services.NewResyncService(log, repos.PendingTransaction, courseRec, transferRec, burnRec, cfg.ResyncConcurrency),
		AggregateHooks: logHooks,
	}
}
