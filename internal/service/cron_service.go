// Package service contains the service layer for the Finance API
package service

import (
	"context"
	"time"

	"github.com/nsvirk/financeapi/internal/config"
	"github.com/nsvirk/financeapi/internal/repository"
	"github.com/nsvirk/financeapi/pkg/utils/zaplogger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// sessionSweeper is implemented by session stores that do not expire entries on their own
type sessionSweeper interface {
	Sweep() int
}

// CronService is the service for the cron jobs
type CronService struct {
	cfg              *config.Config
	c                *cron.Cron
	referenceService *ReferenceService
	transactions     *repository.TransactionRepository
	sweeper          sessionSweeper
	now              func() time.Time
}

// NewCronService creates a new CronService
func NewCronService(cfg *config.Config, db *gorm.DB, sessions repository.SessionStore) *CronService {
	cs := &CronService{
		cfg:              cfg,
		c:                cron.New(),
		referenceService: NewReferenceService(db),
		transactions:     repository.NewTransactionRepository(db),
		now:              time.Now,
	}
	if sweeper, ok := sessions.(sessionSweeper); ok {
		cs.sweeper = sweeper
	}
	return cs
}

// Start starts the cron service
func (cs *CronService) Start() {
	zaplogger.Info("Initializing CronService")

	// ------------------------------------------------------------
	// SCHEDULED jobs
	// ------------------------------------------------------------
	cs.addScheduledJob("Ingestion REPORT Job", cs.ingestionReportJob, cs.cfg.IngestionReportSchedule)
	if cs.sweeper != nil {
		cs.addScheduledJob("Session SWEEP Job", cs.sessionSweepJob, "*/5 * * * *") // Every 5 minutes
	}

	// ------------------------------------------------------------
	// STARTUP jobs
	// ------------------------------------------------------------
	cs.addStartupJob("ReferenceData SEED Job", cs.referenceDataSeedJob, 1*time.Second)
	// ------------------------------------------------------------

	cs.c.Start()
}

// Stop stops the scheduler and waits for running jobs
func (cs *CronService) Stop() context.Context {
	return cs.c.Stop()
}

// addStartupJob adds a startup job to the cron service
func (cs *CronService) addStartupJob(name string, job func(), delay time.Duration) {
	go func() {
		time.Sleep(delay)
		zaplogger.Info("STARTED STARTUP job", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED STARTUP job", zaplogger.Fields{
			"job": name,
		})
	}()
	zaplogger.Info("QUEUED STARTUP job", zaplogger.Fields{
		"job": name,
	})
}

func (cs *CronService) addScheduledJob(name string, job func(), schedule string) {
	_, err := cs.c.AddFunc(schedule, func() {
		zaplogger.Info("STARTED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
	})
	if err != nil {
		zaplogger.Error("FAILED TO QUEUE SCHEDULED JOB", zaplogger.Fields{
			"job":   name,
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info("QUEUED SCHEDULED job", zaplogger.Fields{
		"job": name,
	})
}

// referenceDataSeedJob inserts the default budget buckets and MCC codes
func (cs *CronService) referenceDataSeedJob() {
	jobName := "ReferenceData SEED Job "

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	buckets, codes, err := cs.referenceService.SeedReferenceData(ctx)
	if err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info(jobName, zaplogger.Fields{
		"buckets_inserted":   buckets,
		"mcc_codes_inserted": codes,
	})
}

// ingestionReportJob logs how many transactions were stored in the last 24 hours
func (cs *CronService) ingestionReportJob() {
	jobName := "Ingestion REPORT Job "

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	since := cs.now().Add(-24 * time.Hour)
	count, err := cs.transactions.CountIngestedSince(ctx, since)
	if err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info(jobName, zaplogger.Fields{
		"since":                 since.Format(time.RFC3339),
		"transactions_ingested": count,
	})
}

// sessionSweepJob removes expired sessions from an in-memory store
func (cs *CronService) sessionSweepJob() {
	removed := cs.sweeper.Sweep()
	zaplogger.Debug("Session SWEEP Job ", zaplogger.Fields{
		"sessions_removed": removed,
	})
}
