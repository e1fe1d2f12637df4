package service

import (
	"context"
	"testing"
	"time"

	"github.com/nsvirk/financeapi/internal/config"
	"github.com/nsvirk/financeapi/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronServiceJobs(t *testing.T) {
	db := newTestDB(t)
	clock := &clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	sessions := repository.NewMemorySessionStoreWithClock(time.Minute, clock.Now)
	cfg := &config.Config{IngestionReportSchedule: "0 6 * * *"}

	cs := NewCronService(cfg, db, sessions)
	require.NotNil(t, cs.sweeper)

	cs.referenceDataSeedJob()
	codes, err := repository.NewBudgetRepository(db).GetBudgetBucketCodes(context.Background())
	require.NoError(t, err)
	assert.Len(t, codes, len(DefaultBudgetBuckets))

	_, err = sessions.Create(context.Background())
	require.NoError(t, err)
	clock.now = clock.now.Add(2 * time.Minute)
	cs.sessionSweepJob()
	assert.Zero(t, sessions.Sweep())

	cs.ingestionReportJob()
}

func TestCronServiceWithoutSweeper(t *testing.T) {
	db := newTestDB(t)
	cfg := &config.Config{IngestionReportSchedule: "0 6 * * *"}

	cs := NewCronService(cfg, db, repository.NewRedisSessionStore(nil, time.Minute))
	assert.Nil(t, cs.sweeper)

	cs.Start()
	assert.Len(t, cs.c.Entries(), 1)
	<-cs.Stop().Done()
}
