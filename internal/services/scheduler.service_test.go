package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	name     string
	schedule Schedule
}

func (j *fakeJob) Name() string { return j.name }

func (j *fakeJob) Execute(_ context.Context) error { return nil }

func (j *fakeJob) Schedule() Schedule { return j.schedule }

func TestSchedulerService_RegistersJobs(t *testing.T) {
	scheduler := NewSchedulerService()

	require.NoError(t, scheduler.AddJob(&fakeJob{name: "hourly-sweep", schedule: Hourly}))
	require.NoError(t, scheduler.AddJob(&fakeJob{name: "daily-sweep", schedule: Daily}))

	assert.Equal(t, 2, scheduler.GetJobCount())
	assert.False(t, scheduler.IsRunning())
	assert.Nil(t, scheduler.GetNextRunTime(), "no next run before start")
}

func TestSchedulerService_StartWithoutJobsIsNoop(t *testing.T) {
	scheduler := NewSchedulerService()

	require.NoError(t, scheduler.Start(context.Background()))
	assert.False(t, scheduler.IsRunning())
}

func TestSchedulerService_StartStop(t *testing.T) {
	scheduler := NewSchedulerService()
	ctx := context.Background()

	require.NoError(t, scheduler.AddJob(&fakeJob{name: "hourly-sweep", schedule: Hourly}))

	require.NoError(t, scheduler.Start(ctx))
	assert.True(t, scheduler.IsRunning())
	require.NoError(t, scheduler.Start(ctx), "second start is idempotent")

	nextRun := scheduler.GetNextRunTime()
	require.NotNil(t, nextRun)
	assert.True(t, nextRun.After(time.Now()), "hourly job should be scheduled in the future")

	require.NoError(t, scheduler.Stop(ctx))
	assert.False(t, scheduler.IsRunning())
	require.NoError(t, scheduler.Stop(ctx), "second stop is idempotent")
}
