package jobs

import (
	"context"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/services"
	"github.com/sirupsen/logrus"
)

// IPOSyncer runs one IPO calendar sync. services.IPOSyncService implements it.
type IPOSyncer interface {
	Sync(ctx context.Context) (*services.SyncResult, error)
}

// IPOSyncJob refreshes the IPO registry from the calendar providers on a
// fixed interval.
type IPOSyncJob struct {
	Syncer     IPOSyncer
	Interval   time.Duration
	RunTimeout time.Duration
}

func NewIPOSyncJob(syncer IPOSyncer, interval time.Duration) *IPOSyncJob {
	return &IPOSyncJob{
		Syncer:     syncer,
		Interval:   interval,
		RunTimeout: 15 * time.Minute,
	}
}

// Start runs the job immediately and then on every tick until ctx is done.
// The returned channel is closed once the loop has exited.
func (j *IPOSyncJob) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	logrus.WithField("interval", j.Interval).Info("Starting IPO Sync Job")

	go func() {
		defer close(done)
		ticker := time.NewTicker(j.Interval)
		defer ticker.Stop()

		j.Run(ctx)
		for {
			select {
			case <-ctx.Done():
				logrus.Info("IPO Sync Job stopped")
				return
			case <-ticker.C:
				j.Run(ctx)
			}
		}
	}()
	return done
}

// Run performs a single sync bounded by RunTimeout.
func (j *IPOSyncJob) Run(ctx context.Context) {
	startTime := time.Now()
	logrus.Info("Running IPO Sync Job...")

	runCtx, cancel := context.WithTimeout(ctx, j.RunTimeout)
	defer cancel()

	result, err := j.Syncer.Sync(runCtx)
	if err != nil {
		logrus.Errorf("IPO Sync Job failed: %v", err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"source":   result.Source,
		"created":  result.Created,
		"updated":  result.Updated,
		"total":    result.Total,
		"duration": time.Since(startTime),
	}).Info("IPO Sync Job completed successfully")
}
