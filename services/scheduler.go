// services/scheduler.go
package services

import (
	"time"

	"league-run-system/logger"

	"github.com/go-co-op/gocron/v2"
)

// StartHousekeeping schedules the periodic sweeps: idle-queue eviction,
// pending-flow expiry and the daily standings post. Returns the scheduler
// so main can shut it down.
func StartHousekeeping(lifecycle *RunLifecycle, standings *StandingsService, limits *DailyLimitTracker, reportHour, reportMinute int) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(limits.loc))
	if err != nil {
		return nil, err
	}

	// Every 25 minutes: drop players idling in queue past the ceiling.
	_, err = sched.NewJob(
		gocron.DurationJob(25*time.Minute),
		gocron.NewTask(func() {
			lifecycle.EvictIdleQueue()
		}),
	)
	if err != nil {
		return nil, err
	}

	// Every 2 minutes: clear interactive flows nobody finished.
	_, err = sched.NewJob(
		gocron.DurationJob(2*time.Minute),
		gocron.NewTask(func() {
			if n := lifecycle.ExpirePendingRequests(); n > 0 {
				logger.Info("expired pending requests", "count", n)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	// Daily report post, league local time: standings go out only when the
	// archived set changed since the last post.
	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(
			gocron.NewAtTime(uint(reportHour), uint(reportMinute), 0),
		)),
		gocron.NewTask(func() {
			if _, err := standings.PublishDaily(); err != nil {
				logger.Error("daily standings post failed", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
