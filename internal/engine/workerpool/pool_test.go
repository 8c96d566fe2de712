package workerpool_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stratum/internal/core/domain"
	"go.trai.ch/stratum/internal/engine/workerpool"
)

func sleepTask(d time.Duration, v int) workerpool.Func[int] {
	return func(context.Context) (int, error) {
		time.Sleep(d)
		return v, nil
	}
}

func TestNew_InvalidWorkers(t *testing.T) {
	_, err := workerpool.New[int](0)
	require.ErrorContains(t, err, domain.ErrPoolConstructionFailed.Error())
}

func TestPool_SubmitBeforeStart(t *testing.T) {
	p, err := workerpool.New[int](2)
	require.NoError(t, err)

	_, err = p.Submit(sleepTask(0, 1), "t1")
	require.ErrorContains(t, err, domain.ErrPoolNotRunning.Error())
}

func TestPool_StartTwice(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p, err := workerpool.New[int](2)
		require.NoError(t, err)

		require.NoError(t, p.Start(t.Context()))
		require.ErrorIs(t, p.Start(t.Context()), domain.ErrPoolAlreadyRunning)
		require.NoError(t, p.Shutdown(true, 0))
	})
}

func TestPool_CapturesOutcomes(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p, err := workerpool.New[int](3)
		require.NoError(t, err)
		require.NoError(t, p.Start(t.Context()))

		ok, err := p.Submit(sleepTask(time.Second, 7), "ok")
		require.NoError(t, err)
		failed, err := p.Submit(func(context.Context) (int, error) {
			return 0, errors.New("bad storey")
		}, "failed")
		require.NoError(t, err)
		panicked, err := p.Submit(func(context.Context) (int, error) {
			panic("boom")
		}, "panicked")
		require.NoError(t, err)

		rec, err := ok.Wait(t.Context())
		require.NoError(t, err)
		assert.True(t, rec.Success)
		assert.Equal(t, 7, rec.Result)
		assert.Equal(t, "ok", rec.TaskID)
		assert.True(t, strings.HasPrefix(rec.WorkerID, "worker-"))
		assert.Equal(t, time.Second, rec.Duration())

		rec, err = failed.Wait(t.Context())
		require.NoError(t, err)
		assert.False(t, rec.Success)
		require.ErrorContains(t, rec.Err, "bad storey")

		rec, err = panicked.Wait(t.Context())
		require.NoError(t, err)
		assert.False(t, rec.Success)
		require.ErrorContains(t, rec.Err, domain.ErrTaskPanicked.Error())

		require.NoError(t, p.Shutdown(true, 0))
		assert.Len(t, p.Results(), 3)
	})
}

func TestPool_WaitForCompletion(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p, err := workerpool.New[int](1)
		require.NoError(t, err)
		require.NoError(t, p.Start(t.Context()))

		assert.True(t, p.WaitForCompletion(time.Millisecond), "an idle pool is complete")

		_, err = p.Submit(sleepTask(time.Second, 1), "slow")
		require.NoError(t, err)

		assert.False(t, p.WaitForCompletion(500*time.Millisecond), "pending work remains")
		assert.Equal(t, 1, p.Pending())

		assert.True(t, p.WaitForCompletion(time.Second))
		assert.Equal(t, 0, p.Pending())

		require.NoError(t, p.Shutdown(true, 0))
	})
}

func TestPool_Statistics(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p, err := workerpool.New[int](2)
		require.NoError(t, err)
		require.NoError(t, p.Start(t.Context()))

		_, err = p.Submit(sleepTask(3*time.Second, 1), "long")
		require.NoError(t, err)
		_, err = p.Submit(sleepTask(time.Second, 2), "short")
		require.NoError(t, err)

		require.True(t, p.WaitForCompletion(0))
		require.NoError(t, p.Shutdown(true, 0))

		stats := p.Statistics()
		assert.Equal(t, 2, stats.Workers)
		assert.Equal(t, 2, stats.Submitted)
		assert.Equal(t, 2, stats.Completed)
		assert.Equal(t, 0, stats.Pending)
		assert.Equal(t, 2, stats.Succeeded)
		assert.Equal(t, 0, stats.Failed)
		assert.Equal(t, 4*time.Second, stats.TotalDuration)
		assert.Equal(t, 2*time.Second, stats.AverageDuration)

		require.Len(t, stats.WorkerUtilization, 2)
		var utilization []float64
		for _, u := range stats.WorkerUtilization {
			utilization = append(utilization, u)
		}
		slices.Sort(utilization)
		assert.InDelta(t, 100.0/3, utilization[0], 1e-9)
		assert.InDelta(t, 100.0, utilization[1], 1e-9)
	})
}

func TestPool_IdleWorkersHaveZeroUtilization(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p, err := workerpool.New[int](3)
		require.NoError(t, err)
		require.NoError(t, p.Start(t.Context()))
		require.NoError(t, p.Shutdown(true, 0))

		stats := p.Statistics()
		assert.Equal(t, map[string]float64{"worker-0": 0, "worker-1": 0, "worker-2": 0}, stats.WorkerUtilization)
		assert.Zero(t, stats.AverageDuration)
	})
}

func TestPool_ShutdownWithoutWaitAbandonsQueuedTasks(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p, err := workerpool.New[int](1)
		require.NoError(t, err)
		require.NoError(t, p.Start(t.Context()))

		release := make(chan struct{})
		running, err := p.Submit(func(context.Context) (int, error) {
			<-release
			return 1, nil
		}, "running")
		require.NoError(t, err)
		synctest.Wait()

		queued := make([]*workerpool.Future[int], 0, 2)
		for _, id := range []string{"queued-1", "queued-2"} {
			f, err := p.Submit(sleepTask(0, 2), id)
			require.NoError(t, err)
			queued = append(queued, f)
		}

		require.NoError(t, p.Shutdown(false, 0))

		for _, f := range queued {
			rec, err := f.Wait(t.Context())
			require.NoError(t, err)
			assert.False(t, rec.Success)
			require.ErrorContains(t, rec.Err, domain.ErrPoolShutdown.Error())
		}

		_, err = p.Submit(sleepTask(0, 3), "late")
		require.ErrorContains(t, err, domain.ErrPoolNotRunning.Error())

		close(release)
		rec, err := running.Wait(t.Context())
		require.NoError(t, err)
		assert.True(t, rec.Success, "running task finishes on its own")

		stats := p.Statistics()
		assert.Equal(t, 1, stats.Succeeded)
		assert.Equal(t, 2, stats.Failed)
	})
}

func TestPool_ShutdownTimeout(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p, err := workerpool.New[int](1)
		require.NoError(t, err)
		require.NoError(t, p.Start(t.Context()))

		release := make(chan struct{})
		f, err := p.Submit(func(context.Context) (int, error) {
			<-release
			return 1, nil
		}, "stuck")
		require.NoError(t, err)
		synctest.Wait()

		queued := make([]*workerpool.Future[int], 0, 6)
		for i := range 6 {
			q, err := p.Submit(sleepTask(0, i), fmt.Sprintf("queued-%d", i))
			require.NoError(t, err)
			queued = append(queued, q)
		}

		err = p.Shutdown(true, time.Second)
		require.ErrorContains(t, err, domain.ErrPoolShutdownTimeout.Error())

		for _, q := range queued {
			rec, err := q.Wait(t.Context())
			require.NoError(t, err)
			require.ErrorContains(t, rec.Err, domain.ErrPoolShutdown.Error())
		}
		assert.Equal(t, 1, p.Pending(), "only the stuck task is left")

		close(release)
		rec, err := f.Wait(t.Context())
		require.NoError(t, err)
		assert.True(t, rec.Success)
		assert.True(t, p.WaitForCompletion(time.Second))
		assert.Equal(t, 0, p.Pending())
		synctest.Wait()
	})
}

func TestPool_SubmitAfterStartContextCanceled(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p, err := workerpool.New[int](1, workerpool.WithQueueSize(1))
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(t.Context())
		require.NoError(t, p.Start(ctx))
		cancel()
		synctest.Wait()

		var accepted []*workerpool.Future[int]
		rejected := 0
		for i := range 3 {
			f, err := p.Submit(sleepTask(0, i), fmt.Sprintf("late-%d", i))
			if err != nil {
				require.ErrorContains(t, err, domain.ErrPoolShutdown.Error())
				rejected++
				continue
			}
			accepted = append(accepted, f)
		}
		assert.GreaterOrEqual(t, rejected, 2, "a full queue never blocks once the workers are gone")

		require.NoError(t, p.Shutdown(true, 0))
		for _, f := range accepted {
			rec, err := f.Wait(t.Context())
			require.NoError(t, err)
			require.ErrorContains(t, rec.Err, domain.ErrPoolShutdown.Error())
		}
		assert.Equal(t, 0, p.Pending())
	})
}

func TestPool_RestartResetsCounters(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p, err := workerpool.New[int](2)
		require.NoError(t, err)

		require.NoError(t, p.Start(t.Context()))
		_, err = p.Submit(sleepTask(time.Second, 1), "first")
		require.NoError(t, err)
		require.NoError(t, p.Shutdown(true, 0))
		require.Len(t, p.Results(), 1)

		require.NoError(t, p.Start(t.Context()))
		assert.Empty(t, p.Results())
		assert.Equal(t, 0, p.Statistics().Submitted)
		require.NoError(t, p.Shutdown(true, 0))
	})
}

func TestPool_RestartIgnoresTasksFromPreviousRun(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p, err := workerpool.New[int](1)
		require.NoError(t, err)
		require.NoError(t, p.Start(t.Context()))

		release := make(chan struct{})
		old, err := p.Submit(func(context.Context) (int, error) {
			<-release
			return 1, nil
		}, "old")
		require.NoError(t, err)
		synctest.Wait()

		require.NoError(t, p.Shutdown(false, 0))
		require.NoError(t, p.Start(t.Context()))

		close(release)
		rec, err := old.Wait(t.Context())
		require.NoError(t, err)
		assert.True(t, rec.Success)
		synctest.Wait()

		assert.Equal(t, 0, p.Pending())
		assert.Empty(t, p.Results())
		assert.Equal(t, 0, p.Statistics().Completed)
		assert.True(t, p.WaitForCompletion(time.Second))

		fresh, err := p.Submit(sleepTask(time.Second, 2), "fresh")
		require.NoError(t, err)
		require.NoError(t, p.Shutdown(true, 0))
		assert.Equal(t, 2, fresh.Record().Result)
		assert.Len(t, p.Results(), 1)
	})
}

func TestFuture_WaitHonoursContext(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p, err := workerpool.New[int](1)
		require.NoError(t, err)
		require.NoError(t, p.Start(t.Context()))

		f, err := p.Submit(sleepTask(time.Minute, 1), "slow")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(t.Context(), time.Second)
		defer cancel()
		_, err = f.Wait(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		<-f.Done()
		require.NoError(t, p.Shutdown(true, 0))
	})
}

func TestPool_Metrics(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m, err := workerpool.NewMetrics(reg)
		require.NoError(t, err)

		p, err := workerpool.New[int](2, workerpool.WithMetrics(m))
		require.NoError(t, err)
		require.NoError(t, p.Start(t.Context()))

		_, err = p.Submit(sleepTask(time.Millisecond, 1), "ok")
		require.NoError(t, err)
		_, err = p.Submit(func(context.Context) (int, error) {
			return 0, errors.New("nope")
		}, "bad")
		require.NoError(t, err)
		require.NoError(t, p.Shutdown(true, 0))

		expected := `
# HELP stratum_workerpool_tasks_total Total number of tasks finished, by status
# TYPE stratum_workerpool_tasks_total counter
stratum_workerpool_tasks_total{status="failure"} 1
stratum_workerpool_tasks_total{status="success"} 1
# HELP stratum_workerpool_pending_tasks Tasks submitted but not yet finished
# TYPE stratum_workerpool_pending_tasks gauge
stratum_workerpool_pending_tasks 0
`
		require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
			"stratum_workerpool_tasks_total", "stratum_workerpool_pending_tasks"))
	})
}
