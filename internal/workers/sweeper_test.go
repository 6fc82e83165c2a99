package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

type fakeMaintenance struct {
	expires   atomic.Int32
	settles   atomic.Int32
	expireErr error
}

func (f *fakeMaintenance) ExpireStale(context.Context) (int, error) {
	f.expires.Add(1)
	return 2, f.expireErr
}

func (f *fakeMaintenance) SettleOutstanding(context.Context) (int, error) {
	f.settles.Add(1)
	return 0, nil
}

func TestRunOnceRunsBothJobs(t *testing.T) {
	m := &fakeMaintenance{expireErr: errors.New("db down")}
	s := NewSweeper(Config{Interval: time.Minute, Timeout: time.Second}, m, nopLogger{})

	s.RunOnce(context.Background())
	assert.Equal(t, int32(1), m.expires.Load())
	assert.Equal(t, int32(1), m.settles.Load(), "a failing expiry does not skip settlement")
}

func TestSweeperRunsOnSchedule(t *testing.T) {
	m := &fakeMaintenance{}
	s := NewSweeper(Config{Interval: 20 * time.Millisecond}, m, nopLogger{})
	require.NoError(t, s.Init())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return m.settles.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
	s.Stop()
}
