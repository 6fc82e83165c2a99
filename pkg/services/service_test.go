package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeService struct {
	name    string
	initErr error
	rec     *recorder
}

func (f *fakeService) Init() error {
	f.rec.add("init " + f.name)
	return f.initErr
}

func (f *fakeService) Run(context.Context) {}

func (f *fakeService) Stop() {
	f.rec.add("stop " + f.name)
}

func TestManagerStopsInReverseOrder(t *testing.T) {
	rec := &recorder{}
	m := NewManager(nopLogger{})
	m.AddService(&fakeService{name: "a", rec: rec}, &fakeService{name: "b", rec: rec})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, m.Run(ctx))
	assert.Equal(t, []string{"init a", "init b", "stop b", "stop a"}, rec.snapshot())
}

func TestManagerInitFailureStopsStarted(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	m := NewManager(nopLogger{})
	m.AddService(
		&fakeService{name: "a", rec: rec},
		&fakeService{name: "b", rec: rec, initErr: boom},
		&fakeService{name: "c", rec: rec},
	)

	err := m.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"init a", "init b", "stop a"}, rec.snapshot())
}
