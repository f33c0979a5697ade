package runner

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBackup struct {
	mu sync.Mutex

	openFunc func(ctx context.Context) error
	waitFunc func(ctx context.Context) error
	calls    []string
}

func (m *mockBackup) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockBackup) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockBackup) GetBackupList(context.Context) ([]models.BackupRecord, error) {
	return nil, nil
}

func (m *mockBackup) DeleteBackup(context.Context, string) error { return nil }

func (m *mockBackup) DeleteAllBackups(context.Context) (int, error) { return 0, nil }

func (m *mockBackup) RestoreBackup(context.Context, string) error { return nil }

func (m *mockBackup) PerformManualBackup(context.Context) (*models.CaptureResult, error) {
	return nil, nil
}

func (m *mockBackup) StartAutoBackup(context.Context, int) error { return nil }

func (m *mockBackup) StopAutoBackup() { m.record("stop") }

func (m *mockBackup) RestartWithNewInterval(context.Context, int) error { return nil }

func (m *mockBackup) FormatTimeUntilNextBackup() string { return "30:00" }

func (m *mockBackup) BackupOnWorkspaceExitIfNeeded(ctx context.Context) {
	if ctx.Err() != nil {
		m.record("exit-cancelled")
		return
	}
	m.record("exit")
}

func (m *mockBackup) WaitForIdle(ctx context.Context) error {
	if m.waitFunc != nil {
		if err := m.waitFunc(ctx); err != nil {
			return err
		}
	}
	m.record("idle")
	return nil
}

func (m *mockBackup) Settings(context.Context) (models.BackupSettings, error) {
	return models.BackupSettings{}, nil
}

func (m *mockBackup) UpdateSettings(_ context.Context, bs models.BackupSettings) (models.BackupSettings, error) {
	return bs, nil
}

func (m *mockBackup) OnWorkspaceOpened(ctx context.Context) error {
	m.record("open")
	if m.openFunc != nil {
		return m.openFunc(ctx)
	}
	return nil
}

func (m *mockBackup) Status() models.SchedulerStatus {
	return models.SchedulerStatus{Running: true, Interval: 30 * time.Minute}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestRun_LifecycleWithoutHTTP(t *testing.T) {
	svc := &mockBackup{}
	r := New(zerolog.New(io.Discard), svc, nil, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"open", "stop", "exit", "idle"}, svc.Calls())
}

func TestRun_ExitBackupSurvivesCancelledContext(t *testing.T) {
	svc := &mockBackup{}
	r := New(zerolog.New(io.Discard), svc, nil, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, r.Run(ctx))
	assert.NotContains(t, svc.Calls(), "exit-cancelled")
}

func TestRun_OpenFailure(t *testing.T) {
	svc := &mockBackup{
		openFunc: func(ctx context.Context) error { return errors.New("settings unavailable") },
	}
	r := New(zerolog.New(io.Discard), svc, nil, "")

	err := r.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening workspace")
	assert.Equal(t, []string{"open"}, svc.Calls())
}

func TestRun_ServesHTTPUntilCancelled(t *testing.T) {
	svc := &mockBackup{}
	addr := freeAddr(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r := NewWithTimeout(zerolog.New(io.Discard), svc, handler, addr, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusTeapot
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Equal(t, []string{"open", "stop", "exit", "idle"}, svc.Calls())

	_, err := http.Get("http://" + addr + "/")
	assert.Error(t, err)
}

func TestRun_ListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	svc := &mockBackup{}
	handler := http.NotFoundHandler()
	r := New(zerolog.New(io.Discard), svc, handler, ln.Addr().String())

	err = r.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "listening on")
	assert.Equal(t, []string{"open", "stop"}, svc.Calls())
}

func TestRun_WaitsForInFlightCapture(t *testing.T) {
	release := make(chan struct{})
	svc := &mockBackup{
		waitFunc: func(ctx context.Context) error {
			select {
			case <-release:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
	r := New(zerolog.New(io.Discard), svc, nil, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-done:
		t.Fatal("runner returned while a capture was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"open", "stop", "exit", "idle"}, svc.Calls())
}

func TestRun_InFlightWaitBoundedByShutdownTimeout(t *testing.T) {
	svc := &mockBackup{
		waitFunc: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	r := NewWithTimeout(zerolog.New(io.Discard), svc, nil, "", 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, r.Run(ctx))
	assert.Equal(t, []string{"open", "stop", "exit"}, svc.Calls())
}
