package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"gstaudit/internal/refdata"
	"gstaudit/internal/service"
	"gstaudit/mocks"
)

func TestReloadWorker_Disabled(t *testing.T) {
	refs := new(mocks.MockReferenceService)
	w := service.NewReloadWorker(refs, service.ReloadWorkerConfig{}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker did not return")
	}
	refs.AssertNotCalled(t, "Reload", mock.Anything)
}

func TestReloadWorker_ReloadsUntilCancelled(t *testing.T) {
	refs := new(mocks.MockReferenceService)
	reloaded := make(chan struct{}, 8)
	refs.On("Reload", mock.Anything).Return(refdata.Stats{}, errors.New("bucket unreachable")).Once()
	refs.On("Reload", mock.Anything).Return(refdata.Stats{Version: "v2"}, nil).
		Run(func(mock.Arguments) {
			select {
			case reloaded <- struct{}{}:
			default:
			}
		})

	ctx, cancel := context.WithCancel(context.Background())
	w := service.NewReloadWorker(refs, service.ReloadWorkerConfig{Interval: 5 * time.Millisecond}, zap.NewNop())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never reloaded after a failure")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.GreaterOrEqual(t, len(refs.Calls), 2)
}
