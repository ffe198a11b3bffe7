package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agastya-health/clinic-admin/internal/application/services"
	"github.com/agastya-health/clinic-admin/internal/domain/entities"
	"github.com/agastya-health/clinic-admin/internal/domain/providers"
)

func fixedClock(t time.Time) services.Clock {
	return func() time.Time { return t }
}

func TestExpirySweeper_Sweep(t *testing.T) {
	t.Run("uses calendar day and clock time of the clinic zone", func(t *testing.T) {
		repo := new(MockAppointmentRepository)
		bus := NewMockEventBus()
		kolkata := time.FixedZone("IST", 5*3600+1800)

		// 2025-03-14 20:00 UTC is 2025-03-15 01:30 in IST.
		sweeper := services.NewExpirySweeper(repo, bus, nil, kolkata).
			WithClock(fixedClock(time.Date(2025, 3, 14, 20, 0, 0, 0, time.UTC)))

		repo.On("CompleteExpired", mock.Anything, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), "01:30").
			Return([]int64{4, 7}, nil)

		result, err := sweeper.Sweep(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, result.Updated)

		events := bus.Published(providers.EventChannelAppointmentUpdates)
		require.Len(t, events, 1)
		assert.Equal(t, entities.AppointmentEventSwept, events[0].Type)
		assert.Equal(t, 2, events[0].Count)
		repo.AssertExpectations(t)
	})

	t.Run("second run finds nothing and publishes nothing", func(t *testing.T) {
		repo := new(MockAppointmentRepository)
		bus := NewMockEventBus()
		sweeper := services.NewExpirySweeper(repo, bus, nil, time.UTC).
			WithClock(fixedClock(time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)))

		repo.On("CompleteExpired", mock.Anything, march14, "10:00").Return([]int64{3}, nil).Once()
		repo.On("CompleteExpired", mock.Anything, march14, "10:00").Return([]int64{}, nil).Once()

		first, err := sweeper.Sweep(context.Background())
		require.NoError(t, err)
		second, err := sweeper.Sweep(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, first.Updated)
		assert.Equal(t, 0, second.Updated)
		assert.Len(t, bus.Published(providers.EventChannelAppointmentUpdates), 1)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		repo := new(MockAppointmentRepository)
		sweeper := services.NewExpirySweeper(repo, nil, nil, nil)

		repo.On("CompleteExpired", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		_, err := sweeper.Sweep(context.Background())
		assert.Error(t, err)
	})
}

func TestExpirySweeper_Run(t *testing.T) {
	repo := new(MockAppointmentRepository)
	sweeper := services.NewExpirySweeper(repo, nil, nil, time.UTC)

	swept := make(chan struct{}, 1)
	repo.On("CompleteExpired", mock.Anything, mock.Anything, mock.Anything).
		Return([]int64{}, nil).
		Run(func(args mock.Arguments) {
			select {
			case swept <- struct{}{}:
			default:
			}
		})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	select {
	case <-swept:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not run")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestExpirySweeper_RunDisabled(t *testing.T) {
	repo := new(MockAppointmentRepository)
	sweeper := services.NewExpirySweeper(repo, nil, nil, time.UTC)

	sweeper.Run(context.Background(), 0)

	repo.AssertNotCalled(t, "CompleteExpired", mock.Anything, mock.Anything, mock.Anything)
}
