// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/lockledger/event"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func receive(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "event channel closed unexpectedly")
		return evt
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	return event.Event{}
}

func TestEventBusSingleSubscriber(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(event.CycleAdvancedEventType)
	eb.Publish(
		event.CycleAdvancedEventType,
		event.NewEvent(
			event.CycleAdvancedEventType,
			event.CycleAdvancedEvent{Previous: 12, Current: 13, Checkpoint: true},
		),
	)
	evt := receive(t, subCh)
	assert.Equal(t, event.CycleAdvancedEventType, evt.Type)
	data, ok := evt.Data.(event.CycleAdvancedEvent)
	require.True(t, ok, "event data was not CycleAdvancedEvent, got %T", evt.Data)
	assert.Equal(t, uint64(13), data.Current)
	assert.True(t, data.Checkpoint)
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	eb := event.NewEventBus(prometheus.NewRegistry(), nil)
	defer eb.Stop()
	_, sub1Ch := eb.Subscribe(event.DistributorClaimEventType)
	_, sub2Ch := eb.Subscribe(event.DistributorClaimEventType)
	_, otherCh := eb.Subscribe(event.DistributorDepositEventType)
	claim := event.DistributorClaimEvent{
		PositionID: 7,
		Tde:        2,
		Share:      uint256.NewInt(25),
	}
	eb.Publish(
		event.DistributorClaimEventType,
		event.NewEvent(event.DistributorClaimEventType, claim),
	)
	for _, ch := range []<-chan event.Event{sub1Ch, sub2Ch} {
		evt := receive(t, ch)
		assert.Equal(t, claim, evt.Data)
	}
	select {
	case evt := <-otherCh:
		t.Fatalf("unexpected event on other type: %v", evt)
	default:
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	subId, subCh := eb.Subscribe(event.StakingDepositEventType)
	eb.Unsubscribe(event.StakingDepositEventType, subId)
	eb.Publish(
		event.StakingDepositEventType,
		event.NewEvent(event.StakingDepositEventType, nil),
	)
	_, ok := <-subCh
	assert.False(t, ok, "expected closed channel after unsubscribe")
	// Unsubscribing twice is harmless
	eb.Unsubscribe(event.StakingDepositEventType, subId)
}

func TestEventBusSubscribeFunc(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	var count atomic.Int32
	eb.SubscribeFunc(event.PositionCreatedEventType, func(evt event.Event) {
		if _, ok := evt.Data.(event.PositionCreatedEvent); ok {
			count.Add(1)
		}
	})
	for i := range 3 {
		eb.Publish(
			event.PositionCreatedEventType,
			event.NewEvent(
				event.PositionCreatedEventType,
				event.PositionCreatedEvent{PositionID: uint64(i + 1)},
			),
		)
	}
	require.Eventually(
		t,
		func() bool { return count.Load() == 3 },
		time.Second,
		10*time.Millisecond,
	)
	// Stop waits for the handler goroutine to exit
	eb.Stop()
}

func TestEventBusPublishAsync(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	_, subCh := eb.Subscribe(event.StakingClaimEventType)
	require.True(
		t,
		eb.PublishAsync(
			event.StakingClaimEventType,
			event.NewEvent(event.StakingClaimEventType, event.StakingClaimEvent{PositionID: 3}),
		),
	)
	evt := receive(t, subCh)
	assert.Equal(t, uint64(3), evt.Data.(event.StakingClaimEvent).PositionID)
	eb.Stop()
	assert.False(
		t,
		eb.PublishAsync(event.StakingClaimEventType, event.NewEvent(event.StakingClaimEventType, nil)),
	)
	// Stop is idempotent
	eb.Stop()
}

func TestEventBusSlowSubscriberDoesNotBlock(t *testing.T) {
	eb := event.NewEventBus(prometheus.NewRegistry(), nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(event.LockIncreasedEventType)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range event.EventQueueSize * 2 {
			eb.Publish(
				event.LockIncreasedEventType,
				event.NewEvent(event.LockIncreasedEventType, nil),
			)
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Len(t, subCh, event.EventQueueSize)
}

type failingSubscriber struct {
	closed atomic.Bool
	panics bool
}

func (s *failingSubscriber) Deliver(event.Event) error {
	if s.panics {
		panic("boom")
	}
	return errors.New("deliver failed")
}

func (s *failingSubscriber) Close() {
	s.closed.Store(true)
}

func TestEventBusRemovesFailingSubscribers(t *testing.T) {
	eb := event.NewEventBus(prometheus.NewRegistry(), nil)
	defer eb.Stop()
	failing := &failingSubscriber{}
	panicking := &failingSubscriber{panics: true}
	eb.RegisterSubscriber(event.PositionBurnedEventType, failing)
	eb.RegisterSubscriber(event.PositionBurnedEventType, panicking)
	_, okCh := eb.Subscribe(event.PositionBurnedEventType)
	eb.Publish(
		event.PositionBurnedEventType,
		event.NewEvent(event.PositionBurnedEventType, event.PositionBurnedEvent{PositionID: 1}),
	)
	assert.True(t, failing.closed.Load())
	assert.True(t, panicking.closed.Load())
	receive(t, okCh)
}

func TestEventBusPublishStopRace(t *testing.T) {
	for range 100 {
		eb := event.NewEventBus(nil, nil)
		subId, ch := eb.Subscribe(event.CycleAdvancedEventType)
		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := range 10 {
				eb.Publish(
					event.CycleAdvancedEventType,
					event.NewEvent(event.CycleAdvancedEventType, j),
				)
			}
		}()
		go func() {
			defer wg.Done()
			eb.Unsubscribe(event.CycleAdvancedEventType, subId)
			eb.Stop()
		}()
		go func() {
			defer wg.Done()
			for range ch {
			}
		}()
		wg.Wait()
	}
}
