package websocket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anjiri1684/talent_booking/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	mu     sync.Mutex
	events []interface{}
	fail   bool
	closed bool
}

func (c *recordingConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.events = append(c.events, v)
	return nil
}

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *recordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *recordingConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestHubBroadcastsPayouts(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	good := &recordingConn{}
	bad := &recordingConn{fail: true}
	hub.Register(&Client{ID: uuid.New(), UserID: uuid.New(), Conn: good})
	hub.Register(&Client{ID: uuid.New(), UserID: uuid.New(), Conn: bad})

	hub.PublishPayout(models.Payout{ID: uuid.New(), Status: models.PayoutProcessing})
	require.Eventually(t, func() bool { return good.count() == 1 }, time.Second, 10*time.Millisecond)
	require.Eventually(t, bad.isClosed, time.Second, 10*time.Millisecond)

	good.mu.Lock()
	ev, ok := good.events[0].(PayoutEvent)
	good.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, "payout.updated", ev.Type)
	assert.Equal(t, models.PayoutProcessing, ev.Payout.Status)

	cancel()
	assert.Eventually(t, good.isClosed, time.Second, 10*time.Millisecond)
}

func TestPublishDoesNotBlockWithoutRunner(t *testing.T) {
	hub := NewHub(nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.PublishPayout(models.Payout{ID: uuid.New()})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PublishPayout blocked")
	}
}

func TestRegisterAfterShutdownDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	live := &Client{ID: uuid.New(), UserID: uuid.New(), Conn: &recordingConn{}}
	hub.Register(live)
	cancel()
	<-stopped

	late := &recordingConn{}
	done := make(chan struct{})
	go func() {
		hub.Unregister(live)
		hub.Register(&Client{ID: uuid.New(), UserID: uuid.New(), Conn: late})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Register/Unregister blocked after Run returned")
	}
	assert.True(t, late.isClosed())
}
