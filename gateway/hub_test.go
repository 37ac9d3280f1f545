package gateway

import (
	"sync"
	"testing"

	"github.com/euphoria-gg/betledger/events"
)

func TestClientWithoutFiltersReceivesEverything(t *testing.T) {
	c := &Client{}
	if !c.wants(events.EventBet) || !c.wants(events.EventPaused) {
		t.Error("client with no filters should receive every event type")
	}
}

func TestClientSubscribeAndUnsubscribeFrames(t *testing.T) {
	c := &Client{}

	c.handleMessage([]byte(`{"type":"subscribe","event_types":["bet","match_finished"]}`))
	if !c.wants(events.EventBet) || !c.wants(events.EventMatchFinished) {
		t.Error("subscribed types not delivered")
	}
	if c.wants(events.EventPaused) {
		t.Error("unsubscribed type delivered")
	}

	c.handleMessage([]byte(`{"type":"unsubscribe"}`))
	if !c.wants(events.EventPaused) {
		t.Error("unsubscribe should restore delivery of everything")
	}
}

func TestClientIgnoresMalformedFrame(t *testing.T) {
	c := &Client{}
	c.handleMessage([]byte(`{"type":"subscribe","event_types":["bet"]}`))
	c.handleMessage([]byte(`{not json`))
	if !c.wants(events.EventBet) || c.wants(events.EventPaused) {
		t.Error("malformed frame changed the filter set")
	}
}

// Control frames arrive on the client's read goroutine while the hub's
// broadcast loop consults the filter set; the two must not race.
func TestClientFilterUpdateConcurrentWithBroadcast(t *testing.T) {
	c := &Client{}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.handleMessage([]byte(`{"type":"subscribe","event_types":["bet"]}`))
			c.handleMessage([]byte(`{"type":"unsubscribe"}`))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.wants(events.EventBet)
			c.wants(events.EventMatchFinished)
		}
	}()
	wg.Wait()
}
