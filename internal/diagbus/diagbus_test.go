package diagbus

import (
	"testing"
	"time"
)

const (
	TopicZone  = "zone"
	TopicPower = "power"
)

func TestBasicPublish(t *testing.T) {
	f := NewFabric(4)
	sink := f.NewSink("test")

	feed := sink.Subscribe(T(TopicZone, TopicPower))
	sink.Publish(T(TopicZone, TopicPower), "ON", false)

	select {
	case got := <-feed.Channel():
		if got.Payload.(string) != "ON" {
			t.Errorf("expected payload ON, got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for report")
	}
}

func TestRetainedReport(t *testing.T) {
	f := NewFabric(2)
	sink := f.NewSink("test")

	sink.Publish(T(TopicZone, TopicPower), "TRANS_ON", true)

	feed := sink.Subscribe(T(TopicZone, TopicPower))
	select {
	case got := <-feed.Channel():
		if got.Payload.(string) != "TRANS_ON" {
			t.Errorf("expected retained payload TRANS_ON, got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for retained report")
	}
}

func TestWildcardSingleLevel(t *testing.T) {
	f := NewFabric(16)
	sink := f.NewSink("test")

	feed := sink.Subscribe(T(TopicZone, "+", TopicPower))
	sink.Publish(T(TopicZone, "3", TopicPower), "ON", false)

	select {
	case got := <-feed.Channel():
		if got.Payload.(string) != "ON" {
			t.Errorf("expected payload ON, got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for wildcard report")
	}
}

func TestSlowObserverDropsOldest(t *testing.T) {
	f := NewFabric(1)
	sink := f.NewSink("test")
	feed := sink.Subscribe(T(TopicZone))

	sink.Publish(T(TopicZone), 1, false)
	sink.Publish(T(TopicZone), 2, false)

	select {
	case got := <-feed.Channel():
		if got.Payload.(int) != 2 {
			t.Errorf("expected latest payload 2 after drop, got %v", got.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for report")
	}
}

func TestUnsubscribePrunesTrie(t *testing.T) {
	f := NewFabric(4)
	sink := f.NewSink("test")
	feed := sink.Subscribe(T(TopicZone, TopicPower))
	feed.Close()

	if len(f.root.children) != 0 {
		t.Errorf("expected trie pruned after unsubscribe, got %d root children", len(f.root.children))
	}
}
