package connection

import (
	"reflect"
	"testing"
)

func TestRegistry_SubscribeUnsubscribe(t *testing.T) {
	r := NewRegistry()

	r.Subscribe("miners")
	r.Subscribe("alerts")
	r.Subscribe("miners") // duplicate is a no-op

	if got := r.Topics(); !reflect.DeepEqual(got, []string{"alerts", "miners"}) {
		t.Errorf("Topics = %v, want [alerts miners]", got)
	}

	r.Unsubscribe("miners")
	if got := r.Topics(); !reflect.DeepEqual(got, []string{"alerts"}) {
		t.Errorf("Topics = %v, want [alerts]", got)
	}

	r.Unsubscribe("never-subscribed")
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegistry_EmptyTopicIgnored(t *testing.T) {
	r := NewRegistry()
	r.Subscribe("")

	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestRegistry_TopicsSorted(t *testing.T) {
	r := NewRegistry()
	for _, topic := range []string{"system", "alerts", "miners"} {
		r.Subscribe(topic)
	}

	want := []string{"alerts", "miners", "system"}
	if got := r.Topics(); !reflect.DeepEqual(got, want) {
		t.Errorf("Topics = %v, want %v", got, want)
	}
}

func TestRegistry_TopicsOnEmpty(t *testing.T) {
	r := NewRegistry()

	got := r.Topics()
	if len(got) != 0 {
		t.Errorf("Topics = %v, want empty", got)
	}
}
