package events

import "testing"

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()
	var got []SectionDataUpdated
	unsub := bus.Subscribe(func(e SectionDataUpdated) { got = append(got, e) })

	bus.Publish(SectionDataUpdated{UserID: "u1", SectionID: "personal-info"})
	if len(got) != 1 || got[0].SectionID != "personal-info" {
		t.Fatalf("got %v", got)
	}

	unsub()
	bus.Publish(SectionDataUpdated{UserID: "u1", SectionID: "work-history"})
	if len(got) != 1 {
		t.Fatalf("unsubscribed callback still fired: %v", got)
	}
}

func TestBusMultipleSubscribers(t *testing.T) {
	bus := NewBus()
	a, b := 0, 0
	bus.Subscribe(func(SectionDataUpdated) { a++ })
	bus.Subscribe(func(SectionDataUpdated) { b++ })
	bus.Publish(SectionDataUpdated{})
	if a != 1 || b != 1 {
		t.Fatalf("a=%d b=%d", a, b)
	}
}

func TestNilBusPublishIsSafe(t *testing.T) {
	var bus *Bus
	bus.Publish(SectionDataUpdated{}) // must not panic
}
