package events

import (
	"sync"
	"testing"
	"time"
)

func TestAddAndGetAll(t *testing.T) {
	store := NewStore(10)

	store.Add(EventPollSuccess, true, "")
	store.Add(EventPollFailed, false, "HTTP 401")
	store.AddAuth(EventLogin, "admin", "10.0.0.5", true, "")

	all := store.GetAll()
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}

	// Newest first
	if all[0].Type != EventLogin {
		t.Errorf("expected newest event first, got %s", all[0].Type)
	}
	if all[0].Username != "admin" || all[0].IP != "10.0.0.5" {
		t.Errorf("auth fields not recorded: %+v", all[0])
	}
	if all[1].Details != "HTTP 401" {
		t.Errorf("details not recorded: %+v", all[1])
	}

	// IDs are monotonically increasing
	if !(all[0].ID > all[1].ID && all[1].ID > all[2].ID) {
		t.Errorf("IDs not monotonic: %d, %d, %d", all[0].ID, all[1].ID, all[2].ID)
	}
}

func TestRingBufferEviction(t *testing.T) {
	store := NewStore(3)

	for i := 0; i < 5; i++ {
		store.Add(EventPollSuccess, true, "")
	}

	if store.Count() != 3 {
		t.Fatalf("expected 3 events after eviction, got %d", store.Count())
	}

	all := store.GetAll()
	// Oldest two (IDs 1 and 2) were evicted
	if all[len(all)-1].ID != 3 {
		t.Errorf("expected oldest surviving ID 3, got %d", all[len(all)-1].ID)
	}
	if store.LastID() != 5 {
		t.Errorf("LastID should keep counting past evictions, got %d", store.LastID())
	}
}

func TestGetLast(t *testing.T) {
	store := NewStore(10)
	for i := 0; i < 5; i++ {
		store.Add(EventAttributeUpdate, true, "")
	}

	last := store.GetLast(2)
	if len(last) != 2 {
		t.Fatalf("expected 2 events, got %d", len(last))
	}
	if last[0].ID != 5 || last[1].ID != 4 {
		t.Errorf("unexpected IDs: %d, %d", last[0].ID, last[1].ID)
	}

	// Asking for more than stored returns everything
	if got := store.GetLast(100); len(got) != 5 {
		t.Errorf("expected 5 events, got %d", len(got))
	}
}

func TestGetSince(t *testing.T) {
	store := NewStore(10)
	for i := 0; i < 5; i++ {
		store.Add(EventAttributeUpdate, true, "")
	}

	since := store.GetSince(3)
	if len(since) != 2 {
		t.Fatalf("expected 2 events after ID 3, got %d", len(since))
	}
	if since[0].ID != 5 || since[1].ID != 4 {
		t.Errorf("unexpected IDs: %d, %d", since[0].ID, since[1].ID)
	}

	if got := store.GetSince(store.LastID()); len(got) != 0 {
		t.Errorf("expected no events, got %d", len(got))
	}
}

func TestSubscribe(t *testing.T) {
	store := NewStore(10)

	id, ch := store.Subscribe()
	defer store.Unsubscribe(id)

	store.Add(EventTokenRefresh, true, "")

	select {
	case event := <-ch:
		if event.Type != EventTokenRefresh {
			t.Errorf("unexpected event type: %s", event.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	store := NewStore(10)

	id, ch := store.Subscribe()
	store.Unsubscribe(id)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel was not closed")
	}

	// Adding after unsubscribe must not panic
	store.Add(EventPollSuccess, true, "")
}

func TestConcurrentAddAndUnsubscribe(t *testing.T) {
	store := NewStore(100)

	done := make(chan struct{})
	var wg sync.WaitGroup

	// Producers add events while subscribers constantly come and go.
	// A disconnecting subscriber must never panic a producer.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				store.Add(EventAttributeUpdate, true, "")
			}
		}
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					id, ch := store.Subscribe()
					select {
					case <-ch:
					default:
					}
					store.Unsubscribe(id)
				}
			}
		}()
	}

	time.Sleep(200 * time.Millisecond)
	close(done)
	wg.Wait()

	if store.Count() == 0 {
		t.Error("expected events to be recorded during the churn")
	}
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	store := NewStore(100)

	id, ch := store.Subscribe()
	defer store.Unsubscribe(id)

	// Overfill the subscriber buffer; Add must never block
	for i := 0; i < 50; i++ {
		store.Add(EventAttributeUpdate, true, "")
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}

	if received == 0 || received > 16 {
		t.Errorf("expected between 1 and 16 buffered events, got %d", received)
	}
	if store.Count() != 50 {
		t.Errorf("store itself must keep all events, got %d", store.Count())
	}
}
