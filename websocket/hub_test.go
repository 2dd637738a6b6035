package websocket

import (
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSendToUserQueuesToClientWriter(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := primitive.NewObjectID()
	client := NewClient(primitive.NilObjectID, nil)
	hub.register <- client

	if err := hub.AuthenticateClient(client, userID); err != nil {
		t.Fatal(err)
	}

	want := Notification{Type: NotificationTypeBookingRequest, Message: "new request"}
	if err := hub.SendToUser(userID, want); err != nil {
		t.Fatalf("SendToUser() error = %v", err)
	}

	got := <-client.send
	if got.Type != want.Type || got.Message != want.Message {
		t.Errorf("queued notification = %+v, want %+v", got, want)
	}
}

func TestSendToUserUnknownUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	if err := hub.SendToUser(primitive.NewObjectID(), Notification{Type: "x"}); err == nil {
		t.Error("SendToUser() to a disconnected user must fail")
	}
}

func TestConcurrentSendsOnlyTouchTheQueue(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := primitive.NewObjectID()
	client := NewClient(primitive.NilObjectID, nil)
	hub.register <- client
	if err := hub.AuthenticateClient(client, userID); err != nil {
		t.Fatal(err)
	}

	// Drain in the background so the buffer never fills.
	done := make(chan struct{})
	received := 0
	go func() {
		for range client.send {
			received++
			if received == 10 {
				close(done)
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := hub.SendToUser(userID, Notification{Type: "tick"}); err != nil {
				t.Errorf("SendToUser() error = %v", err)
			}
		}()
	}
	wg.Wait()
	<-done
}

func TestQueueDropsWhenBufferFull(t *testing.T) {
	client := NewClient(primitive.NewObjectID(), nil)
	for i := 0; i < cap(client.send); i++ {
		if err := client.Queue(Notification{Type: "fill"}); err != nil {
			t.Fatalf("Queue() filled early at %d: %v", i, err)
		}
	}
	if err := client.Queue(Notification{Type: "overflow"}); err == nil {
		t.Error("Queue() on a full buffer must return an error instead of blocking")
	}
}

func TestQueueAfterShutdownFailsCleanly(t *testing.T) {
	client := NewClient(primitive.NewObjectID(), nil)
	client.shutdown()
	if err := client.Queue(Notification{Type: "late"}); err == nil {
		t.Error("Queue() after shutdown must return an error, not panic")
	}
}
