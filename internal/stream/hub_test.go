package stream

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestHubLocalBroadcast(t *testing.T) {
	hub := NewHub(nil)
	client := hub.Register("run-1")
	defer hub.Unregister(client)

	hub.Broadcast("run-1", []byte("hello"))

	select {
	case msg := <-client.Send:
		if string(msg) != "hello" {
			t.Fatalf("unexpected message")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for message")
	}
}

func TestHubChannelHelpers(t *testing.T) {
	ch := runChannel("abc")
	if ch != "runs:abc:events" {
		t.Fatalf("unexpected channel %q", ch)
	}
	if runIDFromChannel(ch) != "abc" {
		t.Fatalf("unexpected run id")
	}
	if runIDFromChannel("bad") != "" {
		t.Fatalf("expected empty run id")
	}
}

func TestUnregisterCloses(t *testing.T) {
	hub := NewHub(nil)
	client := hub.Register("run-2")
	hub.Unregister(client)
	_, ok := <-client.Send
	if ok {
		t.Fatalf("expected channel closed")
	}
}

func TestHubRedisRoundTrip(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	hub := NewHub(client)
	ws := hub.Register("run-redis")
	defer hub.Unregister(ws)

	// Give the pattern subscription a moment to establish.
	time.Sleep(50 * time.Millisecond)
	hub.Broadcast("run-redis", []byte("ping"))

	select {
	case msg := <-ws.Send:
		if string(msg) != "ping" {
			t.Fatalf("unexpected message")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for broadcast")
	}
}

func TestHubRedisForwardsForeignPublish(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	hub := NewHub(client)
	ws := hub.Register("run-far")
	defer hub.Unregister(ws)

	time.Sleep(50 * time.Millisecond)
	if err := client.Publish(context.Background(), "runs:run-far:events", "pong").Err(); err != nil {
		t.Fatalf("publish error: %v", err)
	}

	select {
	case msg := <-ws.Send:
		if string(msg) != "pong" {
			t.Fatalf("unexpected message from redis")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for redis message")
	}
}

func TestHubRedisDownFallsBackToLocal(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	server.Close()
	defer client.Close()

	hub := NewHub(client)
	ws := hub.Register("run-bad")
	defer hub.Unregister(ws)

	hub.Broadcast("run-bad", []byte("ping"))

	select {
	case msg := <-ws.Send:
		if string(msg) != "ping" {
			t.Fatalf("unexpected message")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("local fallback did not deliver")
	}
}
