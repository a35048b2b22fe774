package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/windoze95/recipe-search-api/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewHub()
	go hub.Run(ctx)
	return hub
}

// newTestClient creates a Client with a buffered Send channel and no real
// websocket.Conn. The hub only ever writes to client.Send.
func newTestClient(hub *Hub, topic string) *Client {
	return &Client{
		Hub:   hub,
		Send:  make(chan []byte, 16),
		Topic: topic,
		ID:    "test-" + topic,
	}
}

// readEnvelope reads a single Envelope from the client's Send channel with a
// short timeout to prevent tests from hanging.
func readEnvelope(t *testing.T, client *Client) Envelope {
	t.Helper()
	select {
	case data, ok := <-client.Send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message on Send channel")
		return Envelope{}
	}
}

// assertNoMoreMessages verifies nothing else is pending on the Send channel.
func assertNoMoreMessages(t *testing.T, client *Client) {
	t.Helper()
	select {
	case data := <-client.Send:
		t.Fatalf("unexpected extra message on Send channel: %s", string(data))
	case <-time.After(50 * time.Millisecond):
	}
}

func join(t *testing.T, hub *Hub, client *Client) {
	t.Helper()
	if !hub.Join(client) {
		t.Fatal("Join failed")
	}
	if env := readEnvelope(t, client); env.Type != MsgTypeSubscribed || env.Topic != client.Topic {
		t.Fatalf("ack = %+v", env)
	}
}

func TestPublish_OnlyMatchingTopic(t *testing.T) {
	hub := startHub(t)
	pasta := newTestClient(hub, "recipes.pasta")
	soup := newTestClient(hub, "recipes.soup")
	join(t, hub, pasta)
	join(t, hub, soup)

	recipes := []models.RecipeSummary{{PublicID: "pasta-a-123456", Name: "Pasta A"}}
	if err := hub.Publish(context.Background(), "recipes.pasta", recipes); err != nil {
		t.Fatalf("Publish error: %v", err)
	}

	env := readEnvelope(t, pasta)
	if env.Type != MsgTypeRecipes || len(env.Recipes) != 1 || env.Recipes[0].Name != "Pasta A" {
		t.Errorf("envelope = %+v", env)
	}
	assertNoMoreMessages(t, soup)
}

func TestPublish_EmptyListIsArray(t *testing.T) {
	hub := startHub(t)
	client := newTestClient(hub, "recipes.pasta")
	join(t, hub, client)

	hub.Publish(context.Background(), "recipes.pasta", nil)

	select {
	case data := <-client.Send:
		if !strings.Contains(string(data), `"recipes":[]`) {
			t.Errorf("payload = %s, want empty array", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

func TestPublish_NoSubscribers(t *testing.T) {
	hub := startHub(t)
	if err := hub.Publish(context.Background(), "recipes.nobody", nil); err != nil {
		t.Errorf("Publish error: %v", err)
	}
}

func TestLeave(t *testing.T) {
	hub := startHub(t)
	client := newTestClient(hub, "recipes.pasta")
	join(t, hub, client)
	if hub.SubscriberCount("recipes.pasta") != 1 {
		t.Fatalf("count = %d, want 1", hub.SubscriberCount("recipes.pasta"))
	}

	hub.Leave(client)

	select {
	case _, ok := <-client.Send:
		if ok {
			t.Error("expected closed send channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed")
	}
	if hub.SubscriberCount("recipes.pasta") != 0 {
		t.Errorf("count = %d, want 0", hub.SubscriberCount("recipes.pasta"))
	}
}

func TestSlowSubscriberDropped(t *testing.T) {
	hub := startHub(t)
	slow := &Client{Hub: hub, Send: make(chan []byte), Topic: "recipes.pasta", ID: "slow"}
	fast := newTestClient(hub, "recipes.pasta")
	hub.Join(slow)
	join(t, hub, fast)

	hub.Publish(context.Background(), "recipes.pasta", nil)
	readEnvelope(t, fast)

	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount("recipes.pasta") != 1 {
		if time.Now().After(deadline) {
			t.Fatal("slow subscriber was not dropped")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := newTestClient(hub, "recipes.pasta")
	join(t, hub, client)
	cancel()
	<-stopped

	for i := 0; i < 10; i++ {
		if err := hub.Publish(context.Background(), "recipes.pasta", nil); !errors.Is(err, ErrHubStopped) {
			t.Fatalf("Publish after stop = %v, want ErrHubStopped", err)
		}
	}
	if err := hub.Deliver(context.Background(), "recipes.pasta", []byte("{}")); !errors.Is(err, ErrHubStopped) {
		t.Errorf("Deliver after stop = %v, want ErrHubStopped", err)
	}
	if hub.Join(newTestClient(hub, "recipes.late")) {
		t.Error("Join after stop should fail")
	}
	hub.Leave(client)
}

func TestHandleSubscribe(t *testing.T) {
	hub := startHub(t)
	handler := NewSubscriptionHandler(hub, nil)

	r := gin.New()
	r.GET("/ws/recipes", handler.HandleSubscribe)
	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/recipes?searchWord=%20Pasta%20"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ack Envelope
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Type != MsgTypeSubscribed || ack.Topic != "recipes.pasta" {
		t.Fatalf("ack = %+v", ack)
	}

	hub.Publish(context.Background(), "recipes.pasta", []models.RecipeSummary{{Name: "Pasta A"}})

	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if env.Type != MsgTypeRecipes || len(env.Recipes) != 1 {
		t.Errorf("envelope = %+v", env)
	}
}

func TestHandleSubscribe_MissingTerm(t *testing.T) {
	hub := startHub(t)
	handler := NewSubscriptionHandler(hub, nil)

	r := gin.New()
	r.GET("/ws/recipes", handler.HandleSubscribe)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ws/recipes", nil))
	if w.Code != 400 {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
