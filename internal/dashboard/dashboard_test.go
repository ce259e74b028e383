package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/satchel-app/satchel/internal/engine"
	"github.com/satchel-app/satchel/internal/envelope"
	"github.com/satchel-app/satchel/internal/store"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// startServer starts a server on a random port and registers cleanup.
func startServer(t *testing.T) *Server {
	t.Helper()

	server := NewServer(&Config{Port: 0, Logger: quietLogger()})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { server.Stop() })

	time.Sleep(50 * time.Millisecond)
	return server
}

// dial connects a WebSocket client to the server.
func dial(t *testing.T, ctx context.Context, server *Server) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, "ws://"+server.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(&Config{Port: 0, Logger: quietLogger()})

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	if server.Addr() == "" {
		t.Fatal("Server address is empty")
	}
	if err := server.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
}

func TestBroadcastReachesClient(t *testing.T) {
	server := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, server)

	// Let the server register the client before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for server.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if server.ClientCount() != 1 {
		t.Fatalf("Expected 1 client, got %d", server.ClientCount())
	}

	payload, _ := json.Marshal(SyncEventData{Event: "local_saved", Mode: "local"})
	server.Broadcast(Message{Type: MessageTypeSyncEvent, Data: payload})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read broadcast: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if msg.Type != MessageTypeSyncEvent {
		t.Errorf("Expected message type %s, got %s", MessageTypeSyncEvent, msg.Type)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Broadcast should stamp messages")
	}

	var event SyncEventData
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		t.Fatalf("Failed to unmarshal event data: %v", err)
	}
	if event.Event != "local_saved" {
		t.Errorf("Expected event local_saved, got %s", event.Event)
	}
}

func TestMultipleClientsReceiveBroadcast(t *testing.T) {
	server := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	numClients := 3
	conns := make([]*websocket.Conn, numClients)
	for i := range conns {
		conns[i] = dial(t, ctx, server)
	}

	deadline := time.Now().Add(2 * time.Second)
	for server.ClientCount() < numClients && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if server.ClientCount() != numClients {
		t.Fatalf("Expected %d clients, got %d", numClients, server.ClientCount())
	}

	server.Broadcast(Message{Type: MessageTypeStats})

	for i, conn := range conns {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("Client %d failed to read broadcast: %v", i, err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Client %d: failed to unmarshal: %v", i, err)
		}
		if msg.Type != MessageTypeStats {
			t.Errorf("Client %d: expected stats message, got %s", i, msg.Type)
		}
	}
}

func TestHandlerForwardsEngineEvents(t *testing.T) {
	server := startServer(t)

	st, err := store.Open(filepath.Join(t.TempDir(), "satchel.db"))
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	defer st.Close()

	eng, err := engine.New(st, nil, nil, &engine.Config{
		DebounceInterval: time.Second,
		Logger:           quietLogger(),
	})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	defer eng.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, server)
	deadline := time.Now().Add(2 * time.Second)
	for server.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	handler := NewHandler(server, eng, quietLogger())
	handler.Attach(ctx)
	defer handler.Detach()

	// The attach pushes an initial stats snapshot.
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read initial stats: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if msg.Type != MessageTypeStats {
		t.Fatalf("Expected initial stats message, got %s", msg.Type)
	}

	// A save produces a local_saved sync event.
	payload := envelope.Payload{Tasks: []envelope.Task{{
		ID: envelope.NewTaskID(), Title: "walk the dog",
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}}}
	if _, err := eng.Save(ctx, payload, engine.SaveOptions{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Read until the sync event arrives; stats refreshes may interleave.
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("Failed to read event: %v", err)
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if msg.Type != MessageTypeSyncEvent {
			continue
		}
		var event SyncEventData
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			t.Fatalf("Failed to unmarshal event data: %v", err)
		}
		if event.Event != string(engine.EventLocalSaved) {
			t.Errorf("Expected %s event, got %s", engine.EventLocalSaved, event.Event)
		}
		break
	}
}

func TestDetachStopsForwarding(t *testing.T) {
	server := startServer(t)

	st, err := store.Open(filepath.Join(t.TempDir(), "satchel.db"))
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	defer st.Close()

	eng, err := engine.New(st, nil, nil, &engine.Config{
		DebounceInterval: time.Second,
		Logger:           quietLogger(),
	})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	defer eng.Close()

	handler := NewHandler(server, eng, quietLogger())
	handler.Attach(context.Background())
	handler.Detach()

	// Detached handler must not panic or forward on further saves.
	if _, err := eng.Save(context.Background(), envelope.Payload{}, engine.SaveOptions{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
}
