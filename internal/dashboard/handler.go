package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/satchel-app/satchel/internal/engine"
)

// Handler bridges engine events to the WebSocket server.
type Handler struct {
	server *Server
	eng    *engine.Engine
	logger *log.Logger

	unsubscribe func()
}

// NewHandler creates an event handler connected to a dashboard server.
func NewHandler(server *Server, eng *engine.Engine, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		server: server,
		eng:    eng,
		logger: logger,
	}
}

// Attach subscribes to engine events and starts forwarding them. It also
// pushes an initial stats snapshot so a freshly connected client has
// something to render.
func (h *Handler) Attach(ctx context.Context) {
	h.unsubscribe = h.eng.Subscribe(h.onEngineEvent)
	h.BroadcastStats(ctx)
}

// Detach stops forwarding engine events.
func (h *Handler) Detach() {
	if h.unsubscribe != nil {
		h.unsubscribe()
		h.unsubscribe = nil
	}
}

// onEngineEvent forwards one engine event to connected clients. Events
// that change the record also refresh the stats view.
func (h *Handler) onEngineEvent(ev engine.Event) {
	data := SyncEventData{
		Event: string(ev.Type),
		Mode:  string(ev.Mode),
	}
	if ev.Err != nil {
		data.Error = ev.Err.Error()
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal event data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeSyncEvent,
		Timestamp: ev.Timestamp,
		Data:      dataJSON,
	})

	switch ev.Type {
	case engine.EventLocalSaved, engine.EventRemoteUpdate, engine.EventSyncComplete:
		// Stats reads go through the engine; keep them off the event
		// delivery goroutine.
		go h.BroadcastStats(context.Background())
	}
}

// BroadcastStats loads the current record and broadcasts its statistics.
func (h *Handler) BroadcastStats(ctx context.Context) {
	stats := StatsData{Mode: string(h.eng.Mode())}

	env, err := h.eng.Load(ctx)
	if err != nil {
		h.logger.Printf("Failed to load record for stats: %v", err)
		return
	}
	if env != nil {
		stats.Tasks = len(env.Payload.Tasks)
		for _, task := range env.Payload.Tasks {
			if !task.Done {
				stats.OpenTasks++
			}
		}
		stats.Notes = len(env.Payload.Notes)
		stats.LedgerEntries = len(env.Payload.Ledger)
		stats.LastModified = env.LastModified
	}

	dataJSON, err := json.Marshal(stats)
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeStats,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}
