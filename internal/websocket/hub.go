package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"rosterkit/internal/infrastructure"
	"rosterkit/pkg/contracts/events"
)

// Message type constants shared with the browser client. The wire shapes
// live in pkg/contracts/events; these are the string forms used by the
// untyped BroadcastUpdate entry points.
const (
	TypeConnection        = string(events.MessageTypeConnection)
	TypeError             = string(events.MessageTypeError)
	TypeDataUpdate        = string(events.MessageTypeDataUpdate)
	TypeOperationSnapshot = string(events.MessageTypeOperationSnapshot)
	SubtypeAll            = "all"
	ActionRefresh         = "refresh"
)

// ErrorRecoveryHints maps error codes to user-facing recovery suggestions.
// Codes follow the application error types so the UI can show a hint next
// to the failure without hardcoding server knowledge.
var ErrorRecoveryHints = map[string]string{
	"NOT_FOUND": "Check that the source file exists and the path is correct",
	"SCHEMA":    "Verify the source file carries the expected roster columns",
	"PARSING":   "The source file could not be read. Check the format and encoding",
	"RENDER":    "Chart rendering failed. Verify the reports directory is writable",
	"STORAGE":   "Writing an artifact failed. Check disk space and permissions",
	"default":   "Please try again or check the server logs",
}

// Hub maintains the set of active clients and broadcasts messages to them.
// All dataset and operation events flow through a single broadcast channel
// so clients observe them in a consistent order.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages fanned out to every client
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	// Counters exposed through GetHubMetrics
	totalConnections  int64
	activeConnections int64
	messagesSent      int64
	messagesReceived  int64
	connectionErrors  int64

	// Control
	quit        chan struct{}
	running     bool
	metricsQuit chan struct{}
}

// NewHub creates a new Hub instance with dependency injection
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.hub"))

	return &Hub{
		broadcast:   make(chan []byte),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		clients:     make(map[*Client]bool),
		logger:      logger,
		quit:        make(chan struct{}),
		metricsQuit: make(chan struct{}),
	}
}

// Start starts the hub's goroutines. Calling Start on a running hub is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
	go h.reportMetrics()
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.totalConnections++
			h.activeConnections = int64(count)
			h.mu.Unlock()

			ctx := context.Background()
			if client.traceID != "" {
				ctx = infrastructure.WithTraceID(ctx, client.traceID)
			}

			h.logger.InfoContext(ctx, "client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			metrics := GetMetrics()
			metrics.RecordConnection()

			if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
				otelMetrics.RecordConnection(ctx, client.id, client.remoteAddr)
				otelMetrics.RecordClientCount(ctx, int64(count))
			}

			// Greet the new client so the UI can flip to "connected"
			// before the first snapshot arrives.
			connMsg := events.Envelope{
				Type: events.MessageTypeConnection,
				Data: events.ConnectionPayload{
					Status:   "connected",
					Message:  "Connected to RosterKit",
					ClientID: client.id,
				},
				Timestamp: time.Now().Format(time.RFC3339),
				TraceID:   client.traceID,
			}

			jsonData, err := json.Marshal(connMsg)
			if err == nil {
				select {
				case client.send <- jsonData:
					h.logger.DebugContext(ctx, "sent connection message to client",
						slog.String("client_id", client.id))
				default:
					h.logger.WarnContext(ctx, "failed to send connection message, client buffer full",
						slog.String("client_id", client.id))
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				count := len(h.clients)
				h.activeConnections = int64(count)
				h.mu.Unlock()

				ctx := context.Background()
				if client.traceID != "" {
					ctx = infrastructure.WithTraceID(ctx, client.traceID)
				}

				h.logger.InfoContext(ctx, "client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))

				metrics := GetMetrics()
				metrics.RecordDisconnection(time.Since(client.connectedAt))

				if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
					otelMetrics.RecordDisconnection(ctx, client.id, time.Since(client.connectedAt), "normal")
					otelMetrics.RecordClientCount(ctx, int64(count))
				}
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			// Copy the client set so sends happen without the lock held.
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			h.logger.Debug("broadcasting message to clients",
				slog.Int("client_count", len(clients)),
				slog.Int("message_size", len(message)))

			successCount := 0
			failCount := 0

			for _, client := range clients {
				select {
				case client.send <- message:
					successCount++
				default:
					// Slow client: its send buffer is full. Evict it so one
					// stalled browser tab cannot back up the whole hub.
					failCount++
					h.mu.Lock()
					close(client.send)
					delete(h.clients, client)
					h.mu.Unlock()

					GetMetrics().RecordDroppedMessage()

					ctx := context.Background()
					if client.traceID != "" {
						ctx = infrastructure.WithTraceID(ctx, client.traceID)
					}
					if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
						otelMetrics.RecordDroppedMessage(ctx, "broadcast", "send_buffer_full")
					}
					h.logger.WarnContext(ctx, "client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}

			h.mu.Lock()
			h.messagesSent += int64(successCount)
			h.mu.Unlock()

			if failCount > 0 {
				h.logger.Warn("some clients failed to receive broadcast",
					slog.Int("success_count", successCount),
					slog.Int("fail_count", failCount))
			}

			if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
				ctx := context.Background()
				otelMetrics.RecordBroadcast(ctx, "broadcast", int64(len(clients)), int64(successCount), int64(failCount))
			}
		}
	}
}

// BroadcastUpdate sends an event to all connected clients. It satisfies the
// operations broadcaster's hub contract, so operation snapshots arrive here
// directly.
func (h *Hub) BroadcastUpdate(eventType, subtype, action string, data interface{}) {
	h.BroadcastUpdateWithTrace(eventType, subtype, action, data, "")
}

// BroadcastUpdateWithTrace sends an event with a trace ID to all connected clients.
func (h *Hub) BroadcastUpdateWithTrace(eventType, subtype, action string, data interface{}, traceID string) {
	message := events.Envelope{
		Type:      events.MessageType(eventType),
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
		TraceID:   traceID,
	}

	// Operation snapshots are self-describing; every other event keeps the
	// subtype/action envelope so the UI can route it.
	if eventType != TypeOperationSnapshot && eventType != "" {
		message.Subtype = subtype
		message.Action = action
	} else if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
		otelMetrics.RecordOperationEvent(context.Background(), subtype, eventType)
	}

	h.broadcastJSON(message)
}

// broadcastJSON marshals the envelope and queues it for fan-out.
func (h *Hub) broadcastJSON(message events.Envelope) {
	jsonData, err := json.Marshal(message)
	if err != nil {
		ctx := context.Background()
		if message.TraceID != "" {
			ctx = infrastructure.WithTraceID(ctx, message.TraceID)
		}
		h.logger.ErrorContext(ctx, "error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(message.Type)))
		return
	}

	h.broadcast <- jsonData
}

// Broadcast sends a typed message to all clients. This is the generic entry
// point the service layer uses for one-off notifications.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	h.BroadcastUpdate(messageType, "", "", data)
}

// BroadcastError sends a structured error message with a recovery hint.
func (h *Hub) BroadcastError(code, message, details, step string, recoverable bool) {
	hint := ErrorRecoveryHints[code]
	if hint == "" {
		hint = ErrorRecoveryHints["default"]
	}

	h.broadcastJSON(events.Envelope{
		Type: events.MessageTypeError,
		Data: events.ErrorPayload{
			Code:        code,
			Message:     message,
			Details:     details,
			Step:        step,
			Recoverable: recoverable,
			Hint:        hint,
		},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// BroadcastRefresh tells clients that datasets changed and views should reload.
func (h *Hub) BroadcastRefresh(source string, components []string) {
	h.BroadcastUpdate(TypeDataUpdate, SubtypeAll, ActionRefresh, events.RefreshPayload{
		Source:     source,
		Components: components,
	})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop gracefully stops the hub
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	close(h.metricsQuit)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// reportMetrics periodically reports hub metrics
func (h *Hub) reportMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.metricsQuit:
			h.logger.Info("metrics reporting shutting down")
			return

		case <-ticker.C:
			h.mu.RLock()
			activeClients := len(h.clients)
			totalConnections := h.totalConnections
			messagesSent := h.messagesSent
			messagesReceived := h.messagesReceived
			h.mu.RUnlock()

			queueDepth := int64(len(h.broadcast))
			GetMetrics().RecordQueueDepth(queueDepth)
			if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
				otelMetrics.RecordQueueDepth(context.Background(), queueDepth, "broadcast")
			}

			h.logger.Info("websocket hub metrics",
				slog.Int("active_clients", activeClients),
				slog.Int64("total_connections", totalConnections),
				slog.Int64("messages_sent", messagesSent),
				slog.Int64("messages_received", messagesReceived),
				slog.Int64("broadcast_queue", queueDepth),
			)
		}
	}
}

// recordMessageReceived is called by client read pumps.
func (h *Hub) recordMessageReceived() {
	h.mu.Lock()
	h.messagesReceived++
	h.mu.Unlock()
}

// recordConnectionError is called by client pumps on abnormal closes.
func (h *Hub) recordConnectionError() {
	h.mu.Lock()
	h.connectionErrors++
	h.mu.Unlock()
}

// GetHubMetrics returns current hub metrics
func (h *Hub) GetHubMetrics() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_clients":    len(h.clients),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"messages_received": h.messagesReceived,
		"connection_errors": h.connectionErrors,
	}
}
