package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/jobs"
)

const (
	// initialRunsLimit bounds the history snapshot sent to a new client.
	initialRunsLimit = 100

	// subscriberBuffer is the per-client update buffer. A client that falls
	// this far behind misses updates rather than stalling the notifier.
	subscriberBuffer = 16
)

// RunEvents is the subscription side of the run update fan-out.
type RunEvents interface {
	// Subscribe registers a new observer. The returned cancel function
	// releases it and closes the channel.
	Subscribe(bufferSize int) (<-chan *jobs.Run, func())
}

// WSHandler streams run updates to websocket clients.
type WSHandler struct {
	store    jobs.RunStore
	events   RunEvents
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewWSHandler creates a new websocket handler.
func NewWSHandler(store jobs.RunStore, events RunEvents, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		store:  store,
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		log: log,
	}
}

// ServeWS handles GET /ws. Each client receives the recent run history on
// connect and a message for every run state change afterwards.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	// Subscribe before the snapshot so no update falls between the two. An
	// update that lands in both is harmless for the dashboard.
	updates, cancel := h.events.Subscribe(subscriberBuffer)
	defer cancel()

	runs, err := h.store.ListRuns(r.Context(), jobs.RunFilter{Limit: initialRunsLimit})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load runs for websocket client")
		runs = []*jobs.Run{}
	}

	if err := conn.WriteJSON(map[string]interface{}{
		"type": "initial_runs",
		"runs": runs,
	}); err != nil {
		h.log.Error().Err(err).Msg("Failed to send initial runs")
		return
	}

	h.log.Debug().Str("remote_addr", r.RemoteAddr).Msg("Websocket client connected")

	// The update loop is the only writer once the initial snapshot is out.
	go func() {
		for run := range updates {
			if err := conn.WriteJSON(map[string]interface{}{
				"type": "run_update",
				"run":  run,
			}); err != nil {
				conn.Close()
				return
			}
		}
		// Fan-out shut down; drop the client.
		conn.Close()
	}()

	// Block reading until the client disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.log.Debug().Str("remote_addr", r.RemoteAddr).Msg("Websocket client disconnected")
}
