package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/franckalain/healthscanner/internal/database"
	"github.com/franckalain/healthscanner/internal/health"
	"github.com/franckalain/healthscanner/internal/logger"
	"github.com/franckalain/healthscanner/internal/lookup"
	"github.com/franckalain/healthscanner/internal/metrics"
	"github.com/franckalain/healthscanner/internal/ml"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// scanTimeout bounds one scan including lookup and persistence.
	scanTimeout = 30 * time.Second

	shutdownTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, this should be more restrictive
	},
}

// maxMessageSize caps an incoming websocket message. Label photos arrive
// base64 encoded.
const maxMessageSize = 16 << 20

// Options tune a Server.
type Options struct {
	// HistoryLimit is the number of entries get_history returns by default.
	HistoryLimit int
}

type Server struct {
	db       database.DB
	products lookup.Source
	model    ml.Model // nil disables scan_label
	criteria *health.CriteriaStore
	metrics  *metrics.Recorder
	log      *logger.Logger
	opts     Options
	now      func() time.Time

	clients sync.Map
}

func New(db database.DB, products lookup.Source, model ml.Model, criteria *health.CriteriaStore, recorder *metrics.Recorder, log *logger.Logger, opts Options) *Server {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	return &Server{
		db:       db,
		products: products,
		model:    model,
		criteria: criteria,
		metrics:  recorder,
		log:      log,
		opts:     opts,
		now:      time.Now,
	}
}

// Handler returns the HTTP routes without static file serving.
func (s *Server) Handler() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// Start serves on port until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start(port, staticDir string) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	mux := s.Handler()
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("server: listening", "port", port, "static_dir", staticDir)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
	}

	s.log.Info("server: shutting down")
	s.closeClients()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

// envelope is the JSON frame exchanged in both directions.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("server: websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	clientID := uuid.New().String()
	s.clients.Store(clientID, conn)
	defer s.clients.Delete(clientID)

	log := s.log.With("client", clientID)
	log.Debug("server: client connected", "remote", r.RemoteAddr)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("server: read failed", "err", err)
			}
			break
		}

		var msg envelope
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Debug("server: bad message", "err", err)
			s.sendError(conn, "Invalid message format")
			continue
		}

		s.handleWebSocketMessage(r.Context(), conn, log, msg)
	}
}

func (s *Server) handleWebSocketMessage(ctx context.Context, conn *websocket.Conn, log *logger.Logger, msg envelope) {
	log = log.With("type", msg.Type)

	switch msg.Type {
	case "scan":
		s.handleScan(ctx, conn, log, msg.Data)
	case "scan_label":
		s.handleScanLabel(ctx, conn, log, msg.Data)
	case "manual_entry":
		s.handleManualEntry(ctx, conn, log, msg.Data)
	case "get_history":
		s.handleGetHistory(ctx, conn, log, msg.Data)
	case "get_product":
		s.handleGetProduct(ctx, conn, log, msg.Data)
	case "delete_history":
		s.handleDeleteHistory(ctx, conn, log, msg.Data)
	case "clear_history":
		s.handleClearHistory(ctx, conn, log)
	case "compare":
		s.handleCompare(ctx, conn, log, msg.Data)
	case "get_criteria":
		s.sendMessage(conn, "criteria", s.criteria.Get())
	case "update_criteria":
		s.handleUpdateCriteria(conn, log, msg.Data)
	default:
		s.sendError(conn, "Unknown message type")
	}
}

// decodeData unmarshals a message payload, treating a missing payload as {}.
func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (s *Server) sendMessage(conn *websocket.Conn, messageType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		s.log.Error("server: encode message", "type", messageType, "err", err)
		s.sendError(conn, "Internal error")
		return
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(envelope{Type: messageType, Data: raw}); err != nil {
		s.log.Warn("server: send failed", "type", messageType, "err", err)
		return
	}
	s.log.Debug("server: sent", "type", messageType)
}

func (s *Server) sendError(conn *websocket.Conn, message string) {
	msg := map[string]any{
		"type":    "error",
		"message": message,
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		s.log.Warn("server: send error failed", "err", err)
	}
}

func (s *Server) closeClients() {
	s.clients.Range(func(_, value any) bool {
		if conn, ok := value.(*websocket.Conn); ok {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			conn.Close()
		}
		return true
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
