package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roverfleet/roverfleet/pkg/api"
	"github.com/roverfleet/roverfleet/pkg/observability"
)

// commandWait bounds how long the manual-command endpoint waits for the
// target rover to poll, execute, and report back.
const commandWait = 30 * time.Second

// Server exposes the rover wire protocol and the operator admin surface over
// HTTP.
type Server struct {
	coordinator *Coordinator
	logger      *zap.Logger
	httpServer  *http.Server
}

// NewServer creates the HTTP front end for a coordinator.
func NewServer(addr string, c *Coordinator, logger *zap.Logger) *Server {
	s := &Server{coordinator: c, logger: logger}

	mux := http.NewServeMux()
	route := func(pattern, name string, h http.HandlerFunc) {
		mux.Handle(pattern, observability.RequestLogger(logger, name, h))
	}

	// Rover wire protocol.
	route("POST /api/v1/rovers", "register", s.handleRegister)
	route("POST /api/v1/rovers/{id}/report", "report", s.handleReport)
	route("GET /api/v1/program", "program", s.handleProgram)

	// Operator admin surface.
	route("GET /api/v1/rovers", "rover_list", s.handleList)
	route("GET /api/v1/rovers/{id}", "rover_info", s.handleInfo)
	route("POST /api/v1/rovers/{id}/command", "rover_command", s.handleCommand)
	route("POST /api/v1/fleet/update", "fleet_update", s.handleFleetUpdate)
	route("POST /api/v1/fleet/flush", "fleet_flush", s.handleFleetFlush)
	route("GET /api/v1/events", "events", s.handleEvents)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.logger.Info("Starting coordinator API server",
		zap.String("address", s.httpServer.Addr),
	)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping coordinator API server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown API server: %w", err)
	}
	return nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode registration: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, s.coordinator.fleet.Register(req))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var rep api.Report
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode report: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, s.coordinator.fleet.HandleReport(id, rep))
}

func (s *Server) handleProgram(w http.ResponseWriter, r *http.Request) {
	data, err := s.coordinator.programs.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, errors.New("no program deployed"))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	observability.CoordinatorProgramFetchesTotal.Inc()
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coordinator.fleet.List())
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	rover, ok := s.coordinator.fleet.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown rover"))
		return
	}
	writeJSON(w, http.StatusOK, rover.Info())
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var cmd api.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode command: %w", err))
		return
	}

	s.coordinator.events.Record(observability.Event{
		Type:    observability.EventManualCommand,
		RoverID: id,
		Detail:  cmd.String(),
	})

	ctx, cancel := context.WithTimeout(r.Context(), commandWait)
	defer cancel()

	rep, err := s.coordinator.fleet.Execute(ctx, id, cmd)
	if err != nil {
		status := http.StatusGatewayTimeout
		if strings.Contains(err.Error(), "unknown rover") {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}

	if cmd.Name == api.CmdPoweroff {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleFleetUpdate(w http.ResponseWriter, r *http.Request) {
	count := s.coordinator.fleet.MarkAllPending()
	s.logger.Info("Fleet update requested", zap.Int("rovers", count))
	writeJSON(w, http.StatusOK, map[string]int{"pending": count})
}

func (s *Server) handleFleetFlush(w http.ResponseWriter, r *http.Request) {
	if err := s.coordinator.flushState(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.coordinator.events.Record(observability.Event{Type: observability.EventStateFlushed})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	n := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		n = parsed
	}
	writeJSON(w, http.StatusOK, s.coordinator.events.Recent(n))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
