package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	urfave "github.com/urfave/cli/v2"

	"github.com/conversationai/goldeval/pkg/data"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
	serverPortDefault         = 8080

	serverRunListLimit = 100
)

var (
	portFlag = &urfave.IntFlag{
		Name:  "port",
		Usage: "Port on which the server will listen",
		Value: serverPortDefault,
	}

	serverCmd = &urfave.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start a local HTTP API over recorded evaluation runs",
		Action:  cmdStartServer,
		Flags: []urfave.Flag{
			portFlag,
		},
	}
)

func cmdStartServer(c *urfave.Context) error {
	cfg := getConfig(c)
	address := fmt.Sprintf("127.0.0.1:%d", c.Int(portFlag.Name))

	s := &http.Server{
		Addr:           address,
		Handler:        makeRouter(cfg.DB),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("error starting server", "error", err)
		}
	}()

	slog.Info("server started", "address", "http://"+address)

	<-done

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	return nil
}

func makeRouter(db *sql.DB) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /runs", runListAPIHandler(db))
	mux.HandleFunc("GET /runs/{id}", runDetailAPIHandler(db))
	mux.HandleFunc("GET /stats", statsAPIHandler(db))

	return mux
}

func statsAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := data.GetStats(db)
		if err != nil {
			slog.Error("failed to get store stats", "error", err)
			writeError(w, http.StatusInternalServerError, "error getting stats")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func runListAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := serverRunListLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			if n < limit {
				limit = n
			}
		}

		list, err := data.ListRuns(db, limit)
		if err != nil {
			slog.Error("failed to list runs", "error", err)
			writeError(w, http.StatusInternalServerError, "error listing runs")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func runDetailAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid run id")
			return
		}

		run, err := data.GetRun(db, id)
		if err != nil {
			slog.Debug("run lookup failed", "id", id, "error", err)
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}
