package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rajasatyajit/incidentwatch/config"
	"github.com/rajasatyajit/incidentwatch/internal/database"
	"github.com/rajasatyajit/incidentwatch/internal/logger"
	"github.com/rajasatyajit/incidentwatch/internal/store"
)

// getFreePort returns an available TCP port
func getFreePort(t *testing.T) int {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestStartMetricsServer_Smoke(t *testing.T) {
	logger.Init("error", "text")
	port := getFreePort(t)
	go startMetricsServer(port, "/metrics")
	url := fmt.Sprintf("http://localhost:%d/metrics", port)

	deadline := time.Now().Add(3 * time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			// NoOp handler returns 404 Not Found
			if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusOK {
				return
			}
		}
		lastErr = err
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("metrics server not reachable: %v", lastErr)
}

func TestNewStore_InMemoryWithoutDatabase(t *testing.T) {
	logger.Init("error", "text")
	ctx := context.Background()
	cfg := config.DatabaseConfig{QueryTimeout: time.Second, Migrate: true}

	db, err := database.New(ctx, cfg)
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	st, err := newStore(ctx, db, cfg)
	if err != nil {
		t.Fatalf("newStore: %v", err)
	}
	if _, ok := st.(*store.InMemoryStore); !ok {
		t.Fatalf("expected in-memory store, got %T", st)
	}
	if err := st.Health(ctx); err != nil {
		t.Errorf("health: %v", err)
	}
}
