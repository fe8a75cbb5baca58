package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"vetrian/internal/storage"
)

const serviceVersion = "1.0.0"

func (s *Service) handleHome(w http.ResponseWriter, r *http.Request) {
	endpoints := make(map[string]any)
	for _, d := range s.registrations.Descriptors.Ordered() {
		routes := map[string]any{"register": d.Prefix}
		if len(d.DraftAliases) > 0 {
			routes["partial"] = d.DraftAliases
		}
		endpoints[string(d.Type)] = routes
	}

	s.writeJSON(w, http.StatusOK, envelope{
		"message":   "Vetrian Technology Solutions Backend API is running!",
		"version":   serviceVersion,
		"endpoints": endpoints,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handlePing reports store reachability and the upload backend. It answers
// 200 either way so uptime monitors keep the instance warm.
func (s *Service) handlePing(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	database := "Connected"
	status := "OK"
	if err := s.db.Ping(ctx); err != nil {
		s.logger.WithError(err).Warn("database ping failed")
		database = "Disconnected"
		status = "DEGRADED"
	}

	services := map[string]any{
		"database": database,
		"storage":  s.uploads.Primary(),
	}

	if s.config.Storage.Backend == storage.BackendDisk {
		for _, d := range s.registrations.Descriptors.Ordered() {
			if d.Upload == nil || d.Upload.InMemory {
				continue
			}
			_, err := os.Stat(filepath.Join(s.config.Storage.UploadRoot, d.Upload.Dir))
			services[d.Upload.Dir] = err == nil
		}
	}

	s.writeJSON(w, http.StatusOK, envelope{
		"status":    status,
		"message":   "Backend is awake and running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  services,
	})
}

func (s *Service) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusNotFound, envelope{
		"success": false,
		"message": "Route not found",
		"path":    r.URL.RequestURI(),
	})
}

func (s *Service) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusMethodNotAllowed, envelope{
		"success": false,
		"message": "Method not allowed",
		"path":    r.URL.RequestURI(),
	})
}
