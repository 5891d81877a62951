package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/onboardhq/onboardflow/internal/models"
	"github.com/onboardhq/onboardflow/internal/services"
	"github.com/onboardhq/onboardflow/internal/store"
)

var (
	projectsInstance *services.ProjectsService
	once             sync.Once
	initErr          error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleProjects", handleProjects)
}

func main() {}

// handleProjects is the HTTP entry point for the project service.
func handleProjects(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		var deps *services.Deps
		deps, initErr = services.NewDepsFromEnv(context.Background())
		if initErr != nil {
			return
		}
		projectsInstance = services.NewProjects(deps.Store)
	})
	if initErr != nil {
		slog.Error("Critical: project service initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	actor, ok := actorFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: missing actor headers", http.StatusUnauthorized)
		return
	}

	switch r.URL.Path {
	case "/create":
		var req models.CreateProjectRequest
		if !decode(w, r, &req) {
			return
		}
		p, err := projectsInstance.Create(r.Context(), req)
		respond(w, p, err)
	case "/get":
		p, err := projectsInstance.Get(r.Context(), r.URL.Query().Get("projectId"))
		respond(w, p, err)
	case "/list":
		q := store.ProjectQuery{
			CustomerID:      r.URL.Query().Get("customerId"),
			AssignedStaffID: r.URL.Query().Get("staffId"),
			Status:          models.ProjectStatus(r.URL.Query().Get("status")),
		}
		ps, err := projectsInstance.List(r.Context(), q)
		respond(w, ps, err)
	case "/overview":
		ov, err := projectsInstance.Overview(r.Context(), r.URL.Query().Get("projectId"))
		respond(w, ov, err)
	case "/activity":
		p, err := projectsInstance.Get(r.Context(), r.URL.Query().Get("projectId"))
		if err != nil {
			respond(w, nil, err)
			return
		}
		respond(w, services.Timeline(p), nil)
	case "/status":
		var req models.SetProjectStatusRequest
		if !decode(w, r, &req) {
			return
		}
		p, err := projectsInstance.SetStatus(r.Context(), req.ProjectID, req.Status, actor)
		respond(w, p, err)
	case "/note":
		var req models.AddNoteRequest
		if !decode(w, r, &req) {
			return
		}
		p, err := projectsInstance.AddNote(r.Context(), req.ProjectID, req.Content, req.IsInternal, actor)
		respond(w, p, err)
	default:
		http.NotFound(w, r)
	}
}

// actorFrom reads the gateway-verified identity headers.
func actorFrom(r *http.Request) (models.Actor, bool) {
	id := r.Header.Get("X-Actor-Id")
	role := models.ActorRole(r.Header.Get("X-Actor-Role"))
	if id == "" || (role != models.RoleCustomer && role != models.RoleStaff && role != models.RoleSystem) {
		return models.Actor{}, false
	}
	return models.Actor{ID: id, Role: role}, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.Warn("Could not decode request body", "error", err, "path", r.URL.Path)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Not Found: "+err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
