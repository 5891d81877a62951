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
	formsInstance *services.FormsService
	once          sync.Once
	initErr       error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleForms", handleForms)
}

func main() {}

// handleForms is the HTTP entry point for the form service.
func handleForms(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		var deps *services.Deps
		deps, initErr = services.NewDepsFromEnv(context.Background())
		if initErr != nil {
			return
		}
		formsInstance = services.NewForms(deps.Store)
	})
	if initErr != nil {
		slog.Error("Critical: form service initialization failed", "error", initErr)
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
		if actor.Role != models.RoleStaff {
			http.Error(w, "Forbidden: only staff can create forms", http.StatusForbidden)
			return
		}
		var form models.Form
		if !decode(w, r, &form) {
			return
		}
		f, err := formsInstance.Create(r.Context(), &form)
		respond(w, f, err)
	case "/get":
		f, err := formsInstance.Get(r.Context(), r.URL.Query().Get("formId"))
		respond(w, f, err)
	case "/by-project":
		fs, err := formsInstance.ByProject(r.Context(), r.URL.Query().Get("projectId"))
		respond(w, fs, err)
	case "/submit":
		var req models.SubmitFormResponseRequest
		if !decode(w, r, &req) {
			return
		}
		resp, err := formsInstance.SubmitResponse(r.Context(), req, actor)
		respond(w, resp, err)
	case "/status":
		var req models.SetFormStatusRequest
		if !decode(w, r, &req) {
			return
		}
		f, err := formsInstance.SetStatus(r.Context(), req.FormID, req.Status, actor)
		respond(w, f, err)
	case "/responses":
		if formID := r.URL.Query().Get("formId"); formID != "" {
			rs, err := formsInstance.ResponsesByForm(r.Context(), formID)
			respond(w, rs, err)
			return
		}
		rs, err := formsInstance.ResponsesByProject(r.Context(), r.URL.Query().Get("projectId"))
		respond(w, rs, err)
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
