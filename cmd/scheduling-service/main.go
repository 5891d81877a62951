package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/onboardhq/onboardflow/internal/models"
	"github.com/onboardhq/onboardflow/internal/services"
	"github.com/onboardhq/onboardflow/internal/store"
)

var (
	schedulingInstance *services.SchedulingService
	once               sync.Once
	initErr            error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleScheduling", handleScheduling)
}

func main() {}

// handleScheduling is the HTTP entry point for the scheduling service.
func handleScheduling(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		var deps *services.Deps
		deps, initErr = services.NewDepsFromEnv(context.Background())
		if initErr != nil {
			return
		}
		schedulingInstance = services.NewScheduling(deps.Store)
	})
	if initErr != nil {
		slog.Error("Critical: scheduling service initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	actor, ok := actorFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: missing actor headers", http.StatusUnauthorized)
		return
	}

	switch r.URL.Path {
	case "/schedule":
		var req models.ScheduleCallRequest
		if !decode(w, r, &req) {
			return
		}
		a, err := schedulingInstance.Schedule(r.Context(), req, actor)
		respond(w, a, err)
	case "/cancel":
		var req models.CancelAppointmentRequest
		if !decode(w, r, &req) {
			return
		}
		a, err := schedulingInstance.Cancel(r.Context(), req.AppointmentID, actor)
		respond(w, a, err)
	case "/complete":
		var req models.CompleteAppointmentRequest
		if !decode(w, r, &req) {
			return
		}
		a, err := schedulingInstance.Complete(r.Context(), req.AppointmentID, req.Notes, actor)
		respond(w, a, err)
	case "/slots":
		date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if err != nil {
			http.Error(w, "Bad Request: date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		slots, err := schedulingInstance.AvailableSlots(r.Context(), date)
		respond(w, models.AvailableSlotsResponse{Date: date, Slots: slots}, err)
	case "/upcoming":
		as, err := schedulingInstance.Upcoming(r.Context())
		respond(w, as, err)
	case "/by-project":
		as, err := schedulingInstance.ByProject(r.Context(), r.URL.Query().Get("projectId"))
		respond(w, as, err)
	case "/by-customer":
		as, err := schedulingInstance.ByCustomer(r.Context(), r.URL.Query().Get("customerId"))
		respond(w, as, err)
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
