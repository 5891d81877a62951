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
	documentsInstance *services.DocumentsService
	once              sync.Once
	initErr           error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleDocuments", handleDocuments)
}

func main() {}

// handleDocuments is the HTTP entry point for the document service.
func handleDocuments(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		var deps *services.Deps
		deps, initErr = services.NewDepsFromEnv(context.Background())
		if initErr != nil {
			return
		}
		if initErr = deps.RequireBlobs(); initErr != nil {
			return
		}
		documentsInstance = services.NewDocuments(deps.Store, deps.Blobs, services.DefaultDocumentsConfig(deps.Bucket))
	})
	if initErr != nil {
		slog.Error("Critical: document service initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	actor, ok := actorFrom(r)
	if !ok {
		http.Error(w, "Unauthorized: missing actor headers", http.StatusUnauthorized)
		return
	}

	switch r.URL.Path {
	case "/upload":
		var req models.UploadDocumentRequest
		if !decode(w, r, &req) {
			return
		}
		d, err := documentsInstance.Upload(r.Context(), req, actor)
		respond(w, d, err)
	case "/reupload":
		var req models.ReuploadDocumentRequest
		if !decode(w, r, &req) {
			return
		}
		d, err := documentsInstance.Reupload(r.Context(), req.DocumentID, req.FileName, req.ContentType, req.Data, actor)
		respond(w, d, err)
	case "/status":
		var req models.SetDocumentStatusRequest
		if !decode(w, r, &req) {
			return
		}
		d, err := documentsInstance.SetStatus(r.Context(), req.DocumentID, req.Status, req.Reason, actor)
		respond(w, d, err)
	case "/remove":
		var req models.RemoveDocumentRequest
		if !decode(w, r, &req) {
			return
		}
		err := documentsInstance.Remove(r.Context(), req.DocumentID, actor)
		respond(w, map[string]string{"documentId": req.DocumentID, "status": "removed"}, err)
	case "/by-project":
		ds, err := documentsInstance.ByProject(r.Context(), r.URL.Query().Get("projectId"))
		respond(w, ds, err)
	case "/by-customer":
		ds, err := documentsInstance.ByCustomer(r.Context(), r.URL.Query().Get("customerId"))
		respond(w, ds, err)
	case "/download-url":
		url, err := documentsInstance.DownloadURL(r.Context(), r.URL.Query().Get("documentId"))
		respond(w, map[string]string{"url": url}, err)
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
