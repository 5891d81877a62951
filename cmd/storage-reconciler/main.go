package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/onboardhq/onboardflow/internal/services"
)

var (
	reconcilerInstance *services.ReconcilerService
	once               sync.Once
	initErr            error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Triggered on a Cloud Scheduler → Pub/Sub schedule. The event payload
	// carries no parameters; every invocation runs a full sweep.
	functions.CloudEvent("RunReconciliation", runReconciliation)
}

func main() {}

// runReconciliation is the CloudEvent entry point for the orphaned-blob
// sweep.
func runReconciliation(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		var deps *services.Deps
		deps, initErr = services.NewDepsFromEnv(context.Background())
		if initErr != nil {
			return
		}
		if initErr = deps.RequireBlobs(); initErr != nil {
			return
		}
		reconcilerInstance = services.NewReconciler(deps.Store, deps.Blobs, services.DefaultReconcilerConfig())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	removed, err := reconcilerInstance.Sweep(ctx)
	if err != nil {
		slog.Error("Reconciliation sweep failed", "error", err, "eventId", e.ID())
		return err
	}
	slog.Info("Reconciliation sweep complete.", "removed", removed, "eventId", e.ID())
	return nil
}
