package httpx

import (
	"log/slog"
	"net/http"

	"github.com/merchkit/merchsync/internal/core"
	"github.com/merchkit/merchsync/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Dispatcher *service.DispatcherService
	GapFill    *service.GapFillService
	Watchdog   *service.WatchdogService
	Recovery   *service.RecoveryService
	SmartSync  *service.SmartSyncService
	Jobs       core.WorkItemRepository
	Logger     *slog.Logger // Logger for request logging and panic recovery (optional)
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	registerSyncRoutes(mux, &SyncHandlers{Svc: services.Dispatcher, Repo: services.Jobs})

	if services.GapFill != nil {
		registerGapRoutes(mux, &GapHandlers{Svc: services.GapFill})
	}
	if services.Watchdog != nil || services.Recovery != nil {
		registerMaintenanceRoutes(mux, &MaintenanceHandlers{
			Watchdog: services.Watchdog,
			Recovery: services.Recovery,
		})
	}
	if services.SmartSync != nil {
		registerSmartSyncRoutes(mux, &SmartSyncHandlers{Svc: services.SmartSync})
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	if services.Logger == nil {
		return mux
	}
	return Recover(services.Logger)(Logging(services.Logger)(RequestID()(mux)))
}

func registerSyncRoutes(mux *http.ServeMux, h *SyncHandlers) {
	mux.HandleFunc("POST /api/sync/continue", h.Continue)
	mux.HandleFunc("GET /api/sync/status", h.Status)
	mux.HandleFunc("GET /api/sync/jobs/{id}", h.GetJob)
}

func registerGapRoutes(mux *http.ServeMux, h *GapHandlers) {
	mux.HandleFunc("POST /api/sync/gaps", h.Fill)
}

func registerMaintenanceRoutes(mux *http.ServeMux, h *MaintenanceHandlers) {
	if h.Watchdog != nil {
		mux.HandleFunc("POST /api/sync/sweep", h.Sweep)
	}
	if h.Recovery != nil {
		mux.HandleFunc("POST /api/sync/reset", h.Reset)
		mux.HandleFunc("POST /api/sync/validate", h.Validate)
	}
}

func registerSmartSyncRoutes(mux *http.ServeMux, h *SmartSyncHandlers) {
	mux.HandleFunc("POST /api/sync/orders/smart", h.Run)
}
