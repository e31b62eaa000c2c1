package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"

	"github.com/shipfabric/shipfabric/internal/database"
	"github.com/shipfabric/shipfabric/internal/delivery"
	"github.com/shipfabric/shipfabric/internal/middleware"
	deliveryService "github.com/shipfabric/shipfabric/internal/services/delivery"
)

// Router wraps the mux router and the framework's dependencies. The HTTP
// server is thin glue: every handler below only decodes the request,
// calls into the registry/flow, and encodes the result.
type Router struct {
	*mux.Router
	db       *database.DB
	registry *delivery.Registry
	flow     *deliveryService.Flow
}

// NewRouter creates a new HTTP router with health, auth, and shipping routes.
func NewRouter(db *database.DB, registry *delivery.Registry, flow *deliveryService.Flow) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		db:       db,
		registry: registry,
		flow:     flow,
	}

	urlPrefix := os.Getenv("HTTP_PATH_PREFIX")
	if urlPrefix != "" {
		if !strings.HasPrefix(urlPrefix, "/") {
			urlPrefix = "/" + urlPrefix
		}
		urlPrefix = strings.ToLower(strings.TrimRight(urlPrefix, "/"))
	}

	handle := func(path string, f func(http.ResponseWriter, *http.Request), methods ...string) {
		r.HandleFunc(path, f).Methods(methods...)
		if urlPrefix != "" {
			r.HandleFunc(urlPrefix+path, f).Methods(methods...)
		}
	}

	handle("/health", r.healthCheck, "GET")
	handle("/auth/login", r.login, "POST")
	handle("/auth/register", r.register, "POST")
	handle("/auth/logout", r.logout, "POST")

	paths := []string{"/api"}
	if urlPrefix != "" {
		paths = append(paths, urlPrefix+"/api")
	}
	for _, p := range paths {
		api := r.PathPrefix(p).Subrouter()
		api.Use(middleware.AuthMiddleware)

		api.HandleFunc("/carriers", r.listCarriers).Methods("GET")
		api.HandleFunc("/carriers/{code}/pickup-points", r.fetchPickupPoints).Methods("GET")

		api.HandleFunc("/shipments", r.createShipment).Methods("POST")
		api.HandleFunc("/shipments/{id}/parcels", r.listShipmentParcels).Methods("GET")

		api.HandleFunc("/tracking/{code}", r.track).Methods("POST")
	}

	return r
}

// Handler returns the router wrapped with case-insensitive middleware, so
// API endpoints work regardless of case (e.g. /API/carriers and /api/carriers).
func (r *Router) Handler() http.Handler {
	return middleware.CaseInsensitiveMiddleware(r.Router)
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
