package api

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Tag routes
	api.HandleFunc("/tags", handler.ListTags).Methods("GET")
	api.HandleFunc("/tags", handler.CreateTag).Methods("POST")
	api.HandleFunc("/tags/{id}", handler.RenameTag).Methods("PUT")
	api.HandleFunc("/tags/{id}", handler.DeleteTag).Methods("DELETE")

	// Aggregate routes must be registered before /positions/{id}
	api.HandleFunc("/positions/summary", handler.GetSummary).Methods("GET")
	api.HandleFunc("/positions/tags/summary", handler.GetTagSummary).Methods("GET")
	api.HandleFunc("/positions/tags/timeseries", handler.GetTagTimeSeries).Methods("GET")

	// Position routes
	api.HandleFunc("/positions", handler.ListPositions).Methods("GET")
	api.HandleFunc("/positions", handler.CreatePosition).Methods("POST")
	api.HandleFunc("/positions/{id}", handler.GetPosition).Methods("GET")
	api.HandleFunc("/positions/{id}", handler.UpdatePosition).Methods("PUT", "PATCH")
	api.HandleFunc("/positions/{id}", handler.DeletePosition).Methods("DELETE")

	return r
}

// Wrap applies access logging and CORS around the router. CORS sits
// outermost so preflight requests never reach mux's method matching.
func Wrap(router http.Handler, origins []string, log zerolog.Logger) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})

	return corsHandler(AccessLog(log)(router))
}
