package rest

import (
	"github.com/gorilla/mux"
)

// SetupRoutes registers every HTTP route on router against h. It does not
// attach middleware — callers wrap router with the auth, rate limit,
// logging, and CORS chains.
func SetupRoutes(router *mux.Router, h *Handler) {
	router.HandleFunc("/health", h.Health).Methods("GET")

	router.HandleFunc("/auth/login", h.PostLogin).Methods("POST")
	router.HandleFunc("/auth/validate", h.GetValidate).Methods("GET")

	router.HandleFunc("/data", h.PostReading).Methods("POST")
	router.HandleFunc("/data/recent", h.GetRecent).Methods("GET")
	router.HandleFunc("/data/range", h.GetRange).Methods("GET")
	router.HandleFunc("/data/status/{status}", h.GetStatus).Methods("GET")
	router.HandleFunc("/data/alerts/temperature", h.GetAlertsTemperature).Methods("GET")
	router.HandleFunc("/data/alerts/vibration", h.GetAlertsVibration).Methods("GET")
	router.HandleFunc("/data/machine/{id}/recent", h.GetMachineRecent).Methods("GET")
	router.HandleFunc("/data/machine/{id}/stats", h.GetMachineStats).Methods("GET")
	router.HandleFunc("/data/machine/{id}", h.GetMachine).Methods("GET")

	router.HandleFunc("/analysis/machine/{id}", h.GetMachineAnalysis).Methods("GET")
}
