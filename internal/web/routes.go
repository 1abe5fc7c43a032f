package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	attendanceHandler := handlers.NewAttendanceHandler(s.logger)
	employeesHandler := handlers.NewEmployeesHandler(s.logger)
	statsHandler := handlers.NewStatsHandler(s.deps.Stats, s.logger)
	healthHandler := handlers.NewHealthHandler(s.deps.Health)

	s.router.Get("/api/v1/health", healthHandler.Get)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Read API
		r.Get("/attendance", attendanceHandler.List)
		r.Get("/attendance/export", attendanceHandler.Export)
		r.Get("/employees", employeesHandler.List)
		r.Get("/employees/{id}", employeesHandler.Get)
		r.Get("/stats", statsHandler.Get)

		// Kiosk submissions
		if s.deps.Kiosks != nil {
			kioskHandler := handlers.NewKioskHandler(s.deps.Kiosks, s.config.Camera.JPEGQuality, s.logger)
			r.Group(func(r chi.Router) {
				r.Use(s.kioskLimit())
				r.Post("/kiosk/checkin", kioskHandler.CheckIn)
				r.Post("/kiosk/checkout", kioskHandler.CheckOut)
				r.Post("/kiosk/enroll", kioskHandler.Enroll)
			})
		}
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})
}
