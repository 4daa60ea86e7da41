package www

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/sessions"

	"tmscore/engine"
)

type Handlers struct {
	engine    *engine.Engine
	sessions  *sessions.CookieStore
	eventHub  *EventHub
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	hub := NewEventHub()
	hub.Start()
	hub.SetupEngineListeners(eng)

	webCfg := eng.AppConfig().Web
	ttl := webCfg.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	h := &Handlers{
		engine:    eng,
		sessions:  newSessionStore(webCfg.SessionSecret),
		eventHub:  hub,
		jwtSecret: []byte(webCfg.SessionSecret),
		tokenTTL:  ttl,
	}

	h.ensureDefaultAdmin(eng.DB())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   webCfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// SSE
	r.Get("/events", hub.SSEHandler)

	// Public routes
	r.Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)

	// API routes (no auth required for read)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.apiHealthCheck)
		r.Get("/decorations", h.apiDecorations)
		r.Post("/login", h.apiLogin)

		r.Get("/trips", h.apiListTrips)
		r.Get("/trips/{id}", h.apiGetTrip)
		r.Get("/trips/{id}/decoration", h.apiTripDecoration)
		r.Get("/trips/{id}/history", h.apiTripHistory)
		r.Get("/segments", h.apiListSegments)
		r.Get("/segments/{id}/decoration", h.apiSegmentDecoration)
		r.Get("/resources", h.apiListResources)
		r.Post("/scheduler/droppable", h.apiDroppable)
		r.Post("/scheduler/check", h.apiCheckMove)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/scheduler/move", h.apiMoveTrip)
			r.Post("/scheduler/segments/move", h.apiMoveSegment)
			r.Get("/scheduler/export.xlsx", h.apiExportPlanning)
			r.Post("/trips", h.apiUpsertTrip)
			r.Put("/trips/{id}/vehicle", h.apiSetTripVehicle)
			r.Delete("/trips/{id}", h.apiDeleteTrip)
			r.Get("/trips/{id}/audit", h.apiTripAudit)
			r.Post("/segments", h.apiUpsertSegment)
			r.Post("/resources", h.apiUpsertResource)
			r.Get("/audit", h.apiAuditLog)
			r.Get("/config", h.apiGetConfig)
			r.Post("/config/save", h.apiConfigSave)
		})
	})

	stopFn := func() {
		hub.Stop()
	}

	return r, stopFn
}
