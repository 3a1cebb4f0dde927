// Package api - HTTP route layer
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/halcyon/db"
	"github.com/alwitt/halcyon/session"
	"github.com/alwitt/halcyon/store"
	"github.com/apex/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// Params route layer dependencies
type Params struct {
	// Store the data controllers
	Store *store.Store
	// Sessions session cookie manager
	Sessions session.Manager
	// Persistence persistence client, used for the page load log
	Persistence db.Client
	// GitHub OAuth client, nil when not configured
	GitHub store.GitHubTokenExchanger
	// AllowedOrigins cross origin callers allowed to use the API. CORS is off when empty.
	AllowedOrigins []string
	// Now clock, defaults to time.Now
	Now func() time.Time
}

// handlerImpl the request handlers
type handlerImpl struct {
	goutils.Component
	store       *store.Store
	sessions    session.Manager
	persistence db.Client
	github      store.GitHubTokenExchanger
	now         func() time.Time
}

/*
NewRouter define the chi routing table of the API

	@param params Params - route layer dependencies
	@returns router
*/
func NewRouter(params Params) (*chi.Mux, error) {
	if params.Store == nil || params.Sessions == nil || params.Persistence == nil {
		return nil, fmt.Errorf("router requires the store, session manager and persistence client")
	}
	if params.Now == nil {
		params.Now = time.Now
	}

	h := &handlerImpl{
		Component: goutils.Component{
			LogTags: log.Fields{"module": "api", "component": "router"},
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		store:       params.Store,
		sessions:    params.Sessions,
		persistence: params.Persistence,
		github:      params.GitHub,
		now:         params.Now,
	}

	rtr := chi.NewRouter()
	rtr.Use(middleware.RequestID)
	rtr.Use(middleware.RealIP)
	rtr.Use(h.requestLogger)
	rtr.Use(middleware.Recoverer)
	if len(params.AllowedOrigins) > 0 {
		rtr.Use(cors.New(cors.Options{
			AllowedOrigins: params.AllowedOrigins,
			AllowedMethods: []string{
				http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
			},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: true,
		}).Handler)
	}

	// liveness testing
	rtr.Get("/ok", h.ok)

	rtr.Route("/api", func(rtr chi.Router) {
		rtr.Post("/users", h.signUp)
		rtr.Post("/auth", h.login)
		rtr.Delete("/auth", h.logout)

		rtr.Group(func(rtr chi.Router) {
			rtr.Use(h.requireAuth)

			rtr.Delete("/users", h.purgeUser)
			rtr.Get("/users/audit", h.auditTrail)
			rtr.Put("/auth", h.changePassword)

			rtr.Route("/labels", func(rtr chi.Router) {
				rtr.Get("/", h.listLabels)
				rtr.Post("/", h.createLabel)
				rtr.Get("/{id}", h.getLabel)
				rtr.Put("/{id}", h.updateLabel)
				rtr.Delete("/{id}", h.deleteLabel)
			})

			rtr.Route("/entries", func(rtr chi.Router) {
				rtr.Get("/", h.listEntries)
				rtr.Post("/", h.createEntry)
				rtr.Get("/streaks", h.entryStreaks)
				rtr.Get("/{id}", h.getEntry)
				rtr.Put("/{id}", h.editEntry)
				rtr.Delete("/{id}", h.deleteEntry)
				rtr.Get("/{id}/edits", h.entryEdits)
				rtr.Put("/{id}/pinned", h.pinEntry)
			})

			rtr.Route("/events", func(rtr chi.Router) {
				rtr.Get("/", h.listEvents)
				rtr.Post("/", h.createEvent)
				rtr.Get("/{id}", h.getEvent)
				rtr.Put("/{id}", h.updateEvent)
				rtr.Delete("/{id}", h.deleteEvent)
			})

			rtr.Get("/settings", h.getSettings)
			rtr.Put("/settings", h.updateSetting)

			rtr.Route("/assets", func(rtr chi.Router) {
				rtr.Get("/", h.listAssets)
				rtr.Post("/", h.createAsset)
				rtr.Get("/{id}", h.getAsset)
				rtr.Delete("/{id}", h.deleteAsset)
			})

			rtr.Get("/backups", h.exportBackup)
			rtr.Post("/backups", h.importBackup)

			rtr.Get("/oauth/github/authorize", h.gitHubAuthorize)
			rtr.Get("/oauth/github", h.gitHubCallback)
		})
	})

	return rtr, nil
}

func (h *handlerImpl) ok(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
