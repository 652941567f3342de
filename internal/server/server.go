// Package server wires the admin site, staff authentication, health and
// metrics endpoints into one HTTP handler.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	goahttp "goa.design/goa/v3/http"
	"goa.design/goa/v3/http/middleware"
	"gorm.io/gorm"

	"contactos/internal/admin"
	"contactos/internal/config"
	"contactos/internal/metrics"
	"contactos/internal/services"
	"contactos/internal/util"
	apperrors "contactos/pkg/errors"
)

const (
	adminPrefix = "/admin/"
	loginPath   = adminPrefix + "login/"
	healthPath  = "/health"
	metricsPath = "/metrics"

	contactsApp   = "contactos"
	contactsModel = "contacto"
)

// Server holds the services behind the HTTP handler.
type Server struct {
	Site     *admin.Site
	Contacts *services.ContactAdmin
	Auth     *services.AuthService
	Health   *services.HealthService

	handler http.Handler
}

// New builds the admin site on db and the middleware chain around it.
func New(cfg *config.Config, db *gorm.DB) (*Server, error) {
	site := admin.NewSite(admin.SiteConfig{
		Header:       cfg.Admin.SiteHeader,
		Title:        cfg.Admin.SiteTitle,
		IndexTitle:   cfg.Admin.IndexTitle,
		LanguageCode: cfg.App.LanguageCode,
		Location:     cfg.App.Location(),
		ListPerPage:  cfg.Admin.ListPerPage,
		Prefix:       adminPrefix,
	}, db)

	contacts := services.NewContactAdmin(site.Printer(), site.Location())
	if err := admin.Register(site, contactsApp, contactsModel, contacts); err != nil {
		return nil, fmt.Errorf("failed to register contacts admin: %w", err)
	}

	s := &Server{
		Site:     site,
		Contacts: contacts,
		Auth:     services.NewAuthService(db, util.NewTokenIssuer(&cfg.Auth)),
		Health:   services.NewHealthService(db, cfg.App.Name),
	}

	mux := goahttp.NewMuxer()
	mux.Handle(http.MethodPost, loginPath, s.login)
	mux.Handle(http.MethodGet, healthPath, s.health)
	site.Mount(mux)

	staffOnly := services.StaffAuthMiddleware(s.Auth, loginPath)(mux)
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == metricsPath:
			promhttp.Handler().ServeHTTP(w, r)
		case strings.HasPrefix(r.URL.Path, adminPrefix):
			staffOnly.ServeHTTP(w, r)
		default:
			mux.ServeHTTP(w, r)
		}
	})

	// Security -> CORS -> Logging -> Prometheus -> request context -> handler
	var handler http.Handler = root
	handler = middleware.PopulateRequestContext()(handler)
	handler = middleware.RequestID()(handler)
	handler = metrics.PrometheusMiddleware(handler)
	handler = requestLogging(handler)
	handler = setupCORS(handler, cfg)
	handler = setupSecurityHeaders(handler, cfg)
	s.handler = handler

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, err := admin.ParseForm(r)
	if err != nil {
		admin.WriteError(ctx, w, err)
		return
	}
	username, password := form.Get("username"), form.Get("password")
	if username == "" || password == "" {
		admin.WriteError(ctx, w, apperrors.Validation(apperrors.FieldErrors{
			"username": "username and password are required",
		}))
		return
	}

	result, err := s.Auth.Login(ctx, username, password)
	if err != nil {
		admin.WriteError(ctx, w, err)
		return
	}
	admin.WriteJSON(ctx, w, http.StatusOK, result)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	result := s.Health.Check(r.Context())
	status := http.StatusOK
	if result.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	admin.WriteJSON(r.Context(), w, status, result)
}
