// Package admin is a small CRUD scaffold in the spirit of a model admin:
// a Site holds registered ModelAdmins and serves, for each one, a change list
// with search, filters and bulk actions plus add, change and delete views.
package admin

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	goahttp "goa.design/goa/v3/http"
	"golang.org/x/text/message"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"contactos/internal/i18n"
)

const (
	// DisplayTimeLayout renders timestamps in list cells and exports.
	DisplayTimeLayout = "2006-01-02 15:04:05.999999-07:00"

	defaultListPerPage = 100
)

// SiteConfig is the static, process-wide admin configuration.
type SiteConfig struct {
	Header       string
	Title        string
	IndexTitle   string
	LanguageCode string
	Location     *time.Location
	ListPerPage  int
	// Prefix is the URL prefix every admin route hangs from, e.g. "/admin/".
	Prefix string
}

// Site is the set of registered models and the settings shared by their views.
type Site struct {
	cfg     SiteConfig
	db      *gorm.DB
	printer *message.Printer
	models  []registration
	schemas *sync.Map
}

type registration struct {
	App               string `json:"app_label"`
	Model             string `json:"model"`
	VerboseName       string `json:"verbose_name"`
	VerboseNamePlural string `json:"verbose_name_plural"`
	URL               string `json:"url"`
	mount             func(mux goahttp.Muxer)
}

// NewSite creates an empty admin site backed by db.
func NewSite(cfg SiteConfig, db *gorm.DB) *Site {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.ListPerPage <= 0 {
		cfg.ListPerPage = defaultListPerPage
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "/admin/"
	}
	return &Site{
		cfg:     cfg,
		db:      db,
		printer: i18n.Printer(cfg.LanguageCode),
		schemas: &sync.Map{},
	}
}

// Printer translates labels into the site language.
func (s *Site) Printer() *message.Printer { return s.printer }

// Location is the time zone used for display and date filters.
func (s *Site) Location() *time.Location { return s.cfg.Location }

// Register adds a ModelAdmin for T under /<prefix>/<app>/<model>/. It checks
// that every configured field exists on T.
func Register[T any](s *Site, app, model string, ma ModelAdmin[T]) error {
	sch, err := schema.Parse(new(T), s.schemas, s.db.NamingStrategy)
	if err != nil {
		return fmt.Errorf("admin: parse %s.%s: %w", app, model, err)
	}
	if sch.PrioritizedPrimaryField == nil {
		return fmt.Errorf("admin: %s.%s has no primary key", app, model)
	}

	opts := ma.Options()
	groups := [][]string{opts.ListDisplay, opts.SearchFields, opts.ReadonlyFields, opts.FormFields()}
	for _, o := range opts.Ordering {
		groups = append(groups, []string{trimDesc(o)})
	}
	for _, group := range groups {
		for _, name := range group {
			if sch.LookUpField(name) == nil {
				return fmt.Errorf("admin: %s.%s has no field %q", app, model, name)
			}
		}
	}

	v := &modelView[T]{
		site:   s,
		admin:  ma,
		schema: sch,
		base:   s.cfg.Prefix + app + "/" + model + "/",
	}
	s.models = append(s.models, registration{
		App:               app,
		Model:             model,
		VerboseName:       s.printer.Sprintf(opts.VerboseName),
		VerboseNamePlural: s.printer.Sprintf(opts.VerboseNamePlural),
		URL:               v.base,
		mount:             v.mount,
	})
	return nil
}

// Mount registers the index and every model's routes on mux.
func (s *Site) Mount(mux goahttp.Muxer) {
	mux.Handle(http.MethodGet, s.cfg.Prefix, s.index)
	for _, m := range s.models {
		m.mount(mux)
	}
}

// IndexResult describes the admin home page.
type IndexResult struct {
	SiteHeader string         `json:"site_header"`
	SiteTitle  string         `json:"site_title"`
	IndexTitle string         `json:"index_title"`
	Models     []registration `json:"models"`
}

func (s *Site) index(w http.ResponseWriter, r *http.Request) {
	WriteJSON(r.Context(), w, http.StatusOK, &IndexResult{
		SiteHeader: s.cfg.Header,
		SiteTitle:  s.cfg.Title,
		IndexTitle: s.cfg.IndexTitle,
		Models:     s.models,
	})
}

// FormatValue renders a field value the way list cells and exports show it.
func FormatValue(v any, loc *time.Location) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.In(loc).Format(DisplayTimeLayout)
	case *time.Time:
		if val == nil || val.IsZero() {
			return ""
		}
		return val.In(loc).Format(DisplayTimeLayout)
	default:
		return fmt.Sprint(val)
	}
}

func trimDesc(field string) string {
	if len(field) > 0 && field[0] == '-' {
		return field[1:]
	}
	return field
}
