package admin

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"contactos/internal/domain"
	apperrors "contactos/pkg/errors"
)

// Lookup is one selectable choice of a list filter.
type Lookup struct {
	Value string
	Label string
}

// ListFilter narrows the change list from a single query parameter.
// Queryset receives the raw parameter value ("" when absent) and must return
// db unchanged for values it does not recognise.
type ListFilter interface {
	Title() string
	ParameterName() string
	Lookups() []Lookup
	Queryset(db *gorm.DB, value string) *gorm.DB
}

// ActionFunc handles a bulk action and writes the full response.
type ActionFunc[T any] func(w http.ResponseWriter, r *http.Request, selection []T) error

// Action is a bulk operation offered on the change list.
type Action[T any] struct {
	Name        string
	Description string
	Func        ActionFunc[T]
}

// Fieldset groups fields on the change form.
type Fieldset struct {
	Name   string
	Fields []string
}

// Options is the declarative part of a ModelAdmin. Field names are database
// column names; labels are English message keys translated by the site.
type Options struct {
	VerboseName       string
	VerboseNamePlural string
	ListDisplay       []string
	SearchFields      []string
	// Ordering entries are column names, prefixed with "-" for descending.
	Ordering       []string
	ReadonlyFields []string
	Fieldsets      []Fieldset
	Labels         map[string]string
}

// Label returns the message key used to title field.
func (o *Options) Label(field string) string {
	if l, ok := o.Labels[field]; ok {
		return l
	}
	return field
}

// IsReadonly reports whether field is listed in ReadonlyFields.
func (o *Options) IsReadonly(field string) bool {
	for _, f := range o.ReadonlyFields {
		if f == field {
			return true
		}
	}
	return false
}

// FormFields returns every field shown on the change form, in fieldset order.
func (o *Options) FormFields() []string {
	var fields []string
	for _, fs := range o.Fieldsets {
		fields = append(fields, fs.Fields...)
	}
	return fields
}

func (o *Options) orderBy() []clause.OrderByColumn {
	cols := make([]clause.OrderByColumn, 0, len(o.Ordering))
	for i, f := range o.Ordering {
		desc := strings.HasPrefix(f, "-")
		cols = append(cols, clause.OrderByColumn{
			Column:  clause.Column{Name: strings.TrimPrefix(f, "-")},
			Desc:    desc,
			Reorder: i == 0,
		})
	}
	return cols
}

// ModelAdmin configures how the admin lists, edits and deletes T.
// Embed BaseAdmin to get the default behaviour and override selectively.
type ModelAdmin[T any] interface {
	Options() *Options
	ListFilters() []ListFilter
	Actions() []Action[T]
	GetQueryset(db *gorm.DB) *gorm.DB
	Validate(obj *T) apperrors.FieldErrors
	SaveModel(ctx context.Context, db *gorm.DB, obj *T, change bool) error
	DeleteModel(ctx context.Context, db *gorm.DB, obj *T) error
	HasAddPermission(user *domain.User) bool
	HasChangePermission(user *domain.User, obj *T) bool
	HasDeletePermission(user *domain.User, obj *T) bool
}

// BaseAdmin provides the default ModelAdmin behaviour.
type BaseAdmin[T any] struct {
	Opts Options
}

func (b *BaseAdmin[T]) Options() *Options { return &b.Opts }

func (b *BaseAdmin[T]) ListFilters() []ListFilter { return nil }

func (b *BaseAdmin[T]) Actions() []Action[T] { return nil }

// GetQueryset returns every row of T, unordered.
func (b *BaseAdmin[T]) GetQueryset(db *gorm.DB) *gorm.DB {
	return db.Model(new(T))
}

func (b *BaseAdmin[T]) Validate(obj *T) apperrors.FieldErrors { return nil }

// SaveModel inserts new objects and updates existing ones, never writing the
// readonly columns on update.
func (b *BaseAdmin[T]) SaveModel(ctx context.Context, db *gorm.DB, obj *T, change bool) error {
	tx := db.WithContext(ctx)
	if !change {
		if err := tx.Create(obj).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", b.Opts.VerboseName, err)
		}
		return nil
	}
	if len(b.Opts.ReadonlyFields) > 0 {
		tx = tx.Omit(b.Opts.ReadonlyFields...)
	}
	if err := tx.Save(obj).Error; err != nil {
		return fmt.Errorf("failed to update %s: %w", b.Opts.VerboseName, err)
	}
	return nil
}

func (b *BaseAdmin[T]) DeleteModel(ctx context.Context, db *gorm.DB, obj *T) error {
	if err := db.WithContext(ctx).Delete(obj).Error; err != nil {
		return fmt.Errorf("failed to delete %s: %w", b.Opts.VerboseName, err)
	}
	return nil
}

func (b *BaseAdmin[T]) HasAddPermission(user *domain.User) bool {
	return user != nil && user.CanAccessAdmin()
}

func (b *BaseAdmin[T]) HasChangePermission(user *domain.User, obj *T) bool {
	return user != nil && user.CanAccessAdmin()
}

// HasDeletePermission only lets superusers delete by default.
func (b *BaseAdmin[T]) HasDeletePermission(user *domain.User, obj *T) bool {
	return user != nil && user.IsActive && user.IsAdmin
}
