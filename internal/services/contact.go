package services

import (
	"context"
	"log"
	"regexp"
	"time"

	"golang.org/x/text/message"
	"gorm.io/gorm"

	"contactos/internal/admin"
	"contactos/internal/domain"
	apperrors "contactos/pkg/errors"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ContactAdmin configures the admin for contacts
type ContactAdmin struct {
	admin.BaseAdmin[domain.Contact]

	printer *message.Printer
	loc     *time.Location
	now     func() time.Time
	filter  *FechaCreacionFilter
}

var _ admin.ModelAdmin[domain.Contact] = (*ContactAdmin)(nil)

// NewContactAdmin creates the contact admin. Labels are rendered with printer
// and dates are shown and filtered in loc.
func NewContactAdmin(printer *message.Printer, loc *time.Location) *ContactAdmin {
	if loc == nil {
		loc = time.UTC
	}
	c := &ContactAdmin{
		printer: printer,
		loc:     loc,
		now:     time.Now,
	}
	c.filter = NewFechaCreacionFilter(loc, func() time.Time { return c.now() })
	c.Opts = admin.Options{
		VerboseName:       "Contact",
		VerboseNamePlural: "Contacts",
		ListDisplay: []string{
			domain.ContactColumnName,
			domain.ContactColumnEmail,
			domain.ContactColumnPhone,
			domain.ContactColumnCreationDate,
		},
		SearchFields: []string{
			domain.ContactColumnName,
			domain.ContactColumnEmail,
			domain.ContactColumnPhone,
		},
		Ordering:       []string{"-" + domain.ContactColumnCreationDate},
		ReadonlyFields: []string{domain.ContactColumnCreationDate},
		Fieldsets: []admin.Fieldset{
			{Name: "Personal information", Fields: []string{domain.ContactColumnName, domain.ContactColumnEmail, domain.ContactColumnPhone}},
			{Name: "Additional information", Fields: []string{domain.ContactColumnCreationDate}},
		},
		Labels: map[string]string{
			domain.ContactColumnName:         "Name",
			domain.ContactColumnEmail:        "Email",
			domain.ContactColumnPhone:        "Phone",
			domain.ContactColumnCreationDate: "Creation Date",
		},
	}
	return c
}

// SetClock replaces the time source used for stamping and date filters.
func (c *ContactAdmin) SetClock(now func() time.Time) {
	c.now = now
}

func (c *ContactAdmin) ListFilters() []admin.ListFilter {
	return []admin.ListFilter{c.filter}
}

func (c *ContactAdmin) Actions() []admin.Action[domain.Contact] {
	return []admin.Action[domain.Contact]{
		{Name: ExportActionName, Description: "Export selected contacts to CSV", Func: c.exportCSV},
	}
}

// GetQueryset lists contacts most recent first even when the declared
// ordering is not applied.
func (c *ContactAdmin) GetQueryset(db *gorm.DB) *gorm.DB {
	return db.Model(&domain.Contact{}).Order(domain.ContactColumnCreationDate + " DESC")
}

func (c *ContactAdmin) Validate(obj *domain.Contact) apperrors.FieldErrors {
	if obj.Email != "" && !emailRegex.MatchString(obj.Email) {
		return apperrors.FieldErrors{domain.ContactColumnEmail: "Enter a valid email address."}
	}
	return nil
}

// SaveModel stamps the creation date of new contacts that have none, then
// persists through the default behaviour.
func (c *ContactAdmin) SaveModel(ctx context.Context, db *gorm.DB, obj *domain.Contact, change bool) error {
	if !change && obj.CreationDate.IsZero() {
		obj.CreationDate = c.now().UTC()
	}
	if err := c.BaseAdmin.SaveModel(ctx, db, obj, change); err != nil {
		log.Printf("[CONTACT] Save failed: id=%d, change=%v: %v", obj.ID, change, err)
		return err
	}
	return nil
}

// HasDeletePermission lets any staff user delete contacts.
func (c *ContactAdmin) HasDeletePermission(user *domain.User, obj *domain.Contact) bool {
	return true
}
