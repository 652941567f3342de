// Package fixtures loads YAML fixture files. A fixture is a sequence of
// records, each with a model label such as "contactos.contacto", an optional
// pk and a fields mapping keyed by column name.
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"contactos/internal/admin"
	"contactos/internal/domain"
	"contactos/internal/services"
)

// ContactModel is the model label of contact records.
const ContactModel = "contactos.contacto"

var timeLayouts = []string{
	admin.DisplayTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Record is one fixture entry.
type Record struct {
	Model  string    `yaml:"model"`
	PK     uint      `yaml:"pk"`
	Fields yaml.Node `yaml:"fields"`
}

type contactFields struct {
	Name         string `yaml:"nombre"`
	Email        string `yaml:"correo"`
	Phone        string `yaml:"telefono"`
	CreationDate string `yaml:"fecha_creacion"`
}

// Parse decodes every record of a fixture document.
func Parse(r io.Reader) ([]Record, error) {
	var records []Record
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return records, nil
}

// Loader saves fixture records through the contact admin.
type Loader struct {
	db       *gorm.DB
	contacts *services.ContactAdmin
}

// NewLoader creates a loader writing to db.
func NewLoader(db *gorm.DB, contacts *services.ContactAdmin) *Loader {
	return &Loader{db: db, contacts: contacts}
}

// Load saves every record of r in a single transaction and returns how many
// were saved. New contacts go through the admin save path, so contacts
// without a creation date are stamped. Records whose pk already exists
// replace the stored row.
func (l *Loader) Load(ctx context.Context, r io.Reader) (int, error) {
	records, err := Parse(r)
	if err != nil {
		return 0, err
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, rec := range records {
			if err := l.save(ctx, tx, rec); err != nil {
				return fmt.Errorf("record %d (%s pk=%d): %w", i, rec.Model, rec.PK, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Printf("[FIXTURES] Installed %d object(s)", len(records))
	return len(records), nil
}

func (l *Loader) save(ctx context.Context, tx *gorm.DB, rec Record) error {
	if !strings.EqualFold(rec.Model, ContactModel) {
		return fmt.Errorf("unknown model %q", rec.Model)
	}

	var fields contactFields
	if err := rec.Fields.Decode(&fields); err != nil {
		return fmt.Errorf("invalid fields: %w", err)
	}
	contact := &domain.Contact{
		ID:    rec.PK,
		Name:  fields.Name,
		Email: fields.Email,
		Phone: fields.Phone,
	}
	if fields.CreationDate != "" {
		t, err := parseTime(fields.CreationDate)
		if err != nil {
			return err
		}
		contact.CreationDate = t
	}
	if errs := l.contacts.Validate(contact); len(errs) > 0 {
		return fmt.Errorf("invalid contact: %s", errs)
	}

	if rec.PK != 0 {
		var existing int64
		if err := tx.Model(&domain.Contact{}).Where("id = ?", rec.PK).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			if contact.CreationDate.IsZero() {
				return tx.Omit(domain.ContactColumnCreationDate).Save(contact).Error
			}
			return tx.Save(contact).Error
		}
	}
	return l.contacts.SaveModel(ctx, tx, contact, false)
}

func parseTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid fecha_creacion %q", value)
}
