package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goahttp "goa.design/goa/v3/http"
	"gorm.io/gorm"

	"contactos/internal/database"
	"contactos/internal/domain"
	apperrors "contactos/pkg/errors"
)

type note struct {
	ID        uint   `gorm:"primaryKey"`
	Title     string `gorm:"not null"`
	Body      string
	CreatedAt time.Time
}

type noteAdmin struct {
	BaseAdmin[note]
}

func newNoteAdmin() *noteAdmin {
	return &noteAdmin{BaseAdmin[note]{Opts: Options{
		VerboseName:       "Note",
		VerboseNamePlural: "Notes",
		ListDisplay:       []string{"title", "body"},
		SearchFields:      []string{"title", "body"},
		Ordering:          []string{"title"},
		ReadonlyFields:    []string{"created_at"},
		Fieldsets:         []Fieldset{{Name: "Note", Fields: []string{"title", "body", "created_at"}}},
	}}}
}

var (
	staffUser = &domain.User{Username: "staff", IsActive: true, IsStaff: true}
	superUser = &domain.User{Username: "root", IsActive: true, IsStaff: true, IsAdmin: true}
)

type noteSite struct {
	db      *gorm.DB
	handler http.Handler
}

func newNoteSite(t *testing.T) *noteSite {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, db.AutoMigrate(&note{}))

	site := NewSite(SiteConfig{Header: "Notes admin", LanguageCode: "en", ListPerPage: 10}, db)
	require.NoError(t, Register[note](site, "notes", "note", newNoteAdmin()))

	mux := goahttp.NewMuxer()
	site.Mount(mux)
	return &noteSite{db: db, handler: mux}
}

func (s *noteSite) serve(user *domain.User, req *http.Request) *httptest.ResponseRecorder {
	if user != nil {
		req = req.WithContext(WithUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *noteSite) post(user *domain.User, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.serve(user, req)
}

func (s *noteSite) list(t *testing.T, query string) ChangeListResult {
	t.Helper()
	rec := s.serve(staffUser, httptest.NewRequest(http.MethodGet, "/admin/notes/note/"+query, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result ChangeListResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result
}

func titles(result ChangeListResult) []string {
	out := make([]string, 0, len(result.Results))
	for _, r := range result.Results {
		out = append(out, r.Values[0])
	}
	return out
}

func TestRegister_RejectsUnknownFields(t *testing.T) {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	site := NewSite(SiteConfig{}, db)
	bad := newNoteAdmin()
	bad.Opts.SearchFields = []string{"title", "author"}

	err = Register[note](site, "notes", "note", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"author"`)

	bad = newNoteAdmin()
	bad.Opts.Ordering = []string{"-published"}
	assert.Error(t, Register[note](site, "notes", "note", bad))
}

func TestChangeList_DeclaredOrderingAndSearch(t *testing.T) {
	s := newNoteSite(t)
	require.NoError(t, s.db.Create(&[]note{
		{Title: "cherry", Body: "red_fruit"},
		{Title: "apple", Body: "green fruit"},
		{Title: "banana", Body: "yellow fruit"},
	}).Error)

	assert.Equal(t, []string{"apple", "banana", "cherry"}, titles(s.list(t, "")))
	assert.Equal(t, []string{"cherry"}, titles(s.list(t, "?q="+url.QueryEscape("_"))))
	assert.Equal(t, []string{"apple"}, titles(s.list(t, "?q="+url.QueryEscape("FRUIT green"))))

	result := s.list(t, "?q=zzz")
	assert.Empty(t, result.Results)
	assert.Equal(t, int64(0), result.ResultCount)
	assert.Equal(t, int64(3), result.FullCount)
	assert.Equal(t, 1, result.NumPages)
}

func TestAdd_JSONBody(t *testing.T) {
	s := newNoteSite(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/notes/note/add/", strings.NewReader(`{"title":"todo","body":"write tests","created_at":"1999-01-01"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := s.serve(staffUser, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var stored note
	require.NoError(t, s.db.First(&stored).Error)
	assert.Equal(t, "todo", stored.Title)
	assert.Equal(t, "write tests", stored.Body)
	assert.NotEqual(t, 1999, stored.CreatedAt.Year())
}

func TestAdd_RequiredField(t *testing.T) {
	s := newNoteSite(t)

	rec := s.post(staffUser, "/admin/notes/note/add/", url.Values{"body": {"no title"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_ERROR", body.Name)
	assert.Equal(t, "This field is required.", body.Errors["title"])
}

func TestPermissions_DefaultDeleteRequiresSuperuser(t *testing.T) {
	s := newNoteSite(t)
	n := note{Title: "keep me"}
	require.NoError(t, s.db.Create(&n).Error)
	target := fmt.Sprintf("/admin/notes/note/%d/delete/", n.ID)

	rec := s.post(staffUser, target, url.Values{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.post(nil, "/admin/notes/note/add/", url.Values{"title": {"anonymous"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.post(superUser, target, url.Values{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var count int64
	require.NoError(t, s.db.Model(&note{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestChangeForm(t *testing.T) {
	s := newNoteSite(t)
	n := note{Title: "draft", Body: "v1"}
	require.NoError(t, s.db.Create(&n).Error)

	rec := s.serve(staffUser, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/admin/notes/note/%d/change/", n.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var form ChangeFormResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &form))
	assert.False(t, form.CanDelete)
	require.Len(t, form.Fieldsets, 1)
	fields := form.Fieldsets[0].Fields
	require.Len(t, fields, 3)
	assert.Equal(t, FieldValue{Name: "title", Label: "title", Value: "draft", Required: true}, fields[0])
	assert.True(t, fields[2].Readonly)
	assert.False(t, fields[2].Required)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantName   string
		wantFault  bool
	}{
		{"record not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), http.StatusNotFound, "NOT_FOUND", false},
		{"forbidden", apperrors.New(apperrors.ErrCodeForbidden, "no"), http.StatusForbidden, "FORBIDDEN", false},
		{"validation", apperrors.Validation(apperrors.FieldErrors{"title": "bad"}), http.StatusBadRequest, "VALIDATION_ERROR", false},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantName, body.Name)
			assert.Equal(t, tt.wantFault, body.Fault)
			assert.NotEmpty(t, body.ID)
			assert.NotContains(t, body.Message, "disk on fire")
		})
	}
}

func TestFormatValue(t *testing.T) {
	madrid := time.FixedZone("CET", 3600)
	ts := time.Date(2024, time.March, 15, 10, 0, 0, 500000000, time.UTC)
	s := "text"

	assert.Equal(t, "", FormatValue(nil, time.UTC))
	assert.Equal(t, "text", FormatValue(s, time.UTC))
	assert.Equal(t, "text", FormatValue(&s, time.UTC))
	assert.Equal(t, "", FormatValue((*string)(nil), time.UTC))
	assert.Equal(t, "2024-03-15 10:00:00.5+00:00", FormatValue(ts, time.UTC))
	assert.Equal(t, "2024-03-15 11:00:00.5+01:00", FormatValue(&ts, madrid))
	assert.Equal(t, "", FormatValue(time.Time{}, time.UTC))
	assert.Equal(t, "42", FormatValue(uint(42), time.UTC))
}
