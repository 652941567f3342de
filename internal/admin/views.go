package admin

import (
	"context"
	"fmt"
	"log"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	goahttp "goa.design/goa/v3/http"
	"gorm.io/gorm/schema"

	"contactos/internal/domain"
	"contactos/internal/metrics"
	apperrors "contactos/pkg/errors"
)

const (
	actionParam      = "action"
	selectedParam    = "_selected_action"
	selectAcrossFlag = "select_across"
)

type modelView[T any] struct {
	site   *Site
	admin  ModelAdmin[T]
	schema *schema.Schema
	base   string
	mux    goahttp.Muxer
}

func (v *modelView[T]) mount(mux goahttp.Muxer) {
	v.mux = mux
	mux.Handle(http.MethodGet, v.base, v.handleChangeList)
	mux.Handle(http.MethodPost, v.base, v.handleAction)
	mux.Handle(http.MethodGet, v.base+"add/", v.handleAddForm)
	mux.Handle(http.MethodPost, v.base+"add/", v.handleAdd)
	mux.Handle(http.MethodGet, v.base+"{id}/change/", v.handleChangeForm)
	mux.Handle(http.MethodPost, v.base+"{id}/change/", v.handleChange)
	mux.Handle(http.MethodPost, v.base+"{id}/delete/", v.handleDelete)
}

// FieldValue is one field on the change form.
type FieldValue struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Value    string `json:"value"`
	Readonly bool   `json:"readonly"`
	Required bool   `json:"required"`
}

// FieldsetResult is one group of fields on the change form.
type FieldsetResult struct {
	Name   string       `json:"name"`
	Fields []FieldValue `json:"fields"`
}

// ChangeFormResult describes an object (or a blank one) with its fieldsets.
type ChangeFormResult struct {
	ID        any              `json:"id,omitempty"`
	Title     string           `json:"title"`
	Fieldsets []FieldsetResult `json:"fieldsets"`
	CanDelete bool             `json:"can_delete"`
}

// DeleteResult acknowledges a deletion.
type DeleteResult struct {
	ID      any    `json:"id"`
	Deleted bool   `json:"deleted"`
	Message string `json:"message"`
}

func (v *modelView[T]) handleChangeList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := v.changeList(v.site.db.WithContext(ctx), r.URL.Query())
	if err != nil {
		WriteError(ctx, w, err)
		return
	}
	WriteJSON(ctx, w, http.StatusOK, result)
}

func (v *modelView[T]) handleAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := UserFromContext(ctx)

	form, err := ParseForm(r)
	if err != nil {
		WriteError(ctx, w, err)
		return
	}

	name := form.Get(actionParam)
	var action *Action[T]
	for _, a := range v.admin.Actions() {
		if a.Name == name {
			action = &a
			break
		}
	}
	if action == nil {
		WriteError(ctx, w, apperrors.Validation(apperrors.FieldErrors{actionParam: fmt.Sprintf("unknown action %q", name)}))
		return
	}

	// Search and filter parameters of the current change list travel in the
	// query string so select_across sees the same rows.
	qs := v.queryset(v.site.db.WithContext(ctx), r.URL.Query())
	if form.Get(selectAcrossFlag) != "1" {
		ids, err := parseIDs(form[selectedParam])
		if err != nil {
			WriteError(ctx, w, err)
			return
		}
		qs = qs.Where(fmt.Sprintf("%s IN ?", v.schema.PrioritizedPrimaryField.DBName), ids)
	}

	var selection []T
	if err := qs.Find(&selection).Error; err != nil {
		WriteError(ctx, w, fmt.Errorf("failed to load selection: %w", err))
		return
	}
	if len(selection) == 0 {
		WriteError(ctx, w, apperrors.New(apperrors.ErrCodeNotFound, "no matching objects selected"))
		return
	}

	log.Printf("[ADMIN] Action %s on %d %s by %s", action.Name, len(selection), v.admin.Options().VerboseNamePlural, username(user))
	metrics.RecordAdminAction(v.admin.Options().VerboseName, action.Name)
	if err := action.Func(w, r, selection); err != nil {
		WriteError(ctx, w, err)
	}
}

func (v *modelView[T]) handleAddForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := UserFromContext(ctx)
	if !v.admin.HasAddPermission(user) {
		WriteError(ctx, w, apperrors.New(apperrors.ErrCodeForbidden, "permission denied"))
		return
	}
	WriteJSON(ctx, w, http.StatusOK, v.changeForm(new(T), user, false))
}

func (v *modelView[T]) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := UserFromContext(ctx)
	if !v.admin.HasAddPermission(user) {
		WriteError(ctx, w, apperrors.New(apperrors.ErrCodeForbidden, "permission denied"))
		return
	}

	form, err := ParseForm(r)
	if err != nil {
		WriteError(ctx, w, err)
		return
	}

	obj := new(T)
	if err := v.bind(r, obj, form); err != nil {
		WriteError(ctx, w, err)
		return
	}
	if err := v.admin.SaveModel(ctx, v.site.db, obj, false); err != nil {
		WriteError(ctx, w, err)
		return
	}

	log.Printf("[ADMIN] Added %s id=%v by %s", v.admin.Options().VerboseName, v.pk(obj), username(user))
	metrics.RecordObjectSaved(v.admin.Options().VerboseName, false)
	WriteJSON(ctx, w, http.StatusCreated, v.changeForm(obj, user, true))
}

func (v *modelView[T]) handleChangeForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := UserFromContext(ctx)

	obj, err := v.load(r)
	if err != nil {
		WriteError(ctx, w, err)
		return
	}
	WriteJSON(ctx, w, http.StatusOK, v.changeForm(obj, user, true))
}

func (v *modelView[T]) handleChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := UserFromContext(ctx)

	obj, err := v.load(r)
	if err != nil {
		WriteError(ctx, w, err)
		return
	}
	if !v.admin.HasChangePermission(user, obj) {
		WriteError(ctx, w, apperrors.New(apperrors.ErrCodeForbidden, "permission denied"))
		return
	}

	form, err := ParseForm(r)
	if err != nil {
		WriteError(ctx, w, err)
		return
	}
	if err := v.bind(r, obj, form); err != nil {
		WriteError(ctx, w, err)
		return
	}
	if err := v.admin.SaveModel(ctx, v.site.db, obj, true); err != nil {
		WriteError(ctx, w, err)
		return
	}

	log.Printf("[ADMIN] Changed %s id=%v by %s", v.admin.Options().VerboseName, v.pk(obj), username(user))
	metrics.RecordObjectSaved(v.admin.Options().VerboseName, true)
	WriteJSON(ctx, w, http.StatusOK, v.changeForm(obj, user, true))
}

func (v *modelView[T]) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := UserFromContext(ctx)

	obj, err := v.load(r)
	if err != nil {
		WriteError(ctx, w, err)
		return
	}
	if !v.admin.HasDeletePermission(user, obj) {
		WriteError(ctx, w, apperrors.New(apperrors.ErrCodeForbidden, "permission denied"))
		return
	}
	if err := v.admin.DeleteModel(ctx, v.site.db, obj); err != nil {
		WriteError(ctx, w, err)
		return
	}

	id := v.pk(obj)
	log.Printf("[ADMIN] Deleted %s id=%v by %s", v.admin.Options().VerboseName, id, username(user))
	metrics.RecordObjectDeleted(v.admin.Options().VerboseName)
	WriteJSON(ctx, w, http.StatusOK, &DeleteResult{
		ID:      id,
		Deleted: true,
		Message: fmt.Sprintf("%s deleted", v.admin.Options().VerboseName),
	})
}

// load fetches the object named by the {id} path variable through the admin
// queryset.
func (v *modelView[T]) load(r *http.Request) (*T, error) {
	raw := v.mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("%s %q not found", v.admin.Options().VerboseName, raw))
	}

	obj := new(T)
	pk := v.schema.PrioritizedPrimaryField.DBName
	if err := v.admin.GetQueryset(v.site.db.WithContext(r.Context())).Where(pk+" = ?", id).Take(obj).Error; err != nil {
		return nil, err
	}
	return obj, nil
}

// bind copies the editable fields present in form onto obj, then checks
// required fields and the ModelAdmin's own validation.
func (v *modelView[T]) bind(r *http.Request, obj *T, form url.Values) error {
	ctx := r.Context()
	opts := v.admin.Options()
	p := v.site.printer
	rv := reflect.ValueOf(obj)
	errs := apperrors.FieldErrors{}

	for _, name := range opts.FormFields() {
		if opts.IsReadonly(name) {
			continue
		}
		field := v.schema.LookUpField(name)
		if _, ok := form[name]; !ok {
			continue
		}
		if err := field.Set(ctx, rv, strings.TrimSpace(form.Get(name))); err != nil {
			errs[name] = err.Error()
		}
	}

	for _, name := range opts.FormFields() {
		if _, bad := errs[name]; bad || opts.IsReadonly(name) {
			continue
		}
		field := v.schema.LookUpField(name)
		if !field.NotNull || field.FieldType.Kind() != reflect.String {
			continue
		}
		if val, _ := field.ValueOf(ctx, rv); strings.TrimSpace(fmt.Sprint(val)) == "" {
			errs[name] = p.Sprintf("This field is required.")
		}
	}

	for name, msg := range v.admin.Validate(obj) {
		if _, exists := errs[name]; !exists {
			errs[name] = p.Sprintf(msg)
		}
	}

	if len(errs) > 0 {
		return apperrors.Validation(errs)
	}
	return nil
}

func (v *modelView[T]) changeForm(obj *T, user *domain.User, existing bool) *ChangeFormResult {
	opts := v.admin.Options()
	p := v.site.printer
	result := &ChangeFormResult{
		Title:     p.Sprintf(opts.VerboseName),
		CanDelete: existing && v.admin.HasDeletePermission(user, obj),
	}
	if existing {
		result.ID = v.pk(obj)
	}
	for _, fs := range opts.Fieldsets {
		values := v.values(obj, fs.Fields)
		group := FieldsetResult{Name: p.Sprintf(fs.Name)}
		for i, name := range fs.Fields {
			field := v.schema.LookUpField(name)
			group.Fields = append(group.Fields, FieldValue{
				Name:     name,
				Label:    p.Sprintf(opts.Label(name)),
				Value:    values[i],
				Readonly: opts.IsReadonly(name),
				Required: field.NotNull && !opts.IsReadonly(name),
			})
		}
		result.Fieldsets = append(result.Fieldsets, group)
	}
	return result
}

func (v *modelView[T]) pk(obj *T) any {
	val, _ := v.schema.PrioritizedPrimaryField.ValueOf(context.Background(), reflect.ValueOf(obj))
	return val
}

func (v *modelView[T]) values(obj *T, fields []string) []string {
	rv := reflect.ValueOf(obj)
	out := make([]string, len(fields))
	for i, name := range fields {
		val, _ := v.schema.LookUpField(name).ValueOf(context.Background(), rv)
		out[i] = FormatValue(val, v.site.cfg.Location)
	}
	return out
}

// ParseForm reads a urlencoded/multipart form or a JSON object of strings
// (or arrays of strings for multi-valued fields).
func ParseForm(r *http.Request) (url.Values, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		if err := r.ParseForm(); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeBadRequest, "malformed form", err)
		}
		return r.PostForm, nil
	}

	var body map[string]any
	if err := goahttp.RequestDecoder(r).Decode(&body); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeBadRequest, "malformed JSON body", err)
	}
	form := url.Values{}
	for k, raw := range body {
		switch val := raw.(type) {
		case []any:
			for _, item := range val {
				form.Add(k, scalar(item))
			}
		case nil:
			form.Set(k, "")
		default:
			form.Set(k, scalar(val))
		}
	}
	return form, nil
}

func parseIDs(raw []string) ([]uint64, error) {
	if len(raw) == 0 {
		return nil, apperrors.Validation(apperrors.FieldErrors{
			selectedParam: "Items must be selected in order to perform actions on them.",
		})
	}
	ids := make([]uint64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, apperrors.Validation(apperrors.FieldErrors{selectedParam: fmt.Sprintf("invalid id %q", s)})
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func scalar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func username(u *domain.User) string {
	if u == nil {
		return "anonymous"
	}
	return u.Username
}
