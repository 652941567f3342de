package admin

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	searchParam = "q"
	pageParam   = "p"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ApplySearch requires every whitespace separated term of q to match at least
// one of fields as a case-insensitive substring.
func ApplySearch(db *gorm.DB, fields []string, q string) *gorm.DB {
	if len(fields) == 0 {
		return db
	}
	for _, term := range strings.Fields(q) {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		conds := make([]string, len(fields))
		args := make([]any, len(fields))
		for i, f := range fields {
			conds[i] = fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, f)
			args[i] = pattern
		}
		db = db.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
	return db
}

// FilterChoice is one entry of a filter in the change list response.
type FilterChoice struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// FilterSpec describes a list filter and its current selection.
type FilterSpec struct {
	Title     string         `json:"title"`
	Parameter string         `json:"parameter"`
	Choices   []FilterChoice `json:"choices"`
}

// Column is a change list column header.
type Column struct {
	Field string `json:"field"`
	Label string `json:"label"`
}

// Row is a change list row: the primary key and one value per column.
type Row struct {
	ID     any      `json:"id"`
	Values []string `json:"values"`
}

// ActionSpec names a bulk action available on the change list.
type ActionSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ChangeListResult is the change list response.
type ChangeListResult struct {
	Title       string       `json:"title"`
	Columns     []Column     `json:"columns"`
	Results     []Row        `json:"results"`
	ResultCount int64        `json:"result_count"`
	FullCount   int64        `json:"full_count"`
	Page        int          `json:"page"`
	NumPages    int          `json:"num_pages"`
	Search      string       `json:"search"`
	Filters     []FilterSpec `json:"filters"`
	Actions     []ActionSpec `json:"actions"`
}

// queryset builds the admin queryset narrowed by search and list filters in
// params, with the declared ordering and a primary key tiebreaker.
func (v *modelView[T]) queryset(db *gorm.DB, params url.Values) *gorm.DB {
	opts := v.admin.Options()
	qs := v.admin.GetQueryset(db)
	qs = ApplySearch(qs, opts.SearchFields, params.Get(searchParam))
	for _, f := range v.admin.ListFilters() {
		qs = f.Queryset(qs, params.Get(f.ParameterName()))
	}
	for _, col := range opts.orderBy() {
		qs = qs.Order(col)
	}
	return qs.Order(clause.OrderByColumn{
		Column: clause.Column{Name: v.schema.PrioritizedPrimaryField.DBName},
		Desc:   true,
	})
}

func (v *modelView[T]) filterSpecs(params url.Values) []FilterSpec {
	p := v.site.printer
	var specs []FilterSpec
	for _, f := range v.admin.ListFilters() {
		current := params.Get(f.ParameterName())
		choices := []FilterChoice{{Value: "", Label: p.Sprintf("All"), Selected: current == ""}}
		for _, l := range f.Lookups() {
			choices = append(choices, FilterChoice{
				Value:    l.Value,
				Label:    p.Sprintf(l.Label),
				Selected: current == l.Value,
			})
		}
		specs = append(specs, FilterSpec{
			Title:     p.Sprintf(f.Title()),
			Parameter: f.ParameterName(),
			Choices:   choices,
		})
	}
	return specs
}

func (v *modelView[T]) changeList(db *gorm.DB, params url.Values) (*ChangeListResult, error) {
	opts := v.admin.Options()
	p := v.site.printer

	var fullCount int64
	if err := v.admin.GetQueryset(db).Count(&fullCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", opts.VerboseNamePlural, err)
	}

	var resultCount int64
	if err := v.queryset(db, params).Count(&resultCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", opts.VerboseNamePlural, err)
	}

	perPage := v.site.cfg.ListPerPage
	numPages := int(math.Ceil(float64(resultCount) / float64(perPage)))
	if numPages == 0 {
		numPages = 1
	}
	page, err := strconv.Atoi(params.Get(pageParam))
	if err != nil || page < 0 {
		page = 0
	}
	if page >= numPages {
		page = numPages - 1
	}

	var objs []T
	if err := v.queryset(db, params).Offset(page * perPage).Limit(perPage).Find(&objs).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", opts.VerboseNamePlural, err)
	}

	result := &ChangeListResult{
		Title:       p.Sprintf(opts.VerboseNamePlural),
		Results:     make([]Row, 0, len(objs)),
		ResultCount: resultCount,
		FullCount:   fullCount,
		Page:        page,
		NumPages:    numPages,
		Search:      params.Get(searchParam),
		Filters:     v.filterSpecs(params),
	}
	for _, name := range opts.ListDisplay {
		result.Columns = append(result.Columns, Column{Field: name, Label: p.Sprintf(opts.Label(name))})
	}
	for i := range objs {
		result.Results = append(result.Results, Row{
			ID:     v.pk(&objs[i]),
			Values: v.values(&objs[i], opts.ListDisplay),
		})
	}
	for _, a := range v.admin.Actions() {
		result.Actions = append(result.Actions, ActionSpec{Name: a.Name, Description: p.Sprintf(a.Description)})
	}
	return result, nil
}
