package console

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"railctl/internal/binding"
	"railctl/internal/filter"

	"github.com/shopspring/decimal"
)

// Console drives any resource through string-keyed values. It is what
// the command line and the terminal UI talk to.
type Console interface {
	Resource() string
	Noun() string

	SetFilterValues(values url.Values) error
	ClearFilter()
	Refresh()

	Select(index int) error
	SelectID(ctx context.Context, id int64) error
	RequestCreate() error
	RequestEdit() error
	RequestDelete() error
	SubmitValues(values url.Values) error
	Confirm() error
	Cancel()

	ShowJSON() error
	ShowListJSON()
	CloseJSON()

	View() View
	Changes() <-chan struct{}
	Wait()
	Close()
}

// Row is one list entry.
type Row struct {
	ID     int64
	Label  string
	Record any
}

// Field is a named, display-formatted value.
type Field struct {
	Name  string
	Value string
}

// PendingView is a mutation awaiting confirmation.
type PendingView struct {
	Kind    ActionKind
	Title   string
	Message string
	Changes []string
}

// View is a display-ready snapshot of a console.
type View struct {
	Resource string
	Noun     string

	Filter  url.Values
	Query   string
	Rows    []Row
	Count   int
	Loading bool
	ListErr error

	Mode       Mode
	Opening    Mode
	Selected   *Row
	Detail     []Field
	Draft      url.Values
	Fields     []string
	Choices    map[string][]Choice
	FailedDeps []string
	ModalErr   error
	Pending    *PendingView
	Submitting bool

	JSON   string
	Notice string
}

// FilterDecoder turns user input into a filter state for one resource.
type FilterDecoder func(url.Values) (filter.State, error)

type bound[T Entity, P any] struct {
	*Controller[T, P]
	decode FilterDecoder
}

// Bind adapts a controller to the Console interface.
func Bind[T Entity, P any](c *Controller[T, P], decode FilterDecoder) Console {
	return &bound[T, P]{Controller: c, decode: decode}
}

func (b *bound[T, P]) Resource() string { return b.spec.Resource }
func (b *bound[T, P]) Noun() string     { return b.spec.Noun }

func (b *bound[T, P]) SetFilterValues(values url.Values) error {
	if b.decode == nil {
		return fmt.Errorf("%s cannot be filtered", b.spec.Resource)
	}
	state, err := b.decode(values)
	if err != nil {
		return err
	}
	b.SetFilter(state)
	return nil
}

func (b *bound[T, P]) Select(index int) error {
	items := b.Snapshot().Items
	if index < 0 || index >= len(items) {
		return ErrNoSelection
	}
	return b.Controller.Select(items[index])
}

func (b *bound[T, P]) SubmitValues(values url.Values) error {
	snap := b.Snapshot()
	if !snap.HasDraft || (snap.Mode != Creating && snap.Mode != Editing) {
		return b.Controller.Submit(snap.Draft)
	}
	payload := snap.Draft
	if err := binding.Decode(&payload, values); err != nil {
		b.Reject(err)
		return err
	}
	return b.Controller.Submit(payload)
}

func (b *bound[T, P]) View() View {
	s := b.Snapshot()
	v := View{
		Resource:   b.spec.Resource,
		Noun:       b.spec.Noun,
		Filter:     filter.Encode(s.Filter),
		Query:      filter.Query(s.Filter),
		Count:      s.Count,
		Loading:    s.Loading,
		ListErr:    s.ListErr,
		Mode:       s.Mode,
		Opening:    s.Opening,
		FailedDeps: s.Deps.Failed,
		ModalErr:   s.ModalErr,
		Submitting: s.Submitting,
		Notice:     s.Notice,
	}

	v.Rows = make([]Row, len(s.Items))
	for i, it := range s.Items {
		v.Rows[i] = b.row(it)
	}
	if s.HasSelected {
		r := b.row(s.Selected)
		v.Selected = &r
		v.Detail = RecordFields(s.Selected)
	}
	if s.HasDraft {
		v.Fields = binding.FieldNames(s.Draft)
		if draft, err := binding.Encode(s.Draft); err == nil {
			v.Draft = draft
		}
		if b.spec.Choices != nil && s.Deps.Succeeded != nil {
			v.Choices = b.spec.Choices(s.Deps)
		}
	}
	if s.Pending != nil {
		v.Pending = &PendingView{
			Kind:    s.Pending.Kind,
			Title:   s.Pending.Title,
			Message: s.Pending.Message,
			Changes: s.Pending.Changes,
		}
	}
	switch s.JSON {
	case JSONItem:
		if s.HasSelected {
			v.JSON = prettyJSON(s.Selected)
		}
	case JSONList:
		v.JSON = prettyJSON(s.Items)
	}
	return v
}

func (b *bound[T, P]) row(e T) Row {
	return Row{ID: e.EntityID(), Label: b.describe(e), Record: e}
}

func prettyJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}

// RecordFields lists a record's JSON fields in declaration order with
// display formatting. Nested records are rendered as compact JSON.
func RecordFields(v any) []Field {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	var fields []Field
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fields = append(fields, Field{Name: name, Value: FormatValue(rv.Field(i).Interface())})
	}
	return fields
}

// FormatValue renders a single value for display.
func FormatValue(v any) string {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return "-"
		}
		return FormatValue(rv.Elem().Interface())
	}

	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		if x == "" {
			return "-"
		}
		return x
	case time.Time:
		if x.IsZero() {
			return "-"
		}
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 {
			return x.Format(filter.DateLayout)
		}
		return x.Format("2006-01-02 15:04")
	case decimal.Decimal:
		return x.String()
	case fmt.Stringer:
		if s := x.String(); s != "" {
			return s
		}
		return "-"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	case reflect.Bool:
		if rv.Bool() {
			return "yes"
		}
		return "no"
	}
	return fmt.Sprint(v)
}
