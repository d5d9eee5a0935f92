package console

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wI2L/jsondiff"
)

// ActionKind is the kind of mutation awaiting confirmation.
type ActionKind int

const (
	ActionCreate ActionKind = iota
	ActionUpdate
	ActionDelete
)

func (k ActionKind) String() string {
	switch k {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	}
	return "unknown"
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func (c *Controller[T, P]) describe(e T) string {
	if c.spec.Describe != nil {
		if d := strings.TrimSpace(c.spec.Describe(e)); d != "" {
			return d
		}
	}
	return fmt.Sprintf("#%d", e.EntityID())
}

func (c *Controller[T, P]) createPending(p P) *Pending[T, P] {
	label := ""
	if c.spec.DescribeInput != nil {
		label = strings.TrimSpace(c.spec.DescribeInput(p))
	}
	msg := fmt.Sprintf("Create a new %s?", c.spec.Noun)
	if label != "" {
		msg = fmt.Sprintf("Create a new %s %s?", c.spec.Noun, label)
	}
	return &Pending[T, P]{
		Kind:    ActionCreate,
		Title:   "Create " + c.spec.Noun,
		Message: msg,
		Payload: p,
	}
}

func (c *Controller[T, P]) updatePending(target T, p P) *Pending[T, P] {
	var changes []string
	if c.spec.Draft != nil {
		changes = changedFields(c.spec.Draft(target), p)
	}
	msg := fmt.Sprintf("Save changes for %s %s?", c.spec.Noun, c.describe(target))
	if len(changes) == 0 {
		msg += " No fields changed."
	} else {
		msg += " Changed: " + strings.Join(changes, ", ") + "."
	}
	return &Pending[T, P]{
		Kind:    ActionUpdate,
		Title:   "Save " + c.spec.Noun,
		Message: msg,
		Changes: changes,
		Target:  target,
		Payload: p,
	}
}

func (c *Controller[T, P]) deletePending(target T) *Pending[T, P] {
	return &Pending[T, P]{
		Kind:    ActionDelete,
		Title:   "Delete " + c.spec.Noun,
		Message: fmt.Sprintf("Delete %s %s (ID: %d)?", c.spec.Noun, c.describe(target), target.EntityID()),
		Target:  target,
	}
}

func (p Pending[T, P]) done(noun string) string {
	switch p.Kind {
	case ActionCreate:
		return capitalize(noun) + " created"
	case ActionUpdate:
		return fmt.Sprintf("%s %d saved", capitalize(noun), p.Target.EntityID())
	case ActionDelete:
		return fmt.Sprintf("%s %d deleted", capitalize(noun), p.Target.EntityID())
	}
	return ""
}

// changedFields lists the top-level JSON fields that differ between before and after.
func changedFields(before, after interface{}) []string {
	patch, err := jsondiff.Compare(before, after)
	if err != nil {
		return nil
	}
	seen := map[string]bool{}
	var fields []string
	for _, op := range patch {
		field := strings.TrimPrefix(string(op.Path), "/")
		if i := strings.IndexByte(field, '/'); i >= 0 {
			field = field[:i]
		}
		if field == "" || seen[field] {
			continue
		}
		seen[field] = true
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
