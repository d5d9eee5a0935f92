package tui

import (
	"net/url"
	"strings"

	"railctl/internal/console"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// form edits a create/edit draft as one text input per payload field.
type form struct {
	fields  []string
	inputs  []textinput.Model
	choices map[string][]console.Choice
	focus   int
}

func newForm(v console.View) *form {
	f := &form{fields: v.Fields, choices: v.Choices}
	for _, name := range v.Fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 256
		ti.Width = 40
		ti.SetValue(v.Draft.Get(name))
		f.inputs = append(f.inputs, ti)
	}
	if len(f.inputs) > 0 {
		f.inputs[0].Focus()
	}
	return f
}

// values returns every field, blank ones included so they reset.
func (f *form) values() url.Values {
	out := url.Values{}
	for i, name := range f.fields {
		out.Set(name, strings.TrimSpace(f.inputs[i].Value()))
	}
	return out
}

func (f *form) setFocus(i int) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	f.inputs[f.focus].Blur()
	f.focus = (i + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.focus].Focus()
}

func (f *form) next() tea.Cmd { return f.setFocus(f.focus + 1) }
func (f *form) prev() tea.Cmd { return f.setFocus(f.focus - 1) }

// cycleChoice replaces the focused value with the next known choice.
func (f *form) cycleChoice() {
	if len(f.inputs) == 0 {
		return
	}
	opts := f.choices[f.fields[f.focus]]
	if len(opts) == 0 {
		return
	}
	cur := f.inputs[f.focus].Value()
	next := 0
	for i, c := range opts {
		if c.Value == cur {
			next = (i + 1) % len(opts)
			break
		}
	}
	f.inputs[f.focus].SetValue(opts[next].Value)
	f.inputs[f.focus].CursorEnd()
}

// choiceLabel names the choice the field currently holds, if any.
func (f *form) choiceLabel(i int) string {
	v := f.inputs[i].Value()
	for _, c := range f.choices[f.fields[i]] {
		if c.Value == v {
			return c.Label
		}
	}
	return ""
}

func (f *form) update(msg tea.Msg) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}
