package tui

import (
	"fmt"
	"strings"

	"railctl/internal/console"

	"github.com/charmbracelet/bubbles/key"
)

const listHeight = 20

// View implements tea.Model
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(m.title()))
	b.WriteString("\n\n")

	switch {
	case m.expired:
		b.WriteString(m.renderExpired())
	case m.view.JSON != "":
		b.WriteString(m.styles.Box.Render(m.view.JSON))
		b.WriteString("\n" + m.renderHelp([]key.Binding{m.keys.Back}))
	case m.view.Mode == console.Confirming:
		b.WriteString(m.renderConfirm())
	case m.form != nil:
		b.WriteString(m.renderForm())
	case m.view.Mode == console.ViewingDetail:
		b.WriteString(m.renderDetail())
	default:
		b.WriteString(m.renderList())
	}

	if m.prompt != promptNone {
		label := "Filter"
		if m.prompt == promptFind {
			label = "Find"
		}
		b.WriteString("\n" + m.styles.Label.Render(label+": ") + m.input.View())
	}
	if m.err != "" {
		b.WriteString("\n" + m.styles.Error.Render("✗ "+m.err))
	}
	if m.view.Notice != "" && m.view.Mode == console.None {
		b.WriteString("\n" + m.styles.Success.Render("✓ "+m.view.Notice))
	}
	if s := m.status.View(); s != "" {
		b.WriteString("\n" + s)
	}
	return m.styles.App.Render(b.String())
}

func (m *Model) title() string {
	t := "railctl · " + m.view.Resource
	switch m.view.Mode {
	case console.ViewingDetail, console.Editing:
		if m.view.Selected != nil {
			t += " · " + m.view.Selected.Label
		}
	case console.Creating:
		t += " · new " + m.view.Noun
	}
	return t
}

func (m *Model) renderExpired() string {
	msg := "Your session has expired.\n\nRun `railctl login` in another terminal;\nthis console resumes once the new token is saved."
	return m.styles.Box.Render(m.styles.Warning.Render(msg)) + "\n" + m.renderHelp([]key.Binding{m.keys.Quit})
}

func (m *Model) renderList() string {
	var b strings.Builder

	header := fmt.Sprintf("%d %s", m.view.Count, m.view.Resource)
	if m.view.Query != "" {
		header += "  " + m.styles.Muted.Render("filter: "+m.view.Query)
	}
	if m.find != "" {
		header += "  " + m.styles.Muted.Render(fmt.Sprintf("find: %q (%d shown)", m.find, len(m.visible)))
	}
	b.WriteString(header + "\n\n")

	if m.view.ListErr != nil {
		b.WriteString(m.styles.Error.Render("✗ "+m.view.ListErr.Error()) + "\n")
	} else if len(m.visible) == 0 && !m.view.Loading {
		b.WriteString(m.styles.Muted.Render("no records") + "\n")
	}

	start := 0
	if m.cursor >= listHeight {
		start = m.cursor - listHeight + 1
	}
	end := min(start+listHeight, len(m.visible))
	for i := start; i < end; i++ {
		row := m.view.Rows[m.visible[i]]
		line := fmt.Sprintf("%4d  %s", row.ID, row.Label)
		if i == m.cursor {
			b.WriteString(m.styles.Selected.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	if m.showHelp {
		b.WriteString("\n" + m.renderHelp(m.keys.listHelp()))
	} else {
		b.WriteString("\n" + m.renderHelp([]key.Binding{m.keys.Open, m.keys.Filter, m.keys.Create, m.keys.Help, m.keys.Quit}))
	}
	return b.String()
}

func (m *Model) renderFields(fields []console.Field) string {
	width := 0
	for _, f := range fields {
		width = max(width, len(f.Name))
	}
	var lines []string
	for _, f := range fields {
		name := m.styles.Label.Render(fmt.Sprintf("%-*s", width, f.Name))
		lines = append(lines, name+"  "+f.Value)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderDetail() string {
	body := m.renderFields(m.view.Detail)
	out := m.styles.Box.Render(body)
	if m.view.ModalErr != nil {
		out += "\n" + m.styles.Error.Render("✗ "+m.view.ModalErr.Error())
	}
	return out + "\n" + m.renderHelp(m.keys.detailHelp())
}

func (m *Model) renderForm() string {
	f := m.form
	width := 0
	for _, name := range f.fields {
		width = max(width, len(name))
	}

	var lines []string
	for i, name := range f.fields {
		label := fmt.Sprintf("%-*s", width, name)
		if i == f.focus {
			label = m.styles.Label.Render(label)
		}
		line := label + "  " + f.inputs[i].View()
		if c := f.choiceLabel(i); c != "" {
			line += "  " + m.styles.Muted.Render(c)
		} else if i == f.focus && len(f.choices[name]) > 0 {
			line += "  " + m.styles.Muted.Render(fmt.Sprintf("(%d choices, ctrl+n)", len(f.choices[name])))
		}
		lines = append(lines, line)
	}
	out := m.styles.Box.Render(strings.Join(lines, "\n"))

	if len(m.view.FailedDeps) > 0 {
		out += "\n" + m.styles.Warning.Render("! could not load "+strings.Join(m.view.FailedDeps, ", ")+"; enter ids by hand")
	}
	if m.view.ModalErr != nil {
		out += "\n" + m.styles.Error.Render("✗ "+m.view.ModalErr.Error())
	}
	return out + "\n" + m.renderHelp(m.keys.formHelp())
}

func (m *Model) renderConfirm() string {
	p := m.view.Pending
	if p == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.styles.Label.Render(p.Title) + "\n\n")
	b.WriteString(p.Message + "\n")
	for _, c := range p.Changes {
		b.WriteString("  • " + c + "\n")
	}
	style := m.styles.Box
	if p.Kind == console.ActionDelete {
		style = style.BorderForeground(m.styles.Error.GetForeground())
	}
	out := style.Render(strings.TrimRight(b.String(), "\n"))
	if m.view.Submitting {
		return out + "\n" + m.renderHelp([]key.Binding{m.keys.Back})
	}
	return out + "\n" + m.renderHelp(m.keys.confirmHelp())
}

func (m *Model) renderHelp(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return m.styles.Help.Render(strings.Join(parts, " · "))
}
