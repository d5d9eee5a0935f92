// Package tui is the interactive terminal console. It renders whatever a
// console.Console reports and turns keys into console operations; all
// state transitions live in the console itself.
package tui

import (
	"sort"
	"strings"
	"sync"

	"railctl/internal/binding"
	"railctl/internal/config"
	"railctl/internal/console"
	"railctl/internal/session"
	"railctl/internal/tui/components"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

type prompt int

const (
	promptNone prompt = iota
	promptFilter
	promptFind
)

type Model struct {
	console console.Console
	keys    KeyMap
	styles  Styles
	status  *components.StatusBar

	view   console.View
	cursor int
	width  int
	height int

	prompt prompt
	input  textinput.Model
	find   string
	// visible maps displayed rows to indexes in view.Rows.
	visible []int

	form    *form
	formKey string

	events      *sessionFeed
	unsubscribe func()
	expired     bool

	err      string
	showHelp bool
}

// New creates a model over c. When sess is set, an expired session
// switches the console to the session-expired screen, and a later login
// (picked up through the session watcher) brings it back.
func New(c console.Console, sess *session.State, cfg *config.Config) *Model {
	styles := NewStyles(cfg)
	ti := textinput.New()
	ti.CharLimit = 512
	ti.Width = 60

	m := &Model{
		console: c,
		keys:    DefaultKeyMap(),
		styles:  styles,
		status:  components.NewStatusBar(styles.Status),
		input:   ti,
	}
	if sess != nil {
		m.events = newSessionFeed()
		m.unsubscribe = sess.Subscribe(m.events.push)
		m.expired = sess.Token() == ""
	}
	m.sync()
	return m
}

// Close releases the session subscription. The console itself is owned
// by the caller.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

type changedMsg struct{}

type sessionMsg session.Event

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

// sessionFeed keeps only the latest session event. Bursts collapse into
// one wakeup, so the final state is never lost to a full buffer.
type sessionFeed struct {
	mu     sync.Mutex
	latest session.Event
	signal chan struct{}
}

func newSessionFeed() *sessionFeed {
	return &sessionFeed{signal: make(chan struct{}, 1)}
}

func (f *sessionFeed) push(ev session.Event) {
	f.mu.Lock()
	f.latest = ev
	f.mu.Unlock()
	select {
	case f.signal <- struct{}{}:
	default:
	}
}

func (f *sessionFeed) take() session.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

func waitForSession(f *sessionFeed) tea.Cmd {
	if f == nil {
		return nil
	}
	return func() tea.Msg {
		<-f.signal
		return sessionMsg(f.take())
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	if !m.expired {
		m.console.Refresh()
	}
	return tea.Batch(
		waitForChange(m.console.Changes()),
		waitForSession(m.events),
		m.status.Tick(),
	)
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case changedMsg:
		m.sync()
		return m, waitForChange(m.console.Changes())
	case sessionMsg:
		m.handleSession(session.Event(msg))
		return m, waitForSession(m.events)
	case spinner.TickMsg:
		return m, m.status.Update(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleSession(ev session.Event) {
	switch ev.Reason {
	case session.Expired, session.LoggedOut:
		m.expired = true
		m.console.Cancel()
	case session.LoggedIn, session.Reloaded:
		if ev.HasToken && m.expired {
			m.expired = false
			m.err = ""
			m.console.Refresh()
		} else if !ev.HasToken {
			m.expired = true
		}
	}
}

// sync takes a fresh snapshot of the console.
func (m *Model) sync() {
	m.view = m.console.View()
	m.applyFind()

	switch {
	case m.view.Submitting:
		m.status.SetText("saving...")
	case m.view.Opening != console.None:
		m.status.SetText("loading references...")
	case m.view.Loading:
		m.status.SetText("loading...")
	default:
		m.status.SetText(m.summary())
	}
	m.status.SetLoading(m.view.Loading || m.view.Submitting || m.view.Opening != console.None)

	if m.view.Mode == console.Creating || m.view.Mode == console.Editing {
		k := m.view.Mode.String()
		if m.view.Selected != nil {
			k += "/" + strings.TrimSpace(m.view.Selected.Label)
		}
		if m.form == nil || m.formKey != k {
			m.form = newForm(m.view)
			m.formKey = k
		}
	} else {
		m.form = nil
		m.formKey = ""
	}
}

func (m *Model) summary() string {
	s := m.view.Resource
	if m.view.Query != "" {
		s += "?" + m.view.Query
	}
	return s
}

// applyFind narrows the displayed rows to those fuzzy-matching the
// quick-find text, best matches first.
func (m *Model) applyFind() {
	m.visible = m.visible[:0]
	if m.find == "" {
		for i := range m.view.Rows {
			m.visible = append(m.visible, i)
		}
	} else {
		labels := make([]string, len(m.view.Rows))
		for i, r := range m.view.Rows {
			labels[i] = r.Label
		}
		ranks := fuzzy.RankFindNormalizedFold(m.find, labels)
		sort.Stable(ranks)
		for _, r := range ranks {
			m.visible = append(m.visible, r.OriginalIndex)
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) fail(err error) {
	if err != nil {
		m.err = err.Error()
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.expired {
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}
	if m.prompt != promptNone {
		return m.handlePrompt(msg)
	}
	if m.view.JSON != "" {
		if key.Matches(msg, m.keys.Back, m.keys.JSON, m.keys.ListJSON) {
			m.console.CloseJSON()
		}
		return m, nil
	}

	m.err = ""
	switch {
	case m.view.Mode == console.Confirming:
		return m.handleConfirm(msg)
	case m.form != nil:
		return m.handleForm(msg)
	case m.view.Opening != console.None:
		if key.Matches(msg, m.keys.Back) {
			m.console.Cancel()
		}
		return m, nil
	case m.view.Mode == console.ViewingDetail:
		return m.handleDetail(msg)
	}
	return m.handleList(msg)
}

func (m *Model) handleList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.GotoTop):
		m.cursor = 0
	case key.Matches(msg, m.keys.GotoBottom):
		m.cursor = max(len(m.visible)-1, 0)
	case key.Matches(msg, m.keys.Open):
		if len(m.visible) > 0 {
			m.fail(m.console.Select(m.visible[m.cursor]))
		}
	case key.Matches(msg, m.keys.Filter):
		return m, m.openPrompt(promptFilter, filterText(m.view.Filter))
	case key.Matches(msg, m.keys.Find):
		return m, m.openPrompt(promptFind, m.find)
	case key.Matches(msg, m.keys.ClearFilter):
		m.console.ClearFilter()
	case key.Matches(msg, m.keys.Refresh):
		m.console.Refresh()
	case key.Matches(msg, m.keys.Create):
		m.fail(m.console.RequestCreate())
	case key.Matches(msg, m.keys.ListJSON):
		m.console.ShowListJSON()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.Back):
		if m.find != "" {
			m.find = ""
			m.applyFind()
		}
	}
	return m, nil
}

func (m *Model) handleDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Edit):
		m.fail(m.console.RequestEdit())
	case key.Matches(msg, m.keys.Delete):
		m.fail(m.console.RequestDelete())
	case key.Matches(msg, m.keys.JSON):
		m.fail(m.console.ShowJSON())
	case key.Matches(msg, m.keys.Create):
		m.fail(m.console.RequestCreate())
	case key.Matches(msg, m.keys.Back), msg.String() == "backspace":
		m.console.Cancel()
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.console.Cancel()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		m.fail(m.console.SubmitValues(m.form.values()))
		return m, nil
	case msg.String() == "enter":
		if m.form.focus == len(m.form.inputs)-1 {
			m.fail(m.console.SubmitValues(m.form.values()))
			return m, nil
		}
		return m, m.form.next()
	case key.Matches(msg, m.keys.NextField):
		return m, m.form.next()
	case key.Matches(msg, m.keys.PrevField):
		return m, m.form.prev()
	case key.Matches(msg, m.keys.NextChoice):
		m.form.cycleChoice()
		return m, nil
	}
	return m, m.form.update(msg)
}

func (m *Model) handleConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view.Submitting {
		if key.Matches(msg, m.keys.Back) {
			m.console.Cancel()
		}
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Yes):
		m.fail(m.console.Confirm())
	case key.Matches(msg, m.keys.No):
		m.console.Cancel()
	}
	return m, nil
}

func (m *Model) openPrompt(p prompt, value string) tea.Cmd {
	m.prompt = p
	m.input.SetValue(value)
	m.input.CursorEnd()
	if p == promptFilter {
		m.input.Placeholder = "key=value ..."
	} else {
		m.input.Placeholder = "search loaded rows"
	}
	return m.input.Focus()
}

func (m *Model) handlePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.prompt = promptNone
		m.input.Blur()
		return m, nil
	case "enter":
		p := m.prompt
		m.prompt = promptNone
		m.input.Blur()
		text := strings.TrimSpace(m.input.Value())
		if p == promptFind {
			m.find = text
			m.cursor = 0
			m.applyFind()
			return m, nil
		}
		m.err = ""
		m.fail(m.applyFilter(text))
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// applyFilter replaces the whole filter with the criteria typed as
// space-separated key=value pairs. Values with spaces are double-quoted.
func (m *Model) applyFilter(text string) error {
	if text == "" {
		m.console.ClearFilter()
		return nil
	}
	values, err := binding.ParsePairs(splitWords(text))
	if err != nil {
		return err
	}
	m.cursor = 0
	return m.console.SetFilterValues(values)
}

func splitWords(s string) []string {
	var (
		out    []string
		cur    strings.Builder
		quoted bool
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
		case r == ' ' && !quoted:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

func filterText(values map[string][]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var parts []string
	for _, k := range keys {
		for _, v := range values[k] {
			if strings.ContainsRune(v, ' ') {
				v = `"` + v + `"`
			}
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, " ")
}

// Selected returns the index into the console rows under the cursor, or -1.
func (m *Model) Selected() int {
	if len(m.visible) == 0 {
		return -1
	}
	return m.visible[m.cursor]
}

// Expired reports whether the session-expired screen is showing.
func (m *Model) Expired() bool {
	return m.expired
}
