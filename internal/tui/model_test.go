package tui

import (
	"context"
	"net/url"
	"testing"

	"railctl/internal/console"
	"railctl/internal/errors"
	"railctl/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConsole records the operations the model drives.
type fakeConsole struct {
	view    console.View
	changes chan struct{}

	filters   []url.Values
	filterErr error
	cleared   int
	refreshed int
	selected  []int
	creates   int
	edits     int
	deletes   int
	submitted []url.Values
	confirms  int
	cancels   int
	jsonOpen  int
}

func newFakeConsole(view console.View) *fakeConsole {
	return &fakeConsole{view: view, changes: make(chan struct{}, 1)}
}

func (f *fakeConsole) Resource() string { return f.view.Resource }
func (f *fakeConsole) Noun() string     { return f.view.Noun }

func (f *fakeConsole) SetFilterValues(values url.Values) error {
	if f.filterErr != nil {
		return f.filterErr
	}
	f.filters = append(f.filters, values)
	return nil
}

func (f *fakeConsole) ClearFilter() { f.cleared++ }
func (f *fakeConsole) Refresh()     { f.refreshed++ }

func (f *fakeConsole) Select(index int) error {
	f.selected = append(f.selected, index)
	return nil
}

func (f *fakeConsole) SelectID(ctx context.Context, id int64) error { return nil }
func (f *fakeConsole) RequestCreate() error                         { f.creates++; return nil }
func (f *fakeConsole) RequestEdit() error                           { f.edits++; return nil }
func (f *fakeConsole) RequestDelete() error                         { f.deletes++; return nil }

func (f *fakeConsole) SubmitValues(values url.Values) error {
	f.submitted = append(f.submitted, values)
	return nil
}

func (f *fakeConsole) Confirm() error { f.confirms++; return nil }
func (f *fakeConsole) Cancel()        { f.cancels++ }

func (f *fakeConsole) ShowJSON() error { f.jsonOpen++; return nil }
func (f *fakeConsole) ShowListJSON()   { f.jsonOpen++ }
func (f *fakeConsole) CloseJSON()      {}

func (f *fakeConsole) View() console.View         { return f.view }
func (f *fakeConsole) Changes() <-chan struct{}   { return f.changes }
func (f *fakeConsole) Wait()                      {}
func (f *fakeConsole) Close()                     {}

func employeeList() console.View {
	return console.View{
		Resource: "employees",
		Noun:     "employee",
		Count:    3,
		Rows: []console.Row{
			{ID: 4, Label: "Anna Petrova"},
			{ID: 5, Label: "Pavel Orlov"},
			{ID: 6, Label: "Sergei Kuznetsov"},
		},
	}
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	save  = tea.KeyMsg{Type: tea.KeyCtrlS}
)

func press(m *Model, msgs ...tea.Msg) {
	for _, msg := range msgs {
		m.Update(msg)
	}
}

func TestFilterPromptReplacesFilter(t *testing.T) {
	fc := newFakeConsole(employeeList())
	m := New(fc, nil, nil)

	press(m, runes("/"), runes(`departmentId=3 isActive=true lastName="van Dijk"`), enter)

	require.Len(t, fc.filters, 1)
	assert.Equal(t, url.Values{
		"departmentId": {"3"},
		"isActive":     {"true"},
		"lastName":     {"van Dijk"},
	}, fc.filters[0])
	assert.Empty(t, m.err)
}

func TestEmptyFilterClearsIt(t *testing.T) {
	view := employeeList()
	view.Filter = url.Values{"departmentId": {"3"}}
	fc := newFakeConsole(view)
	m := New(fc, nil, nil)

	press(m, runes("/"))
	assert.Equal(t, "departmentId=3", m.input.Value(), "prompt starts from the current filter")

	m.input.SetValue("")
	press(m, enter)
	assert.Equal(t, 1, fc.cleared)
	assert.Empty(t, fc.filters)
}

func TestRejectedFilterIsShown(t *testing.T) {
	fc := newFakeConsole(employeeList())
	fc.filterErr = errors.NewValidationError("minSalary", "minSalary: invalid value", nil)
	m := New(fc, nil, nil)

	press(m, runes("/"), runes("minSalary=lots"), enter)
	assert.Contains(t, m.View(), "minSalary: invalid value")
}

func TestOpenSelectsRowUnderCursor(t *testing.T) {
	fc := newFakeConsole(employeeList())
	m := New(fc, nil, nil)

	press(m, runes("j"), runes("j"), runes("j"), runes("k"), enter)
	assert.Equal(t, []int{1}, fc.selected)
}

func TestQuickFindNarrowsLoadedRows(t *testing.T) {
	fc := newFakeConsole(employeeList())
	m := New(fc, nil, nil)

	press(m, runes("f"), runes("pav"), enter)
	assert.Equal(t, 1, len(m.visible))
	assert.Equal(t, 1, m.Selected())
	assert.Contains(t, m.View(), "Pavel Orlov")
	assert.NotContains(t, m.View(), "Anna Petrova")

	press(m, enter)
	assert.Equal(t, []int{1}, fc.selected, "selection maps back to the console row")

	press(m, esc)
	assert.Len(t, m.visible, 3)
}

func TestDetailKeys(t *testing.T) {
	view := employeeList()
	view.Mode = console.ViewingDetail
	view.Selected = &view.Rows[0]
	view.Detail = []console.Field{{Name: "firstName", Value: "Anna"}}
	fc := newFakeConsole(view)
	m := New(fc, nil, nil)

	press(m, runes("e"), runes("d"), runes("J"), esc)
	assert.Equal(t, 1, fc.edits)
	assert.Equal(t, 1, fc.deletes)
	assert.Equal(t, 1, fc.jsonOpen)
	assert.Equal(t, 1, fc.cancels)
	assert.Contains(t, m.View(), "firstName")
}

func TestFormSubmitsEveryField(t *testing.T) {
	view := console.View{
		Resource: "departments",
		Noun:     "department",
		Mode:     console.Creating,
		Fields:   []string{"name", "headId"},
		Draft:    url.Values{"name": {""}, "headId": {""}},
		Choices: map[string][]console.Choice{
			"headId": {{Value: "1", Label: "Olga Smirnova"}, {Value: "2", Label: "Ivan Sokolov"}},
		},
	}
	fc := newFakeConsole(view)
	m := New(fc, nil, nil)
	require.NotNil(t, m.form)

	press(m, runes("Depot"), tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyCtrlN}, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Contains(t, m.View(), "Ivan Sokolov")

	press(m, save)
	require.Len(t, fc.submitted, 1)
	assert.Equal(t, url.Values{"name": {"Depot"}, "headId": {"2"}}, fc.submitted[0])
}

func TestFormKeepsInputAcrossRefreshes(t *testing.T) {
	view := console.View{
		Resource: "departments",
		Mode:     console.Creating,
		Fields:   []string{"name"},
		Draft:    url.Values{"name": {""}},
	}
	fc := newFakeConsole(view)
	m := New(fc, nil, nil)
	press(m, runes("Dep"))

	fc.view.ModalErr = errors.NewValidationError("name", "name is required", nil)
	press(m, changedMsg{})
	assert.Equal(t, "Dep", m.form.values().Get("name"))
	assert.Contains(t, m.View(), "name is required")
}

func TestConfirmationKeys(t *testing.T) {
	view := employeeList()
	view.Mode = console.Confirming
	view.Pending = &console.PendingView{Kind: console.ActionDelete, Title: "Delete employee", Message: "Delete Pavel Orlov?"}
	fc := newFakeConsole(view)
	m := New(fc, nil, nil)

	assert.Contains(t, m.View(), "Delete Pavel Orlov?")
	press(m, runes("y"))
	assert.Equal(t, 1, fc.confirms)
	press(m, runes("n"))
	assert.Equal(t, 1, fc.cancels)
}

func TestJSONOverlayTakesKeys(t *testing.T) {
	view := employeeList()
	view.JSON = `[{"id": 4}]`
	fc := newFakeConsole(view)
	m := New(fc, nil, nil)

	press(m, runes("n"))
	assert.Zero(t, fc.creates, "keys behind the overlay are ignored")
	assert.Contains(t, m.View(), `"id": 4`)
}

func TestSessionExpiryScreen(t *testing.T) {
	sess, err := session.New(session.NewMemoryStore("token"))
	require.NoError(t, err)

	fc := newFakeConsole(employeeList())
	m := New(fc, sess, nil)
	defer m.Close()
	assert.False(t, m.Expired())

	press(m, sessionMsg{Reason: session.Expired, Generation: 1})
	assert.True(t, m.Expired())
	assert.Contains(t, m.View(), "session has expired")

	press(m, runes("n"))
	assert.Zero(t, fc.creates)

	refreshed := fc.refreshed
	press(m, sessionMsg{Reason: session.Reloaded, Generation: 2, HasToken: true})
	assert.False(t, m.Expired())
	assert.Equal(t, refreshed+1, fc.refreshed)
}

func TestSubscriptionDeliversExpiry(t *testing.T) {
	sess, err := session.New(session.NewMemoryStore("token"))
	require.NoError(t, err)

	m := New(newFakeConsole(employeeList()), sess, nil)
	defer m.Close()

	require.True(t, sess.Expire(sess.Snapshot().Generation))
	msg := waitForSession(m.events)()
	press(m, msg)
	assert.True(t, m.Expired())
}

func TestSessionBurstKeepsLatestState(t *testing.T) {
	sess, err := session.New(session.NewMemoryStore("token"))
	require.NoError(t, err)

	m := New(newFakeConsole(employeeList()), sess, nil)
	defer m.Close()

	for i := 0; i < 20; i++ {
		require.NoError(t, sess.SetToken("token"))
		require.True(t, sess.Expire(sess.Snapshot().Generation))
	}
	press(m, waitForSession(m.events)())
	assert.True(t, m.Expired())

	require.NoError(t, sess.SetToken("token"))
	press(m, waitForSession(m.events)())
	assert.False(t, m.Expired())
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"a=1", "name=North Gate", "b=2"}, splitWords(` a=1  name="North Gate" b=2 `))
	assert.Empty(t, splitWords("   "))
}
