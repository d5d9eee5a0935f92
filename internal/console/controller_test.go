package console

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"railctl/internal/errors"
	"railctl/internal/filter"
	"railctl/internal/resolve"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type employee struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Salary       decimal.Decimal `json:"salary"`
	PositionID   int64           `json:"positionId"`
	DepartmentID int64           `json:"departmentId"`
}

func (e employee) EntityID() int64 { return e.ID }

type employeeInput struct {
	Name         string          `json:"name" form:"name" validate:"required"`
	Salary       decimal.Decimal `json:"salary" form:"salary" validate:"gte=0"`
	PositionID   int64           `json:"positionId" form:"positionId" validate:"required"`
	DepartmentID int64           `json:"departmentId" form:"departmentId"`
}

type position struct {
	ID  int64
	Min decimal.Decimal
	Max decimal.Decimal
}

type employeeFilter struct {
	DepartmentID int64 `form:"departmentId"`
}

func (f employeeFilter) State() filter.State {
	return filter.State{}.With("departmentId", filter.ID(f.DepartmentID))
}

type fakeSource struct {
	mu      sync.Mutex
	items   []employee
	lists   []string
	counts  []string
	creates []employeeInput
	updates []int64
	deletes []int64

	listErr     error
	mutationErr error
	// listGate, when set, is consulted before answering a list request.
	listGate func(query url.Values)
	// mutationGate blocks mutations until closed.
	mutationGate chan struct{}
}

func (f *fakeSource) List(ctx context.Context, query url.Values) ([]employee, error) {
	if f.listGate != nil {
		f.listGate(query)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, query.Encode())
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.matching(query), nil
}

func (f *fakeSource) Count(ctx context.Context, query url.Values) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = append(f.counts, query.Encode())
	if f.listErr != nil {
		return 0, f.listErr
	}
	return len(f.matching(query)), nil
}

func (f *fakeSource) matching(query url.Values) []employee {
	out := make([]employee, 0)
	for _, e := range f.items {
		if d := query.Get("departmentId"); d != "" && d != fmt.Sprint(e.DepartmentID) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (f *fakeSource) gate() {
	if f.mutationGate != nil {
		<-f.mutationGate
	}
}

func (f *fakeSource) Create(ctx context.Context, payload interface{}) (employee, error) {
	f.gate()
	f.mu.Lock()
	defer f.mu.Unlock()
	in := payload.(employeeInput)
	f.creates = append(f.creates, in)
	if f.mutationErr != nil {
		return employee{}, f.mutationErr
	}
	e := employee{ID: int64(100 + len(f.creates)), Name: in.Name, Salary: in.Salary, PositionID: in.PositionID}
	f.items = append(f.items, e)
	return e, nil
}

func (f *fakeSource) Update(ctx context.Context, id int64, payload interface{}) (employee, error) {
	f.gate()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, id)
	if f.mutationErr != nil {
		return employee{}, f.mutationErr
	}
	return employee{ID: id}, nil
}

func (f *fakeSource) Delete(ctx context.Context, id int64) error {
	f.gate()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	if f.mutationErr != nil {
		return f.mutationErr
	}
	for i, e := range f.items {
		if e.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeSource) calls() (lists, creates, updates, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lists), len(f.creates), len(f.updates), len(f.deletes)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func staff() []employee {
	return []employee{
		{ID: 7, Name: "Anna Petrova", Salary: dec("45000"), PositionID: 1, DepartmentID: 3},
		{ID: 8, Name: "Oleg Sidorov", Salary: dec("52000"), PositionID: 1, DepartmentID: 3},
		{ID: 9, Name: "Ivan Orlov", Salary: dec("38000"), PositionID: 2, DepartmentID: 4},
	}
}

func employeeSpec() Spec[employee, employeeInput] {
	return Spec[employee, employeeInput]{
		Resource:     "employees",
		Noun:         "employee",
		Dependencies: []string{"positions"},
		Describe:     func(e employee) string { return e.Name },
		DescribeInput: func(in employeeInput) string {
			return in.Name
		},
		Draft: func(e employee) employeeInput {
			return employeeInput{Name: e.Name, Salary: e.Salary, PositionID: e.PositionID, DepartmentID: e.DepartmentID}
		},
		Validate: func(in employeeInput, deps resolve.Set) error {
			positions, ok := resolve.Lookup[[]position](deps, "positions")
			if !ok {
				return errors.NewValidationError("positionId", "positions are unavailable", nil)
			}
			for _, p := range positions {
				if p.ID != in.PositionID {
					continue
				}
				if in.Salary.LessThan(p.Min) || in.Salary.GreaterThan(p.Max) {
					return errors.NewValidationError("salary",
						fmt.Sprintf("salary must be between %s and %s", p.Min, p.Max), nil)
				}
				return nil
			}
			return errors.NewValidationError("positionId", "unknown position", nil)
		},
		Choices: func(deps resolve.Set) map[string][]Choice {
			positions, _ := resolve.Lookup[[]position](deps, "positions")
			out := make([]Choice, 0, len(positions))
			for _, p := range positions {
				out = append(out, Choice{Value: fmt.Sprint(p.ID), Label: fmt.Sprintf("%s-%s", p.Min, p.Max)})
			}
			return map[string][]Choice{"positionId": out}
		},
	}
}

func positionsResolver() *resolve.Resolver {
	r := resolve.New(2)
	r.Register("positions", func(ctx context.Context) (any, error) {
		return []position{
			{ID: 1, Min: dec("30000"), Max: dec("60000")},
			{ID: 2, Min: dec("25000"), Max: dec("40000")},
		}, nil
	})
	return r
}

func newTestController(t *testing.T, src *fakeSource, opts ...Option) *Controller[employee, employeeInput] {
	t.Helper()
	c := New[employee, employeeInput](src, positionsResolver(), employeeSpec(), opts...)
	t.Cleanup(c.Close)
	return c
}

func openForm(t *testing.T, c *Controller[employee, employeeInput], mode Mode) {
	t.Helper()
	if mode == Creating {
		require.NoError(t, c.RequestCreate())
	} else {
		require.NoError(t, c.RequestEdit())
	}
	c.Wait()
	require.Equal(t, mode, c.Snapshot().Mode)
}

func TestRefreshSendsSameQueryToListAndCount(t *testing.T) {
	src := &fakeSource{items: staff()}
	c := newTestController(t, src)

	minSalary := dec("40000")
	c.SetFilter(filter.State{}.
		With("departmentId", filter.ID(3)).
		With("salary", filter.AtLeast(&minSalary)).
		With("name", filter.Match("")))
	c.Wait()

	src.mu.Lock()
	defer src.mu.Unlock()
	require.Len(t, src.lists, 1)
	require.Len(t, src.counts, 1)
	assert.Equal(t, "departmentId=3&minSalary=40000", src.lists[0])
	assert.Equal(t, src.lists[0], src.counts[0])

	snap := c.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, 2, snap.Count)
	assert.Len(t, snap.Items, 2)
}

func TestStaleRefreshIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	src := &fakeSource{items: staff()}
	src.listGate = func(q url.Values) {
		if q.Get("departmentId") == "4" {
			<-release
		}
	}
	c := newTestController(t, src)

	c.SetFilter(filter.State{}.With("departmentId", filter.ID(4)))
	c.SetFilter(filter.State{}.With("departmentId", filter.ID(3)))
	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return !snap.Loading && snap.Count == 2
	}, time.Second, 5*time.Millisecond)

	close(release)
	c.Wait()

	snap := c.Snapshot()
	assert.Equal(t, 2, snap.Count)
	for _, e := range snap.Items {
		assert.Equal(t, int64(3), e.DepartmentID, "slow response for an older filter must not win")
	}
}

func TestRefreshFailureClearsList(t *testing.T) {
	src := &fakeSource{items: staff()}
	c := newTestController(t, src)
	c.Refresh()
	c.Wait()
	require.Len(t, c.Snapshot().Items, 3)

	src.mu.Lock()
	src.listErr = errors.NewNetworkError("GET /employees", fmt.Errorf("connection refused"))
	src.mu.Unlock()
	c.Refresh()
	c.Wait()

	snap := c.Snapshot()
	assert.Empty(t, snap.Items)
	assert.Zero(t, snap.Count)
	assert.True(t, errors.IsNetwork(snap.ListErr))
}

func TestDebounceCoalescesFilterChanges(t *testing.T) {
	src := &fakeSource{items: staff()}
	c := newTestController(t, src, WithDebounce(30*time.Millisecond))

	for _, id := range []int64{3, 4, 3} {
		c.SetFilter(filter.State{}.With("departmentId", filter.ID(id)))
	}
	c.Wait()

	lists, _, _, _ := src.calls()
	assert.Equal(t, 1, lists)
	assert.Equal(t, "departmentId=3", filter.Query(c.Snapshot().Filter))
}

func TestFilterChangeDuringDebounceDiscardsOlderRefresh(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	src := &fakeSource{items: staff()}
	src.listGate = func(q url.Values) {
		if q.Get("departmentId") == "3" {
			started <- struct{}{}
			<-release
		}
	}
	c := newTestController(t, src, WithDebounce(300*time.Millisecond))

	c.SetFilter(filter.State{}.With("departmentId", filter.ID(3)))
	c.Refresh()
	<-started

	c.SetFilter(filter.State{}.With("departmentId", filter.ID(4)))
	assert.True(t, c.Snapshot().Loading)
	close(release)

	assert.Never(t, func() bool {
		for _, e := range c.Snapshot().Items {
			if e.DepartmentID == 3 {
				return true
			}
		}
		return false
	}, 150*time.Millisecond, 5*time.Millisecond, "rows for the replaced filter must not be shown")

	c.Wait()
	snap := c.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, 1, snap.Count)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, int64(4), snap.Items[0].DepartmentID)
}

func TestModesAreExclusive(t *testing.T) {
	src := &fakeSource{items: staff()}
	c := newTestController(t, src)
	c.Refresh()
	c.Wait()

	assert.ErrorIs(t, c.RequestEdit(), ErrInvalidTransition)
	assert.ErrorIs(t, c.RequestDelete(), ErrInvalidTransition)
	assert.ErrorIs(t, c.Confirm(), ErrInvalidTransition)

	require.NoError(t, c.Select(staff()[0]))
	assert.Equal(t, ViewingDetail, c.Snapshot().Mode)

	openForm(t, c, Editing)
	assert.ErrorIs(t, c.Select(staff()[1]), ErrInvalidTransition)
	assert.ErrorIs(t, c.RequestDelete(), ErrInvalidTransition)
	assert.ErrorIs(t, c.RequestCreate(), ErrInvalidTransition)

	c.Cancel()
	snap := c.Snapshot()
	assert.Equal(t, None, snap.Mode)
	assert.False(t, snap.HasSelected)
	assert.False(t, snap.HasDraft)
}

func TestSubmitWaitsForConfirmation(t *testing.T) {
	src := &fakeSource{items: staff()}
	c := newTestController(t, src)
	c.Refresh()
	c.Wait()

	openForm(t, c, Creating)
	require.NoError(t, c.Submit(employeeInput{Name: "Maria Volkova", Salary: dec("31000"), PositionID: 2}))

	snap := c.Snapshot()
	require.Equal(t, Confirming, snap.Mode)
	require.NotNil(t, snap.Pending)
	assert.Equal(t, ActionCreate, snap.Pending.Kind)
	assert.Equal(t, "Create a new employee Maria Volkova?", snap.Pending.Message)
	_, creates, _, _ := src.calls()
	assert.Zero(t, creates, "nothing is sent before confirmation")

	listsBefore, _, _, _ := src.calls()
	require.NoError(t, c.Confirm())
	c.Wait()

	lists, creates, _, _ := src.calls()
	assert.Equal(t, 1, creates)
	assert.Equal(t, listsBefore+1, lists)
	snap = c.Snapshot()
	assert.Equal(t, None, snap.Mode)
	assert.Equal(t, "Employee created", snap.Notice)
	assert.Equal(t, 4, snap.Count)
}

func TestSalaryOutsidePositionBandIsRejectedLocally(t *testing.T) {
	src := &fakeSource{items: staff()}
	c := newTestController(t, src)

	openForm(t, c, Creating)
	err := c.Submit(employeeInput{Name: "Pavel", Salary: dec("1000"), PositionID: 1})
	require.Error(t, err)

	var valErr *errors.ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "salary", valErr.Field())
	assert.Equal(t, "salary must be between 30000 and 60000", valErr.Error())

	snap := c.Snapshot()
	assert.Equal(t, Creating, snap.Mode)
	assert.Equal(t, err, snap.ModalErr)
	assert.Equal(t, "Pavel", snap.Draft.Name, "input is kept for correction")
	_, creates, updates, _ := src.calls()
	assert.Zero(t, creates)
	assert.Zero(t, updates)
}

func TestStructValidationRunsBeforeRules(t *testing.T) {
	src := &fakeSource{items: staff()}
	c := newTestController(t, src)

	openForm(t, c, Creating)
	err := c.Submit(employeeInput{Salary: dec("35000"), PositionID: 1})
	require.True(t, errors.IsValidation(err))
	assert.Equal(t, "name is required", err.Error())
}

func TestDeleteFromFilteredList(t *testing.T) {
	src := &fakeSource{items: staff()}
	c := newTestController(t, src)

	c.SetFilter(filter.State{}.With("departmentId", filter.ID(3)))
	c.Wait()
	require.Equal(t, 2, c.Snapshot().Count)

	require.NoError(t, c.SelectID(context.Background(), 7))
	require.NoError(t, c.RequestDelete())

	snap := c.Snapshot()
	require.NotNil(t, snap.Pending)
	assert.Equal(t, "Delete employee Anna Petrova (ID: 7)?", snap.Pending.Message)
	_, _, _, deletes := src.calls()
	assert.Zero(t, deletes)

	require.NoError(t, c.Confirm())
	c.Wait()

	src.mu.Lock()
	assert.Equal(t, []int64{7}, src.deletes)
	assert.Equal(t, "departmentId=3", src.lists[len(src.lists)-1], "refresh keeps the filter")
	assert.Equal(t, src.lists[len(src.lists)-1], src.counts[len(src.counts)-1])
	src.mu.Unlock()

	snap = c.Snapshot()
	assert.Equal(t, None, snap.Mode)
	assert.Equal(t, "Employee 7 deleted", snap.Notice)
	assert.Equal(t, 1, snap.Count)
	assert.Equal(t, int64(8), snap.Items[0].ID)
}

func TestSelectIDOutsideList(t *testing.T) {
	c := newTestController(t, &fakeSource{})
	err := c.SelectID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNoSelection)
}

func TestFailedDeleteReturnsToDetail(t *testing.T) {
	src := &fakeSource{items: staff(), mutationErr: errors.NewAPIError(409, "employee has active assignments")}
	c := newTestController(t, src)
	c.Refresh()
	c.Wait()

	require.NoError(t, c.SelectID(context.Background(), 8))
	require.NoError(t, c.RequestDelete())
	require.NoError(t, c.Confirm())
	c.Wait()

	snap := c.Snapshot()
	assert.Equal(t, ViewingDetail, snap.Mode)
	assert.Equal(t, int64(8), snap.Selected.ID)
	assert.EqualError(t, snap.ModalErr, "employee has active assignments")
	assert.Nil(t, snap.Pending)
	assert.False(t, snap.Submitting)
}

func TestFailedUpdateKeepsDraft(t *testing.T) {
	src := &fakeSource{items: staff(), mutationErr: errors.NewValidationError("", "salary out of range", nil)}
	c := newTestController(t, src)
	c.Refresh()
	c.Wait()

	require.NoError(t, c.SelectID(context.Background(), 7))
	openForm(t, c, Editing)
	draft := c.Snapshot().Draft
	assert.Equal(t, "Anna Petrova", draft.Name)

	draft.Salary = dec("59000")
	require.NoError(t, c.Submit(draft))
	snap := c.Snapshot()
	require.NotNil(t, snap.Pending)
	assert.Equal(t, []string{"salary"}, snap.Pending.Changes)
	assert.Equal(t, "Save changes for employee Anna Petrova? Changed: salary.", snap.Pending.Message)

	require.NoError(t, c.Confirm())
	c.Wait()

	snap = c.Snapshot()
	assert.Equal(t, Editing, snap.Mode)
	assert.True(t, dec("59000").Equal(snap.Draft.Salary))
	assert.True(t, errors.IsValidation(snap.ModalErr))
}

func TestBusyWhileConfirmedActionRuns(t *testing.T) {
	gate := make(chan struct{})
	src := &fakeSource{items: staff(), mutationGate: gate}
	c := newTestController(t, src)
	c.Refresh()
	c.Wait()

	require.NoError(t, c.SelectID(context.Background(), 9))
	require.NoError(t, c.RequestDelete())
	require.NoError(t, c.Confirm())
	assert.True(t, c.Snapshot().Submitting)

	assert.ErrorIs(t, c.Confirm(), ErrBusy)
	assert.ErrorIs(t, c.Select(staff()[0]), ErrBusy)
	assert.ErrorIs(t, c.RequestCreate(), ErrBusy)
	assert.ErrorIs(t, c.Submit(employeeInput{}), ErrBusy)
	assert.NoError(t, c.ShowJSON(), "the overlay stays available")

	close(gate)
	c.Wait()
	_, _, _, deletes := src.calls()
	assert.Equal(t, 1, deletes)
	assert.False(t, c.Snapshot().Submitting)
}

func TestCancelDiscardsConfirmedResult(t *testing.T) {
	gate := make(chan struct{})
	src := &fakeSource{items: staff(), mutationGate: gate, mutationErr: errors.NewAPIError(500, "")}
	c := newTestController(t, src)
	c.Refresh()
	c.Wait()

	require.NoError(t, c.SelectID(context.Background(), 7))
	require.NoError(t, c.RequestDelete())
	require.NoError(t, c.Confirm())
	listsBefore, _, _, _ := src.calls()
	c.Cancel()

	close(gate)
	c.Wait()

	snap := c.Snapshot()
	assert.Equal(t, None, snap.Mode)
	assert.Nil(t, snap.ModalErr, "the late failure is not shown")
	assert.False(t, snap.HasSelected)
	assert.False(t, snap.Submitting)

	lists, _, _, _ := src.calls()
	assert.Equal(t, listsBefore+1, lists, "the outcome is unknown, so the list is reloaded")
}

func TestCancelledDeleteThatSucceededIsReflected(t *testing.T) {
	gate := make(chan struct{})
	src := &fakeSource{items: staff(), mutationGate: gate}
	c := newTestController(t, src)
	c.Refresh()
	c.Wait()

	require.NoError(t, c.SelectID(context.Background(), 7))
	require.NoError(t, c.RequestDelete())
	require.NoError(t, c.Confirm())
	c.Cancel()

	close(gate)
	c.Wait()

	snap := c.Snapshot()
	assert.Equal(t, 2, snap.Count)
	for _, e := range snap.Items {
		assert.NotEqual(t, int64(7), e.ID)
	}
}

func TestNewerOpenSupersedesOlder(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var calls int
	var mu sync.Mutex
	r := resolve.New(0)
	r.Register("positions", func(ctx context.Context) (any, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			started <- struct{}{}
			<-release
		}
		return []position{{ID: 1, Min: dec("1"), Max: dec("2")}}, nil
	})

	src := &fakeSource{items: staff()}
	c := New[employee, employeeInput](src, r, employeeSpec())
	t.Cleanup(c.Close)

	require.NoError(t, c.Select(staff()[0]))
	require.NoError(t, c.RequestEdit())
	assert.Equal(t, Editing, c.Snapshot().Opening)
	<-started
	require.NoError(t, c.RequestCreate())

	require.Eventually(t, func() bool { return c.Snapshot().Mode == Creating }, time.Second, 5*time.Millisecond)
	close(release)
	c.Wait()

	snap := c.Snapshot()
	assert.Equal(t, Creating, snap.Mode)
	assert.Empty(t, snap.Draft.Name, "the superseded edit form never opens")
	assert.Equal(t, None, snap.Opening)
}

func TestPartialDependencyFailureStillOpensForm(t *testing.T) {
	r := resolve.New(0)
	r.Register("positions", func(ctx context.Context) (any, error) {
		return nil, errors.NewAPIError(503, "")
	})
	c := New[employee, employeeInput](&fakeSource{}, r, employeeSpec())
	t.Cleanup(c.Close)

	openForm(t, c, Creating)
	snap := c.Snapshot()
	assert.Equal(t, []string{"positions"}, snap.Deps.Failed)

	err := c.Submit(employeeInput{Name: "Pavel", Salary: dec("1000"), PositionID: 1})
	require.True(t, errors.IsValidation(err))
	assert.Equal(t, "positions are unavailable", err.Error())
}

func TestJSONOverlayIsIndependentOfMode(t *testing.T) {
	src := &fakeSource{items: staff()}
	c := newTestController(t, src)
	c.Refresh()
	c.Wait()

	assert.ErrorIs(t, c.ShowJSON(), ErrNoSelection)
	c.ShowListJSON()
	assert.Equal(t, JSONList, c.Snapshot().JSON)

	require.NoError(t, c.Select(staff()[1]))
	require.NoError(t, c.ShowJSON())
	snap := c.Snapshot()
	assert.Equal(t, ViewingDetail, snap.Mode)
	assert.Equal(t, JSONItem, snap.JSON)

	c.CloseJSON()
	snap = c.Snapshot()
	assert.Equal(t, ViewingDetail, snap.Mode)
	assert.Equal(t, JSONClosed, snap.JSON)
}

func TestClosedControllerRejectsWork(t *testing.T) {
	src := &fakeSource{items: staff()}
	c := New[employee, employeeInput](src, positionsResolver(), employeeSpec())
	c.Close()

	c.Refresh()
	c.Wait()
	lists, _, _, _ := src.calls()
	assert.Zero(t, lists)
	assert.ErrorIs(t, c.RequestCreate(), ErrClosed)
}
