// Package console implements the filtered resource console: a filtered
// listing kept in sync with its count, and a single-modal lifecycle for
// inspecting, creating, editing and deleting records behind an explicit
// confirmation.
package console

import (
	"context"
	"net/url"
	"sync"
	"time"

	"railctl/internal/binding"
	"railctl/internal/errors"
	"railctl/internal/filter"
	"railctl/internal/log"
	"railctl/internal/resolve"

	"golang.org/x/sync/errgroup"
)

// Mode is the primary modal state. Exactly one is active at a time.
type Mode int

const (
	None Mode = iota
	ViewingDetail
	Creating
	Editing
	Confirming
)

func (m Mode) String() string {
	switch m {
	case None:
		return "list"
	case ViewingDetail:
		return "detail"
	case Creating:
		return "create"
	case Editing:
		return "edit"
	case Confirming:
		return "confirm"
	}
	return "unknown"
}

// JSONView is the raw-JSON overlay, independent of Mode.
type JSONView int

const (
	JSONClosed JSONView = iota
	JSONItem
	JSONList
)

var (
	ErrBusy              = errors.New("a confirmed action is still running")
	ErrInvalidTransition = errors.New("not available in the current view")
	ErrNoSelection       = errors.New("no record selected")
	ErrClosed            = errors.New("console closed")
)

// Entity is a record with an integer identity.
type Entity interface {
	EntityID() int64
}

// Source is the backend collection a controller drives.
type Source[T Entity] interface {
	List(ctx context.Context, query url.Values) ([]T, error)
	Count(ctx context.Context, query url.Values) (int, error)
	Create(ctx context.Context, payload interface{}) (T, error)
	Update(ctx context.Context, id int64, payload interface{}) (T, error)
	Delete(ctx context.Context, id int64) error
}

// Getter is implemented by sources that can fetch a single record.
type Getter[T Entity] interface {
	Get(ctx context.Context, id int64) (T, error)
}

// Dependencies resolves reference collections by name.
type Dependencies interface {
	Resolve(ctx context.Context, names ...string) resolve.Set
}

// Choice is one selectable value for a foreign-key field.
type Choice struct {
	Value string
	Label string
}

// Spec describes one resource to the controller.
type Spec[T Entity, P any] struct {
	Resource     string   // collection path, e.g. "employees"
	Noun         string   // singular, e.g. "employee"
	Dependencies []string // reference collections the form needs

	Describe      func(T) string
	DescribeInput func(P) string
	Blank         func() P
	Draft         func(T) P
	// Validate runs after struct-tag validation with the resolved dependencies.
	Validate func(P, resolve.Set) error
	// Choices builds foreign-key options from resolved dependencies.
	Choices func(resolve.Set) map[string][]Choice
}

// Pending is a mutation awaiting confirmation.
type Pending[T Entity, P any] struct {
	Kind    ActionKind
	Title   string
	Message string
	Changes []string
	Target  T
	Payload P
}

// Snapshot is a consistent copy of the controller state.
type Snapshot[T Entity, P any] struct {
	Filter  filter.State
	Items   []T
	Count   int
	Loading bool
	ListErr error

	Mode        Mode
	Opening     Mode
	Selected    T
	HasSelected bool
	Draft       P
	HasDraft    bool
	Deps        resolve.Set
	ModalErr    error
	Pending     *Pending[T, P]
	Submitting  bool

	JSON   JSONView
	Notice string
}

type options struct {
	debounce time.Duration
}

// Option configures a Controller.
type Option func(*options)

// WithDebounce delays refreshes after filter changes by d; 0 refreshes immediately.
func WithDebounce(d time.Duration) Option {
	return func(o *options) { o.debounce = d }
}

// Controller owns the console state for one resource. All methods are
// safe for concurrent use; network work runs on background goroutines
// and state changes are signalled on Changes.
type Controller[T Entity, P any] struct {
	spec Spec[T, P]
	src  Source[T]
	deps Dependencies
	opts options

	baseCtx    context.Context
	baseCancel context.CancelFunc
	changes    chan struct{}
	wg         sync.WaitGroup

	mu     sync.Mutex
	closed bool

	filter        filter.State
	items         []T
	count         int
	loading       bool
	listErr       error
	refreshToken  uint64
	refreshCancel context.CancelFunc
	timer         *time.Timer

	mode        Mode
	selected    T
	hasSelected bool
	draft       P
	hasDraft    bool
	formMode    Mode
	depSet      resolve.Set
	modalErr    error
	notice      string
	jsonView    JSONView

	opening    Mode
	openEpoch  uint64
	openCancel context.CancelFunc

	pending    *Pending[T, P]
	submitting bool
	mutEpoch   uint64
	mutCancel  context.CancelFunc
}

// New creates a controller with an empty filter. Call Refresh to load.
func New[T Entity, P any](src Source[T], deps Dependencies, spec Spec[T, P], opts ...Option) *Controller[T, P] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller[T, P]{
		spec:       spec,
		src:        src,
		deps:       deps,
		opts:       o,
		baseCtx:    ctx,
		baseCancel: cancel,
		changes:    make(chan struct{}, 1),
		filter:     filter.State{},
	}
}

// Spec returns the resource description.
func (c *Controller[T, P]) Spec() Spec[T, P] {
	return c.spec
}

// Changes signals after every state change. Signals coalesce; read
// Snapshot after receiving.
func (c *Controller[T, P]) Changes() <-chan struct{} {
	return c.changes
}

func (c *Controller[T, P]) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

func (c *Controller[T, P]) logger() *log.Logger {
	return log.LogWithFields(log.F("resource", c.spec.Resource))
}

// Snapshot returns a copy of the current state.
func (c *Controller[T, P]) Snapshot() Snapshot[T, P] {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot[T, P]{
		Filter:      c.filter.Clone(),
		Items:       append([]T(nil), c.items...),
		Count:       c.count,
		Loading:     c.loading,
		ListErr:     c.listErr,
		Mode:        c.mode,
		Opening:     c.opening,
		Selected:    c.selected,
		HasSelected: c.hasSelected,
		Draft:       c.draft,
		HasDraft:    c.hasDraft,
		Deps:        c.depSet,
		ModalErr:    c.modalErr,
		Submitting:  c.submitting,
		JSON:        c.jsonView,
		Notice:      c.notice,
	}
	if c.pending != nil {
		p := *c.pending
		s.Pending = &p
	}
	return s
}

// SetFilter replaces the filter and schedules a refresh.
func (c *Controller[T, P]) SetFilter(s filter.State) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	next := filter.State{}
	for name, cr := range s {
		next = next.With(name, cr)
	}
	c.filter = next

	if c.opts.debounce <= 0 {
		c.mu.Unlock()
		c.Refresh()
		return
	}

	// The refresh in flight belongs to the old filter.
	c.refreshToken++
	if c.refreshCancel != nil {
		c.refreshCancel()
		c.refreshCancel = nil
	}
	c.loading = true

	c.stopTimerLocked()
	c.wg.Add(1)
	c.timer = time.AfterFunc(c.opts.debounce, func() {
		defer c.wg.Done()
		c.Refresh()
	})
	c.mu.Unlock()
	c.notify()
}

// SetCriterion sets one criterion; an empty criterion removes it.
func (c *Controller[T, P]) SetCriterion(name string, cr filter.Criterion) {
	c.SetFilter(c.Snapshot().Filter.With(name, cr))
}

// ClearFilter removes every criterion.
func (c *Controller[T, P]) ClearFilter() {
	c.SetFilter(filter.State{})
}

func (c *Controller[T, P]) stopTimerLocked() {
	if c.timer != nil && c.timer.Stop() {
		c.wg.Done()
	}
	c.timer = nil
}

// Refresh reloads list and count for the current filter. The query is
// encoded once and sent to both requests. Any refresh still in flight is
// cancelled and its results are discarded.
func (c *Controller[T, P]) Refresh() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()

	c.refreshToken++
	token := c.refreshToken
	if c.refreshCancel != nil {
		c.refreshCancel()
	}
	ctx, cancel := context.WithCancel(c.baseCtx)
	c.refreshCancel = cancel
	query := filter.Encode(c.filter)
	c.loading = true
	c.wg.Add(1)
	c.mu.Unlock()
	c.notify()

	go c.fetch(ctx, cancel, token, query)
}

func (c *Controller[T, P]) fetch(ctx context.Context, cancel context.CancelFunc, token uint64, query url.Values) {
	defer c.wg.Done()
	defer cancel()

	var (
		items []T
		count int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = c.src.List(gctx, query)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = c.src.Count(gctx, query)
		return err
	})
	err := g.Wait()

	c.mu.Lock()
	if token != c.refreshToken || c.closed {
		c.mu.Unlock()
		c.logger().With(log.F("token", token)).Debug("discarded stale refresh")
		return
	}
	c.loading = false
	c.refreshCancel = nil
	if err != nil {
		c.items = nil
		c.count = 0
		c.listErr = err
	} else {
		c.items = items
		c.count = count
		c.listErr = nil
	}
	c.mu.Unlock()

	if err != nil {
		c.logger().WithError(err).Warn("refresh failed")
	} else {
		c.logger().With(log.F("count", count), log.F("query", query.Encode())).Debug("refreshed")
	}
	c.notify()
}

func (c *Controller[T, P]) guardLocked() error {
	if c.closed {
		return ErrClosed
	}
	if c.submitting {
		return ErrBusy
	}
	return nil
}

func (c *Controller[T, P]) cancelOpeningLocked() {
	if c.openCancel != nil {
		c.openCancel()
		c.openCancel = nil
	}
	c.openEpoch++
	c.opening = None
}

func (c *Controller[T, P]) transition(op string) error {
	return errors.Wrapf(ErrInvalidTransition, "cannot %s in %s view", op, c.mode)
}

// Select opens the detail view for e.
func (c *Controller[T, P]) Select(e T) error {
	c.mu.Lock()
	if err := c.guardLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.mode != None && c.mode != ViewingDetail {
		err := c.transition("select")
		c.mu.Unlock()
		return err
	}
	c.cancelOpeningLocked()
	c.mode = ViewingDetail
	c.selected = e
	c.hasSelected = true
	c.modalErr = nil
	c.notice = ""
	if c.jsonView == JSONItem {
		c.jsonView = JSONClosed
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

// SelectID selects the record with id from the current list, fetching it
// when the source supports single-record reads.
func (c *Controller[T, P]) SelectID(ctx context.Context, id int64) error {
	for _, it := range c.Snapshot().Items {
		if it.EntityID() == id {
			return c.Select(it)
		}
	}
	g, ok := c.src.(Getter[T])
	if !ok {
		return errors.Wrapf(ErrNoSelection, "%s %d is not in the current list", c.spec.Noun, id)
	}
	e, err := g.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.Select(e)
}

// RequestCreate resolves the form's dependencies and then opens an empty
// create form.
func (c *Controller[T, P]) RequestCreate() error {
	return c.open(Creating)
}

// RequestEdit resolves the form's dependencies and then opens the edit
// form for the selected record.
func (c *Controller[T, P]) RequestEdit() error {
	return c.open(Editing)
}

func (c *Controller[T, P]) open(target Mode) error {
	c.mu.Lock()
	if err := c.guardLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	switch target {
	case Creating:
		if c.mode != None && c.mode != ViewingDetail {
			err := c.transition("create")
			c.mu.Unlock()
			return err
		}
	case Editing:
		if c.mode != ViewingDetail || !c.hasSelected {
			err := c.transition("edit")
			c.mu.Unlock()
			return err
		}
	}

	c.cancelOpeningLocked()
	epoch := c.openEpoch
	ctx, cancel := context.WithCancel(c.baseCtx)
	c.openCancel = cancel
	c.opening = target
	c.modalErr = nil
	c.notice = ""
	selected := c.selected
	c.wg.Add(1)
	c.mu.Unlock()
	c.notify()

	go func() {
		defer c.wg.Done()
		defer cancel()

		set := resolve.Set{Succeeded: map[string]any{}, Errors: map[string]error{}}
		if len(c.spec.Dependencies) > 0 && c.deps != nil {
			set = c.deps.Resolve(ctx, c.spec.Dependencies...)
		}

		c.mu.Lock()
		if epoch != c.openEpoch || c.closed {
			c.mu.Unlock()
			return
		}
		c.openCancel = nil
		c.opening = None
		c.depSet = set
		c.mode = target
		c.formMode = target
		if target == Creating {
			c.draft = c.blank()
		} else {
			c.draft = c.spec.Draft(selected)
		}
		c.hasDraft = true
		c.mu.Unlock()

		if !set.OK() {
			c.logger().With(log.F("failed", set.Failed)).Warn("form opened with unresolved dependencies")
		}
		c.notify()
	}()
	return nil
}

func (c *Controller[T, P]) blank() P {
	if c.spec.Blank != nil {
		return c.spec.Blank()
	}
	var zero P
	return zero
}

// Submit validates payload and, when valid, moves to the confirmation
// step. Invalid input stays in the form with the error recorded and no
// request is sent.
func (c *Controller[T, P]) Submit(payload P) error {
	c.mu.Lock()
	if err := c.guardLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.mode != Creating && c.mode != Editing {
		err := c.transition("submit")
		c.mu.Unlock()
		return err
	}
	mode := c.mode
	deps := c.depSet
	selected := c.selected
	c.mu.Unlock()

	err := binding.Validate(&payload)
	if err == nil && c.spec.Validate != nil {
		err = c.spec.Validate(payload, deps)
	}

	var pending *Pending[T, P]
	if err == nil {
		if mode == Creating {
			pending = c.createPending(payload)
		} else {
			pending = c.updatePending(selected, payload)
		}
	}

	c.mu.Lock()
	if c.mode != mode || c.closed {
		c.mu.Unlock()
		return c.transition("submit")
	}
	c.draft = payload
	if err != nil {
		c.modalErr = err
		c.mu.Unlock()
		c.notify()
		return err
	}
	c.modalErr = nil
	c.pending = pending
	c.mode = Confirming
	c.mu.Unlock()
	c.notify()
	return nil
}

// Reject records err against the open form without submitting.
func (c *Controller[T, P]) Reject(err error) {
	c.mu.Lock()
	if c.mode == Creating || c.mode == Editing {
		c.modalErr = err
	}
	c.mu.Unlock()
	c.notify()
}

// RequestDelete asks for confirmation to delete the selected record.
func (c *Controller[T, P]) RequestDelete() error {
	c.mu.Lock()
	if err := c.guardLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.mode != ViewingDetail || !c.hasSelected {
		err := c.transition("delete")
		c.mu.Unlock()
		return err
	}
	c.cancelOpeningLocked()
	c.pending = c.deletePending(c.selected)
	c.mode = Confirming
	c.modalErr = nil
	c.notice = ""
	c.mu.Unlock()
	c.notify()
	return nil
}

// Confirm executes the pending mutation in the background. On success
// the modal closes and the list refreshes with the unchanged filter. On
// failure a create or update returns to its form with the input kept,
// and a delete returns to the record's detail view.
func (c *Controller[T, P]) Confirm() error {
	c.mu.Lock()
	if err := c.guardLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.mode != Confirming || c.pending == nil {
		err := c.transition("confirm")
		c.mu.Unlock()
		return err
	}
	c.submitting = true
	c.mutEpoch++
	epoch := c.mutEpoch
	ctx, cancel := context.WithCancel(c.baseCtx)
	c.mutCancel = cancel
	pending := *c.pending
	formMode := c.formMode
	c.wg.Add(1)
	c.mu.Unlock()
	c.notify()

	go func() {
		defer c.wg.Done()
		defer cancel()

		err := c.execute(ctx, pending)
		logger := c.logger().With(log.F("action", pending.Kind.String()))

		c.mu.Lock()
		if epoch != c.mutEpoch || c.closed {
			c.mu.Unlock()
			logger.Debug("discarded result of cancelled action")
			// The server may have applied it before the cancel arrived.
			c.Refresh()
			return
		}
		c.submitting = false
		c.mutCancel = nil
		c.pending = nil
		if err == nil {
			c.resetModalLocked()
			c.notice = pending.done(c.spec.Noun)
		} else {
			c.modalErr = err
			if pending.Kind == ActionDelete {
				c.mode = ViewingDetail
			} else {
				c.mode = formMode
			}
		}
		c.mu.Unlock()
		c.notify()

		if err != nil {
			logger.WithError(err).Warn("action failed")
			return
		}
		logger.Info("action completed")
		c.Refresh()
	}()
	return nil
}

func (c *Controller[T, P]) execute(ctx context.Context, p Pending[T, P]) error {
	switch p.Kind {
	case ActionCreate:
		_, err := c.src.Create(ctx, p.Payload)
		return err
	case ActionUpdate:
		_, err := c.src.Update(ctx, p.Target.EntityID(), p.Payload)
		return err
	case ActionDelete:
		return c.src.Delete(ctx, p.Target.EntityID())
	}
	return errors.Newf("unknown action %d", p.Kind)
}

func (c *Controller[T, P]) resetModalLocked() {
	var zeroT T
	var zeroP P
	c.mode = None
	c.selected = zeroT
	c.hasSelected = false
	c.draft = zeroP
	c.hasDraft = false
	c.depSet = resolve.Set{}
	c.modalErr = nil
	c.pending = nil
	if c.jsonView == JSONItem {
		c.jsonView = JSONClosed
	}
}

// Cancel closes whatever is open and returns to the plain list. Work in
// flight for the modal (dependency resolution or a confirmed action) is
// cancelled and its result ignored.
func (c *Controller[T, P]) Cancel() {
	c.mu.Lock()
	c.cancelOpeningLocked()
	if c.submitting {
		c.mutCancel()
		c.mutCancel = nil
		c.mutEpoch++
		c.submitting = false
	}
	c.resetModalLocked()
	c.jsonView = JSONClosed
	c.mu.Unlock()
	c.notify()
}

// ShowJSON opens the raw-JSON overlay for the selected record.
func (c *Controller[T, P]) ShowJSON() error {
	c.mu.Lock()
	if !c.hasSelected {
		c.mu.Unlock()
		return ErrNoSelection
	}
	c.jsonView = JSONItem
	c.mu.Unlock()
	c.notify()
	return nil
}

// ShowListJSON opens the raw-JSON overlay for the whole list.
func (c *Controller[T, P]) ShowListJSON() {
	c.mu.Lock()
	c.jsonView = JSONList
	c.mu.Unlock()
	c.notify()
}

// CloseJSON closes the overlay, leaving the modal state as it was.
func (c *Controller[T, P]) CloseJSON() {
	c.mu.Lock()
	c.jsonView = JSONClosed
	c.mu.Unlock()
	c.notify()
}

// Wait blocks until no background work is pending.
func (c *Controller[T, P]) Wait() {
	c.wg.Wait()
}

// Close cancels all background work and waits for it to finish.
func (c *Controller[T, P]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimerLocked()
	c.baseCancel()
	c.mu.Unlock()
	c.wg.Wait()
}
