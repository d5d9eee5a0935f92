// Package fakeapi is an in-memory railway backend speaking the same REST
// dialect as the production service. It backs railmock and the
// end-to-end tests of the console.
package fakeapi

import (
	"net/url"
	"sort"
	"sync"
	"time"

	"railctl/internal/binding"
	"railctl/internal/console"
	"railctl/internal/errors"
	"railctl/internal/resources"
)

// table holds the stored payloads of one collection.
type table[P any] struct {
	rows map[int64]P
	next int64
}

func newTable[P any]() *table[P] {
	return &table[P]{rows: map[int64]P{}}
}

func (t *table[P]) insert(p P) int64 {
	t.next++
	t.rows[t.next] = p
	return t.next
}

func (t *table[P]) ids() []int64 {
	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// collection couples a table with the way its records are presented.
// Records are expanded on read so nested references always reflect the
// latest writes. Every func runs with the store lock held.
type collection[T console.Entity, P any] struct {
	name   string
	rows   *table[P]
	expand func(id int64, in P) T
	check  func(id int64, in P) error // id is 0 on create
	admit  func(in P, prev *P) P // fills backend-owned fields before a write
	match  func(q url.Values) (func(T) bool, error)
	label  func(T) string
	inUse  func(id int64) string // names a collection still pointing at id
}

func (c *collection[T, P]) find(id int64) *T {
	in, ok := c.rows.rows[id]
	if !ok {
		return nil
	}
	t := c.expand(id, in)
	return &t
}

func (c *collection[T, P]) findOpt(id *int64) *T {
	if id == nil {
		return nil
	}
	return c.find(*id)
}

func (c *collection[T, P]) all() []T {
	out := make([]T, 0, len(c.rows.rows))
	for _, id := range c.rows.ids() {
		out = append(out, c.expand(id, c.rows.rows[id]))
	}
	return out
}

func (c *collection[T, P]) exists(id int64) bool {
	_, ok := c.rows.rows[id]
	return ok
}

// query returns the records matching q.
func (c *collection[T, P]) query(q url.Values) ([]T, error) {
	items := c.all()
	if c.match == nil {
		return items, nil
	}
	keep, err := c.match(q)
	if err != nil {
		return nil, err
	}
	out := items[:0]
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (c *collection[T, P]) validate(id int64, in P) error {
	if err := binding.Validate(&in); err != nil {
		return err
	}
	if c.check != nil {
		return c.check(id, in)
	}
	return nil
}

// where decodes q into the typed filter F and returns a predicate over T.
func where[F, T any](match func(F, T) bool) func(url.Values) (func(T) bool, error) {
	return func(q url.Values) (func(T) bool, error) {
		f, err := binding.Bind[F](q)
		if err != nil {
			return nil, err
		}
		return func(t T) bool { return match(f, t) }, nil
	}
}

func missing(field string, id int64) error {
	return errors.NewValidationError(field, field+" "+itoa(id)+" does not exist", nil)
}

// user is a registered account.
type user struct {
	ID       int64
	Email    string
	Name     string
	Role     string
	Password []byte // bcrypt hash
}

// Store is the backend's database. One lock guards every table.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	departments         *collection[resources.Department, resources.DepartmentInput]
	positions           *collection[resources.Position, resources.PositionInput]
	employees           *collection[resources.Employee, resources.EmployeeInput]
	brigades            *collection[resources.Brigade, resources.BrigadeInput]
	medicalExaminations *collection[resources.MedicalExamination, resources.MedicalExaminationInput]
	stations            *collection[resources.Station, resources.StationInput]
	routeCategories     *collection[resources.RouteCategory, resources.RouteCategoryInput]
	routes              *collection[resources.Route, resources.RouteInput]
	routeStops          *collection[resources.RouteStop, resources.RouteStopInput]
	trainTypes          *collection[resources.TrainType, resources.TrainTypeInput]
	trains              *collection[resources.Train, resources.TrainInput]
	cars                *collection[resources.Car, resources.CarInput]
	seats               *collection[resources.Seat, resources.SeatInput]
	maintenances        *collection[resources.Maintenance, resources.MaintenanceInput]
	schedules           *collection[resources.Schedule, resources.ScheduleInput]
	passengers          *collection[resources.Passenger, resources.PassengerInput]
	luggage             *collection[resources.Luggage, resources.LuggageInput]
	tickets             *collection[resources.Ticket, ticketRow]

	users    map[string]*user
	usersSeq int64
	owners   map[int64]int64 // passenger id -> user id
}

// NewStore returns an empty store.
func NewStore() *Store {
	s := &Store{
		now:    time.Now,
		users:  map[string]*user{},
		owners: map[int64]int64{},
	}
	s.defineStaff()
	s.defineNetwork()
	s.defineFleet()
	s.defineTravel()
	s.linkReferences()
	return s
}

// ticketRow is a stored ticket: the payload plus the purchase time the
// backend assigns.
type ticketRow struct {
	resources.TicketInput
	PurchaseDate time.Time `json:"-"`
}

func outOfOrder(field, other string) error {
	return errors.NewValidationError(field, field+" must not be before "+other, nil)
}

type backref struct {
	name  string
	holds func(id int64) bool
}

func pointsAt[P any](name string, t *table[P], key func(P) int64) backref {
	return backref{name: name, holds: func(id int64) bool {
		for _, row := range t.rows {
			if key(row) == id {
				return true
			}
		}
		return false
	}}
}

func refs(brefs ...backref) func(int64) string {
	return func(id int64) string {
		for _, b := range brefs {
			if b.holds(id) {
				return b.name
			}
		}
		return ""
	}
}

// linkReferences makes deletes of referenced records fail with 409, the
// way foreign keys do in the production database.
func (s *Store) linkReferences() {
	s.departments.inUse = refs(
		pointsAt("positions", s.positions.rows, func(p resources.PositionInput) int64 { return p.DepartmentID }),
		pointsAt("brigades", s.brigades.rows, func(b resources.BrigadeInput) int64 { return b.DepartmentID }),
	)
	s.positions.inUse = refs(
		pointsAt("employees", s.employees.rows, func(e resources.EmployeeInput) int64 { return e.PositionID }),
	)
	s.stations.inUse = refs(
		pointsAt("routes", s.routes.rows, func(r resources.RouteInput) int64 { return r.StartStationID }),
		pointsAt("routes", s.routes.rows, func(r resources.RouteInput) int64 { return r.EndStationID }),
		pointsAt("route-stops", s.routeStops.rows, func(r resources.RouteStopInput) int64 { return r.StationID }),
	)
	s.routes.inUse = refs(
		pointsAt("schedules", s.schedules.rows, func(sc resources.ScheduleInput) int64 { return sc.RouteID }),
	)
	s.trains.inUse = refs(
		pointsAt("schedules", s.schedules.rows, func(sc resources.ScheduleInput) int64 { return sc.TrainID }),
		pointsAt("cars", s.cars.rows, func(c resources.CarInput) int64 { return c.TrainID }),
	)
	s.schedules.inUse = refs(
		pointsAt("tickets", s.tickets.rows, func(t ticketRow) int64 { return t.ScheduleID }),
	)
	s.passengers.inUse = refs(
		pointsAt("tickets", s.tickets.rows, func(t ticketRow) int64 { return t.PassengerID }),
	)
}
