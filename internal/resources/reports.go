package resources

import (
	"context"
	"strconv"
	"time"

	"railctl/internal/api"
	"railctl/internal/errors"
	"railctl/internal/filter"
)

// ReturnedTicketsFilter narrows the returned-ticket count. It is encoded
// on its own, independently of any ticket listing.
type ReturnedTicketsFilter struct {
	ScheduleID    int64     `form:"scheduleId"`
	RouteID       int64     `form:"routeId"`
	DepartureDate time.Time `form:"departureDate"`
}

func (f ReturnedTicketsFilter) State() filter.State {
	return filter.State{}.
		With("scheduleId", filter.ID(f.ScheduleID)).
		With("routeId", filter.ID(f.RouteID)).
		With("departureDate", filter.OnDate(f.DepartureDate))
}

// ScheduleSearch finds trips between two stations, matched by name.
type ScheduleSearch struct {
	From string    `form:"from" validate:"required"`
	To   string    `form:"to" validate:"required"`
	Date time.Time `form:"date"`
}

func (q ScheduleSearch) State() filter.State {
	return filter.State{}.
		With("from", filter.Match(q.From)).
		With("to", filter.Match(q.To)).
		With("date", filter.OnDate(q.Date))
}

// ReturnedTickets counts returned tickets matching f.
func ReturnedTickets(ctx context.Context, c *api.Client, f ReturnedTicketsFilter) (int, error) {
	var body struct {
		Count *int `json:"count"`
	}
	if err := c.Get(ctx, "tickets/returned/count", filter.Encode(f.State()), &body); err != nil {
		return 0, err
	}
	if body.Count == nil {
		return 0, errors.New("returned ticket count missing from response")
	}
	return *body.Count, nil
}

// TrainPersonnel lists the employees who serviced a train.
func TrainPersonnel(ctx context.Context, c *api.Client, trainID int64) ([]Employee, error) {
	var out []Employee
	if err := c.Get(ctx, "trains/"+strconv.FormatInt(trainID, 10)+"/personnel", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Employee{}
	}
	return out, nil
}
