package resources

import (
	"fmt"

	"railctl/internal/console"
	"railctl/internal/errors"
	"railctl/internal/filter"
	"railctl/internal/resolve"

	"github.com/shopspring/decimal"
)

type Station struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Region  string `json:"region,omitempty"`
}

func (s Station) EntityID() int64 { return s.ID }

type StationInput struct {
	Name    string `json:"name" form:"name" validate:"required,max=100"`
	Address string `json:"address" form:"address" validate:"max=255"`
	Region  string `json:"region" form:"region" validate:"max=100"`
}

func stations() Descriptor {
	return define("network", console.Spec[Station, StationInput]{
		Resource:      "stations",
		Noun:          "station",
		Describe:      func(s Station) string { return s.Name },
		DescribeInput: func(in StationInput) string { return in.Name },
		Draft: func(s Station) StationInput {
			return StationInput{Name: s.Name, Address: s.Address, Region: s.Region}
		},
	}, unfiltered(), false)
}

type RouteCategory struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (c RouteCategory) EntityID() int64 { return c.ID }

type RouteCategoryInput struct {
	Name        string `json:"name" form:"name" validate:"required,max=100"`
	Description string `json:"description" form:"description"`
}

func routeCategories() Descriptor {
	return define("network", console.Spec[RouteCategory, RouteCategoryInput]{
		Resource:      "route-categories",
		Noun:          "route category",
		Describe:      func(c RouteCategory) string { return c.Name },
		DescribeInput: func(in RouteCategoryInput) string { return in.Name },
		Draft: func(c RouteCategory) RouteCategoryInput {
			return RouteCategoryInput{Name: c.Name, Description: c.Description}
		},
	}, unfiltered(), false)
}

type Route struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	DistanceKm   *decimal.Decimal `json:"distanceKm,omitempty"`
	Category     *RouteCategory   `json:"category,omitempty"`
	StartStation *Station         `json:"startStation,omitempty"`
	EndStation   *Station         `json:"endStation,omitempty"`
}

func (r Route) EntityID() int64 { return r.ID }

type RouteInput struct {
	Name           string           `json:"name" form:"name" validate:"required,max=150"`
	CategoryID     int64            `json:"categoryId" form:"categoryId" validate:"required"`
	StartStationID int64            `json:"startStationId" form:"startStationId" validate:"required"`
	EndStationID   int64            `json:"endStationId" form:"endStationId" validate:"required"`
	DistanceKm     *decimal.Decimal `json:"distanceKm" form:"distanceKm" validate:"omitempty,gt=0"`
}

type RouteFilter struct {
	CategoryID   int64 `form:"categoryId"`
	EndStationID int64 `form:"endStationId"`
}

func (f RouteFilter) State() filter.State {
	return filter.State{}.
		With("categoryId", filter.ID(f.CategoryID)).
		With("endStationId", filter.ID(f.EndStationID))
}

func routes() Descriptor {
	stationName := func(s Station) string { return s.Name }
	return define("network", console.Spec[Route, RouteInput]{
		Resource:      "routes",
		Noun:          "route",
		Dependencies:  []string{"route-categories", "stations"},
		Describe:      func(r Route) string { return r.Name },
		DescribeInput: func(in RouteInput) string { return in.Name },
		Draft: func(r Route) RouteInput {
			return RouteInput{
				Name:           r.Name,
				CategoryID:     idOf(r.Category),
				StartStationID: idOf(r.StartStation),
				EndStationID:   idOf(r.EndStation),
				DistanceKm:     r.DistanceKm,
			}
		},
		Validate: func(in RouteInput, deps resolve.Set) error {
			if err := DistinctStations(in.StartStationID, in.EndStationID); err != nil {
				return err
			}
			if _, err := requireRef[RouteCategory](deps, "route-categories", "categoryId", in.CategoryID, false); err != nil {
				return err
			}
			if _, err := requireRef[Station](deps, "stations", "startStationId", in.StartStationID, false); err != nil {
				return err
			}
			_, err := requireRef[Station](deps, "stations", "endStationId", in.EndStationID, false)
			return err
		},
		Choices: func(deps resolve.Set) map[string][]console.Choice {
			st := choices(deps, "stations", stationName)
			return map[string][]console.Choice{
				"categoryId":     choices(deps, "route-categories", func(c RouteCategory) string { return c.Name }),
				"startStationId": st,
				"endStationId":   st,
			}
		},
	}, filters[RouteFilter](), false)
}

type RouteStop struct {
	ID              int64    `json:"id"`
	Route           *Route   `json:"route,omitempty"`
	Station         *Station `json:"station,omitempty"`
	StopOrder       int      `json:"stopOrder"`
	ArrivalOffset   *int     `json:"arrivalOffset,omitempty"`
	DepartureOffset *int     `json:"departureOffset,omitempty"`
	Platform        string   `json:"platform,omitempty"`
}

func (s RouteStop) EntityID() int64 { return s.ID }

// RouteStopInput offsets are minutes from the route's departure.
type RouteStopInput struct {
	RouteID         int64  `json:"routeId" form:"routeId" validate:"required"`
	StationID       int64  `json:"stationId" form:"stationId" validate:"required"`
	StopOrder       int    `json:"stopOrder" form:"stopOrder" validate:"required,gte=1"`
	ArrivalOffset   *int   `json:"arrivalOffset" form:"arrivalOffset" validate:"omitempty,gte=0"`
	DepartureOffset *int   `json:"departureOffset" form:"departureOffset" validate:"omitempty,gte=0"`
	Platform        string `json:"platform" form:"platform" validate:"max=10"`
}

func routeStops() Descriptor {
	return define("network", console.Spec[RouteStop, RouteStopInput]{
		Resource:     "route-stops",
		Noun:         "route stop",
		Dependencies: []string{"routes", "stations"},
		Describe: func(s RouteStop) string {
			label := fmt.Sprintf("#%d", s.StopOrder)
			if s.Route != nil {
				label = s.Route.Name + " " + label
			}
			if s.Station != nil {
				label += " " + s.Station.Name
			}
			return label
		},
		Draft: func(s RouteStop) RouteStopInput {
			return RouteStopInput{
				RouteID:         idOf(s.Route),
				StationID:       idOf(s.Station),
				StopOrder:       s.StopOrder,
				ArrivalOffset:   s.ArrivalOffset,
				DepartureOffset: s.DepartureOffset,
				Platform:        s.Platform,
			}
		},
		Validate: func(in RouteStopInput, deps resolve.Set) error {
			if in.ArrivalOffset != nil && in.DepartureOffset != nil && *in.DepartureOffset < *in.ArrivalOffset {
				return errors.NewValidationError("departureOffset", "departureOffset must not be before arrivalOffset", nil)
			}
			if _, err := requireRef[Route](deps, "routes", "routeId", in.RouteID, false); err != nil {
				return err
			}
			_, err := requireRef[Station](deps, "stations", "stationId", in.StationID, false)
			return err
		},
		Choices: func(deps resolve.Set) map[string][]console.Choice {
			return map[string][]console.Choice{
				"routeId":   choices(deps, "routes", func(r Route) string { return r.Name }),
				"stationId": choices(deps, "stations", func(s Station) string { return s.Name }),
			}
		},
	}, unfiltered(), false)
}
