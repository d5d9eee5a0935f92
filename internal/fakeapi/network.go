package fakeapi

import (
	"railctl/internal/resources"
)

func (s *Store) defineNetwork() {
	s.stations = &collection[resources.Station, resources.StationInput]{
		name: "stations",
		rows: newTable[resources.StationInput](),
		expand: func(id int64, in resources.StationInput) resources.Station {
			return resources.Station{ID: id, Name: in.Name, Address: in.Address, Region: in.Region}
		},
	}

	s.routeCategories = &collection[resources.RouteCategory, resources.RouteCategoryInput]{
		name: "route-categories",
		rows: newTable[resources.RouteCategoryInput](),
		expand: func(id int64, in resources.RouteCategoryInput) resources.RouteCategory {
			return resources.RouteCategory{ID: id, Name: in.Name, Description: in.Description}
		},
	}

	s.routes = &collection[resources.Route, resources.RouteInput]{
		name: "routes",
		rows: newTable[resources.RouteInput](),
		expand: func(id int64, in resources.RouteInput) resources.Route {
			return resources.Route{
				ID:           id,
				Name:         in.Name,
				DistanceKm:   in.DistanceKm,
				Category:     s.routeCategories.find(in.CategoryID),
				StartStation: s.stations.find(in.StartStationID),
				EndStation:   s.stations.find(in.EndStationID),
			}
		},
		check: func(_ int64, in resources.RouteInput) error {
			if err := resources.DistinctStations(in.StartStationID, in.EndStationID); err != nil {
				return err
			}
			switch {
			case !s.routeCategories.exists(in.CategoryID):
				return missing("categoryId", in.CategoryID)
			case !s.stations.exists(in.StartStationID):
				return missing("startStationId", in.StartStationID)
			case !s.stations.exists(in.EndStationID):
				return missing("endStationId", in.EndStationID)
			}
			return nil
		},
		match: where(func(f resources.RouteFilter, r resources.Route) bool {
			if f.CategoryID != 0 && idOf(r.Category) != f.CategoryID {
				return false
			}
			return f.EndStationID == 0 || idOf(r.EndStation) == f.EndStationID
		}),
	}

	s.routeStops = &collection[resources.RouteStop, resources.RouteStopInput]{
		name: "route-stops",
		rows: newTable[resources.RouteStopInput](),
		expand: func(id int64, in resources.RouteStopInput) resources.RouteStop {
			return resources.RouteStop{
				ID:              id,
				Route:           s.routes.find(in.RouteID),
				Station:         s.stations.find(in.StationID),
				StopOrder:       in.StopOrder,
				ArrivalOffset:   in.ArrivalOffset,
				DepartureOffset: in.DepartureOffset,
				Platform:        in.Platform,
			}
		},
		check: func(_ int64, in resources.RouteStopInput) error {
			if !s.routes.exists(in.RouteID) {
				return missing("routeId", in.RouteID)
			}
			if !s.stations.exists(in.StationID) {
				return missing("stationId", in.StationID)
			}
			return nil
		},
	}
}

// servesStation reports whether route starts, ends or stops at station.
func (s *Store) servesStation(route, station int64) bool {
	in, ok := s.routes.rows.rows[route]
	if !ok {
		return false
	}
	if in.StartStationID == station || in.EndStationID == station {
		return true
	}
	for _, stop := range s.routeStops.rows.rows {
		if stop.RouteID == route && stop.StationID == station {
			return true
		}
	}
	return false
}
