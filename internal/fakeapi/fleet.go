package fakeapi

import (
	"time"

	"railctl/internal/resources"

	"github.com/shopspring/decimal"
)

func (s *Store) defineFleet() {
	s.trainTypes = &collection[resources.TrainType, resources.TrainTypeInput]{
		name: "train-types",
		rows: newTable[resources.TrainTypeInput](),
		expand: func(id int64, in resources.TrainTypeInput) resources.TrainType {
			return resources.TrainType{ID: id, Name: in.Name, Description: in.Description}
		},
	}

	s.trains = &collection[resources.Train, resources.TrainInput]{
		name: "trains",
		rows: newTable[resources.TrainInput](),
		expand: func(id int64, in resources.TrainInput) resources.Train {
			t := resources.Train{
				ID:                  id,
				Model:               in.Model,
				BuildDate:           in.BuildDate,
				LastMaintenanceDate: in.LastMaintenanceDate,
				Status:              in.Status,
			}
			for _, sc := range s.schedules.rows.rows {
				if sc.TrainID == id && sc.TrainStatus == "completed" {
					t.TripsCount++
				}
			}
			for _, m := range s.maintenances.rows.rows {
				if m.TrainID == id {
					t.MaintenanceCount++
					if m.IsRepair {
						t.RepairCount++
					}
				}
			}
			return t
		},
		check: func(_ int64, in resources.TrainInput) error {
			if !in.LastMaintenanceDate.IsZero() && in.LastMaintenanceDate.Before(in.BuildDate.Time) {
				return outOfOrder("lastMaintenanceDate", "buildDate")
			}
			return nil
		},
		match: where(func(f resources.TrainFilter, t resources.Train) bool {
			switch {
			case f.RouteID != 0 && !s.runsOn(t.ID, f.RouteID):
				return false
			case f.StationID != 0 && !s.callsAt(t.ID, f.StationID):
				return false
			case !inRange(ptr(s.distance(t.ID)), f.MinDistance, f.MaxDistance):
				return false
			case f.ArrivalTimeTo != nil && !s.arrivesBy(t.ID, f.ArrivalTimeTo):
				return false
			case f.MinTrips != nil && t.TripsCount < *f.MinTrips:
				return false
			case (f.MaintPlanFrom != nil || f.MaintPlanTo != nil) && !s.maintained(t.ID, false, f.MaintPlanFrom, f.MaintPlanTo):
				return false
			case (f.MaintRepairFrom != nil || f.MaintRepairTo != nil) && !s.maintained(t.ID, true, f.MaintRepairFrom, f.MaintRepairTo):
				return false
			case f.RepairCount != nil && t.RepairCount != *f.RepairCount:
				return false
			}
			return intRange(years(t.BuildDate.Time, s.now()), f.MinAge, f.MaxAge)
		}),
	}

	s.cars = &collection[resources.Car, resources.CarInput]{
		name: "cars",
		rows: newTable[resources.CarInput](),
		expand: func(id int64, in resources.CarInput) resources.Car {
			return resources.Car{
				ID:        id,
				CarNumber: in.CarNumber,
				CarType:   in.CarType,
				Capacity:  in.Capacity,
				Status:    in.Status,
				BuildDate: in.BuildDate,
				Train:     s.trains.find(in.TrainID),
			}
		},
		check: func(_ int64, in resources.CarInput) error {
			if !s.trains.exists(in.TrainID) {
				return missing("trainId", in.TrainID)
			}
			return nil
		},
	}

	s.seats = &collection[resources.Seat, resources.SeatInput]{
		name: "seats",
		rows: newTable[resources.SeatInput](),
		expand: func(id int64, in resources.SeatInput) resources.Seat {
			return resources.Seat{
				ID:          id,
				SeatNumber:  in.SeatNumber,
				SeatType:    in.SeatType,
				Features:    in.Features,
				IsAvailable: in.IsAvailable,
				Car:         s.cars.find(in.CarID),
			}
		},
		check: func(_ int64, in resources.SeatInput) error {
			if !s.cars.exists(in.CarID) {
				return missing("carId", in.CarID)
			}
			return nil
		},
	}

	s.maintenances = &collection[resources.Maintenance, resources.MaintenanceInput]{
		name: "maintenances",
		rows: newTable[resources.MaintenanceInput](),
		expand: func(id int64, in resources.MaintenanceInput) resources.Maintenance {
			return resources.Maintenance{
				ID:        id,
				Train:     s.trains.find(in.TrainID),
				Brigade:   s.brigades.find(in.BrigadeID),
				StartDate: in.StartDate,
				EndDate:   in.EndDate,
				Type:      in.Type,
				Result:    in.Result,
				IsRepair:  in.IsRepair,
			}
		},
		check: func(_ int64, in resources.MaintenanceInput) error {
			if err := resources.NotBefore("endDate", "startDate", in.StartDate, in.EndDate); err != nil {
				return err
			}
			if !s.trains.exists(in.TrainID) {
				return missing("trainId", in.TrainID)
			}
			if !s.brigades.exists(in.BrigadeID) {
				return missing("brigadeId", in.BrigadeID)
			}
			return nil
		},
	}
}

func (s *Store) runsOn(train, route int64) bool {
	for _, sc := range s.schedules.rows.rows {
		if sc.TrainID == train && sc.RouteID == route {
			return true
		}
	}
	return false
}

func (s *Store) callsAt(train, station int64) bool {
	for _, sc := range s.schedules.rows.rows {
		if sc.TrainID == train && s.servesStation(sc.RouteID, station) {
			return true
		}
	}
	return false
}

// distance is the total length of the train's completed trips.
func (s *Store) distance(train int64) decimal.Decimal {
	total := decimal.Zero
	for _, sc := range s.schedules.rows.rows {
		if sc.TrainID != train || sc.TrainStatus != "completed" {
			continue
		}
		if r, ok := s.routes.rows.rows[sc.RouteID]; ok && r.DistanceKm != nil {
			total = total.Add(*r.DistanceKm)
		}
	}
	return total
}

func (s *Store) arrivesBy(train int64, limit *time.Time) bool {
	for _, sc := range s.schedules.rows.rows {
		if sc.TrainID == train && notAfter(sc.ArrivalTime.Time, limit) {
			return true
		}
	}
	return false
}

// maintained reports whether the train had a planned (or, with repair, a
// repair) maintenance starting within [from, to].
func (s *Store) maintained(train int64, repair bool, from, to *time.Time) bool {
	for _, m := range s.maintenances.rows.rows {
		if m.TrainID != train {
			continue
		}
		if (repair && !m.IsRepair) || (!repair && m.Type != "planned") {
			continue
		}
		if inDates(m.StartDate.Time, from, to) {
			return true
		}
	}
	return false
}

// personnel returns the employees who serviced the train: the staff of
// every brigade that maintained it, managers included.
func (s *Store) personnel(train int64) []resources.Employee {
	seen := map[int64]bool{}
	out := []resources.Employee{}
	add := func(e resources.Employee) {
		if !seen[e.ID] {
			seen[e.ID] = true
			out = append(out, e)
		}
	}
	for _, id := range s.maintenances.rows.ids() {
		m := s.maintenances.rows.rows[id]
		if m.TrainID != train {
			continue
		}
		b, ok := s.brigades.rows.rows[m.BrigadeID]
		if !ok {
			continue
		}
		if mgr := s.employees.findOpt(b.ManagerID); mgr != nil {
			add(*mgr)
		}
		for _, e := range s.members(b.DepartmentID) {
			add(e)
		}
	}
	return out
}
