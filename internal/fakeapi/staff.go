package fakeapi

import (
	"railctl/internal/resources"

	"github.com/shopspring/decimal"
)

func (s *Store) defineStaff() {
	s.departments = &collection[resources.Department, resources.DepartmentInput]{
		name: "departments",
		rows: newTable[resources.DepartmentInput](),
		expand: func(id int64, in resources.DepartmentInput) resources.Department {
			return resources.Department{ID: id, Name: in.Name, Description: in.Description}
		},
		label: func(d resources.Department) string { return d.Name },
	}

	s.positions = &collection[resources.Position, resources.PositionInput]{
		name: "positions",
		rows: newTable[resources.PositionInput](),
		expand: func(id int64, in resources.PositionInput) resources.Position {
			return resources.Position{
				ID:          id,
				Name:        in.Name,
				Description: in.Description,
				MinSalary:   in.MinSalary,
				MaxSalary:   in.MaxSalary,
				Department:  s.departments.find(in.DepartmentID),
			}
		},
		check: func(_ int64, in resources.PositionInput) error {
			if err := resources.SalaryBand(in.MinSalary, in.MaxSalary); err != nil {
				return err
			}
			if !s.departments.exists(in.DepartmentID) {
				return missing("departmentId", in.DepartmentID)
			}
			return nil
		},
		match: where(func(f resources.PositionFilter, p resources.Position) bool {
			return f.DepartmentID == 0 || idOf(p.Department) == f.DepartmentID
		}),
		label: func(p resources.Position) string { return p.Name },
	}

	s.employees = &collection[resources.Employee, resources.EmployeeInput]{
		name: "employees",
		rows: newTable[resources.EmployeeInput](),
		expand: func(id int64, in resources.EmployeeInput) resources.Employee {
			return resources.Employee{
				ID:        id,
				FirstName: in.FirstName,
				LastName:  in.LastName,
				HireDate:  in.HireDate,
				Salary:    in.Salary,
				IsActive:  in.IsActive,
				Position:  s.positions.find(in.PositionID),
			}
		},
		check: func(_ int64, in resources.EmployeeInput) error {
			p := s.positions.find(in.PositionID)
			if p == nil {
				return missing("positionId", in.PositionID)
			}
			return resources.SalaryInBand(in.Salary, *p)
		},
		match: where(func(f resources.EmployeeFilter, e resources.Employee) bool {
			switch {
			case f.DepartmentID != 0 && (e.Position == nil || idOf(e.Position.Department) != f.DepartmentID):
				return false
			case f.PositionID != 0 && idOf(e.Position) != f.PositionID:
				return false
			case f.IsActive != nil && e.IsActive != *f.IsActive:
				return false
			case !inRange(e.Salary, f.MinSalary, f.MaxSalary):
				return false
			}
			return inDates(e.HireDate.Time, f.HireDateFrom, f.HireDateTo)
		}),
		label: resources.Employee.FullName,
	}

	s.brigades = &collection[resources.Brigade, resources.BrigadeInput]{
		name: "brigades",
		rows: newTable[resources.BrigadeInput](),
		expand: func(id int64, in resources.BrigadeInput) resources.Brigade {
			b := resources.Brigade{
				ID:         id,
				Name:       in.Name,
				Department: s.departments.find(in.DepartmentID),
				Manager:    s.employees.findOpt(in.ManagerID),
			}
			b.AverageSalary, b.TotalSalary = s.payroll(in.DepartmentID)
			return b
		},
		check: func(_ int64, in resources.BrigadeInput) error {
			if !s.departments.exists(in.DepartmentID) {
				return missing("departmentId", in.DepartmentID)
			}
			if in.ManagerID != nil && !s.employees.exists(*in.ManagerID) {
				return missing("managerId", *in.ManagerID)
			}
			return nil
		},
		match: where(func(f resources.BrigadeFilter, b resources.Brigade) bool {
			return inRange(b.AverageSalary, f.MinAverageSalary, nil) && inRange(b.TotalSalary, f.MinTotalSalary, nil)
		}),
		label: func(b resources.Brigade) string { return b.Name },
	}

	s.medicalExaminations = &collection[resources.MedicalExamination, resources.MedicalExaminationInput]{
		name: "medical-examinations",
		rows: newTable[resources.MedicalExaminationInput](),
		expand: func(id int64, in resources.MedicalExaminationInput) resources.MedicalExamination {
			return resources.MedicalExamination{
				ID:              id,
				Employee:        s.employees.find(in.EmployeeID),
				ExaminationDate: in.ExaminationDate,
				Result:          in.Result,
				Notes:           in.Notes,
			}
		},
		check: func(_ int64, in resources.MedicalExaminationInput) error {
			if !s.employees.exists(in.EmployeeID) {
				return missing("employeeId", in.EmployeeID)
			}
			return nil
		},
	}
}

// members returns the active employees whose position belongs to department.
func (s *Store) members(department int64) []resources.Employee {
	var out []resources.Employee
	for _, e := range s.employees.all() {
		if e.IsActive && e.Position != nil && idOf(e.Position.Department) == department {
			out = append(out, e)
		}
	}
	return out
}

// payroll returns the average and total salary of a department's active
// staff, nil when it has none with a salary.
func (s *Store) payroll(department int64) (avg, total *decimal.Decimal) {
	sum := decimal.Zero
	n := 0
	for _, e := range s.members(department) {
		if e.Salary == nil {
			continue
		}
		sum = sum.Add(*e.Salary)
		n++
	}
	if n == 0 {
		return nil, nil
	}
	return ptr(sum.Div(decimal.NewFromInt(int64(n))).Round(2)), ptr(sum)
}
