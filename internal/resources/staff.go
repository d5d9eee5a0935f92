package resources

import (
	"strings"
	"time"

	"railctl/internal/console"
	"railctl/internal/filter"
	"railctl/internal/resolve"
	"railctl/pkg/types"

	"github.com/shopspring/decimal"
)

type Department struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (d Department) EntityID() int64 { return d.ID }

type DepartmentInput struct {
	Name        string `json:"name" form:"name" validate:"required,max=100"`
	Description string `json:"description" form:"description" validate:"max=500"`
}

func departments() Descriptor {
	return define("staff", console.Spec[Department, DepartmentInput]{
		Resource:      "departments",
		Noun:          "department",
		Describe:      func(d Department) string { return d.Name },
		DescribeInput: func(in DepartmentInput) string { return in.Name },
		Draft: func(d Department) DepartmentInput {
			return DepartmentInput{Name: d.Name, Description: d.Description}
		},
	}, unfiltered(), true)
}

type Position struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	MinSalary   *decimal.Decimal `json:"minSalary"`
	MaxSalary   *decimal.Decimal `json:"maxSalary"`
	Department  *Department      `json:"department,omitempty"`
}

func (p Position) EntityID() int64 { return p.ID }

type PositionInput struct {
	Name         string           `json:"name" form:"name" validate:"required,max=100"`
	Description  string           `json:"description" form:"description"`
	MinSalary    *decimal.Decimal `json:"minSalary" form:"minSalary" validate:"omitempty,gte=0"`
	MaxSalary    *decimal.Decimal `json:"maxSalary" form:"maxSalary" validate:"omitempty,gte=0"`
	DepartmentID int64            `json:"departmentId" form:"departmentId" validate:"required"`
}

type PositionFilter struct {
	DepartmentID int64 `form:"departmentId"`
}

func (f PositionFilter) State() filter.State {
	return filter.State{}.With("departmentId", filter.ID(f.DepartmentID))
}

func positions() Descriptor {
	return define("staff", console.Spec[Position, PositionInput]{
		Resource:      "positions",
		Noun:          "position",
		Dependencies:  []string{"departments"},
		Describe:      func(p Position) string { return p.Name },
		DescribeInput: func(in PositionInput) string { return in.Name },
		Draft: func(p Position) PositionInput {
			return PositionInput{
				Name:         p.Name,
				Description:  p.Description,
				MinSalary:    p.MinSalary,
				MaxSalary:    p.MaxSalary,
				DepartmentID: idOf(p.Department),
			}
		},
		Validate: func(in PositionInput, deps resolve.Set) error {
			if err := SalaryBand(in.MinSalary, in.MaxSalary); err != nil {
				return err
			}
			_, err := requireRef[Department](deps, "departments", "departmentId", in.DepartmentID, false)
			return err
		},
		Choices: func(deps resolve.Set) map[string][]console.Choice {
			return map[string][]console.Choice{
				"departmentId": choices(deps, "departments", func(d Department) string { return d.Name }),
			}
		},
	}, filters[PositionFilter](), true)
}

type Employee struct {
	ID            int64            `json:"id"`
	FirstName     string           `json:"firstName"`
	LastName      string           `json:"lastName"`
	HireDate      types.Date       `json:"hireDate"`
	Salary        *decimal.Decimal `json:"salary"`
	Gender        string           `json:"gender,omitempty"`
	ChildrenCount *int             `json:"childrenCount,omitempty"`
	IsActive      bool             `json:"isActive"`
	Position      *Position        `json:"position,omitempty"`
}

func (e Employee) EntityID() int64 { return e.ID }

// FullName is "First Last".
func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

type EmployeeInput struct {
	FirstName  string           `json:"firstName" form:"firstName" validate:"required,max=100"`
	LastName   string           `json:"lastName" form:"lastName" validate:"required,max=100"`
	HireDate   types.Date       `json:"hireDate" form:"hireDate" validate:"required"`
	PositionID int64            `json:"positionId" form:"positionId" validate:"required"`
	Salary     *decimal.Decimal `json:"salary" form:"salary" validate:"omitempty,gte=0"`
	IsActive   bool             `json:"isActive" form:"isActive"`
}

type EmployeeFilter struct {
	DepartmentID int64            `form:"departmentId"`
	PositionID   int64            `form:"positionId"`
	IsActive     *bool            `form:"isActive"`
	MinSalary    *decimal.Decimal `form:"minSalary" validate:"omitempty,gte=0"`
	MaxSalary    *decimal.Decimal `form:"maxSalary" validate:"omitempty,gte=0"`
	HireDateFrom *time.Time       `form:"hireDateFrom"`
	HireDateTo   *time.Time       `form:"hireDateTo"`
}

func (f EmployeeFilter) State() filter.State {
	return filter.State{}.
		With("departmentId", filter.ID(f.DepartmentID)).
		With("positionId", filter.ID(f.PositionID)).
		With("isActive", filter.OptionalBool(f.IsActive)).
		With("salary", filter.Between(f.MinSalary, f.MaxSalary)).
		With("hireDate", filter.Dates(f.HireDateFrom, f.HireDateTo))
}

func employees() Descriptor {
	return define("staff", console.Spec[Employee, EmployeeInput]{
		Resource:     "employees",
		Noun:         "employee",
		Dependencies: []string{"positions"},
		Describe:     Employee.FullName,
		DescribeInput: func(in EmployeeInput) string {
			return strings.TrimSpace(in.FirstName + " " + in.LastName)
		},
		Blank: func() EmployeeInput {
			return EmployeeInput{HireDate: today(), IsActive: true}
		},
		Draft: func(e Employee) EmployeeInput {
			return EmployeeInput{
				FirstName:  e.FirstName,
				LastName:   e.LastName,
				HireDate:   e.HireDate,
				PositionID: idOf(e.Position),
				Salary:     e.Salary,
				IsActive:   e.IsActive,
			}
		},
		Validate: func(in EmployeeInput, deps resolve.Set) error {
			p, err := requireRef[Position](deps, "positions", "positionId", in.PositionID, true)
			if err != nil {
				return err
			}
			return SalaryInBand(in.Salary, p)
		},
		Choices: func(deps resolve.Set) map[string][]console.Choice {
			return map[string][]console.Choice{
				"positionId": choices(deps, "positions", func(p Position) string { return p.Name }),
			}
		},
	}, filters[EmployeeFilter](), true)
}

type Brigade struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Department    *Department      `json:"department,omitempty"`
	Manager       *Employee        `json:"manager,omitempty"`
	AverageSalary *decimal.Decimal `json:"averageSalary,omitempty"`
	TotalSalary   *decimal.Decimal `json:"totalSalary,omitempty"`
}

func (b Brigade) EntityID() int64 { return b.ID }

type BrigadeInput struct {
	Name         string `json:"name" form:"name" validate:"required,max=100"`
	DepartmentID int64  `json:"departmentId" form:"departmentId" validate:"required"`
	ManagerID    *int64 `json:"managerId" form:"managerId"`
}

type BrigadeFilter struct {
	MinAverageSalary *decimal.Decimal `form:"minAverageSalary" validate:"omitempty,gte=0"`
	MinTotalSalary   *decimal.Decimal `form:"minTotalSalary" validate:"omitempty,gte=0"`
}

func (f BrigadeFilter) State() filter.State {
	return filter.State{}.
		With("averageSalary", filter.AtLeast(f.MinAverageSalary)).
		With("totalSalary", filter.AtLeast(f.MinTotalSalary))
}

func brigades() Descriptor {
	return define("staff", console.Spec[Brigade, BrigadeInput]{
		Resource:      "brigades",
		Noun:          "brigade",
		Dependencies:  []string{"departments", "employees"},
		Describe:      func(b Brigade) string { return b.Name },
		DescribeInput: func(in BrigadeInput) string { return in.Name },
		Draft: func(b Brigade) BrigadeInput {
			return BrigadeInput{Name: b.Name, DepartmentID: idOf(b.Department), ManagerID: optionalID(b.Manager)}
		},
		Validate: func(in BrigadeInput, deps resolve.Set) error {
			if _, err := requireRef[Department](deps, "departments", "departmentId", in.DepartmentID, false); err != nil {
				return err
			}
			if in.ManagerID == nil {
				return nil
			}
			// The manager list is optional: the form stays usable without it.
			_, err := requireRef[Employee](deps, "employees", "managerId", *in.ManagerID, false)
			return err
		},
		Choices: func(deps resolve.Set) map[string][]console.Choice {
			return map[string][]console.Choice{
				"departmentId": choices(deps, "departments", func(d Department) string { return d.Name }),
				"managerId":    choices(deps, "employees", Employee.FullName),
			}
		},
	}, filters[BrigadeFilter](), true)
}

type MedicalExamination struct {
	ID              int64      `json:"id"`
	Employee        *Employee  `json:"employee,omitempty"`
	ExaminationDate types.Date `json:"examinationDate"`
	Result          bool       `json:"result"`
	Notes           string     `json:"notes,omitempty"`
}

func (m MedicalExamination) EntityID() int64 { return m.ID }

type MedicalExaminationInput struct {
	EmployeeID      int64      `json:"employeeId" form:"employeeId" validate:"required"`
	ExaminationDate types.Date `json:"examinationDate" form:"examinationDate" validate:"required"`
	Result          bool       `json:"result" form:"result"`
	Notes           string     `json:"notes" form:"notes" validate:"max=1000"`
}

func medicalExaminations() Descriptor {
	return define("staff", console.Spec[MedicalExamination, MedicalExaminationInput]{
		Resource:     "medical-examinations",
		Noun:         "medical examination",
		Dependencies: []string{"employees"},
		Describe: func(m MedicalExamination) string {
			if m.Employee == nil {
				return m.ExaminationDate.String()
			}
			return m.Employee.FullName() + " " + m.ExaminationDate.String()
		},
		Blank: func() MedicalExaminationInput {
			return MedicalExaminationInput{ExaminationDate: today()}
		},
		Draft: func(m MedicalExamination) MedicalExaminationInput {
			return MedicalExaminationInput{
				EmployeeID:      idOf(m.Employee),
				ExaminationDate: m.ExaminationDate,
				Result:          m.Result,
				Notes:           m.Notes,
			}
		},
		Validate: func(in MedicalExaminationInput, deps resolve.Set) error {
			_, err := requireRef[Employee](deps, "employees", "employeeId", in.EmployeeID, false)
			return err
		},
		Choices: func(deps resolve.Set) map[string][]console.Choice {
			return map[string][]console.Choice{
				"employeeId": choices(deps, "employees", Employee.FullName),
			}
		},
	}, unfiltered(), false)
}
