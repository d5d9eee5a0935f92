package resources

import (
	"fmt"
	"strconv"
	"time"

	"railctl/internal/console"
	"railctl/internal/errors"
	"railctl/internal/resolve"
	"railctl/pkg/types"

	"github.com/shopspring/decimal"
)

// SalaryInBand checks salary against the position's bounds. A nil salary
// or a nil bound is not checked.
func SalaryInBand(salary *decimal.Decimal, p Position) error {
	if salary == nil {
		return nil
	}
	if p.MinSalary != nil && salary.LessThan(*p.MinSalary) {
		return errors.NewValidationError("salary",
			fmt.Sprintf("salary %s is below the minimum of %s for %s", salary, p.MinSalary, p.Name), nil)
	}
	if p.MaxSalary != nil && salary.GreaterThan(*p.MaxSalary) {
		return errors.NewValidationError("salary",
			fmt.Sprintf("salary %s is above the maximum of %s for %s", salary, p.MaxSalary, p.Name), nil)
	}
	return nil
}

// SalaryBand checks that a position's minimum does not exceed its maximum.
func SalaryBand(min, max *decimal.Decimal) error {
	if min != nil && max != nil && min.GreaterThan(*max) {
		return errors.NewValidationError("maxSalary",
			fmt.Sprintf("maxSalary %s is below minSalary %s", max, min), nil)
	}
	return nil
}

// NotBefore checks that end is not earlier than start. Unset values pass.
func NotBefore(endField, startField string, start, end types.DateTime) error {
	if end.Before(start) {
		return errors.NewValidationError(endField,
			fmt.Sprintf("%s must not be before %s", endField, startField), nil)
	}
	return nil
}

// DistinctStations checks that a route does not start and end at the same station.
func DistinctStations(start, end int64) error {
	if start != 0 && start == end {
		return errors.NewValidationError("endStationId", "endStationId must differ from startStationId", nil)
	}
	return nil
}

// requireRef checks that id names a record of the resolved dependency.
// When the dependency failed to load the check is skipped unless required.
func requireRef[T console.Entity](set resolve.Set, dep, field string, id int64, required bool) (T, error) {
	var zero T
	items, ok := resolve.Lookup[[]T](set, dep)
	if !ok {
		if required {
			return zero, errors.NewValidationError(field, fmt.Sprintf("%s could not be loaded", dep), set.Errors[dep])
		}
		return zero, nil
	}
	for _, it := range items {
		if it.EntityID() == id {
			return it, nil
		}
	}
	return zero, errors.NewValidationError(field, fmt.Sprintf("%s %d does not exist", field, id), nil)
}

func choices[T console.Entity](set resolve.Set, dep string, label func(T) string) []console.Choice {
	items, ok := resolve.Lookup[[]T](set, dep)
	if !ok {
		return nil
	}
	out := make([]console.Choice, 0, len(items))
	for _, it := range items {
		out = append(out, console.Choice{Value: strconv.FormatInt(it.EntityID(), 10), Label: label(it)})
	}
	return out
}

func idOf[T console.Entity](p *T) int64 {
	if p == nil {
		return 0
	}
	return (*p).EntityID()
}

func optionalID[T console.Entity](p *T) *int64 {
	if p == nil {
		return nil
	}
	id := (*p).EntityID()
	return &id
}

func bound(n *int) *decimal.Decimal {
	if n == nil {
		return nil
	}
	d := decimal.NewFromInt(int64(*n))
	return &d
}

func count(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func today() types.Date {
	y, m, d := time.Now().Date()
	return types.NewDate(y, m, d)
}
