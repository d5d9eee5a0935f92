package binding

import (
	"net/url"
	"testing"
	"time"

	"railctl/internal/errors"
	"railctl/internal/filter"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleInput struct {
	Name      string           `json:"name" form:"name" validate:"required,max=20"`
	Salary    decimal.Decimal  `json:"salary" form:"salary" validate:"gte=0"`
	Bonus     *decimal.Decimal `json:"bonus,omitempty" form:"bonus"`
	HireDate  time.Time        `json:"hireDate" form:"hireDate" validate:"required"`
	IsActive  bool             `json:"isActive" form:"isActive"`
	ManagerID *int64           `json:"managerId,omitempty" form:"managerId"`
	Status    string           `json:"status" form:"status" validate:"omitempty,oneof=active retired"`
}

func TestBind(t *testing.T) {
	values := url.Values{
		"name":      {"Anna"},
		"salary":    {"42000.50"},
		"hireDate":  {"2023-04-01"},
		"isActive":  {"true"},
		"managerId": {""},
	}

	in, err := Bind[sampleInput](values)
	require.NoError(t, err)
	assert.Equal(t, "Anna", in.Name)
	assert.True(t, decimal.RequireFromString("42000.5").Equal(in.Salary))
	assert.Nil(t, in.Bonus)
	assert.Nil(t, in.ManagerID, "blank value leaves optional field unset")
	assert.Equal(t, time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC), in.HireDate)
	assert.True(t, in.IsActive)
}

func TestBindValidation(t *testing.T) {
	tests := []struct {
		name      string
		values    url.Values
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing required",
			values:    url.Values{"hireDate": {"2023-04-01"}},
			wantField: "name",
			wantMsg:   "name is required",
		},
		{
			name:      "negative decimal",
			values:    url.Values{"name": {"A"}, "hireDate": {"2023-04-01"}, "salary": {"-1"}},
			wantField: "salary",
			wantMsg:   "salary must be at least 0",
		},
		{
			name:      "enum",
			values:    url.Values{"name": {"A"}, "hireDate": {"2023-04-01"}, "status": {"lost"}},
			wantField: "status",
			wantMsg:   "status must be one of: active, retired",
		},
		{
			name:      "zero time counts as missing",
			values:    url.Values{"name": {"A"}},
			wantField: "hireDate",
			wantMsg:   "hireDate is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bind[sampleInput](tt.values)
			require.Error(t, err)
			var valErr *errors.ValidationError
			require.True(t, errors.As(err, &valErr))
			assert.Equal(t, tt.wantField, valErr.Field())
			assert.Equal(t, tt.wantMsg, valErr.Error())
		})
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	var in sampleInput
	err := Decode(&in, url.Values{"salary": {"lots"}})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	var valErr *errors.ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "salary", valErr.Field())
}

func TestEncode(t *testing.T) {
	bonus := decimal.RequireFromString("100")
	in := sampleInput{
		Name:     "Ivan",
		Salary:   decimal.RequireFromString("30000"),
		Bonus:    &bonus,
		HireDate: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	values, err := Encode(in)
	require.NoError(t, err)
	assert.Equal(t, "Ivan", values.Get("name"))
	assert.Equal(t, "30000", values.Get("salary"))
	assert.Equal(t, "100", values.Get("bonus"))
	assert.Equal(t, "2020-01-02", values.Get("hireDate"))
	assert.Equal(t, "false", values.Get("isActive"))
	_, hasManager := values["managerId"]
	assert.False(t, hasManager)
}

func TestParsePairs(t *testing.T) {
	values, err := ParsePairs([]string{"departmentId=3", "name=Main depot", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, "3", values.Get("departmentId"))
	assert.Equal(t, "Main depot", values.Get("name"))
	assert.Equal(t, "a=b", values.Get("note"))

	_, err = ParsePairs([]string{"novalue"})
	assert.True(t, errors.IsValidation(err))
}

func TestParseTime(t *testing.T) {
	ts, err := ParseTime("2024-05-01T18:30")
	require.NoError(t, err)
	assert.Equal(t, 18, ts.Hour())

	_, err = ParseTime("01/05/2024")
	assert.Error(t, err)
}

type sampleFilter struct {
	DepartmentID int64            `form:"departmentId"`
	MinSalary    *decimal.Decimal `form:"minSalary" validate:"omitempty,gte=0"`
	MaxSalary    *decimal.Decimal `form:"maxSalary" validate:"omitempty,gte=0"`
}

func (f sampleFilter) State() filter.State {
	return filter.State{}.
		With("departmentId", filter.ID(f.DepartmentID)).
		With("salary", filter.Between(f.MinSalary, f.MaxSalary))
}

func TestFilter(t *testing.T) {
	state, err := Filter[sampleFilter](url.Values{"departmentId": {"3"}, "maxSalary": {"90000"}, "minSalary": {""}})
	require.NoError(t, err)
	assert.Equal(t, "departmentId=3&maxSalary=90000", filter.Query(state))

	_, err = Filter[sampleFilter](url.Values{"colour": {"red"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown filter "colour"`)

	_, err = Filter[sampleFilter](url.Values{"minSalary": {"-5"}})
	assert.True(t, errors.IsValidation(err))
}

func TestDecodeBlankResetsField(t *testing.T) {
	manager := int64(7)
	in := sampleInput{Name: "Anna", ManagerID: &manager}
	require.NoError(t, Decode(&in, url.Values{"managerId": {""}, "status": {"retired"}}))
	assert.Nil(t, in.ManagerID)
	assert.Equal(t, "Anna", in.Name, "absent keys keep their values")
	assert.Equal(t, "retired", in.Status)
}

func TestFieldNames(t *testing.T) {
	assert.Equal(t,
		[]string{"name", "salary", "bonus", "hireDate", "isActive", "managerId", "status"},
		FieldNames(sampleInput{}))
	assert.Nil(t, FieldNames(42))
}
