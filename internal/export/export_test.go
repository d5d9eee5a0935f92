package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"railctl/internal/errors"
	"railctl/internal/resources"
	"railctl/pkg/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func employees() []any {
	salary := decimal.RequireFromString("52000")
	return []any{
		resources.Employee{ID: 4, FirstName: "Anna", LastName: "Petrova", HireDate: types.NewDate(2019, 1, 15), Salary: &salary, IsActive: true},
		resources.Employee{ID: 5, FirstName: "Pavel", LastName: "Orlov", HireDate: types.NewDate(2021, 4, 20)},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, XLSX, f)

	_, err = ParseFormat("csv")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestFromRecords(t *testing.T) {
	tbl := FromRecords("employees", employees())
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"id", "firstName", "lastName"}, tbl.Columns[:3])

	idx := map[string]int{}
	for i, c := range tbl.Columns {
		idx[c] = i
	}
	assert.Equal(t, "52000", tbl.Rows[0][idx["salary"]])
	assert.Equal(t, "-", tbl.Rows[1][idx["salary"]])
	assert.Equal(t, "2019-01-15", tbl.Rows[0][idx["hireDate"]])
	assert.Equal(t, "no", tbl.Rows[1][idx["isActive"]])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, JSON, FromRecords("employees", employees())))

	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "Anna", out[0]["firstName"])

	buf.Reset()
	require.NoError(t, Write(&buf, JSON, FromRecords("empty", nil)))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	tbl := FromRecords("employees", employees())
	require.NoError(t, Write(&buf, XLSX, tbl))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("employees")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, tbl.Columns, rows[0])
	assert.Equal(t, []string{"4", "Anna", "Petrova"}, rows[1][:3])
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "a_b_c", sheetName("a/b:c"))
	assert.Equal(t, "export", sheetName(""))
	assert.Len(t, sheetName("medical-examinations-in-the-last-quarter"), 31)
}
