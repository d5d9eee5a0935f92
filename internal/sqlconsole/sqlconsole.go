// Package sqlconsole runs ad-hoc read-only queries against the railway
// database and ships the canned reports operators use most.
package sqlconsole

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode"

	"railctl/internal/errors"
	"railctl/internal/log"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Preset is a named canned query.
type Preset struct {
	ID    int
	Name  string
	Query string
}

// Presets are the canned reports.
var Presets = []Preset{
	{ID: 1, Name: "All employees", Query: "SELECT * FROM employees"},
	{ID: 2, Name: "Employees and their positions", Query: `SELECT e.first_name, e.last_name, p.name AS position_name
FROM employees e
JOIN positions p ON e.position_id = p.id`},
	{ID: 3, Name: "Departments with more than 5 employees", Query: `SELECT d.name, COUNT(e.id) AS employee_count
FROM departments d
JOIN positions p ON d.id = p.department_id
JOIN employees e ON p.id = e.position_id
GROUP BY d.name
HAVING COUNT(e.id) > 5`},
	{ID: 4, Name: "Failed medical examinations", Query: `SELECT e.first_name, e.last_name, me.examination_date, me.notes
FROM medical_examinations me
JOIN employees e ON me.employee_id = e.id
WHERE me.result = false`},
}

// PresetByID looks a preset up.
func PresetByID(id int) (Preset, bool) {
	for _, p := range Presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// Open connects with one of the registered drivers ("postgres", "mysql").
func Open(driver, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.NewConfigError("sql dsn is not configured", "sql.dsn", errors.InvalidConfig, nil)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.NewDatabaseError("open database", errors.DatabaseConnectionFailed, err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(time.Minute)
	return db, nil
}

// Guard normalizes query and accepts only a single SELECT or WITH
// statement. Comments are stripped and one trailing semicolon is allowed.
func Guard(query string) (string, error) {
	stmt, err := stripComments(query)
	if err != nil {
		return "", err
	}
	stmt = strings.TrimSpace(stmt)
	stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
	if stmt == "" {
		return "", errors.NewValidationError("query", "query is empty", nil)
	}
	if hasSemicolon(stmt) {
		return "", errors.NewValidationError("query", "only one statement may be run at a time", nil)
	}
	words := strings.FieldsFunc(stmt, func(r rune) bool {
		return unicode.IsSpace(r) || r == '('
	})
	if len(words) == 0 {
		return "", errors.NewValidationError("query", "query is empty", nil)
	}
	first := strings.ToUpper(words[0])
	if first != "SELECT" && first != "WITH" {
		return "", errors.NewValidationError("query", "only SELECT and WITH queries are allowed, got "+first, nil)
	}
	return stmt, nil
}

// stripComments drops -- and /* */ comments outside string literals.
func stripComments(s string) (string, error) {
	var b strings.Builder
	var quote rune
	for i := 0; i < len(s); i++ {
		c := rune(s[i])
		switch {
		case quote != 0:
			b.WriteRune(c)
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
			b.WriteRune(c)
		case c == '-' && i+1 < len(s) && s[i+1] == '-':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			b.WriteByte('\n')
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return "", errors.NewValidationError("query", "unterminated comment", nil)
			}
			i += end + 3
			b.WriteByte(' ')
		default:
			b.WriteByte(s[i])
		}
	}
	if quote != 0 {
		return "", errors.NewValidationError("query", "unterminated string literal", nil)
	}
	return b.String(), nil
}

func hasSemicolon(s string) bool {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ';':
			return true
		}
	}
	return false
}

// Result is a query result rendered as text.
type Result struct {
	Columns   []string
	Rows      [][]string
	Truncated bool
	Elapsed   time.Duration
}

// Console runs guarded queries.
type Console struct {
	db      *sql.DB
	maxRows int
}

// New returns a console over db that keeps at most maxRows rows of a
// result (0 keeps everything).
func New(db *sql.DB, maxRows int) *Console {
	return &Console{db: db, maxRows: maxRows}
}

// Run guards and executes query.
func (c *Console) Run(ctx context.Context, query string) (Result, error) {
	stmt, err := Guard(query)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	rows, err := c.db.QueryContext(ctx, stmt)
	if err != nil {
		return Result{}, errors.NewDatabaseError("query failed", errors.DatabaseQueryFailed, err).WithOperation("query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{}, errors.NewDatabaseError("read columns", errors.DatabaseQueryFailed, err)
	}
	res := Result{Columns: cols, Rows: [][]string{}}
	for rows.Next() {
		if c.maxRows > 0 && len(res.Rows) == c.maxRows {
			res.Truncated = true
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, errors.NewDatabaseError("scan row", errors.DatabaseQueryFailed, err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = render(v)
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, errors.NewDatabaseError("read rows", errors.DatabaseQueryFailed, err)
	}
	res.Elapsed = time.Since(start)

	log.LogWithFields(log.F("rows", len(res.Rows)), log.F("elapsed", res.Elapsed.String())).Debug("sql query finished")
	return res, nil
}

func render(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	case bool:
		if x {
			return "true"
		}
		return "false"
	}
	return fmt.Sprint(v)
}
