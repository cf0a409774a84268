package warehouse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Param binds a named :marker in a statement.
type Param struct {
	Name  string  `json:"name"`
	Value *string `json:"value"`
	Type  string  `json:"type,omitempty"`
}

// StringParam binds a STRING value.
func StringParam(name, v string) Param {
	return Param{Name: name, Value: &v, Type: "STRING"}
}

// IntParam binds an INT value.
func IntParam(name string, v int) Param {
	s := strconv.Itoa(v)
	return Param{Name: name, Value: &s, Type: "INT"}
}

// BoolParam binds a BOOLEAN value.
func BoolParam(name string, v bool) Param {
	s := strconv.FormatBool(v)
	return Param{Name: name, Value: &s, Type: "BOOLEAN"}
}

type statementRequest struct {
	WarehouseID   string  `json:"warehouse_id"`
	Statement     string  `json:"statement"`
	Parameters    []Param `json:"parameters,omitempty"`
	Catalog       string  `json:"catalog,omitempty"`
	Schema        string  `json:"schema,omitempty"`
	WaitTimeout   string  `json:"wait_timeout"`
	OnWaitTimeout string  `json:"on_wait_timeout"`
	Disposition   string  `json:"disposition"`
	Format        string  `json:"format"`
}

type statementStatus struct {
	State string `json:"state"`
	Error *struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
	} `json:"error,omitempty"`
}

type column struct {
	Name     string `json:"name"`
	TypeName string `json:"type_name"`
	Position int    `json:"position"`
}

type statementResponse struct {
	StatementID string          `json:"statement_id"`
	Status      statementStatus `json:"status"`
	Manifest    *struct {
		Schema struct {
			ColumnCount int      `json:"column_count"`
			Columns     []column `json:"columns"`
		} `json:"schema"`
		TotalRowCount int64 `json:"total_row_count"`
	} `json:"manifest,omitempty"`
	Result *struct {
		RowCount  int64       `json:"row_count"`
		DataArray [][]*string `json:"data_array"`
	} `json:"result,omitempty"`
}

func (r statementResponse) result() (*Result, error) {
	if r.Status.State != "SUCCEEDED" {
		se := &StatementError{StatementID: r.StatementID, State: r.Status.State, Message: "statement did not complete"}
		if r.Status.Error != nil {
			se.Code = r.Status.Error.ErrorCode
			se.Message = r.Status.Error.Message
		}
		return nil, se
	}

	res := &Result{StatementID: r.StatementID, index: map[string]int{}}
	if r.Manifest != nil {
		for _, c := range r.Manifest.Schema.Columns {
			res.Columns = append(res.Columns, c.Name)
			res.index[strings.ToLower(c.Name)] = c.Position
		}
	}
	if r.Result != nil {
		res.Rows = r.Result.DataArray
	}
	return res, nil
}

// Result is an inline JSON_ARRAY result. Every value arrives as a string or null.
type Result struct {
	StatementID string
	Columns     []string
	Rows        [][]*string
	index       map[string]int
}

// Len returns the number of rows.
func (r *Result) Len() int {
	return len(r.Rows)
}

// Has reports whether the result carries col.
func (r *Result) Has(col string) bool {
	_, ok := r.index[strings.ToLower(col)]
	return ok
}

// String returns a column value, "" for null.
func (r *Result) String(row int, col string) (string, error) {
	v, err := r.cell(row, col)
	if err != nil || v == nil {
		return "", err
	}
	return *v, nil
}

// Int parses a numeric column. Warehouses may render integers as decimals
// ("12.0") so values are read through decimal and truncated.
func (r *Result) Int(row int, col string) (int, error) {
	v, err := r.cell(row, col)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*v))
	if err != nil {
		return 0, fmt.Errorf("warehouse: column %s: %w", col, err)
	}
	return int(d.IntPart()), nil
}

// Bool parses a BOOLEAN column; null yields false.
func (r *Result) Bool(row int, col string) (bool, error) {
	v, err := r.cell(row, col)
	if err != nil || v == nil {
		return false, err
	}
	b, err := strconv.ParseBool(strings.TrimSpace(*v))
	if err != nil {
		return false, fmt.Errorf("warehouse: column %s: %w", col, err)
	}
	return b, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Time parses a TIMESTAMP column; null yields the zero time.
func (r *Result) Time(row int, col string) (time.Time, error) {
	v, err := r.cell(row, col)
	if err != nil || v == nil {
		return time.Time{}, err
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, *v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("warehouse: column %s: unrecognized timestamp %q", col, *v)
}

func (r *Result) cell(row int, col string) (*string, error) {
	if row < 0 || row >= len(r.Rows) {
		return nil, fmt.Errorf("warehouse: row %d out of range", row)
	}
	pos, ok := r.index[strings.ToLower(col)]
	if !ok {
		return nil, fmt.Errorf("warehouse: no column %q in result", col)
	}
	if pos >= len(r.Rows[row]) {
		return nil, fmt.Errorf("warehouse: column %q missing from row %d", col, row)
	}
	return r.Rows[row][pos], nil
}
