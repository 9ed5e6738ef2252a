package domain

// QueryState is the lifecycle state of a submitted backend query.
type QueryState string

// Query states as reported by the backend. Succeeded, Failed and Cancelled
// are terminal; Succeeded is the only state results can be fetched from.
const (
	QueryStateQueued    QueryState = "QUEUED"
	QueryStateRunning   QueryState = "RUNNING"
	QueryStateSucceeded QueryState = "SUCCEEDED"
	QueryStateFailed    QueryState = "FAILED"
	QueryStateCancelled QueryState = "CANCELLED"
)

// Terminal reports whether the state is final.
func (s QueryState) Terminal() bool {
	switch s {
	case QueryStateSucceeded, QueryStateFailed, QueryStateCancelled:
		return true
	}
	return false
}

// ResultTable is a decoded query result: ordered column labels paired with
// ordered rows of raw string cells. The backend returns everything as text;
// numeric typing is the caller's responsibility.
type ResultTable struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// RowCount returns the number of data rows.
func (t *ResultTable) RowCount() int { return len(t.Rows) }

// Clone returns a deep copy. Callers that hand tables out of a shared cache
// clone them so one consumer cannot mutate another's view.
func (t *ResultTable) Clone() *ResultTable {
	if t == nil {
		return nil
	}
	out := &ResultTable{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}
