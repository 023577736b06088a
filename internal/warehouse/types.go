package warehouse

// Row is a single result record keyed by column name.
type Row map[string]any

// ResultSet holds the decoded rows of one executed statement.
type ResultSet struct {
	// Columns preserves the column order reported by the warehouse.
	Columns []string

	// Rows holds one Row per result record.
	Rows []Row
}

// RowCount returns the number of rows in the result set.
func (r *ResultSet) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Empty reports whether the result set holds no rows.
func (r *ResultSet) Empty() bool {
	return r.RowCount() == 0
}

// Statement execution states reported by the warehouse.
const (
	StateSucceeded = "SUCCEEDED"
	StateFailed    = "FAILED"
	StateCanceled  = "CANCELED"
	StateClosed    = "CLOSED"
)

// statementRequest is the wire body for POST /api/2.0/sql/statements.
type statementRequest struct {
	Statement   string `json:"statement"`
	WarehouseID string `json:"warehouse_id"`
	Catalog     string `json:"catalog,omitempty"`
	Schema      string `json:"schema,omitempty"`
	WaitTimeout string `json:"wait_timeout,omitempty"`
}

// statementResponse is the wire shape of a statement execution response.
type statementResponse struct {
	StatementID string `json:"statement_id"`
	Status      struct {
		State string `json:"state"`
		Error *struct {
			ErrorCode string `json:"error_code"`
			Message   string `json:"message"`
		} `json:"error,omitempty"`
	} `json:"status"`
	Manifest *struct {
		Schema struct {
			Columns []struct {
				Name string `json:"name"`
			} `json:"columns"`
		} `json:"schema"`
	} `json:"manifest,omitempty"`
	Result *struct {
		DataArray [][]any `json:"data_array"`
	} `json:"result,omitempty"`
}

// toResultSet converts the wire response into a ResultSet.
// Rows map positional values onto manifest column names; trailing values
// without a declared column are dropped, matching the warehouse contract
// that the manifest describes every result column.
func (sr *statementResponse) toResultSet() *ResultSet {
	rs := &ResultSet{}
	if sr.Manifest != nil {
		for _, col := range sr.Manifest.Schema.Columns {
			rs.Columns = append(rs.Columns, col.Name)
		}
	}
	if sr.Result == nil {
		return rs
	}
	for _, raw := range sr.Result.DataArray {
		row := Row{}
		for i, value := range raw {
			if i < len(rs.Columns) {
				row[rs.Columns[i]] = value
			}
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs
}
