package engine

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"

	"usage-report/internal/domain"
)

// DecodeResultSet converts an Athena result set into a ResultTable. The first
// row of an Athena result repeats the column labels and is skipped. Absent
// cells decode to the empty string; column order is preserved as returned.
func DecodeResultSet(rs *types.ResultSet) *domain.ResultTable {
	table := &domain.ResultTable{}
	if rs == nil {
		return table
	}

	if rs.ResultSetMetadata != nil {
		table.Columns = make([]string, 0, len(rs.ResultSetMetadata.ColumnInfo))
		for _, col := range rs.ResultSetMetadata.ColumnInfo {
			table.Columns = append(table.Columns, aws.ToString(col.Label))
		}
	}

	if len(rs.Rows) < 2 {
		return table
	}
	table.Rows = make([][]string, 0, len(rs.Rows)-1)
	for _, row := range rs.Rows[1:] {
		cells := make([]string, len(row.Data))
		for i, d := range row.Data {
			cells[i] = aws.ToString(d.VarCharValue)
		}
		table.Rows = append(table.Rows, cells)
	}
	return table
}
