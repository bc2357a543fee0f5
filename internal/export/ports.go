package export

import (
	"context"

	"khata/internal/core"
)

// RecordWriter appends one expense record to the ledger and returns a
// reference to the written row.
type RecordWriter interface {
	Append(ctx context.Context, rec core.ExpenseRecord) (rowRef string, err error)
}
