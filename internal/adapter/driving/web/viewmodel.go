package web

import (
	"fmt"
	"time"

	vm "github.com/ericfisherdev/swastyasetu/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/swastyasetu/internal/domain/model"
)

const nullText = "NULL"

// toResultViewModel converts a result-set QueryResult for the table view.
// Cells keep the column and row order of the result.
func toResultViewModel(res model.QueryResult) *vm.ResultViewModel {
	rows := make([][]vm.CellViewModel, 0, len(res.Rows))
	for _, row := range res.Rows {
		cells := make([]vm.CellViewModel, 0, len(row))
		for _, v := range row {
			cells = append(cells, toCellViewModel(v))
		}
		rows = append(rows, cells)
	}

	columns := res.Columns
	if columns == nil {
		columns = []string{}
	}

	return &vm.ResultViewModel{
		Columns:  columns,
		Rows:     rows,
		Summary:  rowSummary(len(res.Rows)),
		Duration: formatDuration(res.Duration),
	}
}

func toCellViewModel(v any) vm.CellViewModel {
	switch val := v.(type) {
	case nil:
		return vm.CellViewModel{Text: nullText, Null: true}
	case []byte:
		return vm.CellViewModel{Text: string(val)}
	case time.Time:
		return vm.CellViewModel{Text: val.Format(time.RFC3339Nano)}
	case string:
		return vm.CellViewModel{Text: val}
	default:
		return vm.CellViewModel{Text: fmt.Sprint(val)}
	}
}

func rowSummary(n int) string {
	switch n {
	case 0:
		return "No rows returned."
	case 1:
		return "1 row returned."
	default:
		return fmt.Sprintf("%d rows returned.", n)
	}
}

// toHistoryViewModels converts history entries, newest first as given.
func toHistoryViewModels(entries []model.QueryHistoryEntry) []vm.HistoryRowViewModel {
	vms := make([]vm.HistoryRowViewModel, 0, len(entries))
	for _, e := range entries {
		row := vm.HistoryRowViewModel{
			SQL:      e.SQL,
			Status:   string(e.Status),
			When:     e.CreatedAt.UTC().Format(time.RFC3339),
			Duration: formatDuration(e.Duration),
		}
		switch e.Status {
		case model.HistoryStatusFailed:
			row.Failed = true
			row.Detail = e.ErrorMessage
		case model.HistoryStatusRows:
			row.Detail = rowSummary(e.RowCount)
		default:
			row.Detail = "Executed successfully."
		}
		vms = append(vms, row)
	}
	return vms
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.Round(time.Microsecond).String()
	}
	return d.Round(time.Millisecond).String()
}

func roleNames() []string {
	names := make([]string, 0, len(model.Roles))
	for _, r := range model.Roles {
		names = append(names, string(r))
	}
	return names
}
