package outwriter

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// maxErrorWidth bounds the error column of the runs table.
const maxErrorWidth = 40

func (ow *OutWriter) writeFetchRuns(runs []schema.FetchRun, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return ow.writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if runs == nil {
				runs = []schema.FetchRun{}
			}
			return writeJSON(w, runs)
		}, "Wrote JSON")
	case schema.CSVOut:
		return ow.writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeFetchRunsCSV(w, runs)
		}, "Wrote CSV")
	default:
		return ow.writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeFetchRunsTable(w, runs)
		}, "Wrote table")
	}
}

func writeFetchRunsTable(w io.Writer, runs []schema.FetchRun) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Run", "Identity", "Started", "Duration", "Outcome", "Rate Limited", "Error"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, r := range runs {
		data = append(data, []string{
			strconv.FormatInt(r.RunID, 10),
			r.Identity,
			r.StartedAt.Format(contract.DateTimeFormat),
			strconv.FormatInt(r.DurationMs, 10) + "ms",
			string(r.Outcome),
			strconv.FormatBool(r.RateLimited),
			contract.Truncate(schema.StringValue(r.ErrorMessage), maxErrorWidth),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeFetchRunsCSV(w io.Writer, runs []schema.FetchRun) error {
	header := []string{"run_id", "identity", "started_at", "duration_ms", "outcome", "rate_limited", "error_message"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range runs {
			rec := []string{
				strconv.FormatInt(r.RunID, 10),
				r.Identity,
				r.StartedAt.Format(contract.DateTimeFormat),
				strconv.FormatInt(r.DurationMs, 10),
				string(r.Outcome),
				strconv.FormatBool(r.RateLimited),
				schema.StringValue(r.ErrorMessage),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
