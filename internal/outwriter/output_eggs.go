package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/folio/core/egg"
	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/schema"
	"github.com/olekukonko/tablewriter"
)

func (ow *OutWriter) writeEggState(state egg.State, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return ow.writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, state)
		}, "Wrote JSON")
	case schema.CSVOut:
		return ow.writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeEggCSV(w, state)
		}, "Wrote CSV")
	default:
		return ow.writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeEggTable(w, state, cfg.UseColors)
		}, "Wrote table")
	}
}

// writeEggTable lists chapters in chain order. Undiscovered chapters stay masked.
func writeEggTable(w io.Writer, state egg.State, useColors bool) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"#", "Chapter", "Status", "Effect"})

	var data [][]string
	for i, ch := range state.Chapters {
		label, status, effect := "???", "Locked", ""
		if state.Discovered[ch.ID] {
			label, status, effect = ch.Label, "Cleared", string(ch.Effect)
			if useColors {
				label = contract.ChapterColor.Sprint(label)
			}
		}
		data = append(data, []string{strconv.Itoa(i + 1), label, status, effect})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	hint := state.Hint
	if useColors {
		hint = contract.HintColor.Sprint(hint)
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n", state.Progress, hint)
	return err
}

func writeEggCSV(w io.Writer, state egg.State) error {
	header := []string{"position", "id", "label", "discovered", "effect"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, ch := range state.Chapters {
			rec := []string{
				strconv.Itoa(i + 1),
				string(ch.ID),
				ch.Label,
				strconv.FormatBool(state.Discovered[ch.ID]),
				string(ch.Effect),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeChapter prints the label, message and description of a triggered chapter.
func (ow *OutWriter) writeChapter(active egg.ActiveChapter, progress egg.Progress, cfg *contract.Config) {
	label := active.Label
	if cfg.UseColors {
		label = contract.ChapterColor.Sprint(label)
	}
	_, _ = fmt.Fprintf(ow.out, "✨ %s [%s]\n   %s\n   %s\n   %s\n", label, active.Effect, active.Message, active.Description, progress)
	if progress.Complete() {
		_, _ = fmt.Fprintln(ow.out, "   "+egg.CompletionHint)
	}
}
