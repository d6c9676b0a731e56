package cli

import (
	"strconv"
	"time"

	"listd/internal/docs"
	"listd/internal/journal"
	"listd/internal/store"
)

// Views wrap client payloads so --format table can render them; JSON and EDN output is unchanged.

type pageView struct{ store.Page }

func (v pageView) Header() []string { return []string{"#", "id", "value", "selected"} }

func (v pageView) Rows() [][]string {
	rows := make([][]string, 0, len(v.Items))
	for i, it := range v.Items {
		sel := ""
		if it.Selected {
			sel = "*"
		}
		rows = append(rows, []string{strconv.Itoa(i), u64(it.ID), it.Value, sel})
	}
	return rows
}

type idsView struct{ store.IDChunk }

func (v idsView) Header() []string { return []string{"#", "id"} }

func (v idsView) Rows() [][]string { return indexedIDs(v.IDs, 0) }

type sliceView struct{ store.OrderSlice }

func (v sliceView) Header() []string { return []string{"position", "id"} }

func (v sliceView) Rows() [][]string { return indexedIDs(v.OrderSlice.OrderSlice, v.Start) }

type summaryView struct{ store.Summary }

func (v summaryView) Header() []string { return []string{"field", "value"} }

func (v summaryView) Rows() [][]string {
	return [][]string{
		{"selected", strconv.Itoa(len(v.SelectedIDs))},
		{"custom order length", strconv.Itoa(v.CustomOrderLength)},
		{"search filters", strconv.Itoa(v.SearchFiltersCount)},
		{"contextual positions", strconv.Itoa(v.ContextualPositionsCount)},
	}
}

type journalView []journal.Entry

func (v journalView) Header() []string {
	return []string{"at", "kind", "search", "item", "revision", "changed"}
}

func (v journalView) Rows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, e := range v {
		item := ""
		if e.ItemID != 0 {
			item = u64(e.ItemID)
		}
		rows = append(rows, []string{
			e.At.UTC().Format(time.RFC3339),
			e.Kind,
			e.Search,
			item,
			u64(e.Revision),
			strconv.FormatBool(e.Changed),
		})
	}
	return rows
}

type topicsView []docs.Topic

func (v topicsView) Header() []string { return []string{"topic", "title"} }

func (v topicsView) Rows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, t := range v {
		rows = append(rows, []string{t.Name, t.Title})
	}
	return rows
}

func indexedIDs(ids []uint64, start int) [][]string {
	rows := make([][]string, 0, len(ids))
	for i, id := range ids {
		rows = append(rows, []string{strconv.Itoa(start + i), u64(id)})
	}
	return rows
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }
