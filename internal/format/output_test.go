package format

import (
	"bytes"
	"strings"
	"testing"
)

type chunk struct {
	IDs         []uint64 `json:"ids"`
	TotalChunks int      `json:"totalChunks"`
	HasMore     bool     `json:"hasMore"`
	Search      string   `json:"search"`
}

func TestWriteEDN(t *testing.T) {
	t.Parallel()

	v := chunk{IDs: []uint64{1, 18446744073709551615}, TotalChunks: 3, Search: "Item 1"}
	var buf bytes.Buffer
	if err := Write(&buf, v, "edn", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := `{:has-more false :ids [1 18446744073709551615] :search "Item 1" :total-chunks 3}` + "\n"
	if got := buf.String(); got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}

func TestWriteEDN_Pretty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteEDN(&buf, map[string]any{"a": []int{1}, "empty": []int{}}, true); err != nil {
		t.Fatalf("WriteEDN: %v", err)
	}
	want := "{\n  :a [\n    1\n  ]\n  :empty []\n}\n"
	if got := buf.String(); got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}

func TestKeyword(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"itemId":                   ":item-id",
		"contextualPositionsCount": ":contextual-positions-count",
		"max_entries":              ":max-entries",
		"ids":                      ":ids",
	} {
		if got := Keyword(in); got != want {
			t.Fatalf("Keyword(%q): got %q want %q", in, got, want)
		}
	}
}

type rows [][]string

func (r rows) Header() []string { return []string{"ID", "VALUE"} }

func (r rows) Rows() [][]string { return r }

func TestWriteTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, rows{{"1", "Item 1"}, {"2", "Item 2"}}, "table", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	for _, s := range []string{"ID", "VALUE", "Item 1", "Item 2"} {
		if !strings.Contains(out, s) {
			t.Fatalf("table output missing %q:\n%s", s, out)
		}
	}

	// Values that are not tabular fall back to JSON.
	buf.Reset()
	if err := Write(&buf, map[string]int{"n": 1}, "table", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.String() != "{\"n\":1}\n" {
		t.Fatalf("fallback: %q", buf.String())
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	t.Parallel()

	if err := Write(&bytes.Buffer{}, 1, "xml", false); err == nil {
		t.Fatalf("expected error")
	}
}
