package tui

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"listd/internal/catalog"
	"listd/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
)

// storeBackend serves the browser straight from an in-process store.
type storeBackend struct{ st *store.Store }

func (s storeBackend) Page(_ context.Context, q store.PageQuery) (store.Page, error) {
	return s.st.Page(q), nil
}

func (s storeBackend) State(context.Context) (store.Summary, error) { return s.st.Summary(), nil }

func (s storeBackend) Save(_ context.Context, req store.SaveStateRequest) error {
	s.st.Apply(req.Write())
	return nil
}

func newTestBrowser(t *testing.T, size, pageSize int) (*browser, *store.Store) {
	t.Helper()
	cat, err := catalog.New(size)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	st, err := store.New(cat, store.Options{})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	b := newBrowser(storeBackend{st: st}, Options{PageSize: pageSize})
	drain(t, b, b.Init())
	return b, st
}

// drain runs cmd and feeds every resulting message back into b until nothing is left.
func drain(t *testing.T, b *browser, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 100 {
			t.Fatalf("command loop did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case pageLoadedMsg, stateLoadedMsg, savedMsg:
			_, next := b.Update(msg)
			queue = append(queue, next)
		}
	}
}

func press(t *testing.T, b *browser, keys ...string) {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "shift+up":
			msg = tea.KeyMsg{Type: tea.KeyShiftUp}
		case "shift+down":
			msg = tea.KeyMsg{Type: tea.KeyShiftDown}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd := b.Update(msg)
		drain(t, b, cmd)
	}
}

func visibleIDs(b *browser) []uint64 {
	out := make([]uint64, 0, len(b.page.Items))
	for _, it := range b.page.Items {
		out = append(out, it.ID)
	}
	return out
}

func orderOf(st *store.Store, n int) []uint64 {
	p := st.Page(store.PageQuery{Limit: n, UseStoredOrder: true})
	out := make([]uint64, 0, len(p.Items))
	for _, it := range p.Items {
		out = append(out, it.ID)
	}
	return out
}

func TestBrowser_LoadsFirstPage(t *testing.T) {
	t.Parallel()

	b, _ := newTestBrowser(t, 10, 4)
	if got := visibleIDs(b); !reflect.DeepEqual(got, []uint64{1, 2, 3, 4}) {
		t.Fatalf("first page: %v", got)
	}
	if !strings.Contains(b.View(), "1-4 of 10") {
		t.Fatalf("title missing span:\n%s", b.View())
	}
}

func TestBrowser_NavigatesAcrossPages(t *testing.T) {
	t.Parallel()

	b, _ := newTestBrowser(t, 10, 4)
	press(t, b, "down", "down", "down", "down")
	if b.offset != 4 || b.cursor != 0 || b.page.Items[0].ID != 5 {
		t.Fatalf("expected second page: offset=%d cursor=%d", b.offset, b.cursor)
	}
	press(t, b, "up")
	if b.offset != 0 || b.cursor != 3 {
		t.Fatalf("expected back on first page at its end: offset=%d cursor=%d", b.offset, b.cursor)
	}
}

func TestBrowser_MovesItems(t *testing.T) {
	t.Parallel()

	b, st := newTestBrowser(t, 10, 4)

	// Move item 3 to the top with two anchor moves.
	press(t, b, "down", "down", "K", "K")
	if got := orderOf(st, 5); !reflect.DeepEqual(got, []uint64{3, 1, 2, 4, 5}) {
		t.Fatalf("after moving up: %v", got)
	}
	if b.cursor != 0 || b.page.Items[b.cursor].ID != 3 {
		t.Fatalf("cursor should follow the moved item, at %d", b.cursor)
	}

	// Item 4 sits at the bottom of the page; moving it down crosses the page edge.
	press(t, b, "down", "down", "down", "shift+down")
	if got := orderOf(st, 6); !reflect.DeepEqual(got, []uint64{3, 1, 2, 5, 4, 6}) {
		t.Fatalf("after moving down: %v", got)
	}
	if b.offset != 4 || b.page.Items[b.cursor].ID != 4 {
		t.Fatalf("expected cursor on item 4 on the next page: offset=%d cursor=%d", b.offset, b.cursor)
	}
}

func TestBrowser_TogglesSelection(t *testing.T) {
	t.Parallel()

	b, st := newTestBrowser(t, 5, 5)
	press(t, b, "down", "space", "down", "down", "x")
	if got := st.Summary().SelectedIDs; !reflect.DeepEqual(got, []uint64{2, 4}) {
		t.Fatalf("selection: %v", got)
	}
	press(t, b, "up", "up", "space")
	if got := st.Summary().SelectedIDs; !reflect.DeepEqual(got, []uint64{4}) {
		t.Fatalf("selection after untoggle: %v", got)
	}
	if !b.page.Items[3].Selected {
		t.Fatalf("reloaded page should mark item 4 selected")
	}
}

func TestBrowser_Search(t *testing.T) {
	t.Parallel()

	b, _ := newTestBrowser(t, 30, 5)
	press(t, b, "/", "i", "t", "e", "m", " ", "2", "enter")
	if b.search != "item 2" || b.page.Total != 11 {
		t.Fatalf("search: %q total=%d", b.search, b.page.Total)
	}
	if got := visibleIDs(b); !reflect.DeepEqual(got, []uint64{2, 20, 21, 22, 23}) {
		t.Fatalf("search page: %v", got)
	}
	press(t, b, "esc")
	if b.search != "" || b.page.Total != 30 {
		t.Fatalf("esc should clear the search: %q total=%d", b.search, b.page.Total)
	}
}

func TestUpgradeProfile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in              termenv.Profile
		term, colorterm string
		want            termenv.Profile
	}{
		{termenv.ANSI, "xterm", "truecolor", termenv.TrueColor},
		{termenv.Ascii, "xterm", "24bit", termenv.Ascii},
		{termenv.ANSI, "xterm-256color", "", termenv.ANSI256},
		{termenv.TrueColor, "xterm-256color", "", termenv.TrueColor},
		{termenv.ANSI, "dumb", "", termenv.ANSI},
	}
	for _, tt := range tests {
		if got := upgradeProfile(tt.in, tt.term, tt.colorterm); got != tt.want {
			t.Fatalf("upgradeProfile(%v, %q, %q): got %v want %v", tt.in, tt.term, tt.colorterm, got, tt.want)
		}
	}
}
