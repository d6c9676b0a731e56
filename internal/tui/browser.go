package tui

import (
	"context"
	"sort"
	"time"

	"listd/internal/store"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	defaultPageSize = 20
	defaultTimeout  = 10 * time.Second
	// Title, search, status and help lines.
	chromeLines = 4
)

// Backend is the list service the browser talks to. *client.Client implements it.
type Backend interface {
	Page(ctx context.Context, q store.PageQuery) (store.Page, error)
	State(ctx context.Context) (store.Summary, error)
	Save(ctx context.Context, req store.SaveStateRequest) error
}

type Options struct {
	// PageSize fixes the page length; 0 fits the terminal height.
	PageSize int
	Search   string
	Timeout  time.Duration
	// Glyphs is "unicode" or "ascii"; empty follows LISTD_TUI_GLYPHS.
	Glyphs string
}

type pageLoadedMsg struct {
	page   store.Page
	offset int
	cursor int
	err    error
}

type stateLoadedMsg struct {
	summary store.Summary
	err     error
}

type savedMsg struct {
	status string
	offset int
	cursor int
	err    error
}

type browser struct {
	backend  Backend
	timeout  time.Duration
	fixedLen int

	width, height int

	search    string
	input     textinput.Model
	searching bool

	page     store.Page
	offset   int
	cursor   int
	selected map[uint64]bool

	status string
	err    error

	keys   keyMap
	help   help.Model
	glyphs glyphSet
}

func newBrowser(backend Backend, opts Options) *browser {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	in := textinput.New()
	in.Prompt = "/ "
	in.Placeholder = "search"
	in.SetValue(opts.Search)
	_ = in.Cursor.SetMode(cursor.CursorStatic)
	gs := glyphsFromEnv()
	if opts.Glyphs != "" {
		gs = parseGlyphs(opts.Glyphs, gs)
	}
	return &browser{
		backend:  backend,
		timeout:  opts.Timeout,
		fixedLen: opts.PageSize,
		search:   opts.Search,
		input:    in,
		selected: map[uint64]bool{},
		keys:     defaultKeyMap(),
		help:     help.New(),
		glyphs:   gs,
	}
}

func (b *browser) Init() tea.Cmd {
	return tea.Batch(b.loadPage(0, 0), b.loadState())
}

func (b *browser) pageSize() int {
	if b.fixedLen > 0 {
		return b.fixedLen
	}
	if b.height <= 0 {
		return defaultPageSize
	}
	return max(1, b.height-chromeLines)
}

func (b *browser) loadPage(offset, cursor int) tea.Cmd {
	q := store.PageQuery{
		Search:         b.search,
		Offset:         max(0, offset),
		Limit:          b.pageSize(),
		UseStoredOrder: true,
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		p, err := b.backend.Page(ctx, q)
		return pageLoadedMsg{page: p, offset: q.Offset, cursor: cursor, err: err}
	}
}

func (b *browser) loadState() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		sum, err := b.backend.State(ctx)
		return stateLoadedMsg{summary: sum, err: err}
	}
}

// save posts req and reloads the page at offset with the cursor at cursor.
func (b *browser) save(req store.SaveStateRequest, status string, offset, cursor int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		err := b.backend.Save(ctx, req)
		return savedMsg{status: status, offset: offset, cursor: cursor, err: err}
	}
}

func (b *browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
		b.help.Width = msg.Width
		return b, b.loadPage(b.offset, b.cursor)

	case pageLoadedMsg:
		if msg.err != nil {
			b.err = msg.err
			return b, nil
		}
		b.err = nil
		b.page = msg.page
		b.offset = msg.offset
		b.cursor = clamp(msg.cursor, 0, len(b.page.Items)-1)
		return b, nil

	case stateLoadedMsg:
		if msg.err != nil {
			b.err = msg.err
			return b, nil
		}
		b.selected = make(map[uint64]bool, len(msg.summary.SelectedIDs))
		for _, id := range msg.summary.SelectedIDs {
			b.selected[id] = true
		}
		return b, nil

	case savedMsg:
		if msg.err != nil {
			b.err = msg.err
			return b, nil
		}
		b.status = msg.status
		return b, b.loadPage(msg.offset, msg.cursor)

	case tea.KeyMsg:
		if b.searching {
			return b.updateSearch(msg)
		}
		return b.updateList(msg)
	}
	return b, nil
}

func (b *browser) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		b.searching = false
		b.input.Blur()
		b.search = b.input.Value()
		return b, b.loadPage(0, 0)
	case tea.KeyEsc:
		b.searching = false
		b.input.Blur()
		b.input.SetValue(b.search)
		return b, nil
	}
	var cmd tea.Cmd
	b.input, cmd = b.input.Update(msg)
	return b, cmd
}

func (b *browser) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(b.page.Items)
	size := b.pageSize()

	switch {
	case key.Matches(msg, b.keys.Quit):
		return b, tea.Quit

	case key.Matches(msg, b.keys.Down):
		if b.cursor < n-1 {
			b.cursor++
			return b, nil
		}
		if b.page.HasMore {
			return b, b.loadPage(b.offset+size, 0)
		}

	case key.Matches(msg, b.keys.Up):
		if b.cursor > 0 {
			b.cursor--
			return b, nil
		}
		if b.offset > 0 {
			return b, b.loadPage(b.offset-size, size-1)
		}

	case key.Matches(msg, b.keys.PageDown):
		if b.page.HasMore {
			return b, b.loadPage(b.offset+size, 0)
		}

	case key.Matches(msg, b.keys.PageUp):
		if b.offset > 0 {
			return b, b.loadPage(b.offset-size, 0)
		}

	case key.Matches(msg, b.keys.Home):
		return b, b.loadPage(0, 0)

	case key.Matches(msg, b.keys.Reload):
		return b, tea.Batch(b.loadPage(b.offset, b.cursor), b.loadState())

	case key.Matches(msg, b.keys.Search):
		b.searching = true
		b.input.Focus()
		return b, nil

	case key.Matches(msg, b.keys.Clear):
		if b.search != "" {
			b.search = ""
			b.input.SetValue("")
			return b, b.loadPage(0, 0)
		}

	case key.Matches(msg, b.keys.Toggle):
		if n == 0 {
			return b, nil
		}
		return b, b.toggleSelection(b.page.Items[b.cursor].ID)

	case key.Matches(msg, b.keys.MoveUp):
		return b, b.moveUp()

	case key.Matches(msg, b.keys.MoveDown):
		return b, b.moveDown()
	}
	return b, nil
}

func (b *browser) toggleSelection(id uint64) tea.Cmd {
	if b.selected[id] {
		delete(b.selected, id)
	} else {
		b.selected[id] = true
	}
	ids := make(store.LooseIDs, 0, len(b.selected))
	for sel := range b.selected {
		ids = append(ids, store.LooseID(sel))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return b.save(store.SaveStateRequest{SelectedIDs: &ids}, "selection saved", b.offset, b.cursor)
}

// moveUp swaps the cursor item with the one above it. Within the page this is an anchor move
// between the two items above; across a page edge the absolute index is used.
func (b *browser) moveUp() tea.Cmd {
	c := b.cursor
	if len(b.page.Items) == 0 || (c == 0 && b.offset == 0) {
		return nil
	}
	items := b.page.Items
	id := items[c].ID
	abs := b.offset + c

	var oc *store.OrderChanges
	switch {
	case c >= 2:
		oc = store.AnchorChange(id, items[c-2].ID, items[c-1].ID)
	case c == 1 && b.offset == 0:
		oc = store.AnchorChange(id, 0, items[0].ID)
	default:
		oc = store.IndexChange(id, abs, abs-1)
	}

	offset := b.offset
	if abs-1 < offset {
		offset = max(0, offset-b.pageSize())
	}
	return b.save(store.SaveStateRequest{OrderChanges: oc, Search: store.LooseString(b.search)},
		"moved up", offset, abs-1-offset)
}

// moveDown swaps the cursor item with the one below it.
func (b *browser) moveDown() tea.Cmd {
	c := b.cursor
	items := b.page.Items
	if len(items) == 0 || (c == len(items)-1 && !b.page.HasMore) {
		return nil
	}
	id := items[c].ID
	abs := b.offset + c

	var oc *store.OrderChanges
	if c < len(items)-1 {
		var next uint64
		if c+2 < len(items) {
			next = items[c+2].ID
		}
		oc = store.AnchorChange(id, items[c+1].ID, next)
	} else {
		oc = store.IndexChange(id, abs, abs+1)
	}

	offset := b.offset
	if abs+1 >= offset+b.pageSize() {
		offset += b.pageSize()
	}
	return b.save(store.SaveStateRequest{OrderChanges: oc, Search: store.LooseString(b.search)},
		"moved down", offset, abs+1-offset)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
