package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"listd/internal/client"
	"listd/internal/store"
	"listd/internal/tui"

	"github.com/spf13/cobra"
)

func withClient(cmd *cobra.Command, app *App, fn func(ctx context.Context, c *client.Client) (any, error)) error {
	c, err := newClient(app)
	if err != nil {
		return writeErr(cmd, err)
	}
	v, err := fn(cmd.Context(), c)
	if err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, app, v)
}

func newPageCmd(app *App) *cobra.Command {
	var (
		search   string
		offset   int
		limit    int
		baseline bool
	)
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Fetch one page of items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, app, func(ctx context.Context, c *client.Client) (any, error) {
				p, err := c.Page(ctx, store.PageQuery{
					Search:         search,
					Offset:         offset,
					Limit:          limit,
					UseStoredOrder: !baseline,
				})
				return pageView{p}, err
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive substring filter")
	cmd.Flags().IntVar(&offset, "offset", 0, "Zero-based offset")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (0: server default)")
	cmd.Flags().BoolVar(&baseline, "baseline", false, "Ignore stored order and return baseline order")
	return cmd
}

func newIDsCmd(app *App) *cobra.Command {
	var chunk, size int
	cmd := &cobra.Command{
		Use:   "ids",
		Short: "Fetch one chunk of the full id order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, app, func(ctx context.Context, c *client.Client) (any, error) {
				ch, err := c.IDs(ctx, chunk, size)
				return idsView{ch}, err
			})
		},
	}
	cmd.Flags().IntVar(&chunk, "chunk", 0, "Chunk index")
	cmd.Flags().IntVar(&size, "size", 0, "Chunk size (0: server default)")
	return cmd
}

func newStateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the state summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, app, func(ctx context.Context, c *client.Client) (any, error) {
				s, err := c.State(ctx)
				return summaryView{s}, err
			})
		},
	}
}

func newOrderCmd(app *App) *cobra.Command {
	var (
		start, count int
		search       string
	)
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Show a slice of the stored custom order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, app, func(ctx context.Context, c *client.Client) (any, error) {
				s, err := c.OrderSlice(ctx, start, count, search)
				return sliceView{s}, err
			})
		},
	}
	cmd.Flags().IntVar(&start, "start", 0, "First position")
	cmd.Flags().IntVar(&count, "count", 0, "Number of ids (0: server default)")
	cmd.Flags().StringVar(&search, "search", "", "Read the scoped order for this search")
	return cmd
}

func newJournalCmd(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent writes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, app, func(ctx context.Context, c *client.Client) (any, error) {
				entries, err := c.Journal(ctx, limit)
				return journalView(entries), err
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of entries (0: server default)")
	return cmd
}

func newSaveCmd(app *App) *cobra.Command {
	var (
		body        string
		selected    []string
		customOrder []string
		search      string
		item        uint64
		oldIndex    int
		newIndex    int
		prev        uint64
		next        uint64
	)
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Persist a selection, a full order or a single move",
		Long: strings.TrimSpace(`
Persist a selection, a full order or a single move.

A move is either an index move (--item with --old-index and --new-index, positions in the
order the client currently sees) or an anchor move (--item with --prev and/or --next).
--body sends a raw save-state JSON document ("-" reads stdin); flags override its fields.
`),
		Example: strings.TrimSpace(`
listd save --item 5 --old-index 4 --new-index 0
listd save --item 3 --prev 1 --next 2 --search "item 1"
listd save --selected 4,2,9
listd save --custom-order 9,8,7
echo '{"selectedIds":[1]}' | listd save --body -
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildSaveRequest(cmd, saveFlags{
				body:        body,
				selected:    selected,
				customOrder: customOrder,
				search:      search,
				item:        item,
				oldIndex:    oldIndex,
				newIndex:    newIndex,
				prev:        prev,
				next:        next,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return withClient(cmd, app, func(ctx context.Context, c *client.Client) (any, error) {
				if err := c.Save(ctx, req); err != nil {
					return nil, err
				}
				return map[string]any{"saved": true}, nil
			})
		},
	}
	cmd.Flags().StringVar(&body, "body", "", "Raw JSON request body (- for stdin)")
	cmd.Flags().StringSliceVar(&selected, "selected", nil, "Replace the selection with these ids")
	cmd.Flags().StringSliceVar(&customOrder, "custom-order", nil, "Replace the global order with these ids")
	cmd.Flags().StringVar(&search, "search", "", "Search the move applies to")
	cmd.Flags().Uint64Var(&item, "item", 0, "Item to move")
	cmd.Flags().IntVar(&oldIndex, "old-index", 0, "Current visible position of --item")
	cmd.Flags().IntVar(&newIndex, "new-index", 0, "Target visible position of --item")
	cmd.Flags().Uint64Var(&prev, "prev", 0, "Place --item right after this item")
	cmd.Flags().Uint64Var(&next, "next", 0, "Place --item right before this item")
	return cmd
}

type saveFlags struct {
	body                  string
	selected, customOrder []string
	search                string
	item                  uint64
	oldIndex, newIndex    int
	prev, next            uint64
}

func buildSaveRequest(cmd *cobra.Command, f saveFlags) (store.SaveStateRequest, error) {
	var req store.SaveStateRequest
	changed := cmd.Flags().Changed

	if f.body != "" {
		var r io.Reader = strings.NewReader(f.body)
		if f.body == "-" {
			r = cmd.InOrStdin()
		}
		b, err := io.ReadAll(r)
		if err != nil {
			return req, err
		}
		if len(strings.TrimSpace(string(b))) > 0 {
			if err := json.Unmarshal(b, &req); err != nil {
				return req, fmt.Errorf("parse --body: %w", err)
			}
		}
	}

	if changed("search") {
		req.Search = store.LooseString(f.search)
	}
	if changed("selected") {
		ids, err := parseIDList(f.selected)
		if err != nil {
			return req, fmt.Errorf("--selected: %w", err)
		}
		req.SelectedIDs = &ids
	}
	if changed("custom-order") {
		ids, err := parseIDList(f.customOrder)
		if err != nil {
			return req, fmt.Errorf("--custom-order: %w", err)
		}
		req.CustomOrder = ids
	}

	anchored := changed("prev") || changed("next")
	indexed := changed("old-index") || changed("new-index")
	switch {
	case !changed("item"):
		if anchored || indexed {
			return req, errors.New("--prev/--next/--old-index/--new-index need --item")
		}
	case anchored && indexed:
		return req, errors.New("use either --prev/--next or --old-index/--new-index, not both")
	case anchored:
		req.OrderChanges = store.AnchorChange(f.item, f.prev, f.next)
	case changed("old-index") && changed("new-index"):
		req.OrderChanges = store.IndexChange(f.item, f.oldIndex, f.newIndex)
	default:
		return req, errors.New("--item needs --prev/--next or both --old-index and --new-index")
	}
	return req, nil
}

func parseIDList(raw []string) (store.LooseIDs, error) {
	out := make(store.LooseIDs, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid id %q", s)
		}
		out = append(out, store.LooseID(id))
	}
	return out, nil
}

func newBrowseCmd(app *App) *cobra.Command {
	var (
		pageSize int
		search   string
		glyphs   string
	)
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse and reorder the list in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.Health(cmd.Context()); err != nil {
				return writeErr(cmd, fmt.Errorf("server %s not reachable: %w", app.Server, err))
			}
			if err := tui.Run(c, tui.Options{PageSize: pageSize, Search: search, Timeout: app.Timeout, Glyphs: glyphs}); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Rows per page (0: fit the terminal)")
	cmd.Flags().StringVar(&search, "search", "", "Initial search")
	cmd.Flags().StringVar(&glyphs, "glyphs", "", "Glyph set (unicode|ascii; default: $LISTD_TUI_GLYPHS)")
	return cmd
}

