package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"listd/internal/catalog"
	"listd/internal/journal"
	"listd/internal/store"
	"listd/internal/web"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cat, err := catalog.New(5)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	st, err := store.New(cat, store.Options{})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	jr, err := journal.Open(context.Background(), journal.Options{})
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() { _ = jr.Close() })
	srv, err := web.NewServer(web.ServerConfig{Store: st, Journal: jr})
	if err != nil {
		t.Fatalf("web.NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c, err := New(ts.URL, ts.Client())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestClient_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestClient(t)

	if err := c.Health(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}
	if err := c.Save(ctx, store.SaveStateRequest{OrderChanges: store.AnchorChange(3, 1, 2)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	sel := store.LooseIDs{5}
	if err := c.Save(ctx, store.SaveStateRequest{SelectedIDs: &sel}); err != nil {
		t.Fatalf("save selection: %v", err)
	}

	page, err := c.Page(ctx, store.PageQuery{Limit: 5, UseStoredOrder: true})
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	ids := make([]uint64, 0, len(page.Items))
	for _, it := range page.Items {
		ids = append(ids, it.ID)
	}
	if want := []uint64{1, 3, 2, 4, 5}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("page: got %v want %v", ids, want)
	}
	if !page.Items[4].Selected {
		t.Fatalf("item 5 should be selected")
	}

	chunk, err := c.IDs(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if !reflect.DeepEqual(chunk.IDs, []uint64{2, 4}) || chunk.TotalChunks != 3 {
		t.Fatalf("ids: %+v", chunk)
	}

	sum, err := c.State(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if sum.ContextualPositionsCount != 1 || !reflect.DeepEqual(sum.SelectedIDs, []uint64{5}) {
		t.Fatalf("state: %+v", sum)
	}

	sl, err := c.OrderSlice(ctx, 0, 0, "")
	if err != nil {
		t.Fatalf("order slice: %v", err)
	}
	if sl.Total != 0 || len(sl.OrderSlice) != 0 {
		t.Fatalf("anchor moves do not populate the global overlay: %+v", sl)
	}

	entries, err := c.Journal(ctx, 5)
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	if len(entries) != 2 || entries[1].Kind != "anchor_move" || entries[1].ItemID != 3 {
		t.Fatalf("journal: %+v", entries)
	}
}

func TestClient_StatusError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"journal disabled"}`))
	}))
	t.Cleanup(ts.Close)

	c, err := New(ts.URL, ts.Client())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Journal(context.Background(), 0)
	if !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	if err.Error() != "server returned 404: journal disabled" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestNew_AddsScheme(t *testing.T) {
	t.Parallel()

	c, err := New("localhost:9000", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.endpoint("/items", nil); got != "http://localhost:9000/items" {
		t.Fatalf("endpoint: %q", got)
	}
}
