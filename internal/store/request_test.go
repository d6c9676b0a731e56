package store

import (
	"encoding/json"
	"reflect"
	"testing"
)

func decodeWrite(t *testing.T, body string) Write {
	t.Helper()
	var req SaveStateRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal %s: %v", body, err)
	}
	return req.Write()
}

func TestSaveStateRequest_Write(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want Write
	}{
		{
			name: "selection only",
			body: `{"selectedIds":[3,"1",3]}`,
			want: Write{Kind: SelectionOnly, HasSelection: true, Selection: []uint64{3, 1}},
		},
		{
			name: "custom order wins over order changes",
			body: `{"customOrder":[5,"4",5,0],"orderChanges":{"itemId":1,"oldIndex":0,"newIndex":2},"search":"Item 1"}`,
			want: Write{Kind: FullReplace, Order: []uint64{5, 4}, Search: "Item 1", Scope: "item 1"},
		},
		{
			name: "empty custom order falls through to index move",
			body: `{"customOrder":[],"orderChanges":{"itemId":"5","oldIndex":"4","newIndex":0}}`,
			want: Write{Kind: IndexMove, ItemID: 5, OldIndex: 4, NewIndex: 0},
		},
		{
			name: "anchor move with null prev",
			body: `{"orderChanges":{"itemId":3,"prevItemId":null,"nextItemId":"2"}}`,
			want: Write{Kind: AnchorMove, ItemID: 3, NextItemID: 2},
		},
		{
			name: "anchor keys win over indices",
			body: `{"orderChanges":{"itemId":3,"oldIndex":1,"newIndex":2,"prevItemId":1}}`,
			want: Write{Kind: AnchorMove, ItemID: 3, PrevItemID: 1},
		},
		{
			name: "garbage fields degrade",
			body: `{"selectedIds":"x","customOrder":{"a":1},"orderChanges":"nope","search":42}`,
			want: Write{Kind: IndexMove, HasSelection: true, Selection: []uint64{}, Search: "42", Scope: "42"},
		},
		{
			name: "nothing",
			body: `{}`,
			want: Write{Kind: SelectionOnly},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := decodeWrite(t, tt.body)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %+v\nwant %+v", got, tt.want)
			}
		})
	}
}

func TestLooseNumbers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int64
	}{
		{`7`, 7},
		{`"12"`, 12},
		{`" 9 "`, 9},
		{`3.9`, 3},
		{`-2`, -2},
		{`"abc"`, 0},
		{`null`, 0},
		{`true`, 0},
		{`1e300`, 0},
	}
	for _, tt := range tests {
		if got := parseLooseInt([]byte(tt.in)); got != tt.want {
			t.Fatalf("parseLooseInt(%s): got %d want %d", tt.in, got, tt.want)
		}
	}
	if got := parseLooseUint([]byte(`-5`)); got != 0 {
		t.Fatalf("negative ids must decode to 0, got %d", got)
	}
}

func TestOrderChanges_MarshalRoundTrip(t *testing.T) {
	t.Parallel()

	for _, oc := range []*OrderChanges{IndexChange(5, 4, 0), AnchorChange(3, 0, 2), AnchorChange(3, 1, 0)} {
		b, err := json.Marshal(SaveStateRequest{OrderChanges: oc})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		want := SaveStateRequest{OrderChanges: oc}.Write()
		if got := decodeWrite(t, string(b)); !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: got %+v want %+v", b, got, want)
		}
	}
}

func TestWriteKind_String(t *testing.T) {
	t.Parallel()

	want := map[WriteKind]string{
		SelectionOnly: "selection_only",
		FullReplace:   "full_replace",
		IndexMove:     "index_move",
		AnchorMove:    "anchor_move",
	}
	for k, s := range want {
		if k.String() != s {
			t.Fatalf("%d: got %q want %q", k, k.String(), s)
		}
	}
}
