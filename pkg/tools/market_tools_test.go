package tools

import (
	"context"
	"sort"
	"testing"

	"github.com/synvya/nostrmarket/pkg/errmodel"
	"github.com/synvya/nostrmarket/pkg/market"
	"github.com/synvya/nostrmarket/pkg/store"
)

const testPubkey = "1a2b3c4d5e6f70819203a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f9"

type memStore struct {
	rows    []store.EventRecord
	cleared bool
}

func (m *memStore) UpsertEvent(_ context.Context, e store.EventRecord) (bool, error) {
	m.rows = append(m.rows, e)
	return true, nil
}

func (m *memStore) ResourceRows(_ context.Context, kind int, pubkey, dTag string) ([]store.EventRecord, error) {
	out := []store.EventRecord{}
	for _, r := range m.rows {
		if r.Kind == kind && r.Pubkey == pubkey && (dTag == "" || r.DTag == dTag) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (m *memStore) KindRows(_ context.Context, kind int, pubkey string) ([]store.EventRecord, error) {
	out := []store.EventRecord{}
	for _, r := range m.rows {
		if r.Kind == kind && (pubkey == "" || r.Pubkey == pubkey) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (m *memStore) CountByKind(_ context.Context, kind int) (int64, error) {
	var n int64
	for _, r := range m.rows {
		if r.Kind == kind {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ClearAll(context.Context) error {
	m.rows = nil
	m.cleared = true
	return nil
}

func marketRegistry(t *testing.T) (*Registry, *memStore) {
	t.Helper()
	ms := &memStore{rows: []store.EventRecord{
		{ID: "e1", Pubkey: testPubkey, Kind: store.KindProfile, CreatedAt: 100,
			Content: `{"name":"Corner Cafe","about":"espresso"}`,
			Tags:    [][]string{{"L", "business.type"}, {"l", "restaurant"}}},
		{ID: "e2", Pubkey: testPubkey, Kind: store.KindProduct, DTag: "p1", CreatedAt: 120,
			Content: `{"id":"p1","name":"Espresso","description":"double shot","price":3.5}`,
			Tags:    [][]string{{"d", "p1"}}},
	}}
	reg := NewRegistry()
	RegisterMarketTools(reg, MarketDeps{
		Store:    ms,
		Search:   market.NewSearch(ms),
		Resolver: market.NewResolver(ms),
	})
	return reg, ms
}

func TestMarketToolsRegistered(t *testing.T) {
	reg, _ := marketRegistry(t)
	want := []string{
		"clear_database", "explain_profile_tags", "get_business_types",
		"get_product_by_pubkey_and_dtag", "get_product_stats", "get_profile_by_pubkey",
		"get_profile_stats", "get_refresh_status", "get_stall_by_pubkey_and_dtag",
		"get_stall_stats", "list_all_products", "list_all_profiles", "list_all_stalls",
		"refresh_database", "search_business_profiles", "search_products",
		"search_profiles", "search_stalls",
	}
	ds := reg.Descriptors()
	if len(ds) != len(want) {
		t.Fatalf("registered %d tools, want %d", len(ds), len(want))
	}
	for i, d := range ds {
		if d.Name != want[i] {
			t.Fatalf("tool[%d]=%q want %q", i, d.Name, want[i])
		}
	}
}

func TestSearchProfilesTool(t *testing.T) {
	reg, _ := marketRegistry(t)
	out, err := reg.SafeInvoke(context.Background(), "search_profiles", map[string]any{"query": "espresso"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out["success"] != true || out["count"] != 1 {
		t.Fatalf("out=%v", out)
	}
}

func TestGetProfileByPubkeyTool(t *testing.T) {
	reg, _ := marketRegistry(t)

	out, err := reg.SafeInvoke(context.Background(), "get_profile_by_pubkey", map[string]any{"pubkey": testPubkey}, nil)
	if err != nil {
		t.Fatal(err)
	}
	profile := out["profile"].(map[string]any)
	if profile["name"] != "Corner Cafe" {
		t.Fatalf("profile=%v", profile)
	}

	// Schema rejects non-hex pubkeys before the tool runs.
	_, err = reg.SafeInvoke(context.Background(), "get_profile_by_pubkey", map[string]any{"pubkey": "not-a-key"}, nil)
	if !errmodel.IsCategory(err, errmodel.CategoryValidation) {
		t.Fatalf("err=%v, want validation", err)
	}
}

func TestGetProductByPubkeyAndDTagTool(t *testing.T) {
	reg, _ := marketRegistry(t)
	out, err := reg.SafeInvoke(context.Background(), "get_product_by_pubkey_and_dtag",
		map[string]any{"pubkey": testPubkey, "d_tag": "p1"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	product := out["product"].(map[string]any)
	if product["name"] != "Espresso" {
		t.Fatalf("product=%v", product)
	}

	_, err = reg.SafeInvoke(context.Background(), "get_product_by_pubkey_and_dtag",
		map[string]any{"pubkey": testPubkey, "d_tag": "missing"}, nil)
	if !errmodel.IsNotFound(err) {
		t.Fatalf("err=%v, want not_found", err)
	}
}

func TestExplainProfileTagsTool(t *testing.T) {
	reg, _ := marketRegistry(t)
	out, err := reg.SafeInvoke(context.Background(), "explain_profile_tags",
		map[string]any{"tags_json": `[["L","business.type"],["l","retail"]]`}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out["is_business_profile"] != true {
		t.Fatalf("out=%v", out)
	}

	_, err = reg.SafeInvoke(context.Background(), "explain_profile_tags",
		map[string]any{"tags_json": "not json"}, nil)
	if !errmodel.IsCategory(err, errmodel.CategoryValidation) {
		t.Fatalf("err=%v, want validation", err)
	}
}

func TestGetBusinessTypesTool(t *testing.T) {
	reg, _ := marketRegistry(t)
	out, err := reg.SafeInvoke(context.Background(), "get_business_types", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	types := out["business_types"].([]string)
	if len(types) != 6 {
		t.Fatalf("types=%v", types)
	}
}

func TestClearDatabaseRequiresAdmin(t *testing.T) {
	reg, ms := marketRegistry(t)

	_, err := reg.SafeInvoke(context.Background(), "clear_database", nil, nil)
	if !errmodel.IsCategory(err, errmodel.CategoryPolicy) {
		t.Fatalf("err=%v, want policy", err)
	}
	if ms.cleared {
		t.Fatal("store must not be cleared without the admin permission")
	}

	allowed := map[string]bool{PermAdmin: true}
	if _, err := reg.SafeInvoke(context.Background(), "clear_database", nil, allowed); err != nil {
		t.Fatal(err)
	}
	if !ms.cleared {
		t.Fatal("store must be cleared")
	}
}

func TestRefreshStatusWithoutRefresher(t *testing.T) {
	reg, _ := marketRegistry(t)
	_, err := reg.SafeInvoke(context.Background(), "get_refresh_status", nil, nil)
	if ce := errmodel.From(err); ce == nil || ce.Code != "uninitialized" {
		t.Fatalf("err=%v, want uninitialized", err)
	}
}
