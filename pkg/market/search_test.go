package market

import (
	"context"
	"testing"

	"github.com/synvya/nostrmarket/pkg/store"
)

func searchStore() *fakeStore {
	return &fakeStore{rows: []store.EventRecord{
		{ID: "e1", Pubkey: "pk1", Kind: store.KindProfile, CreatedAt: 300,
			Content: `{"name":"Brine & Board","about":"seafood restaurant","nip05":"hello@brine.example"}`,
			Tags:    [][]string{{"L", "business.type"}, {"l", "restaurant"}}},
		{ID: "e2", Pubkey: "pk2", Kind: store.KindProfile, CreatedAt: 200,
			Content: `{"name":"Thread Goods","about":"textile retail shop","website":"https://threadgoods.example"}`,
			Tags:    [][]string{{"L", "business.type"}, {"l", "retail"}}},
		{ID: "e3", Pubkey: "pk3", Kind: store.KindProfile, CreatedAt: 100,
			Content: `{"name":"alice","about":"just a person"}`},
		{ID: "e4", Pubkey: "pk1", Kind: store.KindProduct, DTag: "p1", CreatedAt: 150,
			Content: `{"id":"p1","name":"Oyster Platter","description":"a dozen oysters","price":24}`,
			Tags:    [][]string{{"d", "p1"}}},
		{ID: "e5", Pubkey: "pk2", Kind: store.KindProduct, DTag: "p2", CreatedAt: 140,
			Content: `{"id":"p2","name":"Wool Scarf","description":"hand woven","price":18}`,
			Tags:    [][]string{{"d", "p2"}}},
		{ID: "e6", Pubkey: "pk2", Kind: store.KindStall, DTag: "s1", CreatedAt: 130,
			Content: `{"id":"s1","name":"Thread Goods Storefront","description":"textiles","currency":"USD"}`,
			Tags:    [][]string{{"d", "s1"}}},
	}}
}

func TestSearchProfilesSubstring(t *testing.T) {
	s := NewSearch(searchStore())
	got, err := s.SearchProfiles(context.Background(), "RESTAURANT", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Pubkey != "pk1" {
		t.Fatalf("got=%+v, want the seafood restaurant", got)
	}

	// Empty query matches everything, recency order preserved.
	all, err := s.SearchProfiles(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(all) != 3 || all[0].Pubkey != "pk1" || all[2].Pubkey != "pk3" {
		t.Fatalf("all=%+v, want 3 newest-first", all)
	}

	// Limit truncates after ordering.
	two, err := s.SearchProfiles(context.Background(), "", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(two) != 2 || two[1].Pubkey != "pk2" {
		t.Fatalf("two=%+v", two)
	}
}

func TestSearchBusinessProfilesByType(t *testing.T) {
	s := NewSearch(searchStore())
	got, err := s.SearchBusinessProfiles(context.Background(), "", "retail", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Pubkey != "pk2" {
		t.Fatalf("got=%+v, want only the retail profile", got)
	}
	if got[0].BusinessType != "retail" {
		t.Fatalf("business_type=%q not merged", got[0].BusinessType)
	}

	// No type filter: both business profiles, never the plain one.
	all, err := s.SearchBusinessProfiles(context.Background(), "", "", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all=%+v, want 2 business profiles", all)
	}
	for _, p := range all {
		if p.Pubkey == "pk3" {
			t.Fatal("non-business profile leaked into business search")
		}
	}
}

func TestSearchBusinessProfilesQueryAndType(t *testing.T) {
	s := NewSearch(searchStore())
	got, err := s.SearchBusinessProfiles(context.Background(), "textile", "restaurant", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got=%+v, want none (query and type must both hold)", got)
	}
}

func TestSearchProducts(t *testing.T) {
	s := NewSearch(searchStore())
	got, err := s.SearchProducts(context.Background(), "oyster", "", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Oyster Platter" {
		t.Fatalf("got=%+v", got)
	}

	// Pubkey narrows the scan before matching.
	got, err = s.SearchProducts(context.Background(), "", "pk2", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Wool Scarf" {
		t.Fatalf("got=%+v", got)
	}
}

func TestSearchStalls(t *testing.T) {
	s := NewSearch(searchStore())
	got, err := s.SearchStalls(context.Background(), "storefront", "", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].DTag != "s1" {
		t.Fatalf("got=%+v", got)
	}
}

func TestListProfilesPagination(t *testing.T) {
	s := NewSearch(searchStore())
	page, err := s.ListProfiles(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].Pubkey != "pk2" || page[1].Pubkey != "pk3" {
		t.Fatalf("page=%+v", page)
	}
}

func TestProfileStats(t *testing.T) {
	s := NewSearch(searchStore())
	stats, err := s.ProfileStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats["total_profiles"] != int64(3) {
		t.Fatalf("total_profiles=%v", stats["total_profiles"])
	}
	if stats["profiles_with_nip05"] != int64(1) {
		t.Fatalf("profiles_with_nip05=%v", stats["profiles_with_nip05"])
	}
	if stats["profiles_with_website"] != int64(1) {
		t.Fatalf("profiles_with_website=%v", stats["profiles_with_website"])
	}
	if stats["last_updated"] != int64(300) {
		t.Fatalf("last_updated=%v", stats["last_updated"])
	}
}
