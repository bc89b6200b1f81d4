package market

import (
	"context"
	"strings"

	"github.com/synvya/nostrmarket/pkg/store"
)

// Search runs case-insensitive substring scans over decoded event content.
// Rows with undecodable content are skipped; recency ordering comes from the
// store and is preserved up to truncation.
type Search struct {
	store store.EventStore
}

// NewSearch returns a Search reading from es.
func NewSearch(es store.EventStore) *Search {
	return &Search{store: es}
}

func matchProfile(p Profile, query string) bool {
	if query == "" {
		return true
	}
	for _, f := range []string{p.Name, p.DisplayName, p.About, p.NIP05, p.Website} {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

// SearchProfiles scans all profile rows for a substring match against the
// name, display_name, about, nip05 and website fields. limit <= 0 means no
// truncation.
func (s *Search) SearchProfiles(ctx context.Context, query string, limit int) ([]Profile, error) {
	rows, err := s.store.KindRows(ctx, store.KindProfile, "")
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(query)
	out := []Profile{}
	for _, rec := range rows {
		p, err := DecodeProfile(rec)
		if err != nil {
			continue
		}
		if !matchProfile(p, query) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// SearchBusinessProfiles scans profile rows for ones satisfying the business
// profile predicate, optionally narrowed to one business type and to a
// substring query over the same fields as SearchProfiles. Each result carries
// its classified business_type.
func (s *Search) SearchBusinessProfiles(ctx context.Context, query, businessType string, limit int) ([]Profile, error) {
	rows, err := s.store.KindRows(ctx, store.KindProfile, "")
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(query)
	out := []Profile{}
	for _, rec := range rows {
		btype, ok := BusinessType(rec.Tags)
		if !ok {
			continue
		}
		if businessType != "" && btype != businessType {
			continue
		}
		p, err := DecodeProfile(rec)
		if err != nil {
			continue
		}
		if !matchProfile(p, query) {
			continue
		}
		p.BusinessType = btype
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// SearchProducts scans product rows, optionally narrowed to one merchant,
// matching name and description.
func (s *Search) SearchProducts(ctx context.Context, query, pubkey string, limit int) ([]Product, error) {
	rows, err := s.store.KindRows(ctx, store.KindProduct, pubkey)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(query)
	out := []Product{}
	for _, rec := range rows {
		p, err := DecodeProduct(rec)
		if err != nil {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// SearchStalls scans stall rows, optionally narrowed to one merchant,
// matching name and description.
func (s *Search) SearchStalls(ctx context.Context, query, pubkey string, limit int) ([]Stall, error) {
	rows, err := s.store.KindRows(ctx, store.KindStall, pubkey)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(query)
	out := []Stall{}
	for _, rec := range rows {
		st, err := DecodeStall(rec)
		if err != nil {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(st.Name), query) &&
			!strings.Contains(strings.ToLower(st.Description), query) {
			continue
		}
		out = append(out, st)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ListProfiles pages through profile rows, newest first.
func (s *Search) ListProfiles(ctx context.Context, limit, offset int) ([]Profile, error) {
	rows, err := s.store.KindRows(ctx, store.KindProfile, "")
	if err != nil {
		return nil, err
	}
	out := []Profile{}
	skipped := 0
	for _, rec := range rows {
		p, err := DecodeProfile(rec)
		if err != nil {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ListStalls pages through stall rows, newest first.
func (s *Search) ListStalls(ctx context.Context, limit, offset int) ([]Stall, error) {
	rows, err := s.store.KindRows(ctx, store.KindStall, "")
	if err != nil {
		return nil, err
	}
	out := []Stall{}
	skipped := 0
	for _, rec := range rows {
		st, err := DecodeStall(rec)
		if err != nil {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, st)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ListProducts pages through product rows, newest first.
func (s *Search) ListProducts(ctx context.Context, limit, offset int) ([]Product, error) {
	rows, err := s.store.KindRows(ctx, store.KindProduct, "")
	if err != nil {
		return nil, err
	}
	out := []Product{}
	skipped := 0
	for _, rec := range rows {
		p, err := DecodeProduct(rec)
		if err != nil {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ProfileStats counts profiles and field coverage across decoded rows.
func (s *Search) ProfileStats(ctx context.Context) (map[string]any, error) {
	rows, err := s.store.KindRows(ctx, store.KindProfile, "")
	if err != nil {
		return nil, err
	}
	stats := map[string]any{}
	counts := map[string]int64{
		"name": 0, "display_name": 0, "about": 0, "picture": 0, "nip05": 0, "website": 0,
	}
	var lastUpdated int64
	for _, rec := range rows {
		if rec.CreatedAt > lastUpdated {
			lastUpdated = rec.CreatedAt
		}
		p, err := DecodeProfile(rec)
		if err != nil {
			continue
		}
		for field, v := range map[string]string{
			"name": p.Name, "display_name": p.DisplayName, "about": p.About,
			"picture": p.Picture, "nip05": p.NIP05, "website": p.Website,
		} {
			if v != "" {
				counts[field]++
			}
		}
	}
	stats["total_profiles"] = int64(len(rows))
	for field, n := range counts {
		stats["profiles_with_"+field] = n
	}
	if lastUpdated > 0 {
		stats["last_updated"] = lastUpdated
	} else {
		stats["last_updated"] = nil
	}
	return stats, nil
}

// StallStats counts stalls, distinct merchants and currencies.
func (s *Search) StallStats(ctx context.Context) (map[string]any, error) {
	rows, err := s.store.KindRows(ctx, store.KindStall, "")
	if err != nil {
		return nil, err
	}
	merchants := map[string]struct{}{}
	currencies := map[string]int64{}
	withShipping := int64(0)
	for _, rec := range rows {
		merchants[rec.Pubkey] = struct{}{}
		st, err := DecodeStall(rec)
		if err != nil {
			continue
		}
		if st.Currency != "" {
			currencies[st.Currency]++
		}
		if len(st.Shipping) > 0 {
			withShipping++
		}
	}
	return map[string]any{
		"total_stalls":         int64(len(rows)),
		"unique_merchants":     int64(len(merchants)),
		"currencies":           currencies,
		"stalls_with_shipping": withShipping,
	}, nil
}

// ProductStats counts products, distinct merchants and price coverage.
func (s *Search) ProductStats(ctx context.Context) (map[string]any, error) {
	rows, err := s.store.KindRows(ctx, store.KindProduct, "")
	if err != nil {
		return nil, err
	}
	merchants := map[string]struct{}{}
	currencies := map[string]int64{}
	withPrice := int64(0)
	for _, rec := range rows {
		merchants[rec.Pubkey] = struct{}{}
		p, err := DecodeProduct(rec)
		if err != nil {
			continue
		}
		if p.Currency != "" {
			currencies[p.Currency]++
		}
		if p.Price > 0 {
			withPrice++
		}
	}
	return map[string]any{
		"total_products":      int64(len(rows)),
		"unique_merchants":    int64(len(merchants)),
		"currencies":          currencies,
		"products_with_price": withPrice,
	}, nil
}
