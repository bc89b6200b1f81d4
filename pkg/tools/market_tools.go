package tools

import (
	"context"
	"encoding/json"

	"github.com/synvya/nostrmarket/pkg/errmodel"
	"github.com/synvya/nostrmarket/pkg/ingest"
	"github.com/synvya/nostrmarket/pkg/market"
	"github.com/synvya/nostrmarket/pkg/store"
)

// MarketDeps carries the read and admin surfaces the market tools run on.
type MarketDeps struct {
	Store     store.EventStore
	Search    *market.Search
	Resolver  *market.Resolver
	Refresher *ingest.Refresher
}

const (
	schemaQueryLimit = `{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Case-insensitive substring to search for"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 100, "default": 10}
		}
	}`
	schemaBusinessSearch = `{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Case-insensitive substring to search for"},
			"business_type": {"type": "string", "enum": ["", "retail", "restaurant", "services", "business", "entertainment", "other"]},
			"limit": {"type": "integer", "minimum": 1, "maximum": 100, "default": 10}
		}
	}`
	schemaPubkey = `{
		"type": "object",
		"properties": {
			"pubkey": {"type": "string", "pattern": "^[0-9a-f]{64}$", "description": "Hex-encoded public key"}
		},
		"required": ["pubkey"]
	}`
	schemaPubkeyDTag = `{
		"type": "object",
		"properties": {
			"pubkey": {"type": "string", "pattern": "^[0-9a-f]{64}$", "description": "Hex-encoded public key"},
			"d_tag": {"type": "string", "minLength": 1, "description": "Identifier tag of the resource"}
		},
		"required": ["pubkey", "d_tag"]
	}`
	schemaQueryPubkeyLimit = `{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Case-insensitive substring to search for"},
			"pubkey": {"type": "string", "pattern": "^$|^[0-9a-f]{64}$", "description": "Optional merchant pubkey to narrow the search"},
			"limit": {"type": "integer", "minimum": 1, "maximum": 100, "default": 10}
		}
	}`
	schemaPage = `{
		"type": "object",
		"properties": {
			"limit": {"type": "integer", "minimum": 1, "maximum": 100, "default": 10},
			"offset": {"type": "integer", "minimum": 0, "default": 0}
		}
	}`
	schemaTagsJSON = `{
		"type": "object",
		"properties": {
			"tags_json": {"type": "string", "description": "JSON-encoded tags array from a profile event"}
		},
		"required": ["tags_json"]
	}`
	schemaEmpty = `{"type": "object", "properties": {}}`
)

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func argInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return def
		}
		return int(n)
	default:
		return def
	}
}

// toMap flattens a typed value into the generic object tools return.
func toMap(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]any{}
	}
	return out
}

func toList[T any](items []T) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, toMap(it))
	}
	return out
}

// RegisterMarketTools registers the full marketplace tool set on reg.
func RegisterMarketTools(reg *Registry, deps MarketDeps) {
	reg.MustRegister(
		Func{
			Desc: Descriptor{
				Name:        "search_profiles",
				Description: "Search Nostr profiles by substring across name, display_name, about, nip05 and website.",
				InputSchema: []byte(schemaQueryLimit),
			},
			Fn: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				profiles, err := deps.Search.SearchProfiles(ctx, argString(args, "query"), argInt(args, "limit", 10))
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"success":  true,
					"query":    argString(args, "query"),
					"count":    len(profiles),
					"profiles": toList(profiles),
				}, nil
			},
		},
		Func{
			Desc: Descriptor{
				Name:        "get_profile_by_pubkey",
				Description: "Get the most recent profile for a hex pubkey.",
				InputSchema: []byte(schemaPubkey),
			},
			Fn: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				p, err := deps.Resolver.GetProfile(ctx, argString(args, "pubkey"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"success": true, "profile": toMap(p)}, nil
			},
		},
		Func{
			Desc: Descriptor{
				Name:        "list_all_profiles",
				Description: "List stored profiles with pagination, newest first.",
				InputSchema: []byte(schemaPage),
			},
			Fn: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				profiles, err := deps.Search.ListProfiles(ctx, argInt(args, "limit", 10), argInt(args, "offset", 0))
				if err != nil {
					return nil, err
				}
				return map[string]any{"success": true, "count": len(profiles), "profiles": toList(profiles)}, nil
			},
		},
		Func{
			Desc: Descriptor{
				Name:        "get_profile_stats",
				Description: "Counts of stored profiles and their field coverage.",
				InputSchema: []byte(schemaEmpty),
			},
			Fn: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
				stats, err := deps.Search.ProfileStats(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"success": true, "stats": stats}, nil
			},
		},
		Func{
			Desc: Descriptor{
				Name:        "search_business_profiles",
				Description: "Search business-labelled profiles, optionally filtered by business type.",
				InputSchema: []byte(schemaBusinessSearch),
			},
			Fn: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				profiles, err := deps.Search.SearchBusinessProfiles(ctx,
					argString(args, "query"), argString(args, "business_type"), argInt(args, "limit", 10))
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"success":       true,
					"query":         argString(args, "query"),
					"business_type": argString(args, "business_type"),
					"count":         len(profiles),
					"profiles":      toList(profiles),
				}, nil
			},
		},
		Func{
			Desc: Descriptor{
				Name:        "get_business_types",
				Description: "Available values for the business_type filter.",
				InputSchema: []byte(schemaEmpty),
			},
			Fn: func(context.Context, map[string]any) (map[string]any, error) {
				return map[string]any{
					"success":        true,
					"business_types": market.BusinessTypes,
					"description":    "Available values for business_type parameter in search_business_profiles",
				}, nil
			},
		},
		Func{
			Desc: Descriptor{
				Name:        "explain_profile_tags",
				Description: "Parse a profile's tags array and explain each entry.",
				InputSchema: []byte(schemaTagsJSON),
			},
			Fn: func(_ context.Context, args map[string]any) (map[string]any, error) {
				var tags [][]string
				if err := json.Unmarshal([]byte(argString(args, "tags_json")), &tags); err != nil {
					return nil, errmodel.Validation("bad_tags_json", "tags_json is not a valid tags array", map[string]any{"error": err.Error()})
				}
				out := toMap(market.ExplainTags(tags))
				out["success"] = true
				return out, nil
			},
		},
		Func{
			Desc: Descriptor{
				Name:        "search_stalls",
				Description: "Search marketplace stalls by name or description, optionally for one merchant.",
				InputSchema: []byte(schemaQueryPubkeyLimit),
			},
			Fn: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				stalls, err := deps.Search.SearchStalls(ctx,
					argString(args, "query"), argString(args, "pubkey"), argInt(args, "limit", 10))
				if err != nil {
					return nil, err
				}
				return map[string]any{"success": true, "count": len(stalls), "stalls": toList(stalls)}, nil
			},
		},
		Func{
			Desc: Descriptor{
				Name:        "list_all_stalls",
				Description: "List stored stalls with pagination, newest first.",
				InputSchema: []byte(schemaPage),
			},
			Fn: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				stalls, err := deps.Search.ListStalls(ctx, argInt(args, "limit", 10), argInt(args, "offset", 0))
				if err != nil {
					return nil, err
				}
				return map[string]any{"success": true, "count": len(stalls), "stalls": toList(stalls)}, nil
			},
		},
		Func{
			Desc: Descriptor{
				Name:        "get_stall_by_pubkey_and_dtag",
				Description: "Get one stall by merchant pubkey and d tag.",
				InputSchema: []byte(schemaPubkeyDTag),
			},
			Fn: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				got, err := deps.Resolver.GetResourceData(ctx,
					"nostr://"+argString(args, "pubkey")+"/stall/"+argString(args, "d_tag"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"success": true, "stall": toMap(got)}, nil
			},
		},
		Func{
			Desc: Descriptor{
				Name:        "get_stall_stats",
				Description: "Counts of stored stalls, merchants and currencies.",
				InputSchema: []byte(schemaEmpty),
			},
			Fn: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
				stats, err := deps.Search.StallStats(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"success": true, "stats": stats}, nil
			},
		},
		Func{
			Desc: Descriptor{
				Name:        "search_products",
				Description: "Search marketplace products by name or description, optionally for one merchant.",
				InputSchema: []byte(schemaQueryPubkeyLimit),
			},
			Fn: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				products, err := deps.Search.SearchProducts(ctx,
					argString(args, "query"), argString(args, "pubkey"), argInt(args, "limit", 10))
				if err != nil {
					return nil, err
				}
				return map[string]any{"success": true, "count": len(products), "products": toList(products)}, nil
			},
		},
		Func{
			Desc: Descriptor{
				Name:        "list_all_products",
				Description: "List stored products with pagination, newest first.",
				InputSchema: []byte(schemaPage),
			},
			Fn: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				products, err := deps.Search.ListProducts(ctx, argInt(args, "limit", 10), argInt(args, "offset", 0))
				if err != nil {
					return nil, err
				}
				return map[string]any{"success": true, "count": len(products), "products": toList(products)}, nil
			},
		},
		Func{
			Desc: Descriptor{
				Name:        "get_product_by_pubkey_and_dtag",
				Description: "Get one product by merchant pubkey and d tag.",
				InputSchema: []byte(schemaPubkeyDTag),
			},
			Fn: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				got, err := deps.Resolver.GetResourceData(ctx,
					"nostr://"+argString(args, "pubkey")+"/product/"+argString(args, "d_tag"))
				if err != nil {
					return nil, err
				}
				return map[string]any{"success": true, "product": toMap(got)}, nil
			},
		},
		Func{
			Desc: Descriptor{
				Name:        "get_product_stats",
				Description: "Counts of stored products, merchants and price coverage.",
				InputSchema: []byte(schemaEmpty),
			},
			Fn: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
				stats, err := deps.Search.ProductStats(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"success": true, "stats": stats}, nil
			},
		},
		Func{
			Desc: Descriptor{
				Name:        "refresh_database",
				Description: "Trigger an immediate relay refresh pass.",
				InputSchema: []byte(schemaEmpty),
				Permissions: []string{PermAdmin},
			},
			Fn: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
				if deps.Refresher == nil {
					return nil, errmodel.Uninitialized("refresher not configured")
				}
				n, err := deps.Refresher.RunOnce(ctx)
				if err != nil {
					return nil, errmodel.System("refresh_failed", "refresh pass failed", nil, err)
				}
				return map[string]any{"success": true, "events_changed": n}, nil
			},
		},
		Func{
			Desc: Descriptor{
				Name:        "get_refresh_status",
				Description: "Report the periodic refresher's state.",
				InputSchema: []byte(schemaEmpty),
			},
			Fn: func(context.Context, map[string]any) (map[string]any, error) {
				if deps.Refresher == nil {
					return nil, errmodel.Uninitialized("refresher not configured")
				}
				out := toMap(deps.Refresher.Status())
				out["success"] = true
				return out, nil
			},
		},
		Func{
			Desc: Descriptor{
				Name:        "clear_database",
				Description: "Remove every stored event. Admin and test tooling only.",
				InputSchema: []byte(schemaEmpty),
				Permissions: []string{PermAdmin},
			},
			Fn: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
				if err := deps.Store.ClearAll(ctx); err != nil {
					return nil, err
				}
				return map[string]any{"success": true}, nil
			},
		},
	)
}
