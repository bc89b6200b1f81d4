package market

import (
	"context"
	"strings"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/synvya/nostrmarket/pkg/errmodel"
	"github.com/synvya/nostrmarket/pkg/store"
)

// ResourceRef is a parsed nostr:// resource URI.
type ResourceRef struct {
	Pubkey     string
	Type       string // profile, stalls, stall, catalog, products, product
	Identifier string // d_tag for singular stall/product lookups
}

// ParseResourceURI parses one of the supported resource shapes:
//
//	nostr://{pubkey}/profile
//	nostr://{pubkey}/stalls
//	nostr://{pubkey}/stall/{d_tag}
//	nostr://{pubkey}/catalog        (products; "products" accepted as alias)
//	nostr://{pubkey}/product/{d_tag}
//
// Malformed URIs and unknown resource types are a not-found condition, not a
// distinct error class.
func ParseResourceURI(uri string) (ResourceRef, error) {
	rest, ok := strings.CutPrefix(uri, "nostr://")
	if !ok {
		return ResourceRef{}, errmodel.NotFound("unsupported resource uri", map[string]any{"uri": uri})
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return ResourceRef{}, errmodel.NotFound("malformed resource uri", map[string]any{"uri": uri})
	}
	ref := ResourceRef{Pubkey: parts[0], Type: parts[1]}
	switch ref.Type {
	case "profile", "stalls", "catalog", "products":
		return ref, nil
	case "stall", "product":
		if len(parts) < 3 || parts[2] == "" {
			return ResourceRef{}, errmodel.NotFound("resource uri missing identifier", map[string]any{"uri": uri})
		}
		ref.Identifier = parts[2]
		return ref, nil
	default:
		return ResourceRef{}, errmodel.NotFound("unknown resource type", map[string]any{"uri": uri, "type": ref.Type})
	}
}

// Resolver maps resource URIs onto store slots and decodes the results.
type Resolver struct {
	store store.EventStore
}

// NewResolver returns a Resolver reading from es.
func NewResolver(es store.EventStore) *Resolver {
	return &Resolver{store: es}
}

// GetResourceData resolves a resource URI to its decoded value: a Profile,
// a Stall, a Product, or a slice of the latter two for the plural forms.
// Absence and malformed URIs are reported as not-found. A row whose content
// fails to decode is skipped in collections and treated as absent for
// singular lookups.
func (r *Resolver) GetResourceData(ctx context.Context, uri string) (any, error) {
	ref, err := ParseResourceURI(uri)
	if err != nil {
		return nil, err
	}
	switch ref.Type {
	case "profile":
		return r.profile(ctx, ref.Pubkey)
	case "stalls":
		rows, err := r.store.ResourceRows(ctx, store.KindStall, ref.Pubkey, "")
		if err != nil {
			return nil, err
		}
		stalls := []Stall{}
		for _, rec := range rows {
			s, err := DecodeStall(rec)
			if err != nil {
				jww.WARN.Printf("skipping stall %s/%s: bad content: %v", rec.Pubkey, rec.DTag, err)
				continue
			}
			stalls = append(stalls, s)
		}
		return stalls, nil
	case "stall":
		rows, err := r.store.ResourceRows(ctx, store.KindStall, ref.Pubkey, ref.Identifier)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, errmodel.NotFound("stall not found", map[string]any{"pubkey": ref.Pubkey, "d_tag": ref.Identifier})
		}
		s, err := DecodeStall(rows[0])
		if err != nil {
			return nil, errmodel.NotFound("stall content undecodable", map[string]any{"pubkey": ref.Pubkey, "d_tag": ref.Identifier})
		}
		return s, nil
	case "catalog", "products":
		rows, err := r.store.ResourceRows(ctx, store.KindProduct, ref.Pubkey, "")
		if err != nil {
			return nil, err
		}
		products := []Product{}
		for _, rec := range rows {
			p, err := DecodeProduct(rec)
			if err != nil {
				jww.WARN.Printf("skipping product %s/%s: bad content: %v", rec.Pubkey, rec.DTag, err)
				continue
			}
			products = append(products, p)
		}
		return products, nil
	case "product":
		rows, err := r.store.ResourceRows(ctx, store.KindProduct, ref.Pubkey, ref.Identifier)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, errmodel.NotFound("product not found", map[string]any{"pubkey": ref.Pubkey, "d_tag": ref.Identifier})
		}
		p, err := DecodeProduct(rows[0])
		if err != nil {
			return nil, errmodel.NotFound("product content undecodable", map[string]any{"pubkey": ref.Pubkey, "d_tag": ref.Identifier})
		}
		return p, nil
	}
	return nil, errmodel.NotFound("unknown resource type", map[string]any{"uri": uri})
}

func (r *Resolver) profile(ctx context.Context, pubkey string) (Profile, error) {
	rows, err := r.store.ResourceRows(ctx, store.KindProfile, pubkey, "")
	if err != nil {
		return Profile{}, err
	}
	if len(rows) == 0 {
		return Profile{}, errmodel.NotFound("profile not found", map[string]any{"pubkey": pubkey})
	}
	p, err := DecodeProfile(rows[0])
	if err != nil {
		return Profile{}, errmodel.NotFound("profile content undecodable", map[string]any{"pubkey": pubkey})
	}
	return p, nil
}

// GetProfile resolves the single profile slot for a pubkey.
func (r *Resolver) GetProfile(ctx context.Context, pubkey string) (Profile, error) {
	return r.profile(ctx, pubkey)
}
