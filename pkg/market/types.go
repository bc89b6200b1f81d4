package market

import (
	"encoding/json"

	"github.com/synvya/nostrmarket/pkg/store"
)

// Profile is the decoded kind-0 payload with the row attributes merged in.
// BusinessType is filled only by the business search path.
type Profile struct {
	Pubkey       string     `json:"pubkey,omitempty"`
	Name         string     `json:"name,omitempty"`
	DisplayName  string     `json:"display_name,omitempty"`
	About        string     `json:"about,omitempty"`
	Picture      string     `json:"picture,omitempty"`
	Banner       string     `json:"banner,omitempty"`
	Website      string     `json:"website,omitempty"`
	NIP05        string     `json:"nip05,omitempty"`
	Bot          bool       `json:"bot,omitempty"`
	Environment  string     `json:"environment,omitempty"`
	CreatedAt    int64      `json:"created_at,omitempty"`
	Tags         [][]string `json:"tags,omitempty"`
	BusinessType string     `json:"business_type,omitempty"`
}

// ShippingZone is one shipping option of a stall.
type ShippingZone struct {
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name,omitempty"`
	Cost    float64  `json:"cost,omitempty"`
	Regions []string `json:"regions,omitempty"`
}

// Stall is the decoded kind-30017 payload.
type Stall struct {
	ID          string         `json:"id,omitempty"`
	Pubkey      string         `json:"pubkey,omitempty"`
	DTag        string         `json:"d_tag,omitempty"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Currency    string         `json:"currency,omitempty"`
	Shipping    []ShippingZone `json:"shipping,omitempty"`
	CreatedAt   int64          `json:"created_at,omitempty"`
}

// Product is the decoded kind-30018 payload.
type Product struct {
	ID          string     `json:"id,omitempty"`
	Pubkey      string     `json:"pubkey,omitempty"`
	DTag        string     `json:"d_tag,omitempty"`
	StallID     string     `json:"stall_id,omitempty"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	Images      []string   `json:"images,omitempty"`
	Currency    string     `json:"currency,omitempty"`
	Price       float64    `json:"price,omitempty"`
	Quantity    *int       `json:"quantity,omitempty"`
	Specs       [][]string `json:"specs,omitempty"`
	CreatedAt   int64      `json:"created_at,omitempty"`
}

// DecodeProfile decodes a kind-0 row and merges the row attributes.
func DecodeProfile(rec store.EventRecord) (Profile, error) {
	var p Profile
	if err := json.Unmarshal([]byte(rec.Content), &p); err != nil {
		return Profile{}, err
	}
	p.Pubkey = rec.Pubkey
	p.CreatedAt = rec.CreatedAt
	p.Tags = rec.Tags
	return p, nil
}

// DecodeStall decodes a kind-30017 row and merges the row attributes.
func DecodeStall(rec store.EventRecord) (Stall, error) {
	var s Stall
	if err := json.Unmarshal([]byte(rec.Content), &s); err != nil {
		return Stall{}, err
	}
	s.Pubkey = rec.Pubkey
	s.DTag = rec.DTag
	s.CreatedAt = rec.CreatedAt
	return s, nil
}

// DecodeProduct decodes a kind-30018 row and merges the row attributes.
func DecodeProduct(rec store.EventRecord) (Product, error) {
	var p Product
	if err := json.Unmarshal([]byte(rec.Content), &p); err != nil {
		return Product{}, err
	}
	p.Pubkey = rec.Pubkey
	p.DTag = rec.DTag
	p.CreatedAt = rec.CreatedAt
	return p, nil
}
