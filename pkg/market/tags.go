// Package market holds the domain logic of the bridge: tag semantics,
// kind-specific content decoding, resource resolution and substring search.
// Everything here is a pure function or a thin read layer over a store;
// nothing in this package writes events.
package market

import "fmt"

// BusinessTypes is the closed vocabulary for the "l" business label.
var BusinessTypes = []string{"retail", "restaurant", "services", "business", "entertainment", "other"}

func isBusinessTypeValue(v string) bool {
	for _, t := range BusinessTypes {
		if v == t {
			return true
		}
	}
	return false
}

// DTag returns the value of the first tag entry named "d", if any.
// Entries with fewer than two elements cannot carry a value and are skipped.
// Tag names match exactly; "D" is not "d".
func DTag(tags [][]string) (string, bool) {
	for _, tag := range tags {
		if len(tag) >= 2 && tag[0] == "d" {
			return tag[1], true
		}
	}
	return "", false
}

// BusinessType classifies a profile's tag array. A profile carries a business
// type when the array holds a ["L", "business.type"] namespace entry and,
// independently anywhere in the array, an ["l", <type>] entry whose value is
// in the known vocabulary. The two checks are not positionally paired.
func BusinessType(tags [][]string) (string, bool) {
	hasNamespace := false
	btype := ""
	for _, tag := range tags {
		if len(tag) < 2 {
			continue
		}
		switch tag[0] {
		case "L":
			if tag[1] == "business.type" {
				hasNamespace = true
			}
		case "l":
			if isBusinessTypeValue(tag[1]) {
				btype = tag[1]
			}
		}
	}
	if hasNamespace && btype != "" {
		return btype, true
	}
	return "", false
}

// IsBusinessProfile reports whether the tag array satisfies the business
// profile predicate.
func IsBusinessProfile(tags [][]string) bool {
	_, ok := BusinessType(tags)
	return ok
}

// ParsedTag is one entry of a tag explanation.
type ParsedTag struct {
	Type        string `json:"type"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// TagExplanation is a human-readable breakdown of a tag array.
type TagExplanation struct {
	TagCount          int            `json:"tag_count"`
	ParsedTags        []ParsedTag    `json:"parsed_tags"`
	BusinessInfo      map[string]any `json:"business_info"`
	OtherLabels       []string       `json:"other_labels"`
	IsBusinessProfile bool           `json:"is_business_profile"`
}

// ExplainTags classifies every 2-or-more-element tag entry and summarizes
// the business labels found. Presentation logic only.
func ExplainTags(tags [][]string) TagExplanation {
	ex := TagExplanation{
		TagCount:     len(tags),
		ParsedTags:   []ParsedTag{},
		BusinessInfo: map[string]any{},
		OtherLabels:  []string{},
	}
	for _, tag := range tags {
		if len(tag) < 2 {
			continue
		}
		pt := ParsedTag{Type: tag[0], Value: tag[1]}
		switch tag[0] {
		case "L":
			pt.Description = "Label namespace: " + tag[1]
			if tag[1] == "business.type" {
				ex.BusinessInfo["has_business_namespace"] = true
			}
		case "l":
			pt.Description = "Label value: " + tag[1]
			if isBusinessTypeValue(tag[1]) {
				ex.BusinessInfo["business_type"] = tag[1]
				pt.Description += " (Business type: " + tag[1] + ")"
			} else {
				ex.OtherLabels = append(ex.OtherLabels, tag[1])
			}
		case "d":
			pt.Description = "Event identifier: " + tag[1]
		case "e":
			pt.Description = "Referenced event: " + tag[1]
		case "p":
			pt.Description = "Referenced pubkey: " + tag[1]
		case "t":
			pt.Description = "Business category: " + tag[1]
		case "r":
			pt.Description = "Reference/URL: " + tag[1]
		default:
			pt.Description = fmt.Sprintf("Custom tag type %q with value %q", tag[0], tag[1])
		}
		ex.ParsedTags = append(ex.ParsedTags, pt)
	}
	_, hasType := ex.BusinessInfo["business_type"]
	hasNS, _ := ex.BusinessInfo["has_business_namespace"].(bool)
	ex.IsBusinessProfile = hasNS && hasType
	return ex
}
