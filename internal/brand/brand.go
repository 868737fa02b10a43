// Package brand holds the static catalog table: which brands exist on the
// trade site, where their listings start, and how the site authenticates.
package brand

import (
	"fmt"
	"sort"
	"strings"
)

const BaseOrigin = "https://www.kravet.com"

// Target is one brand to crawl. Targets are immutable after Lookup.
type Target struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	BaseURL    string `json:"base_url"`
	ListingURL string `json:"listing_url"`
}

var table = map[string]Target{
	"kravet":       {Key: "kravet", Name: "Kravet", BaseURL: BaseOrigin, ListingURL: BaseOrigin + "/shop/fabric"},
	"leejofa":      {Key: "leejofa", Name: "Lee Jofa", BaseURL: BaseOrigin, ListingURL: BaseOrigin + "/shop/fabric?brand=Lee+Jofa"},
	"brunschwig":   {Key: "brunschwig", Name: "Brunschwig & Fils", BaseURL: BaseOrigin, ListingURL: BaseOrigin + "/shop/fabric?brand=Brunschwig+%26+Fils"},
	"gpjbaker":     {Key: "gpjbaker", Name: "GP & J Baker", BaseURL: BaseOrigin, ListingURL: BaseOrigin + "/shop/fabric?brand=GP+%26+J+Baker"},
	"andrewmartin": {Key: "andrewmartin", Name: "Andrew Martin", BaseURL: BaseOrigin, ListingURL: BaseOrigin + "/shop/fabric?brand=Andrew+Martin"},
	"coleson":      {Key: "coleson", Name: "Cole & Son", BaseURL: BaseOrigin, ListingURL: BaseOrigin + "/shop/fabric?brand=Cole+%26+Son"},
}

// Lookup returns the target for key. Keys are case-insensitive.
func Lookup(key string) (Target, bool) {
	t, ok := table[strings.ToLower(strings.TrimSpace(key))]
	return t, ok
}

// Resolve maps configured keys onto targets, preserving order and
// dropping repeats.
func Resolve(keys []string) ([]Target, error) {
	seen := make(map[string]bool)
	targets := make([]Target, 0, len(keys))
	for _, key := range keys {
		t, ok := Lookup(key)
		if !ok {
			return nil, fmt.Errorf("unknown brand %q", key)
		}
		if seen[t.Key] {
			continue
		}
		seen[t.Key] = true
		targets = append(targets, t)
	}
	return targets, nil
}

// DisplayName returns the table name for key, or "" if the key is unknown.
func DisplayName(key string) string {
	if t, ok := Lookup(key); ok {
		return t.Name
	}
	return ""
}

// All returns every known target sorted by key.
func All() []Target {
	out := make([]Target, 0, len(table))
	for _, t := range table {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func Keys() []string {
	all := All()
	keys := make([]string, len(all))
	for i, t := range all {
		keys[i] = t.Key
	}
	return keys
}
