package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// RuleSource indicates how a rule was created.
type RuleSource string

const (
	// RuleSourceUser indicates a rule authored directly by the user.
	RuleSourceUser RuleSource = "user"
	// RuleSourceAuto indicates a rule synthesized from feedback mining.
	RuleSourceAuto RuleSource = "auto"
)

// Rule maps transaction patterns to a ledger account with provenance and
// confidence. User rules always outrank auto rules during resolution.
type Rule struct {
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Account    string         `json:"account"`
	Source     RuleSource     `json:"source"`
	Conditions RuleConditions `json:"conditions"`
	Confidence float64        `json:"confidence"`
}

// RuleUpdate describes a partial update to a rule. Nil fields are left
// untouched.
type RuleUpdate struct {
	Name       *string
	Conditions *RuleConditions
	Account    *string
	Confidence *float64
}

// RuleConditions holds the match conditions for a rule. Peer and Item
// patterns match as case-sensitive substrings; Category patterns match only
// on exact equality, since categories are closed labels rather than free
// text. A key with no patterns places no constraint on that field.
type RuleConditions struct {
	Peer     []string
	Item     []string
	Category []string
}

// IsEmpty reports whether no condition key carries any pattern. An empty
// conditions set would match everything, so rules with one are rejected at
// creation time.
func (c RuleConditions) IsEmpty() bool {
	return len(c.Peer) == 0 && len(c.Item) == 0 && len(c.Category) == 0
}

// Matches reports whether every present condition key evaluates true for the
// given transaction fields.
func (c RuleConditions) Matches(peer, item, category string) bool {
	if c.IsEmpty() {
		return false
	}
	if len(c.Peer) > 0 && !anySubstring(c.Peer, peer) {
		return false
	}
	if len(c.Item) > 0 && !anySubstring(c.Item, item) {
		return false
	}
	if len(c.Category) > 0 && !anyExact(c.Category, category) {
		return false
	}
	return true
}

func anySubstring(patterns []string, value string) bool {
	for _, p := range patterns {
		if strings.Contains(value, p) {
			return true
		}
	}
	return false
}

func anyExact(patterns []string, value string) bool {
	for _, p := range patterns {
		if p == value {
			return true
		}
	}
	return false
}

// String renders the conditions in a compact "key=a|b" form for logs and
// prompt summaries.
func (c RuleConditions) String() string {
	parts := make([]string, 0, 3)
	if len(c.Peer) > 0 {
		parts = append(parts, "peer="+strings.Join(c.Peer, "|"))
	}
	if len(c.Item) > 0 {
		parts = append(parts, "item="+strings.Join(c.Item, "|"))
	}
	if len(c.Category) > 0 {
		parts = append(parts, "category="+strings.Join(c.Category, "|"))
	}
	return strings.Join(parts, " ")
}

// conditionsJSON is the storage representation: a map from condition key to
// either a single pattern string or an array of patterns.
type conditionsJSON map[string]patternList

// patternList decodes both `"pattern"` and `["a", "b"]` forms.
type patternList []string

// UnmarshalJSON accepts a bare string or an array of strings.
func (p *patternList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*p = patternList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("condition patterns must be a string or array of strings: %w", err)
	}
	*p = patternList(many)
	return nil
}

// MarshalJSON serializes conditions to the stored map form. Keys with no
// patterns are omitted; single patterns stay arrays for a stable round-trip.
func (c RuleConditions) MarshalJSON() ([]byte, error) {
	m := make(map[string][]string, 3)
	if len(c.Peer) > 0 {
		m["peer"] = c.Peer
	}
	if len(c.Item) > 0 {
		m["item"] = c.Item
	}
	if len(c.Category) > 0 {
		m["category"] = c.Category
	}
	return json.Marshal(m)
}

// UnmarshalJSON parses the stored map form, rejecting unknown condition keys.
func (c *RuleConditions) UnmarshalJSON(data []byte) error {
	var raw conditionsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := RuleConditions{}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch k {
		case "peer":
			out.Peer = raw[k]
		case "item":
			out.Item = raw[k]
		case "category":
			out.Category = raw[k]
		default:
			return fmt.Errorf("unknown condition key %q", k)
		}
	}
	*c = out
	return nil
}
