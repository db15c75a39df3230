// Package ontology groups questions and answers into display categories and
// resolves typed answer accessors from the ontology schema.
package ontology

import (
	"sort"
	"strings"

	"github.com/sells-group/valence-cli/internal/model"
)

// Schema selects how questions are assigned to categories.
type Schema int

const (
	// SchemaCategoryID groups by the explicit category_id/category_name
	// fields of the current ontology.
	SchemaCategoryID Schema = iota
	// SchemaLegacy groups into the flat mfn/rp/pattern sets, from an explicit
	// category field or inferred from the category identifier prefix.
	SchemaLegacy
)

func (s Schema) String() string {
	if s == SchemaLegacy {
		return "legacy"
	}
	return "category_id"
}

// Legacy category identifiers.
const (
	LegacyMFN     = "mfn"
	LegacyRP      = "rp"
	LegacyPattern = "pattern"
)

// LegacyCategory is one of the fixed legacy groupings.
type LegacyCategory struct {
	ID    string
	Label string
	Order int
}

// LegacyCategories lists the legacy groupings in display order.
var LegacyCategories = []LegacyCategory{
	{ID: LegacyMFN, Label: "MFN Provisions", Order: 1},
	{ID: LegacyRP, Label: "Restricted Payments", Order: 2},
	{ID: LegacyPattern, Label: "Pattern Detection", Order: 3},
}

func legacyCategory(id string) (LegacyCategory, bool) {
	for _, c := range LegacyCategories {
		if c.ID == id {
			return c, true
		}
	}
	return LegacyCategory{}, false
}

// LegacyCategoryFor infers a legacy category from a category identifier:
// A and B prefixes are MFN, Z is pattern detection, anything else is RP.
func LegacyCategoryFor(categoryID string) string {
	switch {
	case strings.HasPrefix(categoryID, "A"), strings.HasPrefix(categoryID, "B"):
		return LegacyMFN
	case strings.HasPrefix(categoryID, "Z"):
		return LegacyPattern
	default:
		return LegacyRP
	}
}

// DetectSchema picks SchemaCategoryID when any question carries a
// category_id, otherwise SchemaLegacy.
func DetectSchema(questions []model.OntologyQuestion) Schema {
	for _, q := range questions {
		if q.CategoryID != "" {
			return SchemaCategoryID
		}
	}
	return SchemaLegacy
}

// CategoryOf returns the grouping key and label for a question under schema.
func CategoryOf(q model.OntologyQuestion, schema Schema) (id, name string) {
	if schema == SchemaCategoryID && q.CategoryID != "" {
		return q.CategoryID, q.CategoryName
	}

	id = q.Category
	if id == "" {
		ref := q.CategoryID
		if ref == "" {
			ref = q.ID
		}
		id = LegacyCategoryFor(ref)
	}
	if c, ok := legacyCategory(id); ok {
		return id, c.Label
	}
	return id, id
}

// Normalize returns a copy of questions with CategoryID and CategoryName
// filled according to schema, so later stages only read those two fields.
func Normalize(questions []model.OntologyQuestion, schema Schema) []model.OntologyQuestion {
	out := make([]model.OntologyQuestion, len(questions))
	for i, q := range questions {
		q.CategoryID, q.CategoryName = CategoryOf(q, schema)
		out[i] = q
	}
	return out
}

// Tab is a category entry with its question count.
type Tab struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Tabs lists the non-empty categories of normalized questions. Legacy
// categories follow their fixed order; others sort by identifier.
func Tabs(questions []model.OntologyQuestion) []Tab {
	index := make(map[string]int)
	var tabs []Tab
	for _, q := range questions {
		i, ok := index[q.CategoryID]
		if !ok {
			i = len(tabs)
			index[q.CategoryID] = i
			tabs = append(tabs, Tab{ID: q.CategoryID, Label: q.CategoryName})
		}
		tabs[i].Count++
	}

	sort.SliceStable(tabs, func(i, j int) bool {
		return lessCategory(tabs[i].ID, tabs[j].ID)
	})
	return tabs
}

// lessCategory orders legacy categories by their fixed rank ahead of any
// other identifier, then compares identifiers case-insensitively.
func lessCategory(a, b string) bool {
	la, aLegacy := legacyCategory(a)
	lb, bLegacy := legacyCategory(b)
	switch {
	case aLegacy && bLegacy:
		return la.Order < lb.Order
	case aLegacy != bLegacy:
		return aLegacy
	}
	if ca, cb := strings.ToLower(a), strings.ToLower(b); ca != cb {
		return ca < cb
	}
	return a < b
}
