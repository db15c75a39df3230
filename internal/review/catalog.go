package review

import (
	_ "embed"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Suggestion is a canned question offered to the reviewer.
type Suggestion struct {
	Label    string `yaml:"label" json:"label"`
	Question string `yaml:"question" json:"question"`
}

// EvalCategory is a question family the evaluator can sample from.
type EvalCategory struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

// Catalog holds the static question lists shown alongside a deal.
type Catalog struct {
	Suggested struct {
		RP  []Suggestion `yaml:"rp"`
		MFN []Suggestion `yaml:"mfn"`
	} `yaml:"suggested"`
	ChatExamples   []string       `yaml:"chat_examples"`
	EvalCategories []EvalCategory `yaml:"eval_categories"`
}

var (
	catalogOnce sync.Once
	catalog     *Catalog
	catalogErr  error
)

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() (*Catalog, error) {
	catalogOnce.Do(func() {
		catalog, catalogErr = parseCatalog(defaultCatalog)
	})
	return catalog, catalogErr
}

// LoadCatalog reads a catalog from a YAML file with the same layout as the
// built-in one.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "review: read catalog %s", path)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var wrapper struct {
		Catalog Catalog `yaml:"catalog"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "review: parse catalog")
	}
	if len(wrapper.Catalog.EvalCategories) == 0 {
		return nil, eris.New("review: catalog has no eval categories")
	}
	return &wrapper.Catalog, nil
}

// Suggestions returns the RP questions, followed by the MFN questions once
// the deal's MFN provision has been extracted.
func (c *Catalog) Suggestions(mfnExtracted bool) []Suggestion {
	out := make([]Suggestion, 0, len(c.Suggested.RP)+len(c.Suggested.MFN))
	out = append(out, c.Suggested.RP...)
	if mfnExtracted {
		out = append(out, c.Suggested.MFN...)
	}
	return out
}

// EvalCategoryIDs lists every category id in catalog order.
func (c *Catalog) EvalCategoryIDs() []string {
	ids := make([]string, len(c.EvalCategories))
	for i, cat := range c.EvalCategories {
		ids[i] = cat.ID
	}
	return ids
}

// EvalCategoryLabel returns the label for id, or id itself when unknown.
func (c *Catalog) EvalCategoryLabel(id string) string {
	for _, cat := range c.EvalCategories {
		if cat.ID == id {
			return cat.Label
		}
	}
	return id
}

func (c *Catalog) hasEvalCategory(id string) bool {
	for _, cat := range c.EvalCategories {
		if cat.ID == id {
			return true
		}
	}
	return false
}
