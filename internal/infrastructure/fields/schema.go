package fields

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/dollarfunding/document-service/internal/core/domain"
)

//go:embed schema.yaml
var defaultSchema []byte

// Rule is one named extraction pattern. The pattern must contain exactly one
// capture group; group 1 becomes the field value.
type Rule struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`

	re *regexp.Regexp
}

// Schema maps document types to their ordered extraction rules.
type Schema struct {
	rules map[domain.DocumentType][]Rule
}

// LoadSchema reads and compiles a rule schema from path. An empty path loads
// the embedded default. Compilation problems fail here, before any document
// is processed.
func LoadSchema(path string) (*Schema, error) {
	data := defaultSchema
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read field schema: %w", err)
		}
	}

	var raw map[string][]Rule
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode field schema: %w", err)
	}

	s := &Schema{rules: make(map[domain.DocumentType][]Rule, len(raw))}
	for docType, rules := range raw {
		dt := domain.DocumentType(docType)
		if !dt.Valid() {
			return nil, fmt.Errorf("field schema references unknown document type %q", docType)
		}
		compiled := make([]Rule, 0, len(rules))
		for _, rule := range rules {
			if rule.Name == "" {
				return nil, fmt.Errorf("field schema for %s has a rule without a name", docType)
			}
			re, err := regexp.Compile("(?i)" + rule.Pattern)
			if err != nil {
				return nil, fmt.Errorf("field schema rule %s/%s: %w", docType, rule.Name, err)
			}
			if re.NumSubexp() != 1 {
				return nil, fmt.Errorf("field schema rule %s/%s must have exactly one capture group, has %d",
					docType, rule.Name, re.NumSubexp())
			}
			rule.re = re
			compiled = append(compiled, rule)
		}
		s.rules[dt] = compiled
	}
	return s, nil
}

// Rules returns the compiled rules for a document type, or false when the
// schema has none for it.
func (s *Schema) Rules(docType domain.DocumentType) ([]Rule, bool) {
	rules, ok := s.rules[docType]
	return rules, ok
}
