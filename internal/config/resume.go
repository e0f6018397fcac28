package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// MasterResume is the candidate's resume document. The pipeline treats the
// content as opaque nested data: it is loaded once per run and rendered
// verbatim into prompts, never interpreted field by field.
type MasterResume struct {
	raw  map[string]interface{}
	text string
}

// Preferred section ordering for prompt rendering. Unknown sections follow
// alphabetically.
var resumeSectionOrder = []string{"personal", "summary", "experience", "certifications", "education", "skills"}

// LoadMasterResume reads and parses the master resume document (TOML or YAML).
// A missing or unreadable file is a fatal pipeline error.
func LoadMasterResume(path string) (*MasterResume, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read master resume %s: %w", path, err)
	}

	raw := make(map[string]interface{})
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse master resume %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse master resume %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported master resume format %s (want .toml or .yaml)", path)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("master resume %s is empty", path)
	}

	r := &MasterResume{raw: raw}
	r.text = r.render()
	return r, nil
}

// Text returns the deterministic textual rendering used in prompts
func (r *MasterResume) Text() string {
	return r.text
}

// Raw returns the underlying document
func (r *MasterResume) Raw() map[string]interface{} {
	return r.raw
}

// render flattens the nested document into indented key/value text with a
// stable section and key order, so identical documents always produce
// identical prompts.
func (r *MasterResume) render() string {
	var b strings.Builder
	for _, section := range orderedSections(r.raw) {
		b.WriteString(strings.ToUpper(section))
		b.WriteString(":\n")
		writeValue(&b, r.raw[section], 1)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func orderedSections(raw map[string]interface{}) []string {
	known := make(map[string]bool, len(resumeSectionOrder))
	var out []string
	for _, s := range resumeSectionOrder {
		if _, ok := raw[s]; ok {
			out = append(out, s)
			known[s] = true
		}
	}
	var rest []string
	for k := range raw {
		if !known[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func writeValue(b *strings.Builder, v interface{}, depth int) {
	indent := strings.Repeat("  ", depth)
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch val[k].(type) {
			case map[string]interface{}, []interface{}:
				fmt.Fprintf(b, "%s%s:\n", indent, k)
				writeValue(b, val[k], depth+1)
			default:
				fmt.Fprintf(b, "%s%s: %v\n", indent, k, val[k])
			}
		}
	case []interface{}:
		for _, item := range val {
			switch item.(type) {
			case map[string]interface{}, []interface{}:
				fmt.Fprintf(b, "%s-\n", indent)
				writeValue(b, item, depth+1)
			default:
				fmt.Fprintf(b, "%s- %v\n", indent, item)
			}
		}
	default:
		fmt.Fprintf(b, "%s%v\n", indent, val)
	}
}
