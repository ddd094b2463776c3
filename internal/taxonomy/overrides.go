package taxonomy

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Overrides replaces or adds lookup entries for either source taxonomy.
type Overrides struct {
	CEO        map[string]Class `yaml:"ceo"`
	WorldCover map[string]Class `yaml:"worldcover"`
}

// LoadOverrides reads a YAML overrides file. Every target must be a shared class.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "taxonomy: read overrides %s", path)
	}
	return ParseOverrides(data)
}

// ParseOverrides decodes and validates overrides from YAML bytes.
func ParseOverrides(data []byte) (*Overrides, error) {
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, eris.Wrap(err, "taxonomy: parse overrides")
	}
	for raw, c := range o.CEO {
		if !c.Valid() {
			return nil, eris.Errorf("taxonomy: ceo label %q maps to unknown class %q", raw, c)
		}
	}
	for raw, c := range o.WorldCover {
		if !c.Valid() {
			return nil, eris.Errorf("taxonomy: worldcover label %q maps to unknown class %q", raw, c)
		}
	}
	return &o, nil
}

// Tables returns the CEO and WorldCover tables with o applied. A nil o yields
// the built-in tables.
func (o *Overrides) Tables() (ceo, worldCover Table) {
	ceo, worldCover = CEOTable(), WorldCoverTable()
	if o == nil {
		return ceo, worldCover
	}
	return ceo.With(o.CEO), worldCover.With(o.WorldCover)
}
