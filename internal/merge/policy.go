package merge

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leads-cli/internal/model"
)

// Policy controls which fields the merge planner consolidates and which
// it refuses to write back (computed or system-managed columns).
type Policy struct {
	TextFields      []string `yaml:"text_fields"`
	RelationFields  []string `yaml:"relation_fields"`
	ForbiddenFields []string `yaml:"forbidden_fields"`
}

// DefaultPolicy returns the built-in consolidation policy.
func DefaultPolicy() Policy {
	return Policy{
		TextFields: []string{
			model.FieldEmail,
			model.FieldPhone,
			model.FieldAddress,
			model.FieldZip,
			model.FieldCity,
			model.FieldNeed,
			model.FieldNotes,
		},
		RelationFields: []string{
			model.FieldOrders,
			model.FieldActivities,
		},
		ForbiddenFields: []string{"ID", "createdTime", "id"},
	}
}

// LoadPolicy reads a merge policy from a YAML file. Lists omitted from the
// file fall back to the defaults.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, eris.Wrapf(err, "merge: read policy %s", path)
	}

	var wrapper struct {
		Merge Policy `yaml:"merge"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Policy{}, eris.Wrap(err, "merge: parse policy")
	}

	p := wrapper.Merge
	defaults := DefaultPolicy()
	if len(p.TextFields) == 0 {
		p.TextFields = defaults.TextFields
	}
	if len(p.RelationFields) == 0 {
		p.RelationFields = defaults.RelationFields
	}
	if len(p.ForbiddenFields) == 0 {
		p.ForbiddenFields = defaults.ForbiddenFields
	}
	return p, nil
}

func (p Policy) forbidden(key string) bool {
	for _, f := range p.ForbiddenFields {
		if f == key {
			return true
		}
	}
	return false
}
