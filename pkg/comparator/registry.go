package comparator

import (
	"fmt"
	"sort"

	"github.com/vstructure/vstructure/internal/model"
)

// Registry holds the known rules and their runtime configuration.
type Registry struct {
	rules   map[string]Rule
	order   []string
	configs map[string]*RuleConfiguration
}

// NewRegistry creates a registry with the built-in rules. All rules
// except pattern are enabled by default.
func NewRegistry() *Registry {
	r := &Registry{
		rules:   make(map[string]Rule),
		configs: make(map[string]*RuleConfiguration),
	}

	mustRegister := func(rule Rule, enabled bool) {
		if err := r.Register(rule); err != nil {
			panic(err)
		}
		r.configs[rule.ID()].Enabled = enabled
	}

	mustRegister(RequiredColumnsRule{}, true)
	mustRegister(NotNullRule{}, true)
	mustRegister(DataTypeRule{}, true)
	mustRegister(MaxLengthRule{}, true)
	mustRegister(PatternRule{}, false)

	return r
}

// Register adds a rule. Registering a duplicate identifier is an error.
func (r *Registry) Register(rule Rule) error {
	id := rule.ID()
	if _, ok := r.rules[id]; ok {
		return fmt.Errorf("rule already registered: %s", id)
	}
	r.rules[id] = rule
	r.order = append(r.order, id)
	r.configs[id] = &RuleConfiguration{
		RuleID:  id,
		Enabled: true,
		Scope:   rule.Scope(),
		Params:  make(map[string]string),
	}
	return nil
}

// Configure enables or disables a rule.
func (r *Registry) Configure(ruleID string, enabled bool) error {
	cfg, ok := r.configs[ruleID]
	if !ok {
		return fmt.Errorf("rule not found: %s", ruleID)
	}
	cfg.Enabled = enabled
	return nil
}

// EnableOnly enables exactly the named rules and disables the rest.
// Unknown names are reported.
func (r *Registry) EnableOnly(ruleIDs []string) error {
	wanted := make(map[string]bool, len(ruleIDs))
	for _, id := range ruleIDs {
		if _, ok := r.configs[id]; !ok {
			return fmt.Errorf("rule not found: %s", id)
		}
		wanted[id] = true
	}
	for id, cfg := range r.configs {
		cfg.Enabled = wanted[id]
	}
	return nil
}

// Enabled returns the enabled rules, optionally filtered by scope, in
// registration order.
func (r *Registry) Enabled(scope model.Scope) []Rule {
	var rules []Rule
	for _, id := range r.order {
		cfg := r.configs[id]
		if !cfg.Enabled {
			continue
		}
		rule := r.rules[id]
		if scope == "" || rule.Scope() == scope {
			rules = append(rules, rule)
		}
	}
	return rules
}

// List describes every registered rule, sorted by identifier.
func (r *Registry) List() []RuleInfo {
	infos := make([]RuleInfo, 0, len(r.rules))
	for id, rule := range r.rules {
		infos = append(infos, RuleInfo{
			RuleID:      id,
			Description: rule.Description(),
			Scope:       rule.Scope(),
			Enabled:     r.configs[id].Enabled,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].RuleID < infos[j].RuleID })
	return infos
}
