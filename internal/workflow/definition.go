package workflow

import (
	"fmt"
	"sort"
)

// WorkflowDefinition declares the ordered pipeline. Steps run strictly in
// declaration order; depends_on only documents and validates that a step's
// inputs were produced by an earlier step.
type WorkflowDefinition struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Modules     []ModuleRef       `json:"modules" yaml:"modules"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Clone returns a deep copy of the workflow definition.
func (def WorkflowDefinition) Clone() WorkflowDefinition {
	clone := WorkflowDefinition{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Metadata:    cloneStringMap(def.Metadata),
	}
	if len(def.Modules) > 0 {
		clone.Modules = make([]ModuleRef, len(def.Modules))
		for i, ref := range def.Modules {
			clone.Modules[i] = ref.Clone()
		}
	}
	return clone
}

// Validate ensures the workflow definition is self-consistent.
func (def WorkflowDefinition) Validate() error {
	if def.ID == "" {
		return fmt.Errorf("workflow: id is required")
	}
	if len(def.Modules) == 0 {
		return fmt.Errorf("workflow %s: at least one module is required", def.ID)
	}
	seen := map[string]struct{}{}
	all := map[string]struct{}{}
	for _, ref := range def.Modules {
		all[ref.InstanceID()] = struct{}{}
	}
	for idx, ref := range def.Modules {
		if err := ref.Validate(); err != nil {
			return fmt.Errorf("workflow %s module[%d]: %w", def.ID, idx, err)
		}
		instanceID := ref.InstanceID()
		if _, exists := seen[instanceID]; exists {
			return fmt.Errorf("workflow %s: duplicate module instance id %s", def.ID, instanceID)
		}
		for _, dep := range ref.DependsOn {
			if _, ok := seen[dep]; ok {
				continue
			}
			if _, ok := all[dep]; ok {
				return fmt.Errorf("workflow %s: %s depends on later module %s", def.ID, instanceID, dep)
			}
			return fmt.Errorf("workflow %s: dependency %s -> %s references unknown module", def.ID, instanceID, dep)
		}
		seen[instanceID] = struct{}{}
	}
	return nil
}

// Normalized clones the definition, sorts dependency lists and validates the
// result.
func (def WorkflowDefinition) Normalized() (WorkflowDefinition, error) {
	clone := def.Clone()
	for i := range clone.Modules {
		if len(clone.Modules[i].DependsOn) > 0 {
			sort.Strings(clone.Modules[i].DependsOn)
		}
	}
	if err := clone.Validate(); err != nil {
		return WorkflowDefinition{}, err
	}
	return clone, nil
}

// ModuleIDs returns the workflow-scoped identifiers in declaration order.
func (def WorkflowDefinition) ModuleIDs() []string {
	ids := make([]string, 0, len(def.Modules))
	for _, ref := range def.Modules {
		ids = append(ids, ref.InstanceID())
	}
	return ids
}

// ModuleRef describes how a workflow composes and configures a module.
type ModuleRef struct {
	ID          string       `json:"id,omitempty" yaml:"id,omitempty"`
	ModuleID    string       `json:"module" yaml:"module"`
	Name        string       `json:"name,omitempty" yaml:"name,omitempty"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	DependsOn   []string     `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Config      ModuleConfig `json:"config,omitempty" yaml:"config,omitempty"`
}

// Clone returns a deep copy of the module reference.
func (ref ModuleRef) Clone() ModuleRef {
	clone := ModuleRef{
		ID:          ref.ID,
		ModuleID:    ref.ModuleID,
		Name:        ref.Name,
		Description: ref.Description,
	}
	if len(ref.DependsOn) > 0 {
		clone.DependsOn = cloneStringSlice(ref.DependsOn)
	}
	if len(ref.Config) > 0 {
		clone.Config = ref.Config.Clone()
	}
	return clone
}

// ModuleConfig carries module-specific overrides (opaque to the runtime).
type ModuleConfig map[string]any

// Clone returns a shallow copy of the config map.
func (cfg ModuleConfig) Clone() ModuleConfig {
	if len(cfg) == 0 {
		return nil
	}
	clone := make(ModuleConfig, len(cfg))
	for key, value := range cfg {
		clone[key] = value
	}
	return clone
}

// InstanceID returns the workflow-local identifier used by depends_on.
func (ref ModuleRef) InstanceID() string {
	if ref.ID != "" {
		return ref.ID
	}
	return ref.ModuleID
}

// Validate ensures the reference is usable.
func (ref ModuleRef) Validate() error {
	if ref.ModuleID == "" {
		return fmt.Errorf("workflow: module id is required")
	}
	deps := append([]string{}, ref.DependsOn...)
	sort.Strings(deps)
	for i := 1; i < len(deps); i++ {
		if deps[i] == deps[i-1] {
			return fmt.Errorf("workflow: module %s has duplicate dependency on %s", ref.InstanceID(), deps[i])
		}
	}
	for _, dep := range deps {
		if dep == ref.InstanceID() {
			return fmt.Errorf("workflow: module %s depends on itself", dep)
		}
	}
	return nil
}

func cloneStringSlice(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	clone := make([]string, len(values))
	copy(clone, values)
	return clone
}

func cloneStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	clone := make(map[string]string, len(values))
	for key, value := range values {
		clone[key] = value
	}
	return clone
}
