// Package aliases resolves a request's model alias (spec C18) — a stable
// name like "fast" or "reasoning" — to a concrete provider:model pair, with
// hot reload from a YAML file so operators can repoint an alias without a
// gateway restart.
//
// Grounded on pkg/policy/manager's loader+watcher+atomic-swap shape
// (loader.go's validation passes, watcher.go's fsnotify+debounce loop,
// manager.go's atomic.Pointer swap for the active policy set), generalized
// from policy documents to a flat alias table.
package aliases

import "fmt"

// Target is where an alias currently points.
type Target struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// Table is the full alias set, keyed by alias name.
type Table struct {
	Aliases map[string]Target `yaml:"aliases"`
}

// Validate checks that every entry names both a provider and a model.
func (t *Table) Validate() error {
	for name, target := range t.Aliases {
		if target.Provider == "" {
			return fmt.Errorf("aliases: alias %q missing provider", name)
		}
		if target.Model == "" {
			return fmt.Errorf("aliases: alias %q missing model", name)
		}
	}
	return nil
}
