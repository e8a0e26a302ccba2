package aliases

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Resolver holds the active alias table behind an atomic pointer so readers
// never block on a reload, matching the donor manager's hot-swap discipline
// for policy sets.
type Resolver struct {
	path string
	tbl  atomic.Pointer[Table]
}

// NewResolver loads path once and returns a Resolver ready to serve
// Resolve calls. Call Watch separately to keep it live.
func NewResolver(path string) (*Resolver, error) {
	r := &Resolver{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the alias file from disk and atomically swaps the active
// table. A malformed file leaves the previously active table in place.
func (r *Resolver) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("aliases: read %s: %w", r.path, err)
	}

	var tbl Table
	if err := yaml.Unmarshal(data, &tbl); err != nil {
		return fmt.Errorf("aliases: parse %s: %w", r.path, err)
	}
	if err := tbl.Validate(); err != nil {
		return fmt.Errorf("aliases: validate %s: %w", r.path, err)
	}

	r.tbl.Store(&tbl)
	return nil
}

// Resolve returns the current target for an alias name, or false if the
// name is not a registered alias (the caller should then try it as a
// literal "provider:model" pair before failing the request).
func (r *Resolver) Resolve(name string) (Target, bool) {
	tbl := r.tbl.Load()
	if tbl == nil {
		return Target{}, false
	}
	target, ok := tbl.Aliases[name]
	return target, ok
}

// Names returns the currently registered alias names, for the health/admin
// surface.
func (r *Resolver) Names() []string {
	tbl := r.tbl.Load()
	if tbl == nil {
		return nil
	}
	names := make([]string, 0, len(tbl.Aliases))
	for name := range tbl.Aliases {
		names = append(names, name)
	}
	return names
}
