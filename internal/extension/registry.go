package extension

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/roach88/candle/internal/ir"
)

var (
	// ErrNamespaceConflict is returned when a namespace is already claimed.
	ErrNamespaceConflict = errors.New("namespace conflict")
	// ErrTableDefinitionConflict is returned when a plug-in declares a table
	// that already exists.
	ErrTableDefinitionConflict = errors.New("table definition conflict")
)

// Registry admits plug-ins. Registration must complete before compiles
// start; reads are safe from concurrent compiles.
type Registry struct {
	mu         sync.RWMutex
	core       *ir.TableDefinitionCollection
	effective  *ir.TableDefinitionCollection
	reserved   map[string]bool
	byNS       map[string]Extension
	order      []Extension
	generation uint64
}

// NewRegistry creates a registry over the core table definitions. Reserved
// namespaces, typically the core namespace, can never be claimed.
func NewRegistry(core *ir.TableDefinitionCollection, reserved ...string) *Registry {
	return &Registry{
		core:      core,
		effective: core,
		reserved:  lo.SliceToMap(reserved, func(ns string) (string, bool) { return ns, true }),
		byNS:      make(map[string]Extension),
	}
}

// Register admits ext. All conflicts are detected before anything changes,
// so a failed registration leaves the registry as it was.
func (r *Registry) Register(ext Extension) error {
	if ext == nil {
		return errors.AssertionFailedf("nil extension")
	}
	ns := ext.Namespace()
	if ns == "" {
		return errors.AssertionFailedf("extension %T has no namespace", ext)
	}
	defs := ext.TableDefinitions()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reserved[ns] {
		return errors.Wrapf(ErrNamespaceConflict, "namespace %q is reserved", ns)
	}
	if prior, ok := r.byNS[ns]; ok {
		return errors.Wrapf(ErrNamespaceConflict, "namespace %q already claimed by %T", ns, prior)
	}

	if dups := lo.FindDuplicatesBy(defs, func(d *ir.TableDefinition) string { return d.Name }); len(dups) > 0 {
		return errors.Wrapf(ErrTableDefinitionConflict, "extension %q declares table %q twice", ns, dups[0].Name)
	}
	for _, def := range defs {
		if r.core.Contains(def.Name) {
			return errors.Wrapf(ErrTableDefinitionConflict, "extension %q table %q collides with a core table", ns, def.Name)
		}
		if r.effective.Contains(def.Name) {
			return errors.Wrapf(ErrTableDefinitionConflict, "extension %q table %q collides with another extension", ns, def.Name)
		}
	}

	if len(defs) > 0 {
		next := r.effective.Clone()
		for _, def := range defs {
			if err := next.Add(def.Clone()); err != nil {
				return errors.NewAssertionErrorWithWrappedErrf(err, "adding checked table %q", def.Name)
			}
		}
		r.effective = next
	}
	r.byNS[ns] = ext
	r.order = append(r.order, ext)
	r.generation++
	return nil
}

// Lookup returns the plug-in claiming ns.
func (r *Registry) Lookup(ns string) (Extension, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext, ok := r.byNS[ns]
	return ext, ok
}

// Extensions returns the registered plug-ins in registration order.
func (r *Registry) Extensions() []Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Extension(nil), r.order...)
}

// TableDefinitions returns the effective schema. The returned collection is
// never mutated by later registrations.
func (r *Registry) TableDefinitions() *ir.TableDefinitionCollection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.effective
}

// Generation increments on every successful registration.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Schemas returns the XSDs of the registered plug-ins that have one.
func (r *Registry) Schemas() []SchemaSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []SchemaSource
	for _, ext := range r.order {
		fsys, path := ext.Schema()
		if fsys == nil {
			continue
		}
		out = append(out, SchemaSource{Namespace: ext.Namespace(), FS: fsys, Path: path})
	}
	return out
}
