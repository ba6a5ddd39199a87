// Package schema validates authoring documents against the core XSD merged
// with the XSDs of every registered extension.
//
// The merged schema set is compiled lazily and rebuilt whenever the
// extension set changes. A compiled schema is immutable and shared by
// concurrent validations.
package schema

import (
	"bytes"
	"fmt"
	"sync"
	"testing/fstest"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"
	"github.com/jacoelho/xsd"
	xsderrors "github.com/jacoelho/xsd/errors"
	"github.com/samber/lo"

	"github.com/roach88/candle/internal/extension"
	"github.com/roach88/candle/internal/ir"
	"github.com/roach88/candle/internal/sourceline"
)

// ErrInvalidDocument is wrapped by every ValidationError.
var ErrInvalidDocument = errors.New("document does not conform to the schema")

// coreLocation names the core XSD inside its in-memory file system.
const coreLocation = "wix.xsd"

// Source supplies extension schemas. Generation changes whenever the set of
// schemas does.
type Source interface {
	Generation() uint64
	Schemas() []extension.SchemaSource
}

// Violation is one schema violation mapped back to the authored source.
type Violation struct {
	Code       string
	Message    string
	Path       string
	SourceLine ir.SourceLine
}

// ValidationError reports every violation found in one document.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidDocument, e.Summary())
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidDocument
}

// SourceLine returns the position of the first violation.
func (e *ValidationError) SourceLine() ir.SourceLine {
	if len(e.Violations) == 0 {
		return ir.SourceLine{}
	}
	return e.Violations[0].SourceLine
}

// Summary describes the first violation and counts the rest.
func (e *ValidationError) Summary() string {
	switch len(e.Violations) {
	case 0:
		return "no violations"
	case 1:
		return e.Violations[0].Message
	default:
		return fmt.Sprintf("%s (and %d more)", e.Violations[0].Message, len(e.Violations)-1)
	}
}

// Validator checks documents against the merged schema set.
type Validator struct {
	namespace string
	core      []byte
	source    Source

	mu         sync.Mutex
	compiled   *xsd.Schema
	generation uint64
}

// New creates a validator for the core namespace. source may be nil when no
// extension schemas apply.
func New(namespace string, core []byte, source Source) *Validator {
	return &Validator{namespace: namespace, core: core, source: source}
}

// Namespace returns the core namespace the validator was built for.
func (v *Validator) Namespace() string {
	return v.namespace
}

// Validate serializes doc and validates it. Violations are returned as a
// *ValidationError; any other error means the schema set itself is broken.
func (v *Validator) Validate(doc *etree.Document) error {
	compiled, err := v.schema()
	if err != nil {
		return err
	}
	data, err := doc.WriteToBytes()
	if err != nil {
		return errors.Wrap(err, "serializing document for validation")
	}

	err = compiled.Validate(bytes.NewReader(data))
	if err == nil {
		return nil
	}
	found, ok := xsderrors.AsValidations(err)
	if !ok {
		return errors.Wrap(err, "validating document")
	}
	return &ValidationError{Violations: lo.Map(found, func(f xsderrors.Validation, _ int) Violation {
		return Violation{
			Code:       f.Code,
			Message:    f.Message,
			Path:       f.Path,
			SourceLine: sourceline.FromSerialized(data, f.Line),
		}
	})}
}

// schema returns the compiled schema set, rebuilding it when the extension
// set has changed since the last build.
func (v *Validator) schema() (*xsd.Schema, error) {
	var generation uint64
	if v.source != nil {
		generation = v.source.Generation()
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.compiled != nil && v.generation == generation {
		return v.compiled, nil
	}

	set := xsd.NewSchemaSet()
	core := fstest.MapFS{coreLocation: &fstest.MapFile{Data: v.core}}
	if err := set.AddFS(core, coreLocation); err != nil {
		return nil, errors.Wrap(err, "adding core schema")
	}
	if v.source != nil {
		for _, src := range v.source.Schemas() {
			if src.FS == nil {
				continue
			}
			if err := set.AddFS(src.FS, src.Path); err != nil {
				return nil, errors.Wrapf(err, "adding schema for %s", src.Namespace)
			}
		}
	}

	compiled, err := set.Compile()
	if err != nil {
		return nil, errors.Wrap(err, "compiling schema set")
	}
	v.compiled, v.generation = compiled, generation
	return compiled, nil
}
