// Package compiler walks an installer-authoring document and produces an
// unlinked Intermediate plus the reference graph the linker consumes.
//
// A Compiler is a reusable configuration: registered extensions and the
// merged schema. Everything a single compile mutates lives in a
// compileContext created per call, so one Compiler may serve concurrent
// compiles once registration is complete.
package compiler

import (
	"strings"
	"sync"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/candle/internal/builder"
	"github.com/roach88/candle/internal/diag"
	"github.com/roach88/candle/internal/extension"
	"github.com/roach88/candle/internal/ir"
	"github.com/roach88/candle/internal/schema"
	"github.com/roach88/candle/internal/tables"
	"github.com/roach88/candle/internal/xref"
)

// Namespace is the core authoring namespace.
const Namespace = "http://schemas.microsoft.com/wix/2006/wi"

// ErrCompilationFailed is returned when any error-severity diagnostic was
// reported. The partial Intermediate is discarded.
var ErrCompilationFailed = errors.New("compilation failed")

// PedanticLevel controls how many suspicious-but-legal constructs are
// reported.
type PedanticLevel int

const (
	Easy PedanticLevel = iota
	// Heroic warns on deprecated elements.
	Heroic
	// Legendary also warns on implicit component key paths.
	Legendary
)

var pedanticNames = map[PedanticLevel]string{
	Easy:      "easy",
	Heroic:    "heroic",
	Legendary: "legendary",
}

func (p PedanticLevel) String() string {
	return pedanticNames[p]
}

// ParsePedanticLevel maps a level name to its PedanticLevel.
func ParsePedanticLevel(s string) (PedanticLevel, error) {
	for level, name := range pedanticNames {
		if strings.EqualFold(name, s) {
			return level, nil
		}
	}
	return Easy, errors.Newf("unknown pedantic level %q (want easy, heroic or legendary)", s)
}

// Options configures a Compiler.
type Options struct {
	Pedantic           PedanticLevel
	SuppressValidation bool
	WarningsAsErrors   bool
	// SuppressWarnings lists warning codes (such as "W101") to drop.
	SuppressWarnings []string
	// Verbose keeps verbose diagnostics in the result.
	Verbose bool
	Logger  *zap.Logger
}

// Result is the output of a successful compile.
type Result struct {
	Intermediate *ir.Intermediate
	References   *xref.Tracker
	Messages     []diag.Message
}

// Compiler holds the configuration shared across compiles.
type Compiler struct {
	opts      Options
	logger    *zap.Logger
	registry  *extension.Registry
	validator *schema.Validator
}

// New creates a compiler with no extensions registered.
func New(opts Options) *Compiler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := extension.NewRegistry(tables.Core(), Namespace)
	return &Compiler{
		opts:      opts,
		logger:    logger.Named("compiler"),
		registry:  registry,
		validator: schema.New(Namespace, CoreSchema(), registry),
	}
}

// Register admits an extension. It must complete before any compile that
// should see the extension begins.
func (cm *Compiler) Register(ext extension.Extension) error {
	if err := cm.registry.Register(ext); err != nil {
		return err
	}
	cm.logger.Debug("registered extension", zap.String("namespace", ext.Namespace()))
	return nil
}

// Registry returns the extension registry.
func (cm *Compiler) Registry() *extension.Registry {
	return cm.registry
}

// ValidateDocument runs only the schema pass over doc.
func (cm *Compiler) ValidateDocument(doc *etree.Document) error {
	if doc == nil {
		return errors.AssertionFailedf("validate requires a document")
	}
	return cm.validator.Validate(doc)
}

// Compile walks doc and returns its Intermediate. Every diagnostic is
// delivered to sink as it is reported. The result is nil, and the error
// wraps ErrCompilationFailed, when any error-severity diagnostic occurred.
func (cm *Compiler) Compile(doc *etree.Document, sourcePath string, sink diag.Sink) (*Result, error) {
	if doc == nil {
		return nil, errors.AssertionFailedf("compile requires a document")
	}
	if sink == nil {
		return nil, errors.AssertionFailedf("compile requires a diagnostic sink")
	}

	collector := diag.NewCollector(diag.Tee(diag.NewLogSink(cm.logger), sink), cm.collectorOptions()...)
	refs := xref.New()
	c := &compileContext{
		opts:       cm.opts,
		logger:     cm.logger.With(zap.String("source", sourcePath)),
		registry:   cm.registry,
		builder:    builder.New(sourcePath, cm.registry.TableDefinitions(), refs),
		refs:       refs,
		sink:       collector,
		sourcePath: sourcePath,
	}

	// Finalize runs once for every extension whose Initialize returned, even
	// when the traversal fails or panics.
	docLine := ir.SourceLine{File: sourcePath}
	var initialized []extension.Extension
	finalize := func() {
		for _, ext := range initialized {
			c.guard(ext.Namespace(), docLine, ext.Finalize)
		}
		initialized = nil
	}
	defer finalize()
	for _, ext := range cm.registry.Extensions() {
		if c.guard(ext.Namespace(), docLine, func() { ext.Initialize(c) }) {
			initialized = append(initialized, ext)
		}
	}

	root := doc.Root()
	switch {
	case root == nil:
		collector.OnMessage(diag.InvalidDocumentElement(ir.SourceLine{File: sourcePath}, "", ""))
	case root.Tag != "Wix" || root.NamespaceURI() != Namespace:
		collector.OnMessage(diag.InvalidDocumentElement(c.SourceLine(root), root.Tag, root.NamespaceURI()))
	default:
		parseWix(c, root, scope{})
	}

	if !collector.EncounteredError() {
		cm.validate(c, doc, collector)
	}
	finalize()

	if collector.EncounteredError() {
		c.logger.Info("compile failed", zap.Int("errors", collector.Errors()), zap.Int("warnings", collector.Warnings()))
		return nil, errors.Wrapf(ErrCompilationFailed, "%s: %d error(s)", sourcePath, collector.Errors())
	}

	c.logger.Debug("compile succeeded",
		zap.Int("sections", len(c.builder.Intermediate().Sections)),
		zap.Int("warnings", collector.Warnings()))
	return &Result{
		Intermediate: c.builder.Intermediate(),
		References:   refs,
		Messages:     collector.Messages(),
	}, nil
}

func (cm *Compiler) validate(c *compileContext, doc *etree.Document, sink diag.Sink) {
	if cm.opts.SuppressValidation {
		sink.OnMessage(diag.ValidationSkipped(ir.SourceLine{File: c.sourcePath}, "suppressed by configuration"))
		return
	}

	err := cm.validator.Validate(doc)
	if err == nil {
		return
	}
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		sink.OnMessage(diag.SchemaValidationFailed(verr.SourceLine(), verr.Summary(), len(verr.Violations)))
		return
	}
	// The merged schema did not build; report it against the document.
	sink.OnMessage(diag.SchemaValidationFailed(ir.SourceLine{File: c.sourcePath}, err.Error(), 1))
}

func (cm *Compiler) collectorOptions() []diag.CollectorOption {
	var opts []diag.CollectorOption
	if cm.opts.WarningsAsErrors {
		opts = append(opts, diag.WithWarningsAsErrors())
	}
	if cm.opts.Verbose {
		opts = append(opts, diag.WithVerbose())
	}
	if len(cm.opts.SuppressWarnings) > 0 {
		codes := make([]diag.Code, len(cm.opts.SuppressWarnings))
		for i, code := range cm.opts.SuppressWarnings {
			codes[i] = diag.Code(strings.ToUpper(code))
		}
		opts = append(opts, diag.WithSuppressedWarnings(codes...))
	}
	return opts
}

var coreSchema = sync.OnceValue(func() []byte {
	return generateSchema(grammar)
})

// CoreSchema returns the XSD generated from the core element grammar.
func CoreSchema() []byte {
	return coreSchema()
}
