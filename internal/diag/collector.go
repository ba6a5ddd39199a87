package diag

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithWarningsAsErrors escalates every warning to error severity.
func WithWarningsAsErrors() CollectorOption {
	return func(c *Collector) { c.warningsAsErrors = true }
}

// WithSuppressedWarnings drops warnings with the given codes.
func WithSuppressedWarnings(codes ...Code) CollectorOption {
	return func(c *Collector) {
		for _, code := range codes {
			c.suppressed[code] = true
		}
	}
}

// WithVerbose keeps verbose messages; by default they are dropped.
func WithVerbose() CollectorOption {
	return func(c *Collector) { c.verbose = true }
}

// Collector accumulates the diagnostics of one compile and forwards each
// kept message downstream. It is per-call state and is not safe for
// concurrent use.
type Collector struct {
	downstream       Sink
	messages         []Message
	errors           int
	warnings         int
	warningsAsErrors bool
	verbose          bool
	suppressed       map[Code]bool
}

// NewCollector creates a collector forwarding to downstream (may be nil).
func NewCollector(downstream Sink, opts ...CollectorOption) *Collector {
	c := &Collector{downstream: downstream, suppressed: make(map[Code]bool)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnMessage implements Sink.
func (c *Collector) OnMessage(m Message) {
	switch m.Severity {
	case SeverityVerbose:
		if !c.verbose {
			return
		}
	case SeverityWarning:
		if c.suppressed[m.Code] {
			return
		}
		if c.warningsAsErrors {
			m.Severity = SeverityError
		}
	}

	switch m.Severity {
	case SeverityError:
		c.errors++
	case SeverityWarning:
		c.warnings++
	}
	c.messages = append(c.messages, m)
	if c.downstream != nil {
		c.downstream.OnMessage(m)
	}
}

// EncounteredError reports whether any error-severity message was kept.
func (c *Collector) EncounteredError() bool {
	return c.errors > 0
}

// Errors returns the number of error-severity messages.
func (c *Collector) Errors() int {
	return c.errors
}

// Warnings returns the number of warning-severity messages.
func (c *Collector) Warnings() int {
	return c.warnings
}

// Messages returns the kept messages in arrival order.
func (c *Collector) Messages() []Message {
	return append([]Message(nil), c.messages...)
}

// Codes returns the codes of the kept messages in arrival order.
func (c *Collector) Codes() []Code {
	codes := make([]Code, len(c.messages))
	for i, m := range c.messages {
		codes[i] = m.Code
	}
	return codes
}
