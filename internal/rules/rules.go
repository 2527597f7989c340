// =============================================================================
// TraceLink EPCIS Steps - Rule Execution Contract
// =============================================================================
//
// The minimal slice of the host rule-execution framework the steps consume:
// a Step contract, the shared mutable context with its well-known keys, and
// parameter lookup. The Rule type runs steps sequentially in a single
// goroutine; any step error aborts the remainder of the execution and
// propagates to the caller. No retries happen at this layer.
//
// Each execution constructs its own context; no state crosses executions.
//
// =============================================================================

package rules

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ginjaninja78/epcis-tracelink/internal/epcis"
)

// Well-known context keys shared between steps in a rule.
const (
	ObjectEventsKey      = "OBJECT_EVENTS"
	AggregationEventsKey = "AGGREGATION_EVENTS"
	FilteredEventsKey    = "FILTERED_EVENTS"
	OutboundMessageKey   = "OUTBOUND_EPCIS_MESSAGE"
	SenderGLNKey         = "SENDER_GLN"
	ReceiverGLNKey       = "RECEIVER_GLN"

	// DeclaredReceiverGLNKey carries a receiver GLN declared inside the
	// inbound message itself (vendor extension), as opposed to one resolved
	// from master data.
	DeclaredReceiverGLNKey = "DECLARED_RECEIVER_GLN"
)

// Context is the shared mutable state passed through a rule execution.
type Context struct {
	Keys map[string]any
}

// NewContext returns an empty rule context.
func NewContext() *Context {
	return &Context{Keys: make(map[string]any)}
}

// Events returns the event list stored under key, or nil.
func (c *Context) Events(key string) []*epcis.Event {
	if events, ok := c.Keys[key].([]*epcis.Event); ok {
		return events
	}
	return nil
}

// SetEvents stores an event list under key.
func (c *Context) SetEvents(key string, events []*epcis.Event) {
	c.Keys[key] = events
}

// String returns the string stored under key, or "".
func (c *Context) String(key string) string {
	if s, ok := c.Keys[key].(string); ok {
		return s
	}
	return ""
}

// Step is the execution contract the host framework drives. Implementations
// receive the raw inbound message and the shared context.
type Step interface {
	Execute(data []byte, rc *Context) error
}

// Params is the parameter storage attached to a configured step.
type Params map[string]string

// Get returns the named parameter or def when unset.
func (p Params) Get(name, def string) string {
	if v, ok := p[name]; ok && v != "" {
		return v
	}
	return def
}

// GetRequired returns the named parameter or an error when unset.
func (p Params) GetRequired(name string) (string, error) {
	if v, ok := p[name]; ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("required step parameter %q is not configured", name)
}

// GetBool interprets the named parameter as a boolean. Only the literals
// "true" and "True" (and their case variants) count as true, matching the
// behavior rule authors already rely on.
func (p Params) GetBool(name string, def bool) bool {
	v, ok := p[name]
	if !ok || v == "" {
		return def
	}
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

// Rule is an ordered list of steps executed against one inbound message.
type Rule struct {
	Name   string
	Steps  []Step
	Logger *zap.Logger
}

// Execute runs the rule's steps in order against data, returning the context
// the steps populated. The first step error aborts the execution.
func (r *Rule) Execute(data []byte) (*Context, error) {
	rc := NewContext()
	for i, step := range r.Steps {
		if err := step.Execute(data, rc); err != nil {
			return rc, fmt.Errorf("rule %s: step %d failed: %w", r.Name, i+1, err)
		}
	}
	return rc, nil
}
