package steps

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ginjaninja78/epcis-tracelink/internal/masterdata"
	"github.com/ginjaninja78/epcis-tracelink/internal/rules"
)

// Registered step class names, as referenced by rule configuration files.
const (
	ClassOutputParsingStep = "tracelink.OutputParsingStep"
	ClassOutputStep        = "tracelink.OutputStep"
)

// Deps carries the shared dependencies injected into constructed steps.
type Deps struct {
	Repo   masterdata.Repository
	Logger *zap.Logger
}

// Build instantiates a step by its registered class name.
func Build(class string, params rules.Params, deps Deps) (rules.Step, error) {
	switch class {
	case ClassOutputParsingStep:
		return NewOutputParsingStep(params, deps.Logger), nil
	case ClassOutputStep:
		return NewOutputStep(params, deps.Repo, deps.Logger)
	default:
		return nil, fmt.Errorf("unknown step class %q", class)
	}
}
