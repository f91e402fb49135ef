package intent

import "time"

// Status is the aggregate outcome of an execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailure Status = "failure"
)

// Operation is the outcome of one backend step.
type Operation struct {
	Step    string `json:"step" yaml:"step"`
	Service string `json:"service,omitempty" yaml:"service,omitempty"`
	Success bool   `json:"success" yaml:"success"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ExecutionResult is what the executor returns for a resolved intent.
type ExecutionResult struct {
	Status     Status      `json:"status" yaml:"status"`
	Operations []Operation `json:"operations" yaml:"operations"`
	Message    string      `json:"message" yaml:"message"`
	Data       any         `json:"data,omitempty" yaml:"data,omitempty"`
}

// StatusOf aggregates per-operation outcomes: SUCCESS when every operation
// succeeded, PARTIAL when some did, FAILURE when none did or there were none.
func StatusOf(ops []Operation) Status {
	succeeded := 0
	for _, op := range ops {
		if op.Success {
			succeeded++
		}
	}
	switch {
	case len(ops) == 0 || succeeded == 0:
		return StatusFailure
	case succeeded == len(ops):
		return StatusSuccess
	default:
		return StatusPartial
	}
}

// NewResult builds a result whose status is derived from ops.
func NewResult(ops []Operation, message string, data any) ExecutionResult {
	if ops == nil {
		ops = []Operation{}
	}
	return ExecutionResult{
		Status:     StatusOf(ops),
		Operations: ops,
		Message:    message,
		Data:       data,
	}
}

// Failed builds a single-operation FAILURE result.
func Failed(step, service string, err error, message string) ExecutionResult {
	op := Operation{Step: step, Service: service}
	if err != nil {
		op.Error = err.Error()
	}
	return NewResult([]Operation{op}, message, nil)
}

// Succeeded counts the successful operations.
func (r ExecutionResult) Succeeded() int {
	n := 0
	for _, op := range r.Operations {
		if op.Success {
			n++
		}
	}
	return n
}

// ServiceInfo describes one configured backend.
type ServiceInfo struct {
	Name       string      `json:"name" yaml:"name"`
	Kind       string      `json:"kind" yaml:"kind"`
	URL        string      `json:"url" yaml:"url"`
	MediaTypes []MediaType `json:"mediaTypes" yaml:"mediaTypes"`
	Available  bool        `json:"available" yaml:"available"`
	Version    string      `json:"version,omitempty" yaml:"version,omitempty"`
	Error      string      `json:"error,omitempty" yaml:"error,omitempty"`
	CheckedAt  *time.Time  `json:"checkedAt,omitempty" yaml:"checkedAt,omitempty"`
}

