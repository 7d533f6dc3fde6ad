package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BaSui01/toolflow/contract"
	"github.com/BaSui01/toolflow/types"
)

// Func is the execution function of a tool. It receives the input after
// contract validation, with defaults filled and numbers as float64.
type Func func(ctx context.Context, input map[string]any) (any, error)

// Definition describes a tool before construction.
type Definition struct {
	ID          string
	Description string
	Input       *contract.Descriptor
	Output      *contract.Descriptor
	Execute     Func
}

// Summary is the advertised view of a tool.
type Summary struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Tool is an immutable, validated unit of work. Safe for concurrent use.
type Tool struct {
	id          string
	description string
	input       *contract.Descriptor
	output      *contract.Descriptor
	execute     Func
}

// New validates def and builds a Tool. Descriptors are deep-copied so later
// changes to def have no effect.
func New(def Definition) (*Tool, error) {
	id := strings.TrimSpace(def.ID)
	if id == "" {
		return nil, types.NewError(types.ErrMalformedContract, "tool id must not be empty")
	}
	if def.Execute == nil {
		return nil, types.NewError(types.ErrMalformedContract, "tool has no execute function").WithToolID(id)
	}
	if def.Input == nil || def.Input.Kind != contract.KindObject {
		return nil, types.NewError(types.ErrMalformedContract, "input contract must be an object descriptor").WithToolID(id)
	}
	if err := contract.Check(def.Input); err != nil {
		return nil, types.NewError(types.ErrMalformedContract, "invalid input contract").WithToolID(id).WithCause(err)
	}
	if def.Output != nil {
		if err := contract.Check(def.Output); err != nil {
			return nil, types.NewError(types.ErrMalformedContract, "invalid output contract").WithToolID(id).WithCause(err)
		}
	}

	return &Tool{
		id:          id,
		description: def.Description,
		input:       def.Input.Clone(),
		output:      def.Output.Clone(),
		execute:     def.Execute,
	}, nil
}

// MustNew is like New but panics on error. Intended for package-level tool tables.
func MustNew(def Definition) *Tool {
	t, err := New(def)
	if err != nil {
		panic(err)
	}
	return t
}

// ID returns the tool id.
func (t *Tool) ID() string { return t.id }

// Description returns the human-readable description.
func (t *Tool) Description() string { return t.description }

// Input returns a copy of the input contract.
func (t *Tool) Input() *contract.Descriptor { return t.input.Clone() }

// Output returns a copy of the output contract, or nil when unconstrained.
func (t *Tool) Output() *contract.Descriptor { return t.output.Clone() }

// Summary returns the advertised view of the tool.
func (t *Tool) Summary() Summary {
	return Summary{ID: t.id, Description: t.description}
}

// Invoke runs validate -> execute -> validate. Failures are returned as
// *ContractViolation or *ExecutionError; a panic in Execute is recovered
// into an *ExecutionError.
func (t *Tool) Invoke(ctx context.Context, raw any) (any, error) {
	in := contract.Validate(raw, t.input)
	if !in.Valid() {
		return nil, &ContractViolation{ToolID: t.id, Stage: StageInput, Violations: in.Violations}
	}

	input, _ := in.Value.(map[string]any)
	result, err := t.run(ctx, input)
	if err != nil {
		return nil, &ExecutionError{ToolID: t.id, Cause: err}
	}

	if t.output == nil {
		return result, nil
	}
	out := contract.Validate(result, t.output)
	if !out.Valid() {
		return nil, &ContractViolation{ToolID: t.id, Stage: StageOutput, Violations: out.Violations}
	}
	return out.Value, nil
}

func (t *Tool) run(ctx context.Context, input map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.execute(ctx, input)
}

// Stage names the contract check that failed.
type Stage string

const (
	StageInput  Stage = "input"
	StageOutput Stage = "output"
)

// ContractViolation reports that a tool's input or output broke its contract.
type ContractViolation struct {
	ToolID     string
	Stage      Stage
	Violations []contract.Violation
}

// Error implements the error interface.
func (e *ContractViolation) Error() string {
	return fmt.Sprintf("tool %s %s contract violated: %s", e.ToolID, e.Stage, contract.FormatViolations(e.Violations))
}

// ErrorCode classifies the error as CONTRACT_VIOLATION.
func (e *ContractViolation) ErrorCode() types.ErrorCode { return types.ErrContractViolation }

// ExecutionError reports that a tool's execute function failed.
type ExecutionError struct {
	ToolID string
	Cause  error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s execution failed: %v", e.ToolID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error { return e.Cause }

// ErrorCode classifies the error as TOOL_EXECUTION_ERROR.
func (e *ExecutionError) ErrorCode() types.ErrorCode { return types.ErrToolExecution }

// FailedToolID returns the tool id carried by a tool error, if any.
func FailedToolID(err error) (string, bool) {
	var cv *ContractViolation
	if errors.As(err, &cv) {
		return cv.ToolID, true
	}
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.ToolID, true
	}
	var te *types.Error
	if errors.As(err, &te) && te.ToolID != "" {
		return te.ToolID, true
	}
	return "", false
}
