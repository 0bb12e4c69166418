// Package dispatch provides the declarative resource/operation/field
// framework multi-operation nodes delegate to. A node declares resources,
// each with operations, each with typed fields; the dispatcher validates
// supplied parameters against the declaration, applies defaults, and routes
// to the registered executor.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weftwork/weft/pkg/models"
)

// Executor performs one operation with validated, defaulted parameters and an
// optional resolved credential.
type Executor func(ctx context.Context, ectx models.ExecutionContext, params, credential map[string]any) (map[string]any, error)

// Resource groups related operations.
type Resource struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

// Operation is one API-like action a node exposes.
type Operation struct {
	Name               string  `json:"name"`
	DisplayName        string  `json:"display_name"`
	Description        string  `json:"description,omitempty"`
	Resource           string  `json:"resource"`
	Fields             []Field `json:"fields,omitempty"`
	RequiresCredential bool    `json:"requires_credential,omitempty"`
}

// Dispatcher routes (resource, operation) pairs to executors. Register
// everything up front; Dispatch is safe for concurrent use afterwards.
type Dispatcher struct {
	logger     *slog.Logger
	resources  map[string]Resource
	operations map[string]map[string]Operation
	executors  map[string]Executor
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		logger:     logger.With("module", "dispatch"),
		resources:  make(map[string]Resource),
		operations: make(map[string]map[string]Operation),
		executors:  make(map[string]Executor),
	}
}

// RegisterResource declares a resource. Operations registered for an
// undeclared resource fail.
func (d *Dispatcher) RegisterResource(r Resource) {
	d.resources[r.Name] = r
}

// Register binds an operation to its executor.
func (d *Dispatcher) Register(op Operation, fn Executor) error {
	if _, ok := d.resources[op.Resource]; !ok {
		return fmt.Errorf("unknown resource %q for operation %q", op.Resource, op.Name)
	}

	ops, ok := d.operations[op.Resource]
	if !ok {
		ops = make(map[string]Operation)
		d.operations[op.Resource] = ops
	}

	ops[op.Name] = op
	d.executors[op.Resource+"."+op.Name] = fn

	return nil
}

// Dispatch resolves and runs one operation. Validation failures and executor
// errors are wrapped into failure results; the raw error never escapes this
// boundary.
func (d *Dispatcher) Dispatch(ctx context.Context, ectx models.ExecutionContext, resource, operation string, params, credential map[string]any) models.ExecutionResult {
	if resource == "" {
		return models.Failure("resource not selected")
	}

	if operation == "" {
		return models.Failure("operation not selected")
	}

	if _, ok := d.resources[resource]; !ok {
		return models.Failuref("unknown resource: %s", resource)
	}

	op, ok := d.operations[resource][operation]
	if !ok {
		return models.Failuref("unknown operation: %s for resource: %s", operation, resource)
	}

	validated, err := ValidateParams(op.Fields, params)
	if err != nil {
		return models.Failure(err.Error())
	}

	executor := d.executors[resource+"."+operation]

	d.logger.DebugContext(ctx, "dispatching operation",
		"resource", resource, "operation", operation, "params", len(validated))

	return d.run(ctx, ectx, executor, validated, credential)
}

// run invokes the executor, converting panics and errors into failure
// results.
func (d *Dispatcher) run(ctx context.Context, ectx models.ExecutionContext, executor Executor, params, credential map[string]any) (result models.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "operation executor panicked", "panic", r)

			result = models.Failuref("operation failed: %v", r)
		}
	}()

	output, err := executor(ctx, ectx, params, credential)
	if err != nil {
		return models.Failuref("operation failed: %v", err)
	}

	return models.Success(output)
}

// Resources returns the declared resources.
func (d *Dispatcher) Resources() []Resource {
	out := make([]Resource, 0, len(d.resources))
	for _, r := range d.resources {
		out = append(out, r)
	}

	return out
}

// Operations returns the operations declared for a resource.
func (d *Dispatcher) Operations(resource string) []Operation {
	ops := d.operations[resource]

	out := make([]Operation, 0, len(ops))
	for _, op := range ops {
		out = append(out, op)
	}

	return out
}

// Schema renders the declared resources, operations, and fields as a single
// configuration schema: resource and operation selectors plus the union of
// all operation fields.
func (d *Dispatcher) Schema() *models.JSONSchema {
	properties := map[string]*models.Property{}

	resourceNames := make([]any, 0, len(d.resources))
	for name := range d.resources {
		resourceNames = append(resourceNames, name)
	}

	properties["resource"] = &models.Property{Type: "string", Title: "Resource", Enum: resourceNames}

	var opNames []any

	for _, ops := range d.operations {
		for name := range ops {
			opNames = append(opNames, name)
		}
	}

	properties["operation"] = &models.Property{Type: "string", Title: "Operation", Enum: opNames}

	for _, ops := range d.operations {
		for _, op := range ops {
			for _, field := range op.Fields {
				if _, exists := properties[field.Name]; !exists {
					properties[field.Name] = field.toProperty()
				}
			}
		}
	}

	return &models.JSONSchema{
		Type:       "object",
		Properties: properties,
		Required:   []string{"resource", "operation"},
	}
}
