// Package tools defines the callable tools the agent may invoke and the
// registry that hands them to the model.
package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

// Tool is a named, described, schema-typed function the model can call.
// It is immutable once constructed.
type Tool struct {
	name        string
	description string
	parameters  *jsonschema.Schema
	schemaJSON  []byte
	invoke      func(ctx context.Context, args json.RawMessage) (string, error)
}

// ArgumentError reports model-supplied arguments that do not match the tool schema.
type ArgumentError struct {
	Tool    string
	Details []string
}

func (e *ArgumentError) Error() string {
	return "invalid arguments for tool " + e.Tool + ": " + strings.Join(e.Details, "; ")
}

// New builds a Tool from a typed function. The parameter schema is reflected
// from In; the result is passed to the model as-is when Out is a string and as
// JSON otherwise.
func New[In any, Out any](name, description string, fn func(context.Context, In) (Out, error)) (*Tool, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("tool name cannot be empty")
	}
	if strings.TrimSpace(description) == "" {
		return nil, errors.Errorf("tool %s: description cannot be empty", name)
	}
	if fn == nil {
		return nil, errors.Errorf("tool %s: function cannot be nil", name)
	}

	reflector := jsonschema.Reflector{
		// expand definitions inline, providers do not follow $refs
		DoNotReference: true,
	}
	var zero In
	schema := reflector.Reflect(zero)
	schema.Version = ""
	schema.ID = ""
	if schema.Type == "" {
		schema.Type = "object"
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, errors.Wrapf(err, "tool %s: failed to marshal schema", name)
	}

	t := &Tool{
		name:        name,
		description: description,
		parameters:  schema,
		schemaJSON:  schemaJSON,
	}
	t.invoke = func(ctx context.Context, args json.RawMessage) (string, error) {
		var in In
		if err := json.Unmarshal(args, &in); err != nil {
			return "", &ArgumentError{Tool: name, Details: []string{err.Error()}}
		}
		out, err := fn(ctx, in)
		if err != nil {
			return "", err
		}
		if s, ok := any(out).(string); ok {
			return s, nil
		}
		data, err := json.Marshal(out)
		if err != nil {
			return "", errors.Wrapf(err, "tool %s: failed to marshal result", name)
		}
		return string(data), nil
	}
	return t, nil
}

func (t *Tool) Name() string                   { return t.name }
func (t *Tool) Description() string            { return t.description }
func (t *Tool) Parameters() *jsonschema.Schema { return t.parameters }

// ParametersJSON returns the JSON encoding of the parameter schema.
func (t *Tool) ParametersJSON() json.RawMessage {
	out := make(json.RawMessage, len(t.schemaJSON))
	copy(out, t.schemaJSON)
	return out
}

// Validate checks args against the parameter schema.
func (t *Tool) Validate(args json.RawMessage) error {
	if len(strings.TrimSpace(string(args))) == 0 {
		args = json.RawMessage(`{}`)
	}
	if !json.Valid(args) {
		return &ArgumentError{Tool: t.name, Details: []string{"arguments are not valid JSON"}}
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(t.schemaJSON),
		gojsonschema.NewBytesLoader(args),
	)
	if err != nil {
		return errors.Wrapf(err, "tool %s: schema validation failed", t.name)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			details = append(details, re.String())
		}
		return &ArgumentError{Tool: t.name, Details: details}
	}
	return nil
}

// Invoke validates args and runs the tool.
func (t *Tool) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	if len(strings.TrimSpace(string(args))) == 0 {
		args = json.RawMessage(`{}`)
	}
	if err := t.Validate(args); err != nil {
		return "", err
	}
	return t.invoke(ctx, args)
}
