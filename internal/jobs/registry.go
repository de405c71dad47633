package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	util "github.com/spec-kit/quotation-service/pkg/util"
)

// HandlerFunc processes one validated job payload. Collaborators are closed
// over at registration time; there is no handler class hierarchy.
type HandlerFunc func(ctx context.Context, env Envelope) error

// Registration pairs a payload schema with its handler. Both are mandatory;
// a kind missing either fails registry construction.
type Registration struct {
	SchemaJSON string
	Handler    HandlerFunc
}

type registration struct {
	schema  *gojsonschema.Schema
	handler HandlerFunc
}

// Registry is the static kind → (schema, handler) mapping.
type Registry struct {
	entries map[Kind]registration
}

// NewRegistry compiles every schema and verifies each kind has both a schema
// and a handler. Misconfiguration is a startup error, not a runtime one.
func NewRegistry(specs map[Kind]Registration) (*Registry, error) {
	entries := make(map[Kind]registration, len(specs))
	for kind, spec := range specs {
		if spec.SchemaJSON == "" {
			return nil, fmt.Errorf("job kind %s registered without a schema", kind)
		}
		if spec.Handler == nil {
			return nil, fmt.Errorf("job kind %s registered without a handler", kind)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(spec.SchemaJSON))
		if err != nil {
			return nil, fmt.Errorf("compile schema for job kind %s: %w", kind, err)
		}
		entries[kind] = registration{schema: schema, handler: spec.Handler}
	}
	return &Registry{entries: entries}, nil
}

// Validate checks the envelope payload against the kind's schema.
// Returns UnknownJobKind or SchemaViolation; both are permanent failures.
func (r *Registry) Validate(env Envelope) error {
	entry, ok := r.entries[env.Kind]
	if !ok {
		return util.NewUnknownJobKind(string(env.Kind))
	}
	result, err := entry.schema.Validate(gojsonschema.NewBytesLoader(env.Payload))
	if err != nil {
		// not even parseable JSON
		return util.NewSchemaViolation(string(env.Kind), map[string]any{"error": err.Error()})
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return util.NewSchemaViolation(string(env.Kind), map[string]any{"violations": details})
	}
	return nil
}

// Handler resolves the handler for a kind.
func (r *Registry) Handler(kind Kind) (HandlerFunc, error) {
	entry, ok := r.entries[kind]
	if !ok {
		return nil, util.NewUnknownJobKind(string(kind))
	}
	return entry.handler, nil
}

// Kinds lists the registered job kinds.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.entries))
	for kind := range r.entries {
		kinds = append(kinds, kind)
	}
	return kinds
}

// DecodePayload unmarshals an envelope payload into the typed struct.
func DecodePayload[T any](env Envelope) (T, error) {
	var payload T
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return payload, util.NewSchemaViolation(string(env.Kind), map[string]any{"error": err.Error()})
	}
	return payload, nil
}
