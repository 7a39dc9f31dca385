// Package paramshape provides optional strict-mode validation of
// object-form params against a per-MethodEntry JSON Schema (spec.md S4.3's
// kind-compatibility table, strict mode). Grounded on the teacher's
// internal/schema.Validator: a compiler built once at startup, a map of
// compiled schemas keyed by name, validated many times per request.
// Simplified here to one schema per method rather than the teacher's
// generic-message-type fallback chain, since each MethodEntry already
// knows exactly which schema applies.
// file: internal/contract/paramshape/paramshape.go
package paramshape

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator compiles and caches per-method JSON schemas and validates
// candidate params objects against them.
type Validator struct {
	compiler *jsonschema.Compiler

	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// New builds an empty Validator using JSON Schema draft 2020-12, matching
// the teacher's compiler configuration.
func New() *Validator {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	return &Validator{compiler: compiler, schemas: make(map[string]*jsonschema.Schema)}
}

// Register compiles schemaJSON and associates it with methodName. Call
// this once per method at contract-build time; Validate is the hot path.
func (v *Validator) Register(methodName string, schemaJSON []byte) error {
	resourceID := "paramshape://" + methodName

	var doc interface{}
	if err := json.Unmarshal(schemaJSON, &doc); err != nil {
		return errors.Wrapf(err, "paramshape: invalid schema JSON for method %q", methodName)
	}
	if err := v.compiler.AddResource(resourceID, bytes.NewReader(schemaJSON)); err != nil {
		return errors.Wrapf(err, "paramshape: failed to add schema resource for method %q", methodName)
	}
	compiled, err := v.compiler.Compile(resourceID)
	if err != nil {
		return errors.Wrapf(err, "paramshape: failed to compile schema for method %q", methodName)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.schemas[methodName] = compiled
	return nil
}

// HasSchema reports whether methodName has a registered schema.
func (v *Validator) HasSchema(methodName string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.schemas[methodName]
	return ok
}

// Validate checks params (already decoded into a generic interface{}
// shape, typically map[string]interface{}) against methodName's schema.
// Methods with no registered schema always validate successfully: schema
// validation is opt-in per spec.md S4.3.
func (v *Validator) Validate(methodName string, params interface{}) error {
	v.mu.RLock()
	schema, ok := v.schemas[methodName]
	v.mu.RUnlock()
	if !ok {
		return nil
	}

	if err := schema.Validate(params); err != nil {
		var valErr *jsonschema.ValidationError
		if errors.As(err, &valErr) {
			return errors.Wrapf(valErr, "paramshape: params for %q do not match schema", methodName)
		}
		return errors.Wrapf(err, "paramshape: validation error for %q", methodName)
	}
	return nil
}
