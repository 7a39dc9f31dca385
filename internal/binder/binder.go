// Package binder implements spec.md S4.3's candidate matching and argument
// marshaling: given a ServerContract overload set and a decoded Request,
// it picks the one compatible MethodEntry (or reports InvalidRequest for
// ambiguity, MethodNotFound for no match) and produces the bound argument
// vector the invoker calls Body with. Grounded on the teacher's
// internal/middleware validation pipeline's separation of "identify shape"
// from "validate against schema" (internal/middleware/validation_identify.go,
// validation_schema.go), generalized from schema lookup to overload
// resolution.
// file: internal/binder/binder.go
package binder

import (
	"encoding/json"

	"github.com/dkoosis/jsonrpc2go/internal/contract"
	"github.com/dkoosis/jsonrpc2go/internal/rpcerr"
)

// CancellationHandle is the ambient value injected into any parameter
// marked IsCancellationHandle, rather than read from the wire (spec.md
// S4.3). Concretely this is the per-request context.Context, but binder
// stays decoupled from the context package's import so callers can pass
// whatever capability object the dispatcher uses.
type CancellationHandle = interface{}

// Bound is the result of a successful bind: the chosen method and its
// ready-to-invoke argument vector, in Parameters order.
type Bound struct {
	Method contract.MethodEntry
	Args   []interface{}
}

// Bind resolves rawParams (the Request's raw `params` JSON, possibly nil)
// against the overload set for methodName, returning the chosen method and
// its argument vector, or a rpcerr-tagged error (MethodNotFound /
// InvalidRequest / InvalidParams).
func Bind(c *contract.ServerContract, methodName string, rawParams json.RawMessage, cancellationHandle CancellationHandle) (*Bound, error) {
	entries, ok := c.Lookup(methodName)
	if !ok || len(entries) == 0 {
		return nil, rpcerr.Newf(rpcerr.CategoryMethod, rpcerr.CodeMethodNotFound, "method not found: %s", methodName)
	}

	decoded, decodeErr := decodeParams(rawParams)
	if decodeErr != nil {
		return nil, rpcerr.Wrap(decodeErr, rpcerr.CategoryParams, rpcerr.CodeInvalidParams, "failed to decode params")
	}

	// A method with no overloads never needs kind-based disambiguation, but
	// the extra-parameter policy is still a selection veto (spec.md S4.3,
	// S8): an unrecognized object key or an over-long array rejects the
	// call outright rather than falling through to bindArgs, where a
	// missing-parameter/wrong-kind failure instead reports the precise
	// InvalidParams diagnostic bindArgs produces for the only candidate
	// that exists.
	if len(entries) == 1 {
		if exceedsDeclaredParams(entries[0], decoded) {
			return nil, rpcerr.Newf(rpcerr.CategoryMethod, rpcerr.CodeMethodNotFound,
				"no overload of %q accepts the given params shape", methodName)
		}
		return finalize(c, entries[0], decoded, cancellationHandle)
	}

	// Candidate matching is two phases (spec.md S4.3, S8): shape first
	// (arity / name presence / extra-parameter policy), then kind, so
	// same-arity overloads that differ only in parameter kind (e.g.
	// add(int,int) vs add(string,string)) disambiguate on kind rather than
	// both surviving to the ambiguity count.
	var shapeCandidates, kindCandidates []contract.MethodEntry
	for _, entry := range entries {
		if !shapeMatches(entry, decoded) {
			continue
		}
		shapeCandidates = append(shapeCandidates, entry)
		if kindMatches(entry, decoded) {
			kindCandidates = append(kindCandidates, entry)
		}
	}

	switch len(kindCandidates) {
	case 1:
		return finalize(c, kindCandidates[0], decoded, cancellationHandle)
	case 0:
		if len(shapeCandidates) == 1 {
			return finalize(c, shapeCandidates[0], decoded, cancellationHandle)
		}
		return nil, rpcerr.Newf(rpcerr.CategoryMethod, rpcerr.CodeMethodNotFound,
			"no overload of %q accepts the given params shape", methodName)
	default:
		return nil, rpcerr.Newf(rpcerr.CategoryRequest, rpcerr.CodeInvalidRequest,
			"ambiguous call to %q: %d overloads match", methodName, len(kindCandidates))
	}
}

// finalize runs entry's opt-in JSON Schema check (spec.md S4.3 strict mode)
// against a by-name call's params object, then produces the bound argument
// vector. Array-form calls, null params, and methods with no registered
// ParamSchema skip the schema check entirely — it supplements
// ParameterEntry's per-parameter kind compatibility, it never replaces it.
func finalize(c *contract.ServerContract, entry contract.MethodEntry, d decoded, cancellationHandle CancellationHandle) (*Bound, error) {
	if v := c.Validator(); v != nil && len(entry.ParamSchema) > 0 && !d.wasArray && !d.isNull && v.HasSchema(entry.RPCName) {
		if err := v.Validate(entry.RPCName, d.object); err != nil {
			return nil, rpcerr.Wrap(err, rpcerr.CategoryParams, rpcerr.CodeInvalidParams, "params failed schema validation")
		}
	}

	args, err := bindArgs(entry, d, cancellationHandle)
	if err != nil {
		return nil, err
	}
	return &Bound{Method: entry, Args: args}, nil
}

// decoded is the generic shape params decodes to: either a by-name object,
// a by-position array, or nil (parameterless / omitted / null).
type decoded struct {
	object   map[string]interface{}
	array    []interface{}
	wasArray bool
	isNull   bool
}

func decodeParams(raw json.RawMessage) (decoded, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return decoded{isNull: true}, nil
	}

	var asArray []interface{}
	if err := json.Unmarshal(raw, &asArray); err == nil {
		return decoded{array: asArray, wasArray: true}, nil
	}

	var asObject map[string]interface{}
	if err := json.Unmarshal(raw, &asObject); err == nil {
		return decoded{object: asObject}, nil
	}

	return decoded{}, rpcerr.New(rpcerr.CategoryParams, rpcerr.CodeInvalidParams, "params must be an object, array, or omitted")
}

// shapeMatches reports whether entry's parameter shape — arity, by-name
// presence, and AllowExtraParams policy — is satisfiable by decoded,
// ignoring kind compatibility entirely. This is candidate matching's first
// phase (spec.md S4.3): which overloads could possibly bind at all.
// AllowExtraParams governs whether an object key with no declared parameter,
// or an array longer than the declared parameter count, rules out entry
// (spec.md S4.3, S8).
func shapeMatches(entry contract.MethodEntry, d decoded) bool {
	bindable := bindableParams(entry)

	if len(bindable) == 0 {
		if d.isNull {
			return true
		}
		if d.wasArray {
			return entry.AllowExtraParams || len(d.array) == 0
		}
		return entry.AllowExtraParams || len(d.object) == 0
	}

	if d.isNull {
		return allRequiredOptional(bindable)
	}

	if exceedsDeclaredParams(entry, d) {
		return false
	}

	if d.wasArray {
		for _, p := range bindable {
			if p.Position >= len(d.array) && !p.Optional {
				return false
			}
		}
		return true
	}

	for _, p := range bindable {
		if _, ok := d.object[p.Name]; !ok && !p.Optional {
			return false
		}
	}
	return true
}

// exceedsDeclaredParams reports whether d carries more information than
// entry declares and entry disallows that (spec.md S4.3, S8): an object key
// with no matching ParameterEntry, or an array longer than the declared
// parameter count. AllowExtraParams=true disables this veto entirely.
func exceedsDeclaredParams(entry contract.MethodEntry, d decoded) bool {
	if entry.AllowExtraParams {
		return false
	}
	bindable := bindableParams(entry)
	if d.wasArray {
		return len(d.array) > len(bindable)
	}
	if d.object == nil {
		return false
	}
	declared := make(map[string]bool, len(bindable))
	for _, p := range bindable {
		declared[p.Name] = true
	}
	for key := range d.object {
		if !declared[key] {
			return true
		}
	}
	return false
}

// kindMatches reports whether every parameter of entry that is actually
// present in d is kind-compatible with its declared Family (spec.md S4.3).
// It is candidate matching's second phase, evaluated only on entries
// shapeMatches already accepts, and is what disambiguates same-arity
// overloads that differ only in parameter kind — e.g. spec.md S8's
// add(int,int) vs add(string,string) scenario, called with ["ab","cdef"].
func kindMatches(entry contract.MethodEntry, d decoded) bool {
	if d.isNull {
		return true
	}
	for _, p := range bindableParams(entry) {
		raw, ok := lookupValue(p, d)
		if !ok {
			continue
		}
		if !compatible(p.Family, raw) {
			return false
		}
	}
	return true
}

// bindableParams returns entry's non-cancellation parameters, in
// declaration order.
func bindableParams(entry contract.MethodEntry) []contract.ParameterEntry {
	bindable := make([]contract.ParameterEntry, 0, len(entry.Parameters))
	for _, p := range entry.Parameters {
		if p.IsCancellationHandle {
			continue
		}
		bindable = append(bindable, p)
	}
	return bindable
}

func allRequiredOptional(params []contract.ParameterEntry) bool {
	for _, p := range params {
		if !p.Optional {
			return false
		}
	}
	return true
}

// bindArgs produces the final argument vector for entry given decoded
// params, applying defaults, running Converters, injecting the
// cancellation handle, and enforcing family compatibility.
func bindArgs(entry contract.MethodEntry, d decoded, cancellationHandle CancellationHandle) ([]interface{}, error) {
	args := make([]interface{}, len(entry.Parameters))

	for i, p := range entry.Parameters {
		if p.IsCancellationHandle {
			args[i] = cancellationHandle
			continue
		}

		raw, present := lookupValue(p, d)
		if !present {
			if p.Optional {
				args[i] = p.Default
				continue
			}
			return nil, rpcerr.Newf(rpcerr.CategoryParams, rpcerr.CodeInvalidParams, "missing required parameter %q", p.Name)
		}

		if !compatible(p.Family, raw) {
			return nil, rpcerr.Newf(rpcerr.CategoryParams, rpcerr.CodeInvalidParams,
				"parameter %q does not match expected kind", p.Name)
		}

		if p.Convert != nil {
			converted, err := p.Convert(raw)
			if err != nil {
				return nil, rpcerr.Wrapf(err, rpcerr.CategoryParams, rpcerr.CodeInvalidParams, "parameter %q conversion failed", p.Name)
			}
			args[i] = converted
			continue
		}
		args[i] = raw
	}

	return args, nil
}

func lookupValue(p contract.ParameterEntry, d decoded) (interface{}, bool) {
	if d.isNull {
		return nil, false
	}
	if d.wasArray {
		if p.Position < len(d.array) {
			return d.array[p.Position], true
		}
		return nil, false
	}
	v, ok := d.object[p.Name]
	return v, ok
}

// compatible checks raw against family per the kind-compatibility table
// (spec.md S4.3). FamilyAny and FamilyCancellationHandle (unreachable here
// since those are injected) always match.
func compatible(family contract.TypeFamily, raw interface{}) bool {
	if raw == nil {
		return true // Null is compatible with every family; a Convert func may reject it.
	}
	switch family {
	case contract.FamilyAny:
		return true
	case contract.FamilyString:
		_, ok := raw.(string)
		return ok
	case contract.FamilyInteger, contract.FamilyFloat:
		_, ok := raw.(float64) // encoding/json decodes all JSON numbers to float64.
		return ok
	case contract.FamilyBool:
		_, ok := raw.(bool)
		return ok
	case contract.FamilyObject:
		_, ok := raw.(map[string]interface{})
		return ok
	case contract.FamilySlice:
		_, ok := raw.([]interface{})
		return ok
	default:
		return true
	}
}
