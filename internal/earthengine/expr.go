package earthengine

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Value is one node of an Earth Engine expression graph. Nodes are built
// locally and evaluated only by the remote service.
type Value struct {
	constant   any
	isConstant bool
	invocation *invocation
	array      []*Value
	argRef     string
	definition *definition
}

type invocation struct {
	function  string
	arguments map[string]*Value
}

type definition struct {
	argumentNames []string
	body          *Value
}

func Constant(v any) *Value {
	return &Value{constant: v, isConstant: true}
}

// Invoke calls a server-side algorithm by name.
func Invoke(function string, args map[string]*Value) *Value {
	return &Value{invocation: &invocation{function: function, arguments: args}}
}

func Array(values ...*Value) *Value {
	if values == nil {
		values = []*Value{}
	}
	return &Value{array: values}
}

func ArgumentRef(name string) *Value {
	return &Value{argRef: name}
}

// Function defines a server-side lambda, used by Collection.map.
func Function(argumentNames []string, body *Value) *Value {
	return &Value{definition: &definition{argumentNames: argumentNames, body: body}}
}

// Expression is the REST wire form: a flat table of values and the id of the result.
type Expression struct {
	Result string                     `json:"result"`
	Values map[string]json.RawMessage `json:"values"`
}

// Encode flattens the graph rooted at v. Identical sub-graphs share one id,
// and ids are assigned in a fixed post-order, so the same graph always
// encodes to the same bytes.
func Encode(v *Value) (*Expression, error) {
	if v == nil {
		return nil, fmt.Errorf("encode expression: nil value")
	}

	e := &encoder{
		values: make(map[string]json.RawMessage),
		ids:    make(map[string]string),
	}
	id, err := e.register(v)
	if err != nil {
		return nil, fmt.Errorf("encode expression: %w", err)
	}

	return &Expression{Result: id, Values: e.values}, nil
}

type encoder struct {
	values map[string]json.RawMessage
	ids    map[string]string // node JSON -> id
}

func (e *encoder) register(v *Value) (string, error) {
	node, err := e.node(v)
	if err != nil {
		return "", err
	}

	key := string(node)
	if id, ok := e.ids[key]; ok {
		return id, nil
	}

	id := strconv.Itoa(len(e.values))
	e.values[id] = node
	e.ids[key] = id
	return id, nil
}

// inline returns the JSON used where v appears as an argument.
func (e *encoder) inline(v *Value) (json.RawMessage, error) {
	if v == nil {
		return json.Marshal(map[string]any{"constantValue": nil})
	}
	if v.isConstant || v.argRef != "" {
		return e.node(v)
	}

	id, err := e.register(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"valueReference": id})
}

func (e *encoder) node(v *Value) (json.RawMessage, error) {
	switch {
	case v.isConstant:
		return json.Marshal(map[string]any{"constantValue": v.constant})

	case v.argRef != "":
		return json.Marshal(map[string]string{"argumentReference": v.argRef})

	case v.array != nil:
		items := make([]json.RawMessage, len(v.array))
		for i, item := range v.array {
			raw, err := e.inline(item)
			if err != nil {
				return nil, err
			}
			items[i] = raw
		}
		return json.Marshal(map[string]any{
			"arrayValue": map[string]any{"values": items},
		})

	case v.definition != nil:
		bodyID, err := e.register(v.definition.body)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]any{
			"functionDefinitionValue": map[string]any{
				"argumentNames": v.definition.argumentNames,
				"body":          bodyID,
			},
		})

	case v.invocation != nil:
		names := make([]string, 0, len(v.invocation.arguments))
		for name := range v.invocation.arguments {
			names = append(names, name)
		}
		sort.Strings(names)

		args := make(map[string]json.RawMessage, len(names))
		for _, name := range names {
			raw, err := e.inline(v.invocation.arguments[name])
			if err != nil {
				return nil, fmt.Errorf("%s(%s): %w", v.invocation.function, name, err)
			}
			args[name] = raw
		}
		return json.Marshal(map[string]any{
			"functionInvocationValue": map[string]any{
				"functionName": v.invocation.function,
				"arguments":    args,
			},
		})
	}

	return nil, fmt.Errorf("empty value node")
}
