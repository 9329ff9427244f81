// Package flowsettings decodes the flow:* attributes of a configuration element, such as
// flow:direction and flow:gridSize, into typed values.
package flowsettings

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"

	"github.com/frankframework/frankflow/flowast"
)

const Prefix = "flow:"

type ValueKind int

const (
	String ValueKind = iota
	Number
	Bool
)

func (k ValueKind) String() string {
	switch k {
	case Number:
		return "number"
	case Bool:
		return "bool"
	default:
		return "string"
	}
}

// Value is a string, number or boolean setting, decoded once from attribute text.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
}

// Decode infers the kind of s: true and false are booleans, anything parsing as a float
// is a number, everything else a string.
func Decode(s string) Value {
	switch s {
	case "true":
		return Value{Kind: Bool, Bool: true}
	case "false":
		return Value{Kind: Bool}
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return Value{Kind: Number, Num: f}
	}
	return Value{Kind: String, Str: s}
}

func StringValue(s string) Value {
	return Value{Kind: String, Str: s}
}

func NumberValue(f float64) Value {
	return Value{Kind: Number, Num: f}
}

func BoolValue(b bool) Value {
	return Value{Kind: Bool, Bool: b}
}

// String returns the attribute text of v.
func (v Value) String() string {
	switch v.Kind {
	case Number:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case Bool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case Number:
		return json.Marshal(v.Num)
	case Bool:
		return json.Marshal(v.Bool)
	default:
		return json.Marshal(v.Str)
	}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var raw interface{}
	err := json.Unmarshal(b, &raw)
	if err != nil {
		return err
	}
	switch raw := raw.(type) {
	case string:
		*v = StringValue(raw)
	case float64:
		*v = NumberValue(raw)
	case bool:
		*v = BoolValue(raw)
	default:
		return fmt.Errorf("unexpected flow setting %s", b)
	}
	return nil
}

// Settings maps setting names, without the flow: prefix, to their values.
type Settings map[string]Value

// FromConfiguration decodes every flow:* attribute of the configuration element.
func FromConfiguration(configuration *flowast.Node) Settings {
	settings := make(Settings)
	if configuration == nil {
		return settings
	}
	for name, a := range configuration.Attributes {
		if !strings.HasPrefix(name, Prefix) {
			continue
		}
		settings[strings.TrimPrefix(name, Prefix)] = Decode(a.Value)
	}
	return settings
}

// Names returns the setting names in order.
func (s Settings) Names() []string {
	names := maps.Keys(s)
	sort.Strings(names)
	return names
}

// Attribute returns the attribute name of the setting called name.
func Attribute(name string) string {
	return Prefix + name
}

func (s Settings) Direction() string {
	return s.str("direction")
}

func (s Settings) ForwardStyle() string {
	return s.str("forwardStyle")
}

func (s Settings) GridSize() (float64, bool) {
	v, ok := s["gridSize"]
	if !ok || v.Kind != Number {
		return 0, false
	}
	return v.Num, true
}

func (s Settings) str(name string) string {
	v, ok := s[name]
	if !ok {
		return ""
	}
	return v.String()
}
