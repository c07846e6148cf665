package marketplace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// valueToNode строит YAML-узел, из которого значение читается обратно без потери типа
func valueToNode(v Value) *yaml.Node {
	switch v.kind {
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.b)}
	case KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v.i, 10)}
	case KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatYAMLFloat(v.f)}
	case KindString:
		n := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.s}
		if strings.Contains(v.s, "\n") {
			n.Style = yaml.LiteralStyle
		}
		return n
	case KindList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.list {
			n.Content = append(n.Content, valueToNode(item))
		}
		return n
	case KindMap:
		return recordToNode(v.rec)
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

func formatYAMLFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func recordToNode(r *Record) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range r.Keys() {
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			valueToNode(r.fields[k]),
		)
	}
	return n
}

func nodeToValue(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return nodeToValue(n.Content[0])
	case yaml.AliasNode:
		return nodeToValue(n.Alias)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			item, err := nodeToValue(c)
			if err != nil {
				return Null(), err
			}
			items = append(items, item)
		}
		return List(items...), nil
	case yaml.MappingNode:
		rec, err := nodeToRecord(n)
		if err != nil {
			return Null(), err
		}
		return Map(rec), nil
	case yaml.ScalarNode:
		return scalarToValue(n)
	}
	return Null(), fmt.Errorf("line %d: unsupported yaml node", n.Line)
}

func scalarToValue(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Null(), err
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return Int(i), nil
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return Null(), err
		}
		return Float(f), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Null(), err
		}
		return Float(f), nil
	}
	// строки, даты и прочие теги читаются как текст
	return String(n.Value), nil
}

func nodeToRecord(n *yaml.Node) (*Record, error) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	rec := NewRecord()
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if key.Value == "<<" && key.ShortTag() == "!!merge" {
			if err := mergeInto(rec, val); err != nil {
				return nil, err
			}
			continue
		}
		v, err := nodeToValue(val)
		if err != nil {
			return nil, err
		}
		rec.Set(key.Value, v)
	}
	return rec, nil
}

func mergeInto(rec *Record, n *yaml.Node) error {
	sources := []*yaml.Node{n}
	if n.Kind == yaml.SequenceNode {
		sources = n.Content
	}
	for _, src := range sources {
		merged, err := nodeToRecord(src)
		if err != nil {
			return err
		}
		for _, k := range merged.Keys() {
			if !rec.Has(k) {
				rec.Set(k, merged.Value(k))
			}
		}
	}
	return nil
}

// MarshalYAML реализует yaml.Marshaler
func (v Value) MarshalYAML() (interface{}, error) {
	return valueToNode(v), nil
}

// UnmarshalYAML реализует yaml.Unmarshaler
func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	parsed, err := nodeToValue(n)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalYAML реализует yaml.Marshaler
func (r *Record) MarshalYAML() (interface{}, error) {
	return recordToNode(r), nil
}

// UnmarshalYAML реализует yaml.Unmarshaler
func (r *Record) UnmarshalYAML(n *yaml.Node) error {
	parsed, err := nodeToRecord(n)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

// MarshalJSON реализует json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		if math.IsInf(v.f, 0) || math.IsNaN(v.f) {
			return nil, fmt.Errorf("unsupported float value %v", v.f)
		}
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			data, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(data)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case KindMap:
		return v.rec.MarshalJSON()
	}
	return []byte("null"), nil
}

// UnmarshalJSON реализует json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	parsed, err := decodeJSONValue(dec)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalJSON реализует json.Marshaler; поля пишутся в порядке добавления
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		data, err := r.fields[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON реализует json.Unmarshaler; порядок полей сохраняется
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return err
	}
	rec, ok := v.AsMap()
	if !ok {
		return fmt.Errorf("expected a JSON object, got %s", v.Kind())
	}
	*r = *rec
	return nil
}

func decodeJSONValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return Null(), io.ErrUnexpectedEOF
		}
		return Null(), err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			rec := NewRecord()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null(), err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Null(), fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := decodeJSONValue(dec)
				if err != nil {
					return Null(), err
				}
				rec.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return Map(rec), nil
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := decodeJSONValue(dec)
				if err != nil {
					return Null(), err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return List(items...), nil
		}
		return Null(), fmt.Errorf("unexpected delimiter %v", t)
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return FromAny(t)
	}
	return Null(), fmt.Errorf("unexpected token %v", tok)
}
