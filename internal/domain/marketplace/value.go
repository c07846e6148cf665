package marketplace

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind тип значения поля записи
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

// String возвращает имя типа в терминах схемы API
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindFloat:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "array"
	case KindMap:
		return "object"
	default:
		return "unknown"
	}
}

// Value значение поля записи: null, bool, целое, дробное, строка, список или вложенная запись
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
	rec  *Record
}

// Null пустое значение
func Null() Value { return Value{} }

// Bool логическое значение
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int целое значение
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float дробное значение
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String строковое значение
func String(s string) Value { return Value{kind: KindString, s: s} }

// List список значений
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// Strings список строк
func Strings(items ...string) Value {
	values := make([]Value, len(items))
	for i, item := range items {
		values[i] = String(item)
	}
	return List(values...)
}

// Map вложенная запись
func Map(r *Record) Value {
	if r == nil {
		r = NewRecord()
	}
	return Value{kind: KindMap, rec: r}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt возвращает целое; дробные значения без дробной части тоже считаются целыми
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.IsInteger() {
			return int64(v.f), true
		}
	}
	return 0, false
}

// AsFloat возвращает числовое значение для целых и дробных
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

func (v Value) AsMap() (*Record, bool) { return v.rec, v.kind == KindMap }

// IsNumber true для целых и дробных значений
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

// IsInteger true для целых и дробных значений без дробной части
func (v Value) IsInteger() bool {
	switch v.kind {
	case KindInt:
		return true
	case KindFloat:
		return !math.IsInf(v.f, 0) && !math.IsNaN(v.f) && v.f == math.Trunc(v.f)
	}
	return false
}

// IsScalar true для всего, кроме списков и записей
func (v Value) IsScalar() bool { return v.kind != KindList && v.kind != KindMap }

// String возвращает текстовое представление значения для сообщений
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return strings.Join(parts, ",")
	case KindMap:
		data, err := json.Marshal(v.rec)
		if err != nil {
			return "{}"
		}
		return string(data)
	}
	return ""
}

// Equal глубокое сравнение значений
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.rec.Equal(o.rec)
	}
	return false
}

// Clone глубокая копия значения
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.Clone()
		}
		return List(items...)
	case KindMap:
		return Map(v.rec.Clone())
	}
	return v
}

// FromAny строит значение из нативных Go-типов
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Record:
		return Map(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Null(), err
		}
		return Float(f), nil
	case string:
		return String(t), nil
	case []string:
		return Strings(t...), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Null(), err
			}
			items[i] = v
		}
		return List(items...), nil
	case map[string]any:
		rec, err := RecordFromMap(t)
		if err != nil {
			return Null(), err
		}
		return Map(rec), nil
	}
	return Null(), fmt.Errorf("unsupported value type %T", x)
}

// MustFromAny как FromAny, но паникует на неподдерживаемом типе
func MustFromAny(x any) Value {
	v, err := FromAny(x)
	if err != nil {
		panic(err)
	}
	return v
}

// Any преобразует значение в нативные Go-типы
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindList:
		items := make([]any, len(v.list))
		for i, item := range v.list {
			items[i] = item.Any()
		}
		return items
	case KindMap:
		return v.rec.ToMap()
	}
	return nil
}
