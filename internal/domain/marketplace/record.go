package marketplace

import (
	"slices"
	"sort"
)

// Record запись ресурса: поля в порядке добавления
// Порядок сохраняется при чтении и записи документа
type Record struct {
	keys   []string
	fields map[string]Value
}

// NewRecord создает пустую запись
func NewRecord() *Record {
	return &Record{fields: make(map[string]Value)}
}

// RecordFromMap строит запись из map; ключи упорядочиваются по алфавиту
func RecordFromMap(m map[string]any) (*Record, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rec := NewRecord()
	for _, k := range keys {
		v, err := FromAny(m[k])
		if err != nil {
			return nil, err
		}
		rec.Set(k, v)
	}
	return rec, nil
}

// Set устанавливает поле; новые поля добавляются в конец
func (r *Record) Set(key string, v Value) *Record {
	if r.fields == nil {
		r.fields = make(map[string]Value)
	}
	if _, ok := r.fields[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.fields[key] = v
	return r
}

// SetString сокращение для Set(key, String(s))
func (r *Record) SetString(key, s string) *Record {
	return r.Set(key, String(s))
}

// SetAny устанавливает поле из нативного значения
func (r *Record) SetAny(key string, x any) *Record {
	return r.Set(key, MustFromAny(x))
}

// Get возвращает поле и признак его наличия
func (r *Record) Get(key string) (Value, bool) {
	if r == nil {
		return Null(), false
	}
	v, ok := r.fields[key]
	return v, ok
}

// Value возвращает поле или Null, если его нет
func (r *Record) Value(key string) Value {
	v, _ := r.Get(key)
	return v
}

// Has проверяет наличие поля (в том числе со значением null)
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// IsNil true, если поле отсутствует или равно null
func (r *Record) IsNil(key string) bool {
	return r.Value(key).IsNull()
}

// Str возвращает строковое поле
func (r *Record) Str(key string) (string, bool) {
	return r.Value(key).AsString()
}

// ID возвращает строковый идентификатор записи или пустую строку
func (r *Record) ID() string {
	id, _ := r.Str("ID")
	return id
}

// Delete удаляет поле
func (r *Record) Delete(key string) {
	if r == nil {
		return
	}
	if _, ok := r.fields[key]; !ok {
		return
	}
	delete(r.fields, key)
	r.keys = slices.DeleteFunc(r.keys, func(k string) bool { return k == key })
}

// Keys возвращает имена полей в порядке добавления
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.keys)
}

// Len количество полей
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Clone глубокая копия записи
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := &Record{
		keys:   slices.Clone(r.keys),
		fields: make(map[string]Value, len(r.fields)),
	}
	for k, v := range r.fields {
		c.fields[k] = v.Clone()
	}
	return c
}

// Equal сравнивает поля записей без учета порядка
func (r *Record) Equal(o *Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	for _, k := range r.Keys() {
		ov, ok := o.Get(k)
		if !ok || !r.fields[k].Equal(ov) {
			return false
		}
	}
	return true
}

// ToMap преобразует запись в map нативных значений
func (r *Record) ToMap() map[string]any {
	if r == nil {
		return nil
	}
	m := make(map[string]any, len(r.keys))
	for _, k := range r.keys {
		m[k] = r.fields[k].Any()
	}
	return m
}
