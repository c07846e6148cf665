package marketplace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	// ErrFileNotFound источник документа не найден
	ErrFileNotFound = errors.New("marketplace file not found")
	// ErrInvalidDocument содержимое не является корректным документом
	ErrInvalidDocument = errors.New("content is not valid structured text")
)

// Group раздел документа
type Group string

const (
	GroupObjects     Group = "Objects"
	GroupAssignments Group = "Assignments"
)

// Resource минимальное описание ресурса, нужное документу
type Resource interface {
	// Key имя ресурса, под которым хранятся записи
	Key() string
	// Grouping раздел документа, в который попадают записи
	Grouping() Group
}

// RecordSet упорядоченное соответствие имя ресурса -> записи
type RecordSet struct {
	names   []string
	records map[string][]*Record
}

func newRecordSet() *RecordSet {
	return &RecordSet{records: make(map[string][]*Record)}
}

// Names возвращает имена ресурсов в порядке первого добавления
func (s *RecordSet) Names() []string {
	return append([]string(nil), s.names...)
}

// Get возвращает записи ресурса
func (s *RecordSet) Get(name string) []*Record {
	return s.records[name]
}

func (s *RecordSet) add(name string, records []*Record) {
	if _, ok := s.records[name]; !ok {
		s.names = append(s.names, name)
		s.records[name] = []*Record{}
	}
	s.records[name] = append(s.records[name], records...)
}

func (s *RecordSet) set(name string, records []*Record) {
	if _, ok := s.records[name]; !ok {
		s.names = append(s.names, name)
	}
	s.records[name] = records
}

// SerializedMarketplace снимок маркетплейса: записи, сгруппированные по ресурсам
type SerializedMarketplace struct {
	Objects     *RecordSet
	Assignments *RecordSet
}

// New создает пустой документ
func New() *SerializedMarketplace {
	return &SerializedMarketplace{
		Objects:     newRecordSet(),
		Assignments: newRecordSet(),
	}
}

func (m *SerializedMarketplace) group(g Group) *RecordSet {
	if g == GroupAssignments {
		return m.Assignments
	}
	return m.Objects
}

// AddRecords добавляет записи в конец списка ресурса
func (m *SerializedMarketplace) AddRecords(res Resource, records []*Record) {
	m.group(res.Grouping()).add(res.Key(), records)
}

// SetRecords заменяет список записей ресурса
func (m *SerializedMarketplace) SetRecords(res Resource, records []*Record) {
	m.group(res.Grouping()).set(res.Key(), records)
}

// GetRecords возвращает записи ресурса; для отсутствующего ресурса пустой список
func (m *SerializedMarketplace) GetRecords(res Resource) []*Record {
	records := m.group(res.Grouping()).Get(res.Key())
	if records == nil {
		return []*Record{}
	}
	return records
}

// Count общее количество записей в документе
func (m *SerializedMarketplace) Count() int {
	total := 0
	for _, set := range []*RecordSet{m.Objects, m.Assignments} {
		for _, name := range set.names {
			total += len(set.records[name])
		}
	}
	return total
}

// Clone глубокая копия документа
func (m *SerializedMarketplace) Clone() *SerializedMarketplace {
	c := New()
	for _, pair := range []struct{ src, dst *RecordSet }{
		{m.Objects, c.Objects},
		{m.Assignments, c.Assignments},
	} {
		for _, name := range pair.src.names {
			records := make([]*Record, len(pair.src.records[name]))
			for i, r := range pair.src.records[name] {
				records[i] = r.Clone()
			}
			pair.dst.set(name, records)
		}
	}
	return c
}

// Parse читает документ из YAML (JSON также принимается)
func Parse(data []byte) (*SerializedMarketplace, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	m := New()
	if root.Kind == 0 || len(root.Content) == 0 {
		return m, nil
	}
	top := root.Content[0]
	if top.ShortTag() == "!!null" {
		return m, nil
	}
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: document must be a mapping", ErrInvalidDocument, top.Line)
	}
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, val := top.Content[i], top.Content[i+1]
		var set *RecordSet
		switch Group(key.Value) {
		case GroupObjects:
			set = m.Objects
		case GroupAssignments:
			set = m.Assignments
		default:
			continue
		}
		if err := parseGroup(set, val); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, key.Value, err)
		}
	}
	return m, nil
}

func parseGroup(set *RecordSet, n *yaml.Node) error {
	if n.ShortTag() == "!!null" {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of resources", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		name, list := n.Content[i].Value, n.Content[i+1]
		records := []*Record{}
		if list.ShortTag() != "!!null" {
			if list.Kind != yaml.SequenceNode {
				return fmt.Errorf("%s: line %d: expected a list of records", name, list.Line)
			}
			for _, item := range list.Content {
				rec, err := nodeToRecord(item)
				if err != nil {
					return fmt.Errorf("%s: %v", name, err)
				}
				records = append(records, rec)
			}
		}
		set.add(name, records)
	}
	return nil
}

// MarshalYAML реализует yaml.Marshaler
func (m *SerializedMarketplace) MarshalYAML() (interface{}, error) {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, g := range []Group{GroupObjects, GroupAssignments} {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(g)},
			groupToNode(m.group(g)),
		)
	}
	return root, nil
}

func groupToNode(set *RecordSet) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, name := range set.names {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, rec := range set.records[name] {
			seq.Content = append(seq.Content, recordToNode(rec))
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}, seq)
	}
	return n
}

// Marshal сериализует документ в YAML
func (m *SerializedMarketplace) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON реализует json.Marshaler
func (m *SerializedMarketplace) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for gi, g := range []Group{GroupObjects, GroupAssignments} {
		if gi > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:{", string(g))
		set := m.group(g)
		for i, name := range set.names {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(name)
			buf.Write(key)
			buf.WriteByte(':')
			records := set.records[name]
			if records == nil {
				records = []*Record{}
			}
			data, err := json.Marshal(records)
			if err != nil {
				return nil, err
			}
			buf.Write(data)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
