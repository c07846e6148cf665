package directory

import (
	"context"
	"fmt"
	"slices"
	"sort"
)

// Directory упорядоченный каталог описаний ресурсов
type Directory struct {
	resources      []*Descriptor
	byName         map[string]*Descriptor
	schemaIncluded bool
}

// Build строит каталог. Если src не nil, описания дополняются схемой платформы;
// недоступная или неполная схема делает каталог непригодным и возвращается ошибкой.
func Build(ctx context.Context, src SchemaSource) (*Directory, error) {
	resources := catalog()
	for _, d := range resources {
		applyDefaults(d)
	}

	if src != nil {
		spec, err := src.OpenAPI(ctx)
		if err != nil {
			return nil, &SchemaError{Reason: "unreachable", Err: err}
		}
		for _, d := range resources {
			if err := spec.enrich(d); err != nil {
				return nil, err
			}
		}
	}

	dir := &Directory{
		resources:      resources,
		byName:         make(map[string]*Descriptor, len(resources)),
		schemaIncluded: src != nil,
	}
	for _, d := range resources {
		if _, dup := dir.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate resource %s in catalog", d.Name)
		}
		dir.byName[d.Name] = d
	}
	for _, d := range resources {
		for _, child := range d.Children {
			c, ok := dir.byName[child]
			if !ok {
				return nil, fmt.Errorf("resource %s declares unknown child %s", d.Name, child)
			}
			if c.Parent == nil {
				c.Parent = d
			}
		}
	}
	for _, d := range resources {
		if d.IsChild && d.Parent == nil {
			return nil, fmt.Errorf("child resource %s has no parent in catalog", d.Name)
		}
	}
	return dir, nil
}

// Static каталог без схемы: пути, приоритеты и связи
func Static() *Directory {
	dir, err := Build(context.Background(), nil)
	if err != nil {
		panic(err)
	}
	return dir
}

// All описания в порядке каталога
func (d *Directory) All() []*Descriptor {
	return slices.Clone(d.resources)
}

// Get ищет описание по имени
func (d *Directory) Get(name string) (*Descriptor, bool) {
	r, ok := d.byName[name]
	return r, ok
}

// MustGet как Get, но паникует для неизвестного имени
func (d *Directory) MustGet(name string) *Descriptor {
	r, ok := d.byName[name]
	if !ok {
		panic("unknown resource " + name)
	}
	return r
}

// Len количество ресурсов
func (d *Directory) Len() int { return len(d.resources) }

// SchemaIncluded true, если описания дополнены схемой платформы
func (d *Directory) SchemaIncluded() bool { return d.schemaIncluded }

// ByPriority описания по возрастанию приоритета создания; при равенстве сохраняется порядок каталога
func (d *Directory) ByPriority() []*Descriptor {
	sorted := slices.Clone(d.resources)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatePriority < sorted[j].CreatePriority
	})
	return sorted
}

// PriorityViolation зависимость, не покрытая приоритетами создания
type PriorityViolation struct {
	Resource  string
	Field     string
	DependsOn string
	Priority  int
	Target    int
}

func (v PriorityViolation) String() string {
	return fmt.Sprintf("%s.%s depends on %s, but priority %d is not greater than %d",
		v.Resource, v.Field, v.DependsOn, v.Priority, v.Target)
}

// CheckPriorities сверяет приоритеты с графом зависимостей (родитель и внешние ключи).
// Ссылки ресурса на себя и отложенные ссылки не проверяются. Порядок ничего не меняет.
func (d *Directory) CheckPriorities() []PriorityViolation {
	var violations []PriorityViolation
	for _, r := range d.resources {
		if r.IsChild && r.Parent != nil && r.Parent.CreatePriority >= r.CreatePriority {
			violations = append(violations, PriorityViolation{
				Resource: r.Name, Field: r.ParentRefField, DependsOn: r.Parent.Name,
				Priority: r.CreatePriority, Target: r.Parent.CreatePriority,
			})
		}
		fields := make([]string, 0, len(r.ForeignKeys))
		for field := range r.ForeignKeys {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			key := r.ForeignKeys[field]
			if key.Deferred || key.Resource == r.Name {
				continue
			}
			target, ok := d.byName[key.Resource]
			if !ok || target.CreatePriority < r.CreatePriority {
				continue
			}
			violations = append(violations, PriorityViolation{
				Resource: r.Name, Field: field, DependsOn: target.Name,
				Priority: r.CreatePriority, Target: target.CreatePriority,
			})
		}
	}
	return violations
}
