package directory

import (
	"slices"
	"sort"
	"strings"

	"github.com/athebyme/gomarket-seeder/internal/domain/marketplace"
)

// ListMethod операция чтения списка ресурса
type ListMethod string

const (
	List                   ListMethod = "List"
	ListAssignments        ListMethod = "ListAssignments"
	ListUserAssignments    ListMethod = "ListUserAssignments"
	ListProductAssignments ListMethod = "ListProductAssignments"
	ListOptions            ListMethod = "ListOptions"
)

// CreateMethod операция создания записи ресурса
type CreateMethod string

const (
	Create           CreateMethod = "Create"
	CreateAssignment CreateMethod = "CreateAssignment"
	SaveAssignment   CreateMethod = "SaveAssignment"
)

// ForeignKey ссылка поля записи на ID другого ресурса
type ForeignKey struct {
	// Resource ресурс, в котором ищется ID
	Resource string
	// ParentField поле текущей записи с ID родителя целевого ресурса, если ссылка ограничена родителем
	ParentField string
	// Deferred ссылка проставляется отдельным обновлением после создания цели
	Deferred bool
}

// Property описание поля из схемы API
type Property struct {
	Type      string
	Format    string
	ReadOnly  bool
	Minimum   *float64
	Maximum   *float64
	MaxLength *int
}

// Descriptor статическое описание типа ресурса маркетплейса
// После Build не изменяется
type Descriptor struct {
	Name      string
	ModelName string
	// Path шаблон маршрута с параметрами в фигурных скобках
	Path string
	// SchemaPath маршрут операции создания в схеме, если отличается от Path
	SchemaPath     string
	CreatePriority int
	IsAssignment   bool
	IsChild        bool
	// ParentRefField поле с ID родителя (только для дочерних ресурсов)
	ParentRefField string
	// SecondRouteParam второй параметр маршрута у ресурсов третьего уровня
	SecondRouteParam string
	Children         []string
	ForeignKeys      map[string]ForeignKey
	RedactFields     []string
	ListMethod       ListMethod
	CreateMethod     CreateMethod

	RequiredCreateFields []string
	Properties           map[string]Property
	Parent               *Descriptor
}

// Key реализует marketplace.Resource
func (d *Descriptor) Key() string { return d.Name }

// Grouping реализует marketplace.Resource
func (d *Descriptor) Grouping() marketplace.Group {
	if d.IsAssignment {
		return marketplace.GroupAssignments
	}
	return marketplace.GroupObjects
}

// PropertyNames возвращает имена полей схемы по алфавиту
func (d *Descriptor) PropertyNames() []string {
	names := make([]string, 0, len(d.Properties))
	for name := range d.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasProperty проверяет наличие поля в схеме
func (d *Descriptor) HasProperty(name string) bool {
	_, ok := d.Properties[name]
	return ok
}

// HasID true, если записи ресурса идентифицируются полем ID
// У клиентов API поле ID в схеме только для чтения, но в документе присутствует
func (d *Descriptor) HasID() bool {
	return d.HasProperty("ID") || d.Name == ApiClients
}

// IsRequired проверяет, обязательно ли поле при создании
func (d *Descriptor) IsRequired(field string) bool {
	return slices.Contains(d.RequiredCreateFields, field)
}

// RouteFields поля записи, значения которых подставляются в маршрут
func (d *Descriptor) RouteFields() []string {
	if !d.IsChild {
		return nil
	}
	if d.SecondRouteParam != "" {
		return []string{d.ParentRefField, d.SecondRouteParam}
	}
	return []string{d.ParentRefField}
}

// RouteParams значения параметров маршрута для записи
func (d *Descriptor) RouteParams(rec *marketplace.Record) []string {
	fields := d.RouteFields()
	params := make([]string, len(fields))
	for i, f := range fields {
		params[i] = KeyPart(rec.Value(f))
	}
	return params
}

// ParentKey ключ родителя записи в кэше идентификаторов родительского ресурса
func (d *Descriptor) ParentKey(rec *marketplace.Record) string {
	return strings.Join(d.RouteParams(rec), "/")
}

// IdentityKey ключ записи в кэше идентификаторов: ID, а для дочерних ресурсов "{parentID}/{ID}"
func (d *Descriptor) IdentityKey(rec *marketplace.Record) (string, bool) {
	id := rec.Value("ID")
	if id.IsNull() || !id.IsScalar() {
		return "", false
	}
	if !d.IsChild {
		return KeyPart(id), true
	}
	return d.ParentKey(rec) + "/" + KeyPart(id), true
}

// PathFor подставляет параметры маршрута в шаблон пути
func (d *Descriptor) PathFor(params ...string) string {
	return FillPath(d.Path, params...)
}

// FillPath по очереди заменяет плейсхолдеры {param} значениями
func FillPath(template string, params ...string) string {
	var b strings.Builder
	rest := template
	for _, p := range params {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			break
		}
		b.WriteString(rest[:start])
		b.WriteString(p)
		rest = rest[start+end+1:]
	}
	b.WriteString(rest)
	return b.String()
}

// KeyPart текстовое представление значения внутри ключа кэша
func KeyPart(v marketplace.Value) string {
	if v.IsNull() {
		return ""
	}
	return v.String()
}

// Singular имя ресурса в единственном числе для сообщений
func Singular(name string) string {
	return strings.TrimSuffix(name, "s")
}
