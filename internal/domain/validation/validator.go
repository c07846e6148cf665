package validation

import (
	"fmt"
	"time"

	"github.com/athebyme/gomarket-seeder/internal/domain/directory"
	"github.com/athebyme/gomarket-seeder/internal/domain/marketplace"
)

// dateLayouts форматы, которые принимаются для полей date-time
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Validator накапливает ошибки одного прохода проверки документа.
// Реализует directory.ValidationState для пользовательских проверок ресурсов.
type Validator struct {
	ids       *IDCache
	usernames map[string]struct{}
	errors    []string
}

// NewValidator создает валидатор с пустыми кэшами
func NewValidator() *Validator {
	return &Validator{
		ids:       NewIDCache(),
		usernames: make(map[string]struct{}),
	}
}

// Validate проверяет документ целиком и возвращает все найденные ошибки.
// Документ не изменяется; пустой результат означает, что документ можно загружать.
func Validate(dir *directory.Directory, doc *marketplace.SerializedMarketplace) []string {
	v := NewValidator()
	v.Run(dir, doc)
	return v.Errors()
}

// Run выполняет оба прохода
func (v *Validator) Run(dir *directory.Directory, doc *marketplace.SerializedMarketplace) {
	// первый проход строит кэши идентификаторов для проверки ссылок
	for _, res := range dir.All() {
		hasID := res.HasID()
		hasUsername := res.HasProperty("Username")
		if !hasID && !hasUsername {
			continue
		}
		for _, rec := range doc.GetRecords(res) {
			if hasID {
				v.checkDuplicateID(res, rec)
			}
			if hasUsername {
				v.checkDuplicateUsername(rec)
			}
		}
	}

	for _, res := range dir.All() {
		validate := directory.HooksFor(res.Name).Validate
		for _, rec := range doc.GetRecords(res) {
			v.checkRecord(res, rec)
			if res.IsChild && res.Parent != nil {
				v.checkParentRef(res, rec)
			}
			if validate != nil {
				validate(rec, v)
			}
		}
	}
}

// Errors накопленные ошибки в порядке обнаружения
func (v *Validator) Errors() []string {
	return append([]string{}, v.errors...)
}

// IDs кэш идентификаторов прохода
func (v *Validator) IDs() *IDCache { return v.ids }

func (v *Validator) AddError(message string) {
	v.errors = append(v.errors, message)
}

func (v *Validator) HasID(resource, key string) bool {
	return v.ids.Has(resource, key)
}

func (v *Validator) HasUsername(username string) bool {
	_, ok := v.usernames[username]
	return ok
}

func (v *Validator) checkDuplicateID(res *directory.Descriptor, rec *marketplace.Record) {
	key, ok := res.IdentityKey(rec)
	if !ok {
		return
	}
	if v.ids.Add(res.Name, key) {
		return
	}
	msg := fmt.Sprintf("Duplicate ID: multiple %s with ID %q", res.Name, rec.Value("ID").String())
	if res.IsChild {
		msg += fmt.Sprintf(" within the %s %q", res.ParentRefField, res.ParentKey(rec))
	}
	v.AddError(msg)
}

func (v *Validator) checkDuplicateUsername(rec *marketplace.Record) {
	username := rec.Value("Username")
	if username.IsNull() {
		return
	}
	name := username.String()
	if _, dup := v.usernames[name]; dup {
		v.AddError(fmt.Sprintf("Duplicate Username: multiple users with username %q", name))
		return
	}
	v.usernames[name] = struct{}{}
}

func (v *Validator) checkRecord(res *directory.Descriptor, rec *marketplace.Record) {
	for _, field := range res.PropertyNames() {
		prop := res.Properties[field]
		if prop.ReadOnly {
			continue
		}
		value := rec.Value(field)
		if value.IsNull() {
			if res.IsRequired(field) {
				v.AddError(fmt.Sprintf("Required field %s.%s: cannot have value null.", res.Name, field))
			}
			continue
		}
		if !v.checkType(res.Name, field, value, prop) {
			continue
		}
		if key, ok := res.ForeignKeys[field]; ok {
			v.checkForeignKey(res, rec, field, key)
		}
	}
}

// checkType проверяет тип значения и ограничения схемы; false означает, что ошибка уже записана
func (v *Validator) checkType(resource, field string, value marketplace.Value, prop directory.Property) bool {
	typeErr := func() bool {
		v.AddError(fmt.Sprintf("Incorrect type %s.%s: %s is %s. Should be %s.",
			resource, field, value.String(), typeName(value), prop.Type))
		return false
	}

	switch prop.Type {
	case "object":
		if value.Kind() != marketplace.KindMap {
			return typeErr()
		}
	case "array":
		if value.Kind() != marketplace.KindList {
			return typeErr()
		}
	case "number":
		if !value.IsNumber() {
			return typeErr()
		}
	case "boolean":
		if value.Kind() != marketplace.KindBool {
			return typeErr()
		}
	case "integer":
		if !value.IsInteger() {
			return typeErr()
		}
		n, _ := value.AsFloat()
		if prop.Minimum != nil && n < *prop.Minimum {
			v.AddError(fmt.Sprintf("Minimum for %s.%s is %v. Found %s.", resource, field, *prop.Minimum, value.String()))
			return false
		}
		if prop.Maximum != nil && n > *prop.Maximum {
			v.AddError(fmt.Sprintf("Maximum for %s.%s is %v. Found %s.", resource, field, *prop.Maximum, value.String()))
			return false
		}
	case "string":
		s, ok := value.AsString()
		if !ok {
			return typeErr()
		}
		if prop.MaxLength != nil && len([]rune(s)) > *prop.MaxLength {
			v.AddError(fmt.Sprintf("Max string length for %s.%s is %d. Found %q.", resource, field, *prop.MaxLength, s))
			return false
		}
		if prop.Format == "date-time" && !isDate(s) {
			v.AddError(fmt.Sprintf("%s.%s should be a date format. Found %q.", resource, field, s))
			return false
		}
	}
	return true
}

func (v *Validator) checkForeignKey(res *directory.Descriptor, rec *marketplace.Record, field string, key directory.ForeignKey) {
	value := rec.Value(field)
	if !value.IsScalar() {
		return
	}
	id := directory.KeyPart(value)
	lookup := id
	if key.ParentField != "" {
		lookup = directory.KeyPart(rec.Value(key.ParentField)) + "/" + id
	}
	if v.ids.Has(key.Resource, lookup) {
		return
	}
	msg := fmt.Sprintf("Invalid reference %s.%s: no %s found with ID %q", res.Name, field, key.Resource, id)
	if key.ParentField != "" {
		msg += fmt.Sprintf(" within the %s %q", key.ParentField, directory.KeyPart(rec.Value(key.ParentField)))
	}
	v.AddError(msg + ".")
}

func (v *Validator) checkParentRef(res *directory.Descriptor, rec *marketplace.Record) {
	field := res.ParentRefField
	value := rec.Value(field)
	if value.IsNull() {
		v.AddError(fmt.Sprintf("Required field %s.%s: cannot have value null.", res.Name, field))
		return
	}
	if !v.checkType(res.Name, field, value, directory.Property{Type: "string"}) {
		return
	}
	parentKey := res.ParentKey(rec)
	if !v.ids.Has(res.Parent.Name, parentKey) {
		v.AddError(fmt.Sprintf("Invalid reference %s.%s: no %s found with ID %q.", res.Name, field, res.Parent.Name, parentKey))
	}
}

// typeName имя типа значения в терминах схемы
func typeName(value marketplace.Value) string {
	if value.Kind() == marketplace.KindFloat && value.IsInteger() {
		return "integer"
	}
	return value.Kind().String()
}

func isDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

var _ directory.ValidationState = (*Validator)(nil)
