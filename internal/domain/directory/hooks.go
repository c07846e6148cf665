package directory

import (
	"fmt"
	"strings"

	"github.com/athebyme/gomarket-seeder/internal/domain/marketplace"
)

// ValidationState доступ пользовательских проверок к состоянию валидатора
type ValidationState interface {
	// HasID проверяет наличие ключа в кэше идентификаторов ресурса
	HasID(resource, key string) bool
	// HasUsername проверяет наличие логина в общем пространстве логинов
	HasUsername(username string) bool
	// AddError добавляет сообщение об ошибке
	AddError(message string)
}

// ValidateFunc проверка инвариантов конкретного ресурса
type ValidateFunc func(rec *marketplace.Record, state ValidationState)

// TransformFunc преобразование записи после выгрузки
type TransformFunc func(rec *marketplace.Record) *marketplace.Record

// ListGuardFunc решает, нужно ли запрашивать дочерний список для родителя
type ListGuardFunc func(parent *marketplace.Record) bool

// Hooks поведение, привязанное к ресурсу
type Hooks struct {
	Validate          ValidateFunc
	DownloadTransform TransformFunc
	ShouldAttemptList ListGuardFunc
}

var hooks = map[string]Hooks{
	ImpersonationConfigs:       {Validate: validateImpersonationConfig},
	ApiClients:                 {Validate: validateApiClient, DownloadTransform: lowercaseID},
	Webhooks:                   {Validate: validateWebhook},
	SecurityProfileAssignments: {Validate: validateSecurityProfileAssignment},
	Variants:                   {ShouldAttemptList: hasVariants},
}

// HooksFor возвращает поведение ресурса; для ресурсов без поведения пустую структуру
func HooksFor(name string) Hooks {
	return hooks[name]
}

// ShouldAttemptList true, если для родителя нужно запрашивать дочерние записи ресурса
func (d *Descriptor) ShouldAttemptList(parent *marketplace.Record) bool {
	guard := HooksFor(d.Name).ShouldAttemptList
	return guard == nil || guard(parent)
}

// TransformDownloaded применяет преобразование выгрузки, если оно задано
func (d *Descriptor) TransformDownloaded(rec *marketplace.Record) *marketplace.Record {
	if t := HooksFor(d.Name).DownloadTransform; t != nil {
		return t(rec)
	}
	return rec
}

// ID клиентов API платформа возвращает в разном регистре
func lowercaseID(rec *marketplace.Record) *marketplace.Record {
	if id, ok := rec.Str("ID"); ok {
		rec.SetString("ID", strings.ToLower(id))
	}
	return rec
}

func hasVariants(parent *marketplace.Record) bool {
	count, ok := parent.Value("VariantCount").AsInt()
	return ok && count > 0
}

func validateImpersonationConfig(rec *marketplace.Record, state ValidationState) {
	buyerID := rec.Value("ImpersonationBuyerID")
	groupID := rec.Value("ImpersonationGroupID")
	userID := rec.Value("ImpersonationUserID")

	if buyerID.IsNull() {
		if !groupID.IsNull() && !state.HasID(AdminUserGroups, KeyPart(groupID)) {
			state.AddError(fmt.Sprintf("Invalid reference ImpersonationConfigs.ImpersonationGroupID: no AdminUserGroup found with ID %q.", KeyPart(groupID)))
		}
		if !userID.IsNull() && !state.HasID(AdminUsers, KeyPart(userID)) {
			state.AddError(fmt.Sprintf("Invalid reference ImpersonationConfigs.ImpersonationUserID: no AdminUser found with ID %q.", KeyPart(userID)))
		}
		return
	}

	buyer := KeyPart(buyerID)
	if !groupID.IsNull() && !state.HasID(UserGroups, buyer+"/"+KeyPart(groupID)) {
		state.AddError(fmt.Sprintf("Invalid reference ImpersonationConfigs.ImpersonationGroupID: no UserGroup found with ID %q and BuyerID %q.", KeyPart(groupID), buyer))
	}
	if !userID.IsNull() && !state.HasID(Users, buyer+"/"+KeyPart(userID)) {
		state.AddError(fmt.Sprintf("Invalid reference ImpersonationConfigs.ImpersonationUserID: no User found with ID %q and BuyerID %q.", KeyPart(userID), buyer))
	}
}

func validateApiClient(rec *marketplace.Record, state ValidationState) {
	username := rec.Value("DefaultContextUserName")
	if !username.IsNull() && !state.HasUsername(KeyPart(username)) {
		state.AddError(fmt.Sprintf("Invalid reference ApiClients.DefaultContextUserName: no User, SupplierUser or AdminUser found with Username %q.", KeyPart(username)))
	}
}

func validateWebhook(rec *marketplace.Record, state ValidationState) {
	ids, ok := rec.Value("ApiClientIDs").AsList()
	if !ok {
		return
	}
	var invalid []string
	for _, id := range ids {
		if !state.HasID(ApiClients, KeyPart(id)) {
			invalid = append(invalid, KeyPart(id))
		}
	}
	if len(invalid) > 0 {
		state.AddError(fmt.Sprintf("Invalid reference Webhooks.ApiClientIDs: could not find ApiClients with IDs %s.", strings.Join(invalid, ", ")))
	}
}

func validateSecurityProfileAssignment(rec *marketplace.Record, state ValidationState) {
	buyerID := rec.Value("BuyerID")
	supplierID := rec.Value("SupplierID")
	userID := rec.Value("UserID")
	groupID := rec.Value("UserGroupID")
	user, group := KeyPart(userID), KeyPart(groupID)

	switch {
	case !buyerID.IsNull() && !supplierID.IsNull():
		state.AddError("SecurityProfileAssignment error: cannot include both a BuyerID and a SupplierID")
	case !supplierID.IsNull():
		supplier := KeyPart(supplierID)
		if !userID.IsNull() && !state.HasID(SupplierUsers, supplier+"/"+user) {
			state.AddError(fmt.Sprintf("Invalid reference SecurityProfileAssignment.UserID: no SupplierUser found with ID %q and SupplierID %q.", user, supplier))
		}
		if !groupID.IsNull() && !state.HasID(SupplierUserGroups, supplier+"/"+group) {
			state.AddError(fmt.Sprintf("Invalid reference SecurityProfileAssignment.UserGroupID: no SupplierUserGroups found with ID %q and SupplierID %q.", group, supplier))
		}
	case !buyerID.IsNull():
		buyer := KeyPart(buyerID)
		if !userID.IsNull() && !state.HasID(Users, buyer+"/"+user) {
			state.AddError(fmt.Sprintf("Invalid reference SecurityProfileAssignment.UserID: no User found with ID %q and BuyerID %q.", user, buyer))
		}
		if !groupID.IsNull() && !state.HasID(UserGroups, buyer+"/"+group) {
			state.AddError(fmt.Sprintf("Invalid reference SecurityProfileAssignment.UserGroupID: no UserGroup found with ID %q and BuyerID %q.", group, buyer))
		}
	default:
		if !userID.IsNull() && !state.HasID(AdminUsers, user) {
			state.AddError(fmt.Sprintf("Invalid reference SecurityProfileAssignment.UserID: no AdminUser found with ID %q.", user))
		}
		if !groupID.IsNull() && !state.HasID(AdminUserGroups, group) {
			state.AddError(fmt.Sprintf("Invalid reference SecurityProfileAssignment.UserGroupID: no AdminUserGroup found with ID %q.", group))
		}
	}
}
