package directory

// Имена ресурсов; они же ключи списков записей в документе
const (
	SecurityProfiles              = "SecurityProfiles"
	ImpersonationConfigs          = "ImpersonationConfigs"
	OpenIdConnects                = "OpenIdConnects"
	AdminUsers                    = "AdminUsers"
	AdminUserGroups               = "AdminUserGroups"
	AdminAddresses                = "AdminAddresses"
	MessageSenders                = "MessageSenders"
	ApiClients                    = "ApiClients"
	Incrementors                  = "Incrementors"
	Webhooks                      = "Webhooks"
	IntegrationEvents             = "IntegrationEvents"
	XpIndices                     = "XpIndices"
	Buyers                        = "Buyers"
	Users                         = "Users"
	UserGroups                    = "UserGroups"
	Addresses                     = "Addresses"
	CostCenters                   = "CostCenters"
	CreditCards                   = "CreditCards"
	SpendingAccounts              = "SpendingAccounts"
	ApprovalRules                 = "ApprovalRules"
	Catalogs                      = "Catalogs"
	Categories                    = "Categories"
	Suppliers                     = "Suppliers"
	SupplierUsers                 = "SupplierUsers"
	SupplierUserGroups            = "SupplierUserGroups"
	SupplierAddresses             = "SupplierAddresses"
	Products                      = "Products"
	PriceSchedules                = "PriceSchedules"
	Specs                         = "Specs"
	SpecOptions                   = "SpecOptions"
	ProductFacets                 = "ProductFacets"
	Promotions                    = "Promotions"
	Variants                      = "Variants"
	InventoryRecords              = "InventoryRecords"
	VariantInventoryRecords       = "VariantInventoryRecords"
	SecurityProfileAssignments    = "SecurityProfileAssignments"
	AdminUserGroupAssignments     = "AdminUserGroupAssignments"
	ApiClientAssignments          = "ApiClientAssignments"
	UserGroupAssignments          = "UserGroupAssignments"
	AddressAssignments            = "AddressAssignments"
	CostCenterAssignments         = "CostCenterAssignments"
	CreditCardAssignments         = "CreditCardAssignments"
	SpendingAccountAssignments    = "SpendingAccountAssignments"
	SupplierUserGroupsAssignments = "SupplierUserGroupsAssignments"
	ProductAssignments            = "ProductAssignments"
	CatalogAssignments            = "CatalogAssignments"
	ProductCatalogAssignment      = "ProductCatalogAssignment"
	CategoryAssignments           = "CategoryAssignments"
	CategoryProductAssignments    = "CategoryProductAssignments"
	SpecProductAssignments        = "SpecProductAssignments"
	PromotionAssignment           = "PromotionAssignment"
)

func fk(resource string) ForeignKey { return ForeignKey{Resource: resource} }

func scoped(resource, parentField string) ForeignKey {
	return ForeignKey{Resource: resource, ParentField: parentField}
}

// catalog возвращает свежую копию таблицы ресурсов в порядке каталога
func catalog() []*Descriptor {
	return []*Descriptor{
		{Name: SecurityProfiles, ModelName: "SecurityProfile", Path: "/securityprofiles", CreatePriority: 2},
		{
			Name: ImpersonationConfigs, ModelName: "ImpersonationConfig", Path: "/impersonationconfig", CreatePriority: 6,
			ForeignKeys: map[string]ForeignKey{
				"ClientID":             fk(ApiClients),
				"SecurityProfileID":    fk(SecurityProfiles),
				"BuyerID":              fk(Buyers),
				"GroupID":              scoped(UserGroups, "BuyerID"),
				"UserID":               scoped(Users, "BuyerID"),
				"ImpersonationBuyerID": fk(Buyers),
			},
		},
		{
			Name: OpenIdConnects, ModelName: "OpenIdConnect", Path: "/openidconnects", CreatePriority: 6,
			RedactFields: []string{"ConnectClientSecret"},
			ForeignKeys: map[string]ForeignKey{
				"OrderCloudApiClientID": fk(ApiClients),
				"IntegrationEventID":    fk(IntegrationEvents),
			},
		},
		{Name: AdminUsers, ModelName: "User", Path: "/adminusers", CreatePriority: 2},
		{Name: AdminUserGroups, ModelName: "UserGroup", Path: "/usergroups", CreatePriority: 2},
		{Name: AdminAddresses, ModelName: "Address", Path: "/addresses", CreatePriority: 2},
		{
			Name: MessageSenders, ModelName: "MessageSender", Path: "/messagesenders", CreatePriority: 2,
			RedactFields: []string{"SharedKey"},
		},
		{
			Name: ApiClients, ModelName: "ApiClient", Path: "/apiclients", CreatePriority: 5,
			RedactFields: []string{"ClientSecret"},
			ForeignKeys:  map[string]ForeignKey{"IntegrationEventID": fk(IntegrationEvents)},
		},
		{Name: Incrementors, ModelName: "Incrementor", Path: "/incrementors", CreatePriority: 1},
		{
			Name: Webhooks, ModelName: "Webhook", Path: "/webhooks", CreatePriority: 6,
			RedactFields: []string{"HashKey"},
		},
		{
			Name: IntegrationEvents, ModelName: "IntegrationEvent", Path: "/integrationEvents", CreatePriority: 2,
			RedactFields: []string{"HashKey"},
		},
		{Name: XpIndices, ModelName: "XpIndex", Path: "/xpindices", CreatePriority: 1},
		{
			Name: Buyers, ModelName: "Buyer", Path: "/buyers", CreatePriority: 3,
			ForeignKeys: map[string]ForeignKey{"DefaultCatalogID": fk(Catalogs)},
			Children: []string{
				Users, UserGroups, Addresses, CostCenters, CreditCards, SpendingAccounts, ApprovalRules,
				UserGroupAssignments, SpendingAccountAssignments, AddressAssignments,
				CostCenterAssignments, CreditCardAssignments,
			},
		},
		{Name: Users, ModelName: "User", Path: "/buyers/{buyerID}/users", CreatePriority: 4, IsChild: true, ParentRefField: "BuyerID"},
		{Name: UserGroups, ModelName: "UserGroup", Path: "/buyers/{buyerID}/usergroups", CreatePriority: 4, IsChild: true, ParentRefField: "BuyerID"},
		{Name: Addresses, ModelName: "Address", Path: "/buyers/{buyerID}/addresses", CreatePriority: 4, IsChild: true, ParentRefField: "BuyerID"},
		{Name: CostCenters, ModelName: "CostCenter", Path: "/buyers/{buyerID}/costcenters", CreatePriority: 4, IsChild: true, ParentRefField: "BuyerID"},
		{Name: CreditCards, ModelName: "CreditCard", Path: "/buyers/{buyerID}/creditcards", CreatePriority: 4, IsChild: true, ParentRefField: "BuyerID"},
		{Name: SpendingAccounts, ModelName: "SpendingAccount", Path: "/buyers/{buyerID}/spendingaccounts", CreatePriority: 4, IsChild: true, ParentRefField: "BuyerID"},
		{
			Name: ApprovalRules, ModelName: "ApprovalRule", Path: "/buyers/{buyerID}/approvalrules", CreatePriority: 5,
			IsChild: true, ParentRefField: "BuyerID",
			ForeignKeys: map[string]ForeignKey{"ApprovingGroupID": scoped(UserGroups, "BuyerID")},
		},
		{
			Name: Catalogs, ModelName: "Catalog", Path: "/catalogs", CreatePriority: 2,
			Children: []string{Categories, CategoryAssignments, CategoryProductAssignments},
		},
		{
			Name: Categories, ModelName: "Category", Path: "/catalogs/{catalogID}/categories", CreatePriority: 3,
			IsChild: true, ParentRefField: "CatalogID",
			ForeignKeys: map[string]ForeignKey{"ParentID": scoped(Categories, "CatalogID")},
		},
		{
			Name: Suppliers, ModelName: "Supplier", Path: "/suppliers", CreatePriority: 2,
			Children: []string{SupplierUsers, SupplierUserGroups, SupplierAddresses, SupplierUserGroupsAssignments},
		},
		{Name: SupplierUsers, ModelName: "User", Path: "/suppliers/{supplierID}/users", CreatePriority: 3, IsChild: true, ParentRefField: "SupplierID"},
		{Name: SupplierUserGroups, ModelName: "UserGroup", Path: "/suppliers/{supplierID}/usergroups", CreatePriority: 3, IsChild: true, ParentRefField: "SupplierID"},
		{Name: SupplierAddresses, ModelName: "Address", Path: "/suppliers/{supplierID}/addresses", CreatePriority: 3, IsChild: true, ParentRefField: "SupplierID"},
		{
			Name: Products, ModelName: "Product", Path: "/products", CreatePriority: 4,
			ForeignKeys: map[string]ForeignKey{
				"DefaultPriceScheduleID": fk(PriceSchedules),
				"ShipFromAddressID":      fk(AdminAddresses),
				"DefaultSupplierID":      fk(Suppliers),
			},
			Children: []string{Variants, InventoryRecords},
		},
		{Name: PriceSchedules, ModelName: "PriceSchedule", Path: "/priceschedules", CreatePriority: 2},
		{
			Name: Specs, ModelName: "Spec", Path: "/specs", CreatePriority: 2,
			ForeignKeys: map[string]ForeignKey{
				"DefaultOptionID": {Resource: SpecOptions, ParentField: "ID", Deferred: true},
			},
			Children: []string{SpecOptions},
		},
		{
			Name: SpecOptions, ModelName: "SpecOption", Path: "/specs/{specID}/options", CreatePriority: 3,
			IsChild: true, ParentRefField: "SpecID", ListMethod: ListOptions,
		},
		{Name: ProductFacets, ModelName: "ProductFacet", Path: "/productfacets", CreatePriority: 2},
		{Name: Promotions, ModelName: "Promotion", Path: "/promotions", CreatePriority: 2},
		{
			Name: Variants, ModelName: "Variant", Path: "/products/{productID}/variants",
			SchemaPath: "/products/{productID}/variants/{variantID}", CreatePriority: 6,
			IsChild: true, ParentRefField: "ProductID",
			Children: []string{VariantInventoryRecords},
		},
		{
			Name: InventoryRecords, ModelName: "InventoryRecord", Path: "/products/{productID}/inventoryrecords", CreatePriority: 5,
			IsChild: true, ParentRefField: "ProductID",
			ForeignKeys: map[string]ForeignKey{"AddressID": fk(AdminAddresses)},
		},
		{
			Name: VariantInventoryRecords, ModelName: "InventoryRecord",
			Path: "/products/{productID}/variants/{variantID}/inventoryrecords", CreatePriority: 7,
			IsChild: true, ParentRefField: "ProductID", SecondRouteParam: "VariantID",
			ForeignKeys: map[string]ForeignKey{"AddressID": fk(AdminAddresses)},
		},
		{
			Name: SecurityProfileAssignments, ModelName: "SecurityProfileAssignment", Path: "/securityprofiles/assignments",
			CreatePriority: 5, IsAssignment: true,
			ForeignKeys: map[string]ForeignKey{
				"SecurityProfileID": fk(SecurityProfiles),
				"BuyerID":           fk(Buyers),
				"SupplierID":        fk(Suppliers),
			},
		},
		{
			Name: AdminUserGroupAssignments, ModelName: "UserGroupAssignment", Path: "/usergroups/assignments",
			CreatePriority: 3, IsAssignment: true, ListMethod: ListUserAssignments,
			ForeignKeys: map[string]ForeignKey{
				"UserID":      fk(AdminUsers),
				"UserGroupID": fk(AdminUserGroups),
			},
		},
		{
			Name: ApiClientAssignments, ModelName: "ApiClientAssignment", Path: "/apiclients/assignments",
			CreatePriority: 6, IsAssignment: true,
			ForeignKeys: map[string]ForeignKey{
				"ApiClientID": fk(ApiClients),
				"BuyerID":     fk(Buyers),
				"SupplierID":  fk(Suppliers),
			},
		},
		{
			Name: UserGroupAssignments, ModelName: "UserGroupAssignment", Path: "/buyers/{buyerID}/usergroups/assignments",
			CreatePriority: 5, IsAssignment: true, IsChild: true, ParentRefField: "BuyerID", ListMethod: ListUserAssignments,
			ForeignKeys: map[string]ForeignKey{
				"UserID":      scoped(Users, "BuyerID"),
				"UserGroupID": scoped(UserGroups, "BuyerID"),
			},
		},
		{
			Name: AddressAssignments, ModelName: "AddressAssignment", Path: "/buyers/{buyerID}/addresses/assignments",
			CreatePriority: 5, IsAssignment: true, IsChild: true, ParentRefField: "BuyerID",
			ForeignKeys: map[string]ForeignKey{
				"AddressID":   scoped(Addresses, "BuyerID"),
				"UserID":      scoped(Users, "BuyerID"),
				"UserGroupID": scoped(UserGroups, "BuyerID"),
			},
		},
		{
			Name: CostCenterAssignments, ModelName: "CostCenterAssignment", Path: "/buyers/{buyerID}/costcenters/assignments",
			CreatePriority: 5, IsAssignment: true, IsChild: true, ParentRefField: "BuyerID",
			ForeignKeys: map[string]ForeignKey{
				"CostCenterID": scoped(CostCenters, "BuyerID"),
				"UserGroupID":  scoped(UserGroups, "BuyerID"),
			},
		},
		{
			Name: CreditCardAssignments, ModelName: "CreditCardAssignment", Path: "/buyers/{buyerID}/creditcards/assignments",
			CreatePriority: 5, IsAssignment: true, IsChild: true, ParentRefField: "BuyerID",
			ForeignKeys: map[string]ForeignKey{
				"CreditCardID": scoped(CreditCards, "BuyerID"),
				"UserID":       scoped(Users, "BuyerID"),
				"UserGroupID":  scoped(UserGroups, "BuyerID"),
			},
		},
		{
			Name: SpendingAccountAssignments, ModelName: "SpendingAccountAssignment", Path: "/buyers/{buyerID}/spendingaccounts/assignments",
			CreatePriority: 5, IsAssignment: true, IsChild: true, ParentRefField: "BuyerID",
			ForeignKeys: map[string]ForeignKey{
				"SpendingAccountID": scoped(SpendingAccounts, "BuyerID"),
				"UserID":            scoped(Users, "BuyerID"),
				"UserGroupID":       scoped(UserGroups, "BuyerID"),
			},
		},
		{
			Name: SupplierUserGroupsAssignments, ModelName: "UserGroupAssignment", Path: "/suppliers/{supplierID}/usergroups/assignments",
			CreatePriority: 4, IsAssignment: true, IsChild: true, ParentRefField: "SupplierID", ListMethod: ListUserAssignments,
			ForeignKeys: map[string]ForeignKey{
				"UserID":      scoped(SupplierUsers, "SupplierID"),
				"UserGroupID": scoped(SupplierUserGroups, "SupplierID"),
			},
		},
		{
			Name: ProductAssignments, ModelName: "ProductAssignment", Path: "/products/assignments",
			CreatePriority: 5, IsAssignment: true,
			ForeignKeys: map[string]ForeignKey{
				"ProductID":       fk(Products),
				"BuyerID":         fk(Buyers),
				"UserGroupID":     scoped(UserGroups, "BuyerID"),
				"PriceScheduleID": fk(PriceSchedules),
			},
		},
		{
			Name: CatalogAssignments, ModelName: "CatalogAssignment", Path: "/catalogs/assignments",
			CreatePriority: 4, IsAssignment: true,
			ForeignKeys: map[string]ForeignKey{
				"CatalogID": fk(Catalogs),
				"BuyerID":   fk(Buyers),
			},
		},
		{
			Name: ProductCatalogAssignment, ModelName: "ProductCatalogAssignment", Path: "/catalogs/productassignments",
			CreatePriority: 5, IsAssignment: true, ListMethod: ListProductAssignments,
			ForeignKeys: map[string]ForeignKey{
				"CatalogID": fk(Catalogs),
				"ProductID": fk(Products),
			},
		},
		{
			Name: CategoryAssignments, ModelName: "CategoryAssignment", Path: "/catalogs/{catalogID}/categories/assignments",
			CreatePriority: 5, IsAssignment: true, IsChild: true, ParentRefField: "CatalogID",
			ForeignKeys: map[string]ForeignKey{
				"CategoryID":  scoped(Categories, "CatalogID"),
				"BuyerID":     fk(Buyers),
				"UserGroupID": scoped(UserGroups, "BuyerID"),
			},
		},
		{
			Name: CategoryProductAssignments, ModelName: "CategoryProductAssignment", Path: "/catalogs/{catalogID}/categories/productassignments",
			CreatePriority: 5, IsAssignment: true, IsChild: true, ParentRefField: "CatalogID", ListMethod: ListProductAssignments,
			ForeignKeys: map[string]ForeignKey{
				"CategoryID": scoped(Categories, "CatalogID"),
				"ProductID":  fk(Products),
			},
		},
		{
			Name: SpecProductAssignments, ModelName: "SpecProductAssignment", Path: "/specs/productassignments",
			CreatePriority: 5, IsAssignment: true, ListMethod: ListProductAssignments,
			ForeignKeys: map[string]ForeignKey{
				"SpecID":          fk(Specs),
				"ProductID":       fk(Products),
				"DefaultOptionID": scoped(SpecOptions, "SpecID"),
			},
		},
		{
			Name: PromotionAssignment, ModelName: "PromotionAssignment", Path: "/promotions/assignments",
			CreatePriority: 5, IsAssignment: true,
			ForeignKeys: map[string]ForeignKey{
				"PromotionID": fk(Promotions),
				"BuyerID":     fk(Buyers),
				"UserGroupID": scoped(UserGroups, "BuyerID"),
			},
		},
	}
}

// applyDefaults заполняет незаданные поля описания
func applyDefaults(d *Descriptor) {
	if d.ListMethod == "" {
		d.ListMethod = List
		if d.IsAssignment {
			d.ListMethod = ListAssignments
		}
	}
	if d.CreateMethod == "" {
		d.CreateMethod = Create
		if d.IsAssignment {
			d.CreateMethod = CreateAssignment
		}
	}
	if d.ForeignKeys == nil {
		d.ForeignKeys = map[string]ForeignKey{}
	}
	if d.Children == nil {
		d.Children = []string{}
	}
	if d.RedactFields == nil {
		d.RedactFields = []string{}
	}
	if d.RequiredCreateFields == nil {
		d.RequiredCreateFields = []string{}
	}
	if d.Properties == nil {
		d.Properties = map[string]Property{}
	}
}
