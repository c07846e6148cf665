package validation_test

import (
	"testing"

	"github.com/athebyme/gomarket-seeder/internal/domain/directory"
	"github.com/athebyme/gomarket-seeder/internal/domain/directory/directorytest"
	"github.com/athebyme/gomarket-seeder/internal/domain/marketplace"
	"github.com/athebyme/gomarket-seeder/internal/domain/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }

type fixture struct {
	dir *directory.Directory
	doc *marketplace.SerializedMarketplace
}

func newFixture(t *testing.T, configure ...func(b *directorytest.Builder)) *fixture {
	t.Helper()
	b := directorytest.NewBuilder()
	for _, c := range configure {
		c(b)
	}
	return &fixture{dir: b.Directory(), doc: marketplace.New()}
}

func (f *fixture) add(resource string, records ...*marketplace.Record) *fixture {
	f.doc.AddRecords(f.dir.MustGet(resource), records)
	return f
}

func (f *fixture) validate() []string {
	return validation.Validate(f.dir, f.doc)
}

func rec(kv ...any) *marketplace.Record {
	r := marketplace.NewRecord()
	for i := 0; i+1 < len(kv); i += 2 {
		r.SetAny(kv[i].(string), kv[i+1])
	}
	return r
}

func TestValidate_EmptyDocument(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, f.validate())
}

func TestValidate_DuplicateIDTopLevel(t *testing.T) {
	f := newFixture(t).add(directory.Buyers, rec("ID", "b1"), rec("ID", "b1"))

	errs := f.validate()

	require.Len(t, errs, 1)
	assert.Equal(t, `Duplicate ID: multiple Buyers with ID "b1"`, errs[0])
}

func TestValidate_DuplicateIDChildScopedByParent(t *testing.T) {
	f := newFixture(t).
		add(directory.Buyers, rec("ID", "b1"), rec("ID", "b2")).
		add(directory.Users, rec("ID", "u1", "BuyerID", "b1"), rec("ID", "u1", "BuyerID", "b2"))

	assert.Empty(t, f.validate())

	f.add(directory.Users, rec("ID", "u1", "BuyerID", "b1"))
	errs := f.validate()
	require.Len(t, errs, 1)
	assert.Equal(t, `Duplicate ID: multiple Users with ID "u1" within the BuyerID "b1"`, errs[0])
}

func TestValidate_DuplicateUsernameAcrossUserResources(t *testing.T) {
	f := newFixture(t).
		add(directory.AdminUsers, rec("ID", "a1", "Username", "sam")).
		add(directory.Suppliers, rec("ID", "s1")).
		add(directory.SupplierUsers, rec("ID", "su1", "SupplierID", "s1", "Username", "sam"))

	errs := f.validate()

	require.Len(t, errs, 1)
	assert.Equal(t, `Duplicate Username: multiple users with username "sam"`, errs[0])
}

func TestValidate_ForeignKey(t *testing.T) {
	f := newFixture(t).
		add(directory.Catalogs, rec("ID", "cat1")).
		add(directory.Buyers, rec("ID", "b1", "DefaultCatalogID", "cat1"))
	assert.Empty(t, f.validate())

	f = newFixture(t).add(directory.Buyers, rec("ID", "b1", "DefaultCatalogID", "missing"))
	errs := f.validate()
	require.Len(t, errs, 1)
	assert.Equal(t, `Invalid reference Buyers.DefaultCatalogID: no Catalogs found with ID "missing".`, errs[0])
}

func TestValidate_ScopedForeignKey(t *testing.T) {
	f := newFixture(t).
		add(directory.Buyers, rec("ID", "b1"), rec("ID", "b2")).
		add(directory.UserGroups, rec("ID", "g1", "BuyerID", "b1")).
		add(directory.ApprovalRules,
			rec("ID", "r1", "BuyerID", "b1", "ApprovingGroupID", "g1"),
			rec("ID", "r2", "BuyerID", "b2", "ApprovingGroupID", "g1"),
		)

	errs := f.validate()

	require.Len(t, errs, 1)
	assert.Equal(t, `Invalid reference ApprovalRules.ApprovingGroupID: no UserGroups found with ID "g1" within the BuyerID "b2".`, errs[0])
}

func TestValidate_ReferenceToDuplicateStillResolves(t *testing.T) {
	f := newFixture(t).
		add(directory.Catalogs, rec("ID", "cat1"), rec("ID", "cat1")).
		add(directory.Buyers, rec("ID", "b1", "DefaultCatalogID", "cat1"))

	errs := f.validate()

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Duplicate ID")
}

func TestValidate_RequiredFields(t *testing.T) {
	f := newFixture(t, func(b *directorytest.Builder) {
		b.Required(directory.Buyers, "Name")
		b.Property("Buyer", "Name", directory.SchemaObject{Type: "string"})
		b.Property("Buyer", "Active", directory.SchemaObject{Type: "boolean"})
	}).add(directory.Buyers, rec("ID", "b1"), rec("ID", "b2", "Name", "ok"))

	errs := f.validate()

	require.Len(t, errs, 1, "optional Active is absent on both records")
	assert.Equal(t, "Required field Buyers.Name: cannot have value null.", errs[0])
}

func TestValidate_TypesAndBounds(t *testing.T) {
	f := newFixture(t, func(b *directorytest.Builder) {
		b.Property("Buyer", "Name", directory.SchemaObject{Type: "string", MaxLength: intPtr(3)})
		b.Property("Buyer", "Active", directory.SchemaObject{Type: "boolean"})
		b.Property("Buyer", "Rank", directory.SchemaObject{Type: "integer", Minimum: floatPtr(1), Maximum: floatPtr(10)})
		b.Property("Buyer", "Score", directory.SchemaObject{Type: "number"})
		b.Property("Buyer", "Created", directory.SchemaObject{Type: "string", Format: "date-time"})
		b.Property("Buyer", "xp", directory.SchemaObject{Type: "object"})
	})

	cases := []struct {
		name   string
		record *marketplace.Record
		want   string
	}{
		{"valid", rec("ID", "b", "Name", "abc", "Active", true, "Rank", 5, "Score", 1.5, "Created", "2021-01-02T03:04:05Z", "xp", map[string]any{"a": 1}), ""},
		{"integral float is integer", rec("ID", "b", "Rank", 5.0), ""},
		{"string too long", rec("ID", "b", "Name", "abcd"), `Max string length for Buyers.Name is 3. Found "abcd".`},
		{"wrong boolean", rec("ID", "b", "Active", "yes"), "Incorrect type Buyers.Active: yes is string. Should be boolean."},
		{"fractional integer", rec("ID", "b", "Rank", 2.5), "Incorrect type Buyers.Rank: 2.5 is number. Should be integer."},
		{"above maximum", rec("ID", "b", "Rank", 11), "Maximum for Buyers.Rank is 10. Found 11."},
		{"below minimum", rec("ID", "b", "Rank", 0), "Minimum for Buyers.Rank is 1. Found 0."},
		{"number as string", rec("ID", "b", "Score", "1"), "Incorrect type Buyers.Score: 1 is string. Should be number."},
		{"bad date", rec("ID", "b", "Created", "yesterday"), `Buyers.Created should be a date format. Found "yesterday".`},
		{"object as list", rec("ID", "b", "xp", []any{"a"}), "Incorrect type Buyers.xp: a is array. Should be object."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := marketplace.New()
			doc.AddRecords(f.dir.MustGet(directory.Buyers), []*marketplace.Record{tc.record})
			errs := validation.Validate(f.dir, doc)
			if tc.want == "" {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, []string{tc.want}, errs)
		})
	}
}

func TestValidate_TypeMismatchSkipsReferenceCheck(t *testing.T) {
	f := newFixture(t).add(directory.Buyers, rec("ID", "b1", "DefaultCatalogID", 42))

	errs := f.validate()

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Incorrect type Buyers.DefaultCatalogID")
}

func TestValidate_ReadOnlyFieldsIgnored(t *testing.T) {
	f := newFixture(t).add(directory.Products, rec("ID", "p1", "VariantCount", "many"))
	assert.Empty(t, f.validate())
}

func TestValidate_ParentReference(t *testing.T) {
	f := newFixture(t).
		add(directory.Buyers, rec("ID", "b1")).
		add(directory.Users,
			rec("ID", "u1", "BuyerID", "b1"),
			rec("ID", "u2"),
			rec("ID", "u3", "BuyerID", "nope"),
		)

	errs := f.validate()

	assert.Equal(t, []string{
		"Required field Users.BuyerID: cannot have value null.",
		`Invalid reference Users.BuyerID: no Buyers found with ID "nope".`,
	}, errs)
}

func TestValidate_GrandchildParentReference(t *testing.T) {
	f := newFixture(t).
		add(directory.Products, rec("ID", "p1")).
		add(directory.Variants, rec("ID", "v1", "ProductID", "p1")).
		add(directory.VariantInventoryRecords,
			rec("ID", "i1", "ProductID", "p1", "VariantID", "v1"),
			rec("ID", "i2", "ProductID", "p1", "VariantID", "v2"),
		)

	errs := f.validate()

	require.Len(t, errs, 1)
	assert.Equal(t, `Invalid reference VariantInventoryRecords.ProductID: no Variants found with ID "p1/v2".`, errs[0])
}

func TestValidate_SpecDefaultOptionScopedToSpec(t *testing.T) {
	f := newFixture(t).
		add(directory.Specs, rec("ID", "color", "DefaultOptionID", "red"), rec("ID", "size", "DefaultOptionID", "red")).
		add(directory.SpecOptions, rec("ID", "red", "SpecID", "color"))

	errs := f.validate()

	require.Len(t, errs, 1)
	assert.Equal(t, `Invalid reference Specs.DefaultOptionID: no SpecOptions found with ID "red" within the ID "size".`, errs[0])
}

func TestValidate_CustomValidators(t *testing.T) {
	f := newFixture(t).
		add(directory.SecurityProfiles, rec("ID", "sp")).
		add(directory.Buyers, rec("ID", "b1")).
		add(directory.Suppliers, rec("ID", "s1")).
		add(directory.SecurityProfileAssignments, rec("SecurityProfileID", "sp", "BuyerID", "b1", "SupplierID", "s1")).
		add(directory.ApiClients, rec("ID", "c1", "DefaultContextUserName", "ghost")).
		add(directory.Webhooks, rec("ID", "w1", "ApiClientIDs", []any{"c1", "c2"}))

	errs := f.validate()

	assert.Equal(t, []string{
		`Invalid reference ApiClients.DefaultContextUserName: no User, SupplierUser or AdminUser found with Username "ghost".`,
		"Invalid reference Webhooks.ApiClientIDs: could not find ApiClients with IDs c2.",
		"SecurityProfileAssignment error: cannot include both a BuyerID and a SupplierID",
	}, errs)
}

func TestValidate_DoesNotMutateDocument(t *testing.T) {
	f := newFixture(t).add(directory.Buyers, rec("ID", "b1", "DefaultCatalogID", "x"))
	before := f.doc.Clone()

	f.validate()

	assert.True(t, before.GetRecords(f.dir.MustGet(directory.Buyers))[0].Equal(f.doc.GetRecords(f.dir.MustGet(directory.Buyers))[0]))
}

func TestIDCache(t *testing.T) {
	c := validation.NewIDCache()
	assert.True(t, c.Add("Buyers", "b1"))
	assert.False(t, c.Add("Buyers", "b1"))
	assert.True(t, c.Has("Buyers", "b1"))
	assert.False(t, c.Has("Users", "b1"))
	assert.Equal(t, 1, c.Len("Buyers"))
}
