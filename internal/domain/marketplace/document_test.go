package marketplace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testResource struct {
	name  string
	group Group
}

func (r testResource) Key() string      { return r.name }
func (r testResource) Grouping() Group { return r.group }

var (
	buyers     = testResource{name: "Buyers", group: GroupObjects}
	catalogs   = testResource{name: "Catalogs", group: GroupObjects}
	assignment = testResource{name: "CatalogAssignments", group: GroupAssignments}
)

func TestAddRecords_PreservesOrder(t *testing.T) {
	m := New()
	m.AddRecords(buyers, []*Record{NewRecord().SetString("ID", "b1")})
	m.AddRecords(catalogs, []*Record{NewRecord().SetString("ID", "c1")})
	m.AddRecords(buyers, []*Record{NewRecord().SetString("ID", "b2")})

	got := m.GetRecords(buyers)
	require.Len(t, got, 2)
	assert.Equal(t, "b1", got[0].ID())
	assert.Equal(t, "b2", got[1].ID())
	assert.Equal(t, []string{"Buyers", "Catalogs"}, m.Objects.Names())
	assert.Empty(t, m.GetRecords(assignment))
	assert.NotNil(t, m.GetRecords(assignment))
}

func TestDocument_YAMLRoundTripKeepsTypes(t *testing.T) {
	xp := NewRecord().
		SetAny("Color", "red").
		SetAny("Tags", []any{"a", "b"}).
		Set("Empty", Null())

	rec := NewRecord().
		SetString("ID", "p1").
		Set("Active", Bool(true)).
		Set("QuantityMultiplier", Int(3)).
		Set("ShipWeight", Float(2)).
		Set("Price", Float(9.99)).
		SetString("Code", "00123").
		SetString("Flag", "true").
		SetString("Description", "line one\nline two").
		Set("DefaultPriceScheduleID", Null()).
		Set("xp", Map(xp))

	m := New()
	m.AddRecords(catalogs, []*Record{rec})
	m.AddRecords(assignment, []*Record{NewRecord().SetString("CatalogID", "c1").SetString("BuyerID", "b1")})

	data, err := m.Marshal()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)

	got := parsed.GetRecords(catalogs)
	require.Len(t, got, 1)
	assert.True(t, rec.Equal(got[0]), "record changed after round trip:\n%s", data)
	assert.Equal(t, rec.Keys(), got[0].Keys())
	assert.Equal(t, KindFloat, got[0].Value("ShipWeight").Kind())
	assert.Equal(t, KindString, got[0].Value("Code").Kind())
	assert.Equal(t, KindString, got[0].Value("Flag").Kind())
	assert.Len(t, parsed.GetRecords(assignment), 1)
}

func TestDocument_JSONRoundTrip(t *testing.T) {
	rec := NewRecord().SetString("ID", "b1").Set("Active", Bool(false)).Set("Count", Int(7)).Set("Ratio", Float(0.5))
	m := New()
	m.AddRecords(buyers, []*Record{rec})

	data, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"Objects":{"Buyers":[{"ID":"b1","Active":false,"Count":7,"Ratio":0.5}]},"Assignments":{}}`, string(data))

	// JSON является подмножеством YAML
	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.True(t, rec.Equal(parsed.GetRecords(buyers)[0]))
}

func TestRecord_UnmarshalJSONKeepsFieldOrder(t *testing.T) {
	var rec Record
	require.NoError(t, rec.UnmarshalJSON([]byte(`{"Z":1,"A":2.5,"M":{"k":[1,"x",null]}}`)))

	assert.Equal(t, []string{"Z", "A", "M"}, rec.Keys())
	assert.Equal(t, KindInt, rec.Value("Z").Kind())
	assert.Equal(t, KindFloat, rec.Value("A").Kind())
	nested, ok := rec.Value("M").AsMap()
	require.True(t, ok)
	items, ok := nested.Value("k").AsList()
	require.True(t, ok)
	assert.Len(t, items, 3)
	assert.True(t, items[2].IsNull())
}

func TestReadFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadFromFile(filepath.Join(dir, "missing.yml"))
	assert.ErrorIs(t, err, ErrFileNotFound)

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("Objects: [unclosed"), 0o644))
	_, err = ReadFromFile(bad)
	assert.ErrorIs(t, err, ErrInvalidDocument)

	wrongShape := filepath.Join(dir, "shape.yml")
	require.NoError(t, os.WriteFile(wrongShape, []byte("Objects:\n  Buyers: 5\n"), 0o644))
	_, err = ReadFromFile(wrongShape)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestWriteToFile_ReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketplace.yml")
	m := New()
	m.AddRecords(buyers, []*Record{NewRecord().SetString("ID", "b1")})
	require.NoError(t, m.WriteToFile(path))

	back, err := ReadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "b1", back.GetRecords(buyers)[0].ID())
	assert.Equal(t, 1, back.Count())
}

func TestLoad_FromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/marketplace.yml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("Objects:\n  Buyers:\n    - ID: b1\nAssignments: {}\n"))
	}))
	defer srv.Close()

	m, err := Load(context.Background(), srv.Client(), srv.URL+"/marketplace.yml")
	require.NoError(t, err)
	assert.Equal(t, "b1", m.GetRecords(buyers)[0].ID())

	_, err = Load(context.Background(), srv.Client(), srv.URL+"/other.yml")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestValue_IntegerSemantics(t *testing.T) {
	assert.True(t, Float(3).IsInteger())
	assert.False(t, Float(3.5).IsInteger())
	i, ok := Float(4).AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(4), i)
	assert.Equal(t, "integer", Int(1).Kind().String())
	assert.Equal(t, "a,b", Strings("a", "b").String())
}

func TestClone_IsDeep(t *testing.T) {
	m := New()
	m.AddRecords(buyers, []*Record{NewRecord().SetString("ID", "b1")})
	c := m.Clone()
	c.GetRecords(buyers)[0].SetString("ID", "changed")
	assert.Equal(t, "b1", m.GetRecords(buyers)[0].ID())
}
