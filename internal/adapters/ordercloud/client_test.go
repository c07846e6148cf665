package ordercloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/athebyme/gomarket-seeder/internal/adapters/cache"
	"github.com/athebyme/gomarket-seeder/internal/domain/directory"
	"github.com/athebyme/gomarket-seeder/internal/domain/directory/directorytest"
	"github.com/athebyme/gomarket-seeder/internal/domain/marketplace"
	"github.com/athebyme/gomarket-seeder/internal/domain/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, capturedRequest{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.RawQuery,
			Body:   string(data),
		})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestClient_ListBuildsRouteAndQuery(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK,
		`{"Meta":{"Page":2,"PageSize":100,"TotalCount":150,"TotalPages":2,"ItemRange":[101,150]},"Items":[{"ID":"u1","Username":"ann"}]}`)
	client := NewClient(srv.URL, srv.Client(), nil)
	users := directory.Static().MustGet(directory.Users)

	page, err := client.List(context.Background(), users, []string{"buyer 1"}, remote.ListOptions{Page: 2, PageSize: 100})
	require.NoError(t, err)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/v1/buyers/buyer%201/users", req.Path)
	assert.Equal(t, "page=2&pageSize=100", req.Query)

	assert.Equal(t, 2, page.Meta.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "u1", page.Items[0].ID())
	assert.Equal(t, []string{"ID", "Username"}, page.Items[0].Keys())
}

func TestClient_ListDepthAndEmptyItems(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, `{"Meta":{"Page":1,"PageSize":100,"TotalCount":0,"TotalPages":0}}`)
	client := NewClient(srv.URL, srv.Client(), nil)
	categories := directory.Static().MustGet(directory.Categories)

	page, err := client.List(context.Background(), categories, []string{"c1"}, remote.ListOptions{Page: 1, PageSize: 100, Depth: "all"})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, "depth=all&page=1&pageSize=100", (*requests)[0].Query)
}

func TestClient_CreateReturnsStoredRecord(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusCreated, `{"ID":"srv-1","Name":"Storefront","ClientSecret":null}`)
	client := NewClient(srv.URL, srv.Client(), nil)
	apiClients := directory.Static().MustGet(directory.ApiClients)

	rec := marketplace.NewRecord().SetString("ID", "local").SetString("Name", "Storefront")
	created, err := client.Create(context.Background(), apiClients, nil, rec)
	require.NoError(t, err)

	assert.Equal(t, "srv-1", created.ID())
	req := (*requests)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/v1/apiclients", req.Path)
	assert.JSONEq(t, `{"ID":"local","Name":"Storefront"}`, req.Body)
}

func TestClient_AssignmentNoContentEchoesRequest(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusNoContent, "")
	client := NewClient(srv.URL, srv.Client(), nil)
	assignments := directory.Static().MustGet(directory.UserGroupAssignments)

	rec := marketplace.NewRecord().SetString("UserGroupID", "g1").SetString("UserID", "u1")
	saved, err := client.Create(context.Background(), assignments, []string{"b1"}, rec)
	require.NoError(t, err)

	assert.True(t, saved.Equal(rec))
	assert.NotSame(t, rec, saved)
	assert.Equal(t, "/v1/buyers/b1/usergroups/assignments", (*requests)[0].Path)
}

func TestClient_DispatchesOnDescriptorMethods(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, `{"Meta":{"Page":1,"PageSize":100,"TotalCount":0,"TotalPages":0},"Items":[]}`)
	client := NewClient(srv.URL, srv.Client(), nil)
	ctx := context.Background()
	dir := directory.Static()

	_, err := client.List(ctx, dir.MustGet(directory.CatalogAssignments), nil, remote.ListOptions{Page: 1, Depth: "all"})
	require.NoError(t, err)
	assert.Equal(t, "page=1", (*requests)[0].Query)

	rec := marketplace.NewRecord().SetString("CatalogID", "cat1").SetString("BuyerID", "b1")
	saved, err := client.Create(ctx, dir.MustGet(directory.CatalogAssignments), nil, rec)
	require.NoError(t, err)
	assert.True(t, saved.Equal(rec), "assignment response body is not read")

	unknown := *dir.MustGet(directory.Buyers)
	unknown.CreateMethod = "Upsert"
	_, err = client.Create(ctx, &unknown, nil, marketplace.NewRecord().SetString("ID", "b1"))
	assert.ErrorContains(t, err, `unsupported create method "Upsert"`)

	unknown = *dir.MustGet(directory.Buyers)
	unknown.ListMethod = "Search"
	_, err = client.List(ctx, &unknown, nil, remote.ListOptions{Page: 1})
	assert.ErrorContains(t, err, `unsupported list method "Search"`)

	assert.Len(t, *requests, 2)
}

func TestClient_PatchAndVariants(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, `{"ID":"x"}`)
	client := NewClient(srv.URL, srv.Client(), nil)
	ctx := context.Background()
	specs := directory.Static().MustGet(directory.Specs)

	_, err := client.Patch(ctx, specs, nil, "size", marketplace.NewRecord().SetString("DefaultOptionID", "m"))
	require.NoError(t, err)
	_, err = client.GenerateVariants(ctx, "p1")
	require.NoError(t, err)
	_, err = client.SaveVariant(ctx, "p1", "p1-m", marketplace.NewRecord().SetString("ID", "p1-m"))
	require.NoError(t, err)

	require.Len(t, *requests, 3)
	assert.Equal(t, capturedRequest{Method: http.MethodPatch, Path: "/v1/specs/size", Body: `{"DefaultOptionID":"m"}`}, (*requests)[0])
	assert.Equal(t, http.MethodPost, (*requests)[1].Method)
	assert.Equal(t, "/v1/products/p1/variants/generate", (*requests)[1].Path)
	assert.Empty(t, (*requests)[1].Body)
	assert.Equal(t, http.MethodPut, (*requests)[2].Method)
	assert.Equal(t, "/v1/products/p1/variants/p1-m", (*requests)[2].Path)
}

func TestClient_ErrorResponseBecomesAPIError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusBadRequest,
		`{"Errors":[{"ErrorCode":"IdExists","Message":"Object already exists.","Data":{"ObjectID":"b1"}}]}`)
	client := NewClient(srv.URL, srv.Client(), nil)
	buyers := directory.Static().MustGet(directory.Buyers)

	_, err := client.Create(context.Background(), buyers, nil, marketplace.NewRecord().SetString("ID", "b1"))
	require.Error(t, err)

	var apiErr *remote.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.MethodPost, apiErr.Method)
	assert.Equal(t, srv.URL+"/v1/buyers", apiErr.URL)
	assert.Equal(t, `{"ID":"b1"}`, apiErr.RequestBody)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.NotNil(t, apiErr.FirstError())
	assert.Equal(t, "IdExists", apiErr.FirstError().ErrorCode)
	assert.Contains(t, err.Error(), "Object already exists.")
}

func TestClient_PlainTextErrorBody(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusBadGateway, "upstream failed")
	client := NewClient(srv.URL, srv.Client(), nil)

	_, err := client.List(context.Background(), directory.Static().MustGet(directory.Buyers), nil, remote.ListOptions{Page: 1})
	var apiErr *remote.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream failed", apiErr.FirstError().Message)
}

func TestClient_CanceledContext(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{}`)
	client := NewClient(srv.URL, srv.Client(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GenerateVariants(ctx, "p1")
	assert.ErrorIs(t, err, context.Canceled)
}

func schemaDocument(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(directorytest.NewBuilder().Spec())
	require.NoError(t, err)
	return data
}

func TestSchemaSource_FetchesOnceAndCaches(t *testing.T) {
	doc := schemaDocument(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/v1/openapi/v3", r.URL.Path)
		_, _ = w.Write(doc)
	}))
	defer srv.Close()

	memory := cache.NewMemoryCache(time.Hour, time.Hour)
	src := NewSchemaSource(SchemaURL(srv.URL), srv.Client(), memory, 0, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			spec, err := src.OpenAPI(context.Background())
			assert.NoError(t, err)
			assert.NotEmpty(t, spec.Paths)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), hits.Load())

	cached, err := memory.Get(context.Background(), "openapi:"+SchemaURL(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, doc, cached)

	// новый источник берет документ из общего кэша
	again := NewSchemaSource(SchemaURL(srv.URL), srv.Client(), memory, 0, nil)
	_, err = again.OpenAPI(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSchemaSource_BuildsDirectory(t *testing.T) {
	doc := schemaDocument(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(doc)
	}))
	defer srv.Close()

	dir, err := directory.Build(context.Background(), NewSchemaSource(SchemaURL(srv.URL), srv.Client(), nil, 0, nil))
	require.NoError(t, err)
	assert.True(t, dir.SchemaIncluded())
}

func TestSchemaSource_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := directory.Build(context.Background(), NewSchemaSource(SchemaURL(srv.URL), srv.Client(), nil, 0, nil))
	var schemaErr *directory.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Contains(t, err.Error(), "status 503")
}
