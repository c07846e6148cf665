// Package remotetest содержит реализацию remote.Client в памяти для тестов
package remotetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/athebyme/gomarket-seeder/internal/domain/directory"
	"github.com/athebyme/gomarket-seeder/internal/domain/marketplace"
	"github.com/athebyme/gomarket-seeder/internal/domain/remote"
	"github.com/athebyme/gomarket-seeder/pkg/utils"
)

// Call запись об обращении к клиенту
type Call struct {
	Op          string
	Resource    string
	RouteParams []string
	Page        int
	Depth       string
	ID          string
	Record      *marketplace.Record
}

// Client хранит записи в памяти и запоминает все вызовы
type Client struct {
	mu     sync.Mutex
	store  map[string][]*marketplace.Record
	calls  []Call
	nextID int

	// ServerAssignedIDs ресурсы, для которых платформа выдает собственный ID
	ServerAssignedIDs map[string]bool
	// FailCreate позволяет вернуть ошибку на создание конкретной записи
	FailCreate func(resource string, rec *marketplace.Record) error
	// FailList позволяет вернуть ошибку на запрос страницы
	FailList func(resource string, page int) error
}

// New создает пустой клиент
func New() *Client {
	return &Client{
		store:             make(map[string][]*marketplace.Record),
		ServerAssignedIDs: map[string]bool{directory.ApiClients: true},
	}
}

func storeKey(resource string, params []string) string {
	return resource + "|" + strings.Join(params, "/")
}

// Seed кладет записи ресурса в хранилище
func (c *Client) Seed(resource string, params []string, records ...*marketplace.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := storeKey(resource, params)
	c.store[key] = append(c.store[key], records...)
}

// Stored записи ресурса в хранилище
func (c *Client) Stored(resource string, params ...string) []*marketplace.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*marketplace.Record(nil), c.store[storeKey(resource, params)]...)
}

// Calls копия журнала вызовов
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// CallsOf вызовы указанной операции
func (c *Client) CallsOf(op string) []Call {
	var out []Call
	for _, call := range c.Calls() {
		if call.Op == op {
			out = append(out, call)
		}
	}
	return out
}

func (c *Client) record(call Call) {
	c.calls = append(c.calls, call)
}

func (c *Client) List(ctx context.Context, res *directory.Descriptor, routeParams []string, opts remote.ListOptions) (*remote.ListPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.record(Call{Op: "List", Resource: res.Name, RouteParams: routeParams, Page: opts.Page, Depth: opts.Depth})
	all := c.store[storeKey(res.Name, routeParams)]
	fail := c.FailList
	c.mu.Unlock()

	if fail != nil {
		if err := fail(res.Name, opts.Page); err != nil {
			return nil, err
		}
	}

	meta := utils.NewPagination(opts.Page, opts.PageSize)
	meta.SetTotal(len(all))
	start := min((meta.Page-1)*meta.PageSize, len(all))
	end := min(start+meta.PageSize, len(all))
	items := make([]*marketplace.Record, 0, end-start)
	for _, r := range all[start:end] {
		items = append(items, r.Clone())
	}
	return &remote.ListPage{Items: items, Meta: *meta}, nil
}

func (c *Client) Create(ctx context.Context, res *directory.Descriptor, routeParams []string, rec *marketplace.Record) (*marketplace.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.record(Call{Op: "Create", Resource: res.Name, RouteParams: routeParams, Record: rec.Clone()})
	fail := c.FailCreate
	c.mu.Unlock()

	if fail != nil {
		if err := fail(res.Name, rec); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	created := rec.Clone()
	if c.ServerAssignedIDs[res.Name] || (!res.IsAssignment && created.IsNil("ID")) {
		c.nextID++
		created.SetString("ID", fmt.Sprintf("srv-%d", c.nextID))
	}
	key := storeKey(res.Name, routeParams)
	c.store[key] = append(c.store[key], created)
	return created.Clone(), nil
}

func (c *Client) Patch(ctx context.Context, res *directory.Descriptor, routeParams []string, id string, patch *marketplace.Record) (*marketplace.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(Call{Op: "Patch", Resource: res.Name, RouteParams: routeParams, ID: id, Record: patch.Clone()})
	for _, r := range c.store[storeKey(res.Name, routeParams)] {
		if r.ID() == id {
			for _, k := range patch.Keys() {
				r.Set(k, patch.Value(k).Clone())
			}
			return r.Clone(), nil
		}
	}
	return nil, &remote.APIError{Method: "PATCH", URL: res.PathFor(routeParams...) + "/" + id, Status: 404,
		Errors: []remote.ErrorDetail{{ErrorCode: "NotFound", Message: "not found"}}}
}

func (c *Client) GenerateVariants(ctx context.Context, productID string) (*marketplace.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(Call{Op: "GenerateVariants", Resource: directory.Products, ID: productID})
	return marketplace.NewRecord().SetString("ID", productID), nil
}

func (c *Client) SaveVariant(ctx context.Context, productID, variantID string, variant *marketplace.Record) (*marketplace.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(Call{Op: "SaveVariant", Resource: directory.Variants, RouteParams: []string{productID}, ID: variantID, Record: variant.Clone()})
	saved := variant.Clone().SetString("ID", variantID)
	key := storeKey(directory.Variants, []string{productID})
	c.store[key] = append(c.store[key], saved)
	return saved.Clone(), nil
}

var _ remote.Client = (*Client)(nil)
