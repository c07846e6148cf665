// Package ordercloud реализует доступ к REST API платформы маркетплейса
package ordercloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/athebyme/gomarket-seeder/internal/domain/directory"
	"github.com/athebyme/gomarket-seeder/internal/domain/marketplace"
	"github.com/athebyme/gomarket-seeder/internal/domain/remote"
	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
)

const apiVersionPrefix = "/v1"

// Client HTTP-клиент ресурсов платформы.
// Токен доступа добавляет транспорт переданного http.Client.
type Client struct {
	baseURL string
	client  *http.Client
	log     interfaces.LoggerPort
}

var _ remote.Client = (*Client)(nil)

// NewClient создает клиент для baseURL вида https://sandboxapi.ordercloud.io
func NewClient(baseURL string, httpClient *http.Client, log interfaces.LoggerPort) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
		log:     log,
	}
}

func (c *Client) List(ctx context.Context, res *directory.Descriptor, routeParams []string, opts remote.ListOptions) (*remote.ListPage, error) {
	query := url.Values{}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	switch res.ListMethod {
	case directory.List, directory.ListOptions:
		if opts.Depth != "" {
			query.Set("depth", opts.Depth)
		}
	case directory.ListAssignments, directory.ListUserAssignments, directory.ListProductAssignments:
		// списки связей не принимают depth
	default:
		return nil, fmt.Errorf("unsupported list method %q for %s", res.ListMethod, res.Name)
	}

	var page remote.ListPage
	if _, err := c.doRequest(ctx, http.MethodGet, resourcePath(res, routeParams), query, nil, &page); err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []*marketplace.Record{}
	}
	return &page, nil
}

func (c *Client) Create(ctx context.Context, res *directory.Descriptor, routeParams []string, rec *marketplace.Record) (*marketplace.Record, error) {
	path := resourcePath(res, routeParams)
	switch res.CreateMethod {
	case directory.Create:
		return c.writeRecord(ctx, http.MethodPost, path, rec)
	case directory.CreateAssignment, directory.SaveAssignment:
		return c.saveAssignment(ctx, path, rec)
	default:
		return nil, fmt.Errorf("unsupported create method %q for %s", res.CreateMethod, res.Name)
	}
}

// saveAssignment сохраняет связь; платформа не возвращает ее, поэтому результатом служит копия отправленной
func (c *Client) saveAssignment(ctx context.Context, path string, rec *marketplace.Record) (*marketplace.Record, error) {
	if _, err := c.doRequest(ctx, http.MethodPost, path, nil, rec, nil); err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

func (c *Client) Patch(ctx context.Context, res *directory.Descriptor, routeParams []string, id string, patch *marketplace.Record) (*marketplace.Record, error) {
	path := resourcePath(res, routeParams) + "/" + url.PathEscape(id)
	return c.writeRecord(ctx, http.MethodPatch, path, patch)
}

func (c *Client) GenerateVariants(ctx context.Context, productID string) (*marketplace.Record, error) {
	path := fmt.Sprintf("/products/%s/variants/generate", url.PathEscape(productID))
	return c.writeRecord(ctx, http.MethodPost, path, nil)
}

func (c *Client) SaveVariant(ctx context.Context, productID, variantID string, variant *marketplace.Record) (*marketplace.Record, error) {
	path := fmt.Sprintf("/products/%s/variants/%s", url.PathEscape(productID), url.PathEscape(variantID))
	return c.writeRecord(ctx, http.MethodPut, path, variant)
}

// writeRecord отправляет запись и читает сохраненную платформой версию.
// Пустой ответ заменяется копией отправленной записи.
func (c *Client) writeRecord(ctx context.Context, method, path string, rec *marketplace.Record) (*marketplace.Record, error) {
	out := marketplace.NewRecord()
	status, err := c.doRequest(ctx, method, path, nil, rec, out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || out.Len() == 0 {
		if rec == nil {
			return marketplace.NewRecord(), nil
		}
		return rec.Clone(), nil
	}
	return out, nil
}

func resourcePath(res *directory.Descriptor, routeParams []string) string {
	escaped := make([]string, len(routeParams))
	for i, p := range routeParams {
		escaped[i] = url.PathEscape(p)
	}
	return res.PathFor(escaped...)
}

// doRequest выполняет запрос к API; response заполняется из JSON тела ответа
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, requestBody *marketplace.Record, response any) (int, error) {
	fullURL := c.baseURL + apiVersionPrefix + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var (
		body    io.Reader
		payload []byte
	)
	if requestBody != nil {
		var err error
		payload, err = json.Marshal(requestBody)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if c.log != nil {
		c.log.Debug("Запрос к API выполнен",
			interfaces.LogField{Key: "method", Value: method},
			interfaces.LogField{Key: "url", Value: fullURL},
			interfaces.LogField{Key: "status", Value: resp.StatusCode},
			interfaces.LogField{Key: "duration_ms", Value: time.Since(start).Milliseconds()},
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, newAPIError(method, fullURL, payload, resp.StatusCode, respBody)
	}

	if response != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, response); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

type errorEnvelope struct {
	Errors []remote.ErrorDetail `json:"Errors"`
}

func newAPIError(method, fullURL string, payload []byte, status int, body []byte) *remote.APIError {
	apiErr := &remote.APIError{
		Method:      method,
		URL:         fullURL,
		RequestBody: string(payload),
		Status:      status,
	}
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Errors) > 0 {
		apiErr.Errors = envelope.Errors
		return apiErr
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		apiErr.Errors = []remote.ErrorDetail{{ErrorCode: http.StatusText(status), Message: text}}
	}
	return apiErr
}
