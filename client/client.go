// Package client is the HTTP client for the schemad sync API, used by the
// extraction pipeline and by external tooling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"time"

	"github.com/webmemo/schemad"
)

const defaultTimeout = 30 * time.Second

type Client struct {
	client    *http.Client
	baseURL   string
	token     string
	userAgent string
}

// New builds a client for the sync API at baseURL. token is the
// administrative capability presented as a Bearer credential.
func New(baseURL string, token string) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:    &httpClient,
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		userAgent: "schemad-client/1.0",
	}
	httpClient.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return http.DefaultTransport.RoundTrip(req)
}

// ListFilter narrows GetSchemas. Zero value lists everything.
type ListFilter struct {
	SubjectID   *int64
	SubjectKind string
	SchemaKind  string
}

func (c *Client) GetSchemas(ctx context.Context, filter ListFilter) ([]schemad.Schema, error) {
	params := url.Values{}
	if filter.SubjectID != nil {
		params.Set("subject_id", strconv.FormatInt(*filter.SubjectID, 10))
		params.Set("subject_kind", filter.SubjectKind)
	}
	if filter.SchemaKind != "" {
		params.Set("schema_kind", filter.SchemaKind)
	}

	path := "/api/v1/schemas"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var schemas []schemad.Schema
	if err := c.do(ctx, http.MethodGet, path, nil, &schemas); err != nil {
		return nil, err
	}
	return schemas, nil
}

func (c *Client) GetSchema(ctx context.Context, id int64) (schemad.Schema, error) {
	var schema schemad.Schema
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/schemas/%d", id), nil, &schema); err != nil {
		return schemad.Schema{}, err
	}
	return schema, nil
}

func (c *Client) CreateSchema(ctx context.Context, req schemad.UpsertRequest) (int64, error) {
	var resp schemad.UpsertResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/schemas", req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

func (c *Client) UpdateSchema(ctx context.Context, id int64, payload string) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/schemas/%d", id), schemad.UpdateRequest{Payload: payload}, nil)
}

func (c *Client) DeleteSchema(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/schemas/%d", id), nil, nil)
}

func (c *Client) DeleteBySubject(ctx context.Context, subjectID int64, subjectKind string) (int64, error) {
	params := url.Values{}
	params.Set("subject_id", strconv.FormatInt(subjectID, 10))
	params.Set("subject_kind", subjectKind)

	var resp schemad.DeleteResponse
	if err := c.do(ctx, http.MethodDelete, "/api/v1/schemas?"+params.Encode(), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// BulkUpsert submits one batch. A non-nil error means the batch as a whole
// could not be submitted; per-record outcomes are in the report.
func (c *Client) BulkUpsert(ctx context.Context, schemas []schemad.UpsertRequest) (schemad.BulkReport, error) {
	var report schemad.BulkReport
	err := c.do(ctx, http.MethodPost, "/api/v1/schemas/bulk", schemad.BulkRequest{Schemas: schemas}, &report)
	if err != nil {
		return schemad.BulkReport{}, err
	}
	return report, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, response any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if response == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}
	return nil
}
