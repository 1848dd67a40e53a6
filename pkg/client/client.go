package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/diwise/entity-binder/pkg/binding/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type EntityBinderClient interface {
	BindEntity(ctx context.Context, method, entityType, entityID string, body io.Reader, headers map[string][]string) (map[string]any, error)
	RetrieveTypes(ctx context.Context, headers map[string][]string) ([]TypeInfo, error)
}

type TypeInfo struct {
	Type        string   `json:"type"`
	Extends     string   `json:"extends,omitempty"`
	Abstract    bool     `json:"abstract,omitempty"`
	Identifiers []string `json:"identifiers"`
	Lookup      []string `json:"lookup,omitempty"`
}

func Debug(enabled string) func(*ebClient) {
	return func(c *ebClient) {
		c.debug = (enabled == "true")
	}
}

func NewEntityBinderClient(baseURL string, options ...func(*ebClient)) EntityBinderClient {
	c := &ebClient{
		baseURL: baseURL,
		debug:   false,
		httpClient: http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}

	for _, option := range options {
		option(c)
	}

	return c
}

const (
	TraceAttributeEntityType string = "entity-type"
	TraceAttributeEntityID   string = "entity-id"
)

var tracer = otel.Tracer("entity-binder-client")

type ebClient struct {
	baseURL    string
	debug      bool
	httpClient http.Client
}

// BindEntity asks the service to bind entityType from body. An empty entityID
// binds a new entity, otherwise the entity stored under that id is updated.
func (c ebClient) BindEntity(ctx context.Context, method, entityType, entityID string, body io.Reader, headers map[string][]string) (map[string]any, error) {
	var err error

	ctx, span := tracer.Start(ctx, "bind-entity",
		trace.WithAttributes(attribute.String(TraceAttributeEntityType, entityType)),
		trace.WithAttributes(attribute.String(TraceAttributeEntityID, entityID)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	endpoint := c.baseURL + "/api/v1/entities/" + url.PathEscape(entityType)
	if entityID != "" {
		endpoint += "/" + url.PathEscape(entityID)
	}

	response, responseBody, err := c.callEntityBinder(ctx, method, endpoint, body, headers)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		err = errorFromResponse(response, responseBody)
		return nil, err
	}

	entity := map[string]any{}
	err = json.Unmarshal(responseBody, &entity)
	if err != nil {
		return nil, err
	}

	return entity, nil
}

func (c ebClient) RetrieveTypes(ctx context.Context, headers map[string][]string) ([]TypeInfo, error) {
	var err error

	ctx, span := tracer.Start(ctx, "retrieve-types")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	response, responseBody, err := c.callEntityBinder(ctx, http.MethodGet, c.baseURL+"/api/v1/types", nil, headers)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		err = errorFromResponse(response, responseBody)
		return nil, err
	}

	var types []TypeInfo
	err = json.Unmarshal(responseBody, &types)
	if err != nil {
		return nil, err
	}

	return types, nil
}

func errorFromResponse(response *http.Response, responseBody []byte) error {
	contentType := response.Header.Get("Content-Type")
	if response.StatusCode >= http.StatusBadRequest && response.StatusCode <= http.StatusInternalServerError {
		return errors.NewErrorFromProblemReport(response.StatusCode, contentType, responseBody)
	}
	return fmt.Errorf("entity binder returned status code %d (content-type: %s, body: %s)", response.StatusCode, contentType, string(responseBody))
}

func (c ebClient) callEntityBinder(ctx context.Context, method, endpoint string, body io.Reader, headers map[string][]string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		err = fmt.Errorf("failed to create request: %s (%w)", err.Error(), errors.ErrInternal)
		return nil, nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for header, headerValue := range headers {
		req.Header[http.CanonicalHeaderKey(header)] = append([]string{}, headerValue...)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to send request: %s (%w)", err.Error(), errors.ErrRequest)
		return nil, nil, err
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("failed to read response body: %s (%w)", err.Error(), errors.ErrBadResponse)
		return nil, nil, err
	}

	if c.debug && resp.StatusCode >= http.StatusBadRequest {
		reqbytes, _ := httputil.DumpRequest(req, false)
		respbytes, _ := httputil.DumpResponse(resp, false)

		log := logging.GetFromContext(ctx)
		log.Error("request failed", "request", string(reqbytes), "response", string(respbytes))
	}

	return resp, respBody, nil
}
