package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/flowrequests/internal/domain"
	"github.com/shaiso/flowrequests/internal/engine"
)

const (
	// Значения по умолчанию.
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBody    = 10 * 1024 * 1024 // 10 MB
)

// Ключи настроек api узла.
const (
	configMethod     = "method"
	configURL        = "url"
	configHeaders    = "headers"
	configBody       = "body"
	configTimeoutSec = "timeout_sec"
)

// HTTPNode — узел HTTP запроса (тип "api").
//
// Настройки:
//
//	{
//	    "method": "POST",
//	    "url": "{{ envData.baseUrl }}/users",
//	    "headers": [{"key": "Authorization", "value": "Bearer {{ envData.token }}"}],
//	    "body": [{"key": "name", "value": "{{ person.firstName() }}"}],
//	    "timeout_sec": 30
//	}
//
// headers и body принимают и список пар, и обычный объект.
// Строковый body отправляется как есть.
//
// Output — тело ответа (JSON или строка).
// При статусе >= 400 возвращается engine.NodeExecutionError со статусом
// и телом ответа.
type HTTPNode struct {
	client *http.Client
}

// NewHTTPNode создаёт HTTPNode. nil client — клиент с таймаутом 30s.
func NewHTTPNode(client *http.Client) *HTTPNode {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPNode{client: client}
}

// Config возвращает описание узла.
func (n *HTTPNode) Config() engine.NodeConfig {
	return engine.NodeConfig{
		Name:        "HTTP Request",
		Type:        domain.NodeTypeAPI,
		Description: "Send an HTTP request",
		Properties: []engine.Property{
			{Name: configMethod, Type: "string", Label: "Method", Default: http.MethodGet},
			{Name: configURL, Type: "string", Label: "URL", Required: true},
			{Name: configHeaders, Type: "list", Label: "Headers"},
			{Name: configBody, Type: "list", Label: "Body"},
			{Name: configTimeoutSec, Type: "number", Label: "Timeout (sec)"},
		},
	}
}

// Execute выполняет HTTP запрос.
func (n *HTTPNode) Execute(ctx context.Context, in *engine.NodeInput) (engine.Result, error) {
	cfg, err := n.parseConfig(in)
	if err != nil {
		return engine.Result{}, err
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	req, err := n.buildRequest(ctx, cfg)
	if err != nil {
		return engine.Result{}, fmt.Errorf("%w: build request: %v", ErrHTTPRequest, err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return engine.Result{}, fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err())
		}
		return engine.Result{}, fmt.Errorf("%w: %v", ErrHTTPRequest, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return engine.Result{}, fmt.Errorf("%w: read response: %v", ErrHTTPRequest, err)
	}

	if resp.StatusCode >= 400 {
		return engine.Result{}, &engine.NodeExecutionError{
			Status: resp.StatusCode,
			Data:   body,
		}
	}

	return engine.Continue(body), nil
}

// httpConfig — разрешённые настройки api узла.
type httpConfig struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    any
	Timeout time.Duration
}

// parseConfig разрешает выражения в url, headers и body.
func (n *HTTPNode) parseConfig(in *engine.NodeInput) (*httpConfig, error) {
	url, err := in.StringSetting(configURL)
	if err != nil {
		return nil, err
	}
	if url == "" {
		return nil, fmt.Errorf("%w: %s: url is required", ErrInvalidConfig, domain.NodeTypeAPI)
	}

	method, err := in.StringSetting(configMethod)
	if err != nil {
		return nil, err
	}
	if method == "" {
		method = http.MethodGet
	}

	cfg := &httpConfig{
		Method:  strings.ToUpper(method),
		URL:     url,
		Headers: make(map[string]string),
	}

	if sec := GetConfigInt(in.Settings, configTimeoutSec); sec > 0 {
		cfg.Timeout = time.Duration(sec) * time.Second
	}

	headers, err := ResolveKeyValues(in, in.Settings[configHeaders])
	if err != nil {
		return nil, err
	}
	for key, val := range headers {
		cfg.Headers[key] = headerValue(val)
	}

	if raw, ok := in.Settings[configBody]; ok && raw != nil {
		if KeyValues(raw) == nil {
			cfg.Body, err = in.Resolve(raw)
			if err != nil {
				return nil, err
			}
		} else {
			kv, err := ResolveKeyValues(in, raw)
			if err != nil {
				return nil, err
			}
			if len(kv) > 0 {
				cfg.Body = kv
			}
		}
	}

	return cfg, nil
}

// buildRequest создаёт HTTP запрос.
func (n *HTTPNode) buildRequest(ctx context.Context, cfg *httpConfig) (*http.Request, error) {
	var bodyReader io.Reader

	if cfg.Body != nil {
		bodyBytes, err := serializeBody(cfg.Body)
		if err != nil {
			return nil, fmt.Errorf("serialize body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, bodyReader)
	if err != nil {
		return nil, err
	}

	for key, value := range cfg.Headers {
		req.Header.Set(key, value)
	}

	// Content-Type по умолчанию для запросов с body
	if bodyReader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// serializeBody сериализует body в bytes.
func serializeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// readBody читает тело ответа: JSON, иначе строка.
func readBody(resp *http.Response) (any, error) {
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, err
	}
	if len(bodyBytes) == 0 {
		return map[string]any{}, nil
	}

	var body any
	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		return string(bodyBytes), nil
	}
	return body, nil
}

func headerValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
