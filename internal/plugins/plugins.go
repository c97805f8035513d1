package plugins

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shaiso/flowrequests/internal/engine"
	"github.com/shaiso/flowrequests/internal/plugin"
)

// Exposed names встроенных плагинов.
const (
	ExposedAlertMessage   = "message-alert"
	ExposedFakeTodos      = "fake-todos"
	ExposedMailtrapPlugin = "mailtrap-plugin"
)

// Ошибки плагинов.
var (
	// ErrMissingSetting — не задана обязательная настройка.
	ErrMissingSetting = errors.New("missing plugin setting")

	// ErrRequest — запрос к внешнему API не удался.
	ErrRequest = errors.New("plugin request failed")
)

const defaultTimeout = 30 * time.Second

// Options — зависимости плагинов.
type Options struct {
	// HTTPClient используется FakeTodos и MailtrapPlugin.
	HTTPClient *http.Client

	// TodosBaseURL — базовый URL API задач. По умолчанию https://dummyjson.com.
	TodosBaseURL string

	// Logger — логгер AlertMessage.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if o.TodosBaseURL == "" {
		o.TodosBaseURL = DefaultTodosBaseURL
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Register регистрирует встроенные плагины в linker.
func Register(linker *plugin.StaticLinker, opts Options) {
	opts.defaults()

	linker.Register(ExposedAlertMessage, func() engine.Node {
		return NewAlertMessage(opts.Logger)
	})
	linker.Register(ExposedFakeTodos, func() engine.Node {
		return NewFakeTodos(opts.HTTPClient, opts.TodosBaseURL)
	})
	linker.Register(ExposedMailtrapPlugin, func() engine.Node {
		return NewMailtrap(opts.HTTPClient)
	})
}

// Linker возвращает StaticLinker со встроенными плагинами.
func Linker(opts Options) *plugin.StaticLinker {
	l := plugin.NewStaticLinker()
	Register(l, opts)
	return l
}

// doJSON выполняет запрос с JSON телом и возвращает разобранный ответ.
// Статус >= 400 превращается в engine.NodeExecutionError.
func doJSON(ctx context.Context, client *http.Client, method, url string, body any, headers map[string]string) (any, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal body: %v", ErrRequest, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrRequest, err)
	}

	var data any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			data = string(raw)
		}
	}

	if resp.StatusCode >= 400 {
		return nil, &engine.NodeExecutionError{Status: resp.StatusCode, Data: data}
	}
	return data, nil
}

// required возвращает строковую настройку с подставленными выражениями
// или ошибку с текстом msg, если настройка пуста.
func required(in *engine.NodeInput, key, msg string) (string, error) {
	v, err := in.StringSetting(key)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingSetting, msg)
	}
	return v, nil
}
