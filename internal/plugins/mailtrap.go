package plugins

import (
	"context"
	"net/http"

	"github.com/shaiso/flowrequests/internal/engine"
)

// Mailtrap отправляет письмо через Mailtrap API.
type Mailtrap struct {
	client *http.Client
}

// NewMailtrap создаёт Mailtrap.
func NewMailtrap(client *http.Client) *Mailtrap {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Mailtrap{client: client}
}

// Config возвращает описание узла.
func (n *Mailtrap) Config() engine.NodeConfig {
	return engine.NodeConfig{
		Name:        "MailtrapPlugin",
		Type:        "MailtrapPlugin",
		Description: "Mailtrap plugin to allow send email fake inbox",
		Properties: []engine.Property{
			{Name: "token", Type: "string", Label: "Token", Required: true},
			{Name: "api", Type: "string", Label: "Api url", Required: true},
			{Name: "subject", Type: "string", Label: "Subject", Required: true},
			{Name: "text", Type: "string", Label: "Email text", Required: true},
			{Name: "from", Type: "string", Label: "From", Required: true},
			{Name: "to", Type: "string", Label: "To", Required: true},
		},
	}
}

// Execute отправляет письмо и возвращает {ok: true}.
func (n *Mailtrap) Execute(ctx context.Context, in *engine.NodeInput) (engine.Result, error) {
	token, err := required(in, "token", "You need to provide a Mailtrap token")
	if err != nil {
		return engine.Result{}, err
	}
	subject, err := required(in, "subject", "You need to provide a subject")
	if err != nil {
		return engine.Result{}, err
	}
	text, err := required(in, "text", "You need to provide a text")
	if err != nil {
		return engine.Result{}, err
	}
	from, err := required(in, "from", "You need to provide a 'from' email")
	if err != nil {
		return engine.Result{}, err
	}
	to, err := required(in, "to", "You need to provide a 'to' email")
	if err != nil {
		return engine.Result{}, err
	}
	api, err := required(in, "api", "You need to provide the api url")
	if err != nil {
		return engine.Result{}, err
	}

	body := map[string]any{
		"from":    map[string]any{"email": from, "name": "test"},
		"to":      []any{map[string]any{"email": to}},
		"subject": subject,
		"text":    text,
	}
	headers := map[string]string{"Authorization": "Bearer " + token}

	if _, err := doJSON(ctx, n.client, http.MethodPost, api, body, headers); err != nil {
		return engine.Result{}, err
	}
	return engine.Continue(map[string]any{"ok": true}), nil
}
