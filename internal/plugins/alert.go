package plugins

import (
	"context"
	"log/slog"

	"github.com/shaiso/flowrequests/internal/engine"
)

// AlertMessage пишет сообщение в лог.
type AlertMessage struct {
	logger *slog.Logger
}

// NewAlertMessage создаёт AlertMessage.
func NewAlertMessage(logger *slog.Logger) *AlertMessage {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertMessage{logger: logger}
}

// Config возвращает описание узла.
func (n *AlertMessage) Config() engine.NodeConfig {
	return engine.NodeConfig{
		Name:        "AlertMessage",
		Type:        "AlertMessage",
		Description: "Show alert message when execute the node",
		Properties: []engine.Property{
			{Name: "message", Type: "string", Label: "Message", Required: true},
		},
	}
}

// Execute логирует message и возвращает {ok: true}.
func (n *AlertMessage) Execute(_ context.Context, in *engine.NodeInput) (engine.Result, error) {
	msg, err := in.StringSetting("message")
	if err != nil {
		return engine.Result{}, err
	}

	n.logger.Info("alert message", "node", in.Name, "message", msg)
	return engine.Continue(map[string]any{"ok": true}), nil
}
