// Package log provides a node that writes templated messages to the
// structured logger.
package log

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/weftwork/weft/pkg/models"
	"github.com/weftwork/weft/pkg/template"
)

// LogNode writes one templated message per invocation.
type LogNode struct {
	id      string
	message string
	level   string
	logger  *slog.Logger
}

func NewLogNode(id string, config map[string]any) (*LogNode, error) {
	message, ok := config["message"].(string)
	if !ok {
		return nil, errors.New("missing required field 'message'")
	}

	level := "info"
	if lvl, ok := config["level"].(string); ok {
		level = lvl
	}

	return &LogNode{
		id:      id,
		message: message,
		level:   level,
		logger:  slog.Default(),
	}, nil
}

func (n *LogNode) Execute(_ context.Context, ectx models.ExecutionContext) models.ExecutionResult {
	rendered, err := template.RenderWithContext(n.message, &ectx)
	if err != nil {
		return models.Failuref("render log message: %v", err)
	}

	message := fmt.Sprintf("%v", rendered)
	logger := n.logger.With("node_id", n.id, "execution_id", ectx.ExecutionID)

	switch n.level {
	case "debug":
		logger.Debug(message)
	case "warn":
		logger.Warn(message)
	case "error":
		logger.Error(message)
	default:
		logger.Info(message)
	}

	return models.Success(map[string]any{
		"message": message,
		"level":   n.level,
		"logged":  true,
	})
}

func (n *LogNode) ConfigSchema() *models.JSONSchema {
	return configSchema()
}

func (n *LogNode) Descriptor() models.InterfaceDescriptor {
	return models.DefaultInterface()
}

func (n *LogNode) IsTrigger() bool { return false }

func (n *LogNode) SupportsAsync() bool { return false }
