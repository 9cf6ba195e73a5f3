// Package tools holds the capabilities the model may invoke mid-stream.
package tools

import (
	"encoding/json"
	"fmt"

	"ibot/internal/domain"
	"ibot/internal/log"
	"ibot/internal/port"
)

// Registry maps capability names to tools. Execute never fails: every
// failure mode becomes a textual result the orchestrator can feed back to
// the model.
type Registry struct {
	tools  map[string]port.Tool
	order  []string
	logger log.Logger
}

func NewRegistry(logger log.Logger, available ...port.Tool) *Registry {
	r := &Registry{
		tools:  make(map[string]port.Tool, len(available)),
		logger: logger,
	}
	for _, t := range available {
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	return r
}

// Execute runs a tool by name with a raw JSON argument string.
func (r *Registry) Execute(name, rawArgs string) string {
	tool, ok := r.tools[name]
	if !ok {
		r.logger.Warn("unknown tool requested", "tool", name)
		return fmt.Sprintf("Error: tool '%s' not found.", name)
	}

	args := make(map[string]any)
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			r.logger.Warn("malformed tool arguments", "tool", name, "args", rawArgs, "error", err)
			return fmt.Sprintf("Error: could not parse arguments for tool '%s'.", name)
		}
	}

	result, err := tool.Call(args)
	if err != nil {
		r.logger.Error("tool execution failed", "tool", name, "error", err)
		return fmt.Sprintf("Error: could not execute the tool '%s'.", name)
	}

	return result
}

// Specs returns the OpenAI-format tool declarations, in registration order.
func (r *Registry) Specs() []domain.ToolSpec {
	specs := make([]domain.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		specs = append(specs, domain.ToolSpec{
			Type: "function",
			Function: domain.FunctionSpec{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}
	return specs
}
