package port

// Tool is a callable capability the model may invoke mid-conversation.
type Tool interface {
	Name() string

	Description() string

	// Parameters returns the JSON schema of the tool's arguments.
	Parameters() map[string]any

	// Call runs the tool. Errors are reported back to the model as text by
	// the registry; they never abort the conversation turn.
	Call(args map[string]any) (string, error)
}
