package dispatch

// FunctionDetails represents the function definition (OpenAI format)
type FunctionDetails struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolDefinition is one mutation capability as exposed to the generation
// model. Exactly one of these is registered per turn.
type ToolDefinition struct {
	Type     string           `json:"type"`
	Function *FunctionDetails `json:"function"`
}

// Capability names, one per dispatcher state.
const (
	ToolCreateDocument = "create_document"
	ToolFillDocument   = "fill_document"
	ToolUpdateDocument = "update_document"
)

// getCreateToolDefinition returns the schema for the 'create_document'
// tool, exposed only when no active document exists.
func getCreateToolDefinition() ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: &FunctionDetails{
			Name:        ToolCreateDocument,
			Description: "Create a new empty document for the user. Use this when the user asks for a document, essay, code file, or spreadsheet and none is open yet. Content is written in a later step, after the editor has initialized.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"title": map[string]interface{}{
						"type":        "string",
						"description": "A short human-readable title for the new document.",
					},
					"kind": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"text", "code", "sheet"},
						"description": "The content class of the document. 'text' for prose, 'code' for source code, 'sheet' for tabular data.",
					},
				},
				"required": []string{"title", "kind"},
			},
		},
	}
}

// getFillToolDefinition returns the schema for the 'fill_document' tool,
// exposed only while the active document is a fresh, empty version.
func getFillToolDefinition() ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: &FunctionDetails{
			Name:        ToolFillDocument,
			Description: "Write the initial content of the currently open, empty document. Content streams directly into the editor; there is no prior content to protect.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"instruction": map[string]interface{}{
						"type":        "string",
						"description": "What the document content should be, derived from the user's request.",
					},
				},
				"required": []string{"instruction"},
			},
		},
	}
}

// getUpdateToolDefinition returns the schema for the 'update_document'
// tool, exposed only when the active document already has content.
func getUpdateToolDefinition() ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: &FunctionDetails{
			Name:        ToolUpdateDocument,
			Description: "Propose a revision of the currently open document. The revision is shown to the user as a reviewable diff; it is not saved unless the user accepts it.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"instruction": map[string]interface{}{
						"type":        "string",
						"description": "The change the user wants, e.g. 'make the tone more formal' or 'add error handling'.",
					},
				},
				"required": []string{"instruction"},
			},
		},
	}
}

// ToolsFor returns the capability set for a state. It always has exactly
// one element, keeping the model's tool-choice space aligned with what is
// actually callable this turn.
func ToolsFor(state State) []ToolDefinition {
	switch state {
	case StateActiveDocumentEmpty:
		return []ToolDefinition{getFillToolDefinition()}
	case StateActiveDocumentWithContent:
		return []ToolDefinition{getUpdateToolDefinition()}
	default:
		return []ToolDefinition{getCreateToolDefinition()}
	}
}
