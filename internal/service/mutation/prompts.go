package mutation

import (
	"fmt"

	"inkwell/internal/domain/models"
)

// generationSystem returns the system instructions for generating a
// document body of the given kind.
func generationSystem(kind models.Kind) string {
	switch kind {
	case models.KindCode:
		return "You are a code generator. Write a single self-contained code artifact that satisfies the request. Output only code, without surrounding prose or markdown fences."
	case models.KindSheet:
		return "You are a spreadsheet generator. Produce CSV output that satisfies the request. Output only the CSV rows, with a header row first."
	default:
		return "You are a writing assistant. Write the document the request asks for in clean markdown. Output only the document body, without commentary."
	}
}

// fillPrompt asks for the initial body of a titled but empty document.
func fillPrompt(title, instruction string) string {
	return fmt.Sprintf("Write the content for a document titled %q.\n\nRequest: %s", title, instruction)
}

// updatePrompt asks for a full replacement of existing content. The model
// returns the entire revised document, not a patch, so the client can diff
// it against the original.
func updatePrompt(current, instruction string) string {
	return fmt.Sprintf("Revise the following document per the request. Return the complete revised document.\n\nRequest: %s\n\nDocument:\n%s", instruction, current)
}
