package media

import "github.com/heartmarshall/vocab-enricher/internal/llm"

// localizeSchema is the answer shape for rewriting a reused image's
// description into the learner's source language.
var localizeSchema = llm.Schema{
	Name:        "localize_media",
	Description: "Description fields for an already chosen photograph.",
	Doc: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"alt": map[string]any{
				"type":        "string",
				"description": "Short alt text for the photo, in the source language.",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "One sentence on how the photo shows the word's meaning.",
			},
			"memory_tip": map[string]any{
				"type":        "string",
				"description": "A mnemonic linking the photo to the word.",
			},
		},
		"required": []string{"alt", "explanation", "memory_tip"},
	},
}

// selectionSchema is the answer shape for picking one photo out of the
// search candidates.
var selectionSchema = llm.Schema{
	Name:        "select_photo",
	Description: "The candidate photo that depicts the word best, with description fields.",
	Doc: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"photo_id": map[string]any{
				"type":        "integer",
				"description": "ID of the chosen candidate, exactly as listed.",
			},
			"alt": map[string]any{
				"type":        "string",
				"description": "Short alt text for the photo, in the source language.",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "One sentence on how the photo shows the word's meaning.",
			},
			"memory_tip": map[string]any{
				"type":        "string",
				"description": "A mnemonic linking the photo to the word.",
			},
		},
		"required": []string{"photo_id", "alt", "explanation", "memory_tip"},
	},
}
