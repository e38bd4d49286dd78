// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
)

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ModelInfo describes a model the user can pick in the settings.
type ModelInfo struct {
	// ID is the model name sent in the request payload
	ID string `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// Description is a brief explanation of the model's strengths
	Description string `json:"description"`
}

// =============================================================================
// MODEL REGISTRY
// =============================================================================

// DefaultModel is the model selected for new sessions.
const DefaultModel = "llama2"

// Models lists the selectable models in display order.
var Models = []ModelInfo{
	{
		ID:          "llama2",
		Name:        "Llama 2",
		Description: "General purpose chat model",
	},
	{
		ID:          "mistral",
		Name:        "Mistral",
		Description: "Fast general model with strong reasoning",
	},
	{
		ID:          "codellama",
		Name:        "Code Llama",
		Description: "Code generation and explanation",
	},
}

// GetModelInfo looks up a model by ID (case-insensitive).
func GetModelInfo(id string) (ModelInfo, bool) {
	id = strings.TrimSpace(id)
	for _, m := range Models {
		if strings.EqualFold(m.ID, id) {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// IsKnownModel reports whether id names a selectable model.
func IsKnownModel(id string) bool {
	_, ok := GetModelInfo(id)
	return ok
}

// ModelIDs returns the selectable model IDs in display order.
func ModelIDs() []string {
	ids := make([]string, len(Models))
	for i, m := range Models {
		ids[i] = m.ID
	}
	return ids
}
