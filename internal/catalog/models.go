// Package catalog lists the models the chat frontends offer for selection.
package catalog

import (
	"fmt"
	"slices"

	"github.com/mxl4r/Prism-LLM-frontend/internal/llm"
)

type Model struct {
	ID          llm.ModelID `json:"id"`
	Name        string      `json:"name"`
	Provider    llm.Kind    `json:"-"`
	Description string      `json:"description"`
	Multimodal  bool        `json:"multimodal"`
}

// DefaultModel is selected when the user has not picked one.
const DefaultModel llm.ModelID = "gemini-2.5-flash-latest"

var knownModels = []Model{
	// Google
	{ID: "gemini-2.5-flash-latest", Name: "Gemini Flash", Provider: llm.Google, Description: "Fast & Multimodal", Multimodal: true},
	{ID: "gemini-3-pro-preview", Name: "Gemini 3 Pro", Provider: llm.Google, Description: "High Reasoning", Multimodal: true},
	{ID: "gemini-3-flash-preview", Name: "Gemini 3 Flash", Provider: llm.Google, Description: "Fastest reasoning", Multimodal: true},

	// OpenAI
	{ID: "gpt-4o", Name: "GPT-4o", Provider: llm.OpenAI, Description: "Advanced Intelligence", Multimodal: true},
	{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Provider: llm.OpenAI, Description: "Fast & Efficient", Multimodal: true},

	// Anthropic
	{ID: "claude-3-5-sonnet-latest", Name: "Claude 3.5 Sonnet", Provider: llm.Anthropic, Description: "Coding & Analysis", Multimodal: true},
	{ID: "claude-3-opus-latest", Name: "Claude 3 Opus", Provider: llm.Anthropic, Description: "Deep Analysis", Multimodal: true},
}

// Default returns a copy of the known models in display order.
func Default() []Model {
	return slices.Clone(knownModels)
}

// Filter returns the known models served by kind.
func Filter(kind llm.Kind) []Model {
	var out []Model
	for _, m := range knownModels {
		if m.Provider == kind {
			out = append(out, m)
		}
	}
	return out
}

// Lookup finds a known model by id.
func Lookup(id llm.ModelID) (Model, bool) {
	for _, m := range knownModels {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// Resolve returns the catalogue entry for id, or a bare entry for ids outside
// the catalogue that still route to a provider. Unroutable ids fail.
func Resolve(id llm.ModelID) (Model, error) {
	if m, ok := Lookup(id); ok {
		return m, nil
	}
	kind, err := llm.KindOf(id)
	if err != nil {
		return Model{}, err
	}
	return Model{ID: id, Name: string(id), Provider: kind}, nil
}

func (m Model) String() string {
	return fmt.Sprintf("%-26s %-18s %s", m.ID, m.Name, m.Description)
}
