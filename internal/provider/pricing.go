package provider

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Pricing holds the USD rates for one model, per 1000 tokens.
type Pricing struct {
	InputPer1K  float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
}

// Table maps model identifiers to their pricing.
type Table map[string]Pricing

// Cost computes the estimated USD cost for the given token counts. Unknown
// models fall back to the rates registered under fallback rather than failing.
func (t Table) Cost(model, fallback string, inputTokens, outputTokens int) float64 {
	rates, ok := t[model]
	if !ok {
		rates = t[fallback]
	}
	return (float64(inputTokens)*rates.InputPer1K + float64(outputTokens)*rates.OutputPer1K) / 1000
}

// merge overlays the given rates onto the table, replacing per model.
func (t Table) merge(overrides Table) Table {
	merged := make(Table, len(t)+len(overrides))
	for model, rates := range t {
		merged[model] = rates
	}
	for model, rates := range overrides {
		merged[model] = rates
	}
	return merged
}

// Overrides is the structure of an optional pricing override file: rates per
// provider per model, applied on top of the built-in tables at construction.
type Overrides map[string]Table

// LoadOverrides reads a YAML pricing override file.
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing file: %w", err)
	}

	var overrides Overrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse pricing file: %w", err)
	}
	return overrides, nil
}

// Built-in pricing tables, USD per 1K tokens. Hosted rates drift; override
// with PRICING_FILE when they do.
var (
	openAIPricing = Table{
		"gpt-4o-mini": {InputPer1K: 0.00015, OutputPer1K: 0.0006},
		"gpt-4o":      {InputPer1K: 0.0025, OutputPer1K: 0.01},
	}

	// OpenRouter pricing varies by model; this is the llama-3.2-3b ballpark.
	openRouterPricing = Table{
		"meta-llama/llama-3.2-3b-instruct": {InputPer1K: 0.0001, OutputPer1K: 0.0001},
	}

	groqPricing = Table{
		"llama-3.3-70b-versatile": {InputPer1K: 0.00059, OutputPer1K: 0.00079},
	}
)
