package modelcatalog

import "github.com/stratahq/strata/schemas"

// ApplyCuratedMetadata merges the curated entry for a model onto its live
// catalog listing and returns the merged value. The input is never mutated;
// models without a curated entry come back unchanged.
func (c *Catalog) ApplyCuratedMetadata(model schemas.ModelMetadata) schemas.ModelMetadata {
	curated := c.FindCuratedModel(model.Provider, model.ID)
	if curated == nil {
		return model
	}

	merged := model
	if curated.DisplayName != "" {
		merged.DisplayName = curated.DisplayName
	}
	if curated.Family != "" {
		merged.Family = curated.Family
	}
	if curated.ContextWindow != nil {
		merged.ContextWindow = *curated.ContextWindow
	}
	if curated.Deprecated != nil {
		merged.Deprecated = *curated.Deprecated
	}
	if curated.InPreview != nil {
		merged.InPreview = *curated.InPreview
	}
	merged.Capabilities = mergeCapabilities(model.Capabilities, curated.Capabilities)
	merged.TokenPrices = mergeTokenPrices(model.TokenPrices, curated.TokenPrices)
	return merged
}

func mergeCapabilities(base schemas.ModelCapabilities, overlay *CuratedCapabilities) schemas.ModelCapabilities {
	if overlay == nil {
		return base
	}
	merged := base
	if overlay.Text != nil {
		merged.Text = *overlay.Text
	}
	if overlay.Vision != nil {
		merged.Vision = *overlay.Vision
	}
	if overlay.Image != nil {
		merged.Image = *overlay.Image
	}
	if overlay.ToolUse != nil {
		merged.ToolUse = *overlay.ToolUse
	}
	if overlay.StructuredOutput != nil {
		merged.StructuredOutput = *overlay.StructuredOutput
	}
	if overlay.Reasoning != nil {
		merged.Reasoning = *overlay.Reasoning
	}
	if overlay.AudioIn != nil {
		merged.AudioIn = overlay.AudioIn
	}
	if overlay.AudioOut != nil {
		merged.AudioOut = overlay.AudioOut
	}
	if overlay.Video != nil {
		merged.Video = overlay.Video
	}
	if overlay.VideoIn != nil {
		merged.VideoIn = overlay.VideoIn
	}
	return merged
}

func mergeTokenPrices(base *schemas.TokenPrices, overlay *schemas.TokenPrices) *schemas.TokenPrices {
	if overlay == nil {
		return base
	}
	merged := schemas.TokenPrices{}
	if base != nil {
		merged = *base
	}
	if overlay.Input != nil {
		merged.Input = overlay.Input
	}
	if overlay.Output != nil {
		merged.Output = overlay.Output
	}
	return &merged
}
