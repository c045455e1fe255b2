package spatial

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"spatial-search-be/internal/constant"
	"spatial-search-be/internal/pkg/logger"
	"spatial-search-be/pkg/llm"
	"spatial-search-be/pkg/store"
)

// Spatial scale labels, smallest to largest.
const (
	ScaleLocal       = "Local"
	ScaleCity        = "City"
	ScaleRegional    = "Regional"
	ScaleNational    = "National"
	ScaleContinental = "Continental"
	ScaleGlobal      = "Global"
)

// Place is one gazetteer candidate.
type Place struct {
	Name    string
	Country string
	Type    string
	// Extent is [west, north, east, south] as gazetteers commonly
	// deliver it. Nil when the gazetteer has no extent for the place.
	Extent []float64
}

// Gazetteer resolves free-text place names to candidate places.
type Gazetteer interface {
	SearchPlace(ctx context.Context, name string) ([]Place, error)
}

// Result is the outcome of spatial resolution for one search phrase.
type Result struct {
	Entity string
	Scale  string
	Extent store.BoundingBox
	Found  bool
}

type entityExtraction struct {
	Spatial string `json:"spatial"`
	Scale   string `json:"scale"`
}

// Resolver finds the geographic extent implied by a search phrase: an
// LLM names the place and scale, the gazetteer supplies candidates, and
// the LLM picks the best one.
type Resolver struct {
	llmProvider llm.LLMProvider
	gazetteer   Gazetteer
	logger      logger.ILogger
}

func NewResolver(llmProvider llm.LLMProvider, gazetteer Gazetteer, log logger.ILogger) *Resolver {
	return &Resolver{
		llmProvider: llmProvider,
		gazetteer:   gazetteer,
		logger:      log,
	}
}

// Resolve never returns an error. Every failure along the chain degrades
// to Found=false and the search proceeds without a spatial filter.
func (r *Resolver) Resolve(ctx context.Context, criteria string) Result {
	entity, scale, ok := r.extractEntity(ctx, criteria)
	if !ok || entity == "" {
		return Result{Scale: scale}
	}

	places, err := r.gazetteer.SearchPlace(ctx, entity)
	if err != nil {
		r.logger.Warn("SPATIAL", "Gazetteer lookup failed", map[string]interface{}{
			"entity": entity,
			"error":  err.Error(),
		})
		return Result{Entity: entity, Scale: scale}
	}

	// Only candidates with an extent are usable for filtering.
	usable := make([]Place, 0, len(places))
	for _, p := range places {
		if len(p.Extent) == 4 {
			usable = append(usable, p)
		}
	}
	if len(usable) == 0 {
		r.logger.Info("SPATIAL", "No gazetteer candidate carries an extent", map[string]interface{}{
			"entity": entity,
		})
		return Result{Entity: entity, Scale: scale}
	}

	chosen := r.pickCandidate(ctx, entity, scale, usable)

	return Result{
		Entity: entity,
		Scale:  scale,
		Extent: normalizeExtent(chosen.Extent),
		Found:  true,
	}
}

func (r *Resolver) extractEntity(ctx context.Context, criteria string) (string, string, bool) {
	prompt := fmt.Sprintf(constant.SpatialEntityPrompt, criteria)
	response, err := r.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0), llm.WithJSONOutput())
	if err != nil {
		r.logger.Warn("SPATIAL", "Entity extraction call failed", map[string]interface{}{
			"error": err.Error(),
		})
		return "", "", false
	}

	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return "", "", false
	}

	var extraction entityExtraction
	if err := json.Unmarshal([]byte(jsonContent), &extraction); err != nil {
		r.logger.Warn("SPATIAL", "Entity extraction parse failed", map[string]interface{}{
			"error": err.Error(),
		})
		return "", "", false
	}

	return strings.TrimSpace(extraction.Spatial), normalizeScale(extraction.Scale), true
}

// pickCandidate asks the model for the index of the best candidate and
// falls back to the first one on any failure.
func (r *Resolver) pickCandidate(ctx context.Context, entity, scale string, places []Place) Place {
	if len(places) == 1 {
		return places[0]
	}

	var list strings.Builder
	for i, p := range places {
		fmt.Fprintf(&list, "%d. %s (%s, %s)\n", i+1, p.Name, p.Type, p.Country)
	}

	prompt := fmt.Sprintf(constant.GazetteerPickerPrompt, entity, scale, list.String())
	response, err := r.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		r.logger.Warn("SPATIAL", "Candidate picking call failed, using first candidate", map[string]interface{}{
			"error": err.Error(),
		})
		return places[0]
	}

	if idx, ok := parseIndex(response); ok && idx >= 1 && idx <= len(places) {
		return places[idx-1]
	}
	return places[0]
}

var indexPattern = regexp.MustCompile(`\d+`)

func parseIndex(response string) (int, bool) {
	match := indexPattern.FindString(response)
	if match == "" {
		return 0, false
	}
	idx, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return idx, true
}

func normalizeScale(scale string) string {
	switch strings.ToLower(strings.TrimSpace(scale)) {
	case "local":
		return ScaleLocal
	case "city":
		return ScaleCity
	case "regional":
		return ScaleRegional
	case "national":
		return ScaleNational
	case "continental":
		return ScaleContinental
	case "global":
		return ScaleGlobal
	default:
		return ScaleRegional
	}
}

// normalizeExtent reorders a gazetteer [west, north, east, south] extent
// into [minLon, minLat, maxLon, maxLat].
func normalizeExtent(extent []float64) store.BoundingBox {
	west, north, east, south := extent[0], extent[1], extent[2], extent[3]
	if south > north {
		north, south = south, north
	}
	if west > east {
		west, east = east, west
	}
	return store.BoundingBox{west, south, east, north}
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}
	return response[startIdx : endIdx+1]
}
