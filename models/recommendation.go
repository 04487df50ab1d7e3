package models

import "time"

// Priority orders recommendations, urgent first
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort position of the priority; unknown values sort with low
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Recommendation is one actionable suggestion
type Recommendation struct {
	Type               string   `json:"type"`
	Category           string   `json:"category"`
	Priority           Priority `json:"priority"`
	Action             string   `json:"action"`
	Message            string   `json:"message"`
	TechnicalDetails   string   `json:"technical_details,omitempty"`
	ExpectedImpact     string   `json:"expected_impact"`
	Confidence         *float64 `json:"confidence,omitempty"`
	CoffeeSpecific     bool     `json:"coffee_specific,omitempty"`
	Predictive         bool     `json:"predictive,omitempty"`
	PatternBased       bool     `json:"pattern_based,omitempty"`
	Seasonal           bool     `json:"seasonal,omitempty"`
	EnergyFocused      bool     `json:"energy_focused,omitempty"`
	MaintenanceFocused bool     `json:"maintenance_focused,omitempty"`
}

// RecommendationKey identifies a recommendation for deduplication
type RecommendationKey struct {
	Category string
	Action   string
}

func (r Recommendation) Key() RecommendationKey {
	return RecommendationKey{Category: r.Category, Action: r.Action}
}

// CoffeeType is the bean species or blend
type CoffeeType string

const (
	CoffeeArabica CoffeeType = "arabica"
	CoffeeRobusta CoffeeType = "robusta"
	CoffeeBlend   CoffeeType = "blend"
)

// ProcessingMethod is how the cherries were processed
type ProcessingMethod string

const (
	ProcessingWashed  ProcessingMethod = "washed"
	ProcessingNatural ProcessingMethod = "natural"
	ProcessingHoney   ProcessingMethod = "honey"
)

// StorageContainer is the packaging the beans are stored in
type StorageContainer string

const (
	ContainerJuteBags StorageContainer = "jute_bags"
	ContainerGrainPro StorageContainer = "grain_pro"
	ContainerSilos    StorageContainer = "silos"
)

// CoffeeProfile describes the stored lot
type CoffeeProfile struct {
	Type          CoffeeType       `json:"type" yaml:"type"`
	Processing    ProcessingMethod `json:"processing" yaml:"processing"`
	StorageMonths int              `json:"storage_months" yaml:"storage_months"`
	Container     StorageContainer `json:"container,omitempty" yaml:"container,omitempty"`
}

// HistoryRecord is one call of the recommendation engine
type HistoryRecord struct {
	ID              string           `json:"id"`
	Timestamp       time.Time        `json:"timestamp"`
	Conditions      Conditions       `json:"conditions"`
	Recommendations []Recommendation `json:"recommendations"`
}
