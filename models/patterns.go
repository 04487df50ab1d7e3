package models

// HourlyStats aggregates one hour-of-day bucket
type HourlyStats struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// DailyPattern summarizes the hour-of-day profile of a metric
type DailyPattern struct {
	PeakHour             int                 `json:"peak_hour"`
	PeakValue            float64             `json:"peak_value"`
	LowHour              int                 `json:"low_hour"`
	LowValue             float64             `json:"low_value"`
	DailyRange           float64             `json:"daily_range"`
	VariationCoefficient float64             `json:"variation_coefficient"`
	StableHours          []int               `json:"stable_hours"`
	HourlyAverages       map[int]float64     `json:"hourly_averages"`
	HourlyStats          map[int]HourlyStats `json:"hourly_stats"`
}

// WeeklyPattern compares weekday and weekend behaviour of a metric
type WeeklyPattern struct {
	WeekdayAverage        float64            `json:"weekday_average"`
	WeekendAverage        float64            `json:"weekend_average"`
	Difference            float64            `json:"difference"`
	SignificantDifference bool               `json:"significant_difference"`
	PValue                float64            `json:"p_value"`
	DailyAverages         map[string]float64 `json:"daily_averages"`
	PatternStrength       float64            `json:"pattern_strength"`
}

// Season is one of the four fixed calendar seasons
type Season string

const (
	SeasonWinter Season = "Winter"
	SeasonSpring Season = "Spring"
	SeasonSummer Season = "Summer"
	SeasonFall   Season = "Fall"
)

// SeasonForMonth maps a calendar month (1-12) to its season
func SeasonForMonth(month int) Season {
	switch month {
	case 12, 1, 2:
		return SeasonWinter
	case 3, 4, 5:
		return SeasonSpring
	case 6, 7, 8:
		return SeasonSummer
	default:
		return SeasonFall
	}
}

// SeasonStats aggregates one season
type SeasonStats struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// SeasonalPattern summarizes seasonal and monthly behaviour of a metric
type SeasonalPattern struct {
	SeasonalAverages map[Season]float64     `json:"seasonal_averages"`
	MonthlyAverages  map[int]float64        `json:"monthly_averages"`
	HighestSeason    Season                 `json:"highest_season"`
	LowestSeason     Season                 `json:"lowest_season"`
	SeasonalRange    float64                `json:"seasonal_range"`
	SeasonalStats    map[Season]SeasonStats `json:"seasonal_stats"`
}

// ClusterArchetype is the fixed classification of an operational cluster
type ClusterArchetype string

const (
	ArchetypeHighStress        ClusterArchetype = "high_stress"
	ArchetypeSuboptimalLow     ClusterArchetype = "suboptimal_low"
	ArchetypeOptimal           ClusterArchetype = "optimal"
	ArchetypeHighContamination ClusterArchetype = "high_contamination"
	ArchetypeNormal            ClusterArchetype = "normal"
)

// FeatureStats describes a continuous feature inside a cluster
type FeatureStats struct {
	Mean  float64    `json:"mean"`
	Std   float64    `json:"std"`
	Range [2]float64 `json:"range"`
}

// CalendarStats describes hour or day-of-week inside a cluster
type CalendarStats struct {
	Mode  float64    `json:"mode"`
	Range [2]float64 `json:"range"`
}

// ClusterCharacteristics holds per-feature statistics of one cluster
type ClusterCharacteristics struct {
	Temperature *FeatureStats  `json:"temperature,omitempty"`
	Humidity    *FeatureStats  `json:"humidity,omitempty"`
	DustLevel   *FeatureStats  `json:"dust_level,omitempty"`
	Hour        *CalendarStats `json:"hour,omitempty"`
	DayOfWeek   *CalendarStats `json:"day_of_week,omitempty"`
}

// OperationalPattern is one k-means cluster of operating states
type OperationalPattern struct {
	ID              string                 `json:"id"`
	Type            ClusterArchetype       `json:"type"`
	Size            int                    `json:"size"`
	Percentage      float64                `json:"percentage"`
	Characteristics ClusterCharacteristics `json:"characteristics"`
	Description     string                 `json:"description"`
}

// OperationalReport is either insufficient or the list of clusters
type OperationalReport struct {
	Insufficient *InsufficientData    `json:"insufficient_data,omitempty"`
	Clusters     int                  `json:"clusters"`
	Assignments  []int                `json:"assignments,omitempty"`
	Patterns     []OperationalPattern `json:"patterns,omitempty"`
}

// OK reports whether clustering ran
func (r OperationalReport) OK() bool { return r.Insufficient == nil }

// AnomalyPattern summarizes statistical (z-score) anomalies of a metric
type AnomalyPattern struct {
	TotalAnomalies      int            `json:"total_anomalies"`
	AnomalyPercentage   float64        `json:"anomaly_percentage"`
	MostCommonHour      int            `json:"most_common_hour"`
	MostCommonDay       string         `json:"most_common_day"`
	AnomalyValueRange   [2]float64     `json:"anomaly_value_range"`
	AverageAnomalyValue float64        `json:"average_anomaly_value"`
	HourlyDistribution  map[int]int    `json:"hourly_distribution"`
	DailyDistribution   map[string]int `json:"daily_distribution"`
}

// PatternSet bundles every pattern family from one analysis
type PatternSet struct {
	Daily       map[Metric]DailyPattern    `json:"daily_patterns,omitempty"`
	Weekly      map[Metric]WeeklyPattern   `json:"weekly_patterns,omitempty"`
	Seasonal    map[Metric]SeasonalPattern `json:"seasonal_patterns,omitempty"`
	Operational OperationalReport          `json:"operational_patterns"`
	Anomaly     map[Metric]AnomalyPattern  `json:"anomaly_patterns,omitempty"`
}

// InsightSeverity grades an insight
type InsightSeverity string

const (
	SeverityHigh   InsightSeverity = "high"
	SeverityMedium InsightSeverity = "medium"
	SeverityInfo   InsightSeverity = "info"
)

// Insight is a narrative finding derived from pattern summaries
type Insight struct {
	Type           string          `json:"type"`
	Metric         string          `json:"metric"`
	Severity       InsightSeverity `json:"severity"`
	Message        string          `json:"message"`
	Recommendation string          `json:"recommendation"`
}
