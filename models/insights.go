package models

// EfficiencySummary is the history-wide stability score of smart insights
type EfficiencySummary struct {
	Score   float64 `json:"score"`
	Grade   string  `json:"grade"`
	Message string  `json:"message"`
}

// OptimizationPotential estimates savings in percent
type OptimizationPotential struct {
	Estimator            string   `json:"estimator"`
	Illustrative         bool     `json:"illustrative"`
	TotalPotential       float64  `json:"total_potential"`
	EnergySavings        float64  `json:"energy_savings"`
	QualityImprovement   float64  `json:"quality_improvement"`
	MaintenanceReduction float64  `json:"maintenance_reduction"`
	PriorityAreas        []string `json:"priority_areas"`
}

// RiskLabel is a coarse risk grade
type RiskLabel string

const (
	RiskLow    RiskLabel = "low"
	RiskMedium RiskLabel = "medium"
	RiskHigh   RiskLabel = "high"
)

// RiskItem is one itemized current risk
type RiskItem struct {
	Type   string    `json:"type"`
	Level  RiskLabel `json:"level"`
	Impact string    `json:"impact"`
}

// RiskAssessment grades the current conditions
type RiskAssessment struct {
	OverallRisk     RiskLabel  `json:"overall_risk"`
	IndividualRisks []RiskItem `json:"individual_risks"`
	RiskCount       int        `json:"risk_count"`
}

// PerformanceTrends compares the newest and oldest day of history
type PerformanceTrends struct {
	IndividualTrends map[Metric]TrendDirection `json:"individual_trends,omitempty"`
	OverallTrend     string                    `json:"overall_trend"`
	Message          string                    `json:"message,omitempty"`
}

// CostImpact is a linear monthly cost model
type CostImpact struct {
	MonthlyEnergyCost  float64  `json:"monthly_energy_cost"`
	MonthlyQualityCost float64  `json:"monthly_quality_cost"`
	TotalMonthlyCost   float64  `json:"total_monthly_cost"`
	PotentialSavings   float64  `json:"potential_savings"`
	CostDrivers        []string `json:"cost_drivers"`
}

// SmartInsights is the composite insight report
type SmartInsights struct {
	EfficiencyScore       EfficiencySummary     `json:"efficiency_score"`
	OptimizationPotential OptimizationPotential `json:"optimization_potential"`
	RiskAssessment        RiskAssessment        `json:"risk_assessment"`
	PerformanceTrends     PerformanceTrends     `json:"performance_trends"`
	CostImpact            CostImpact            `json:"cost_impact"`
}
