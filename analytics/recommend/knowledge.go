package recommend

import "github.com/MfrankUg/Coffee-Storage-TDMS/models"

// Tolerance grades how forgiving a lot or container is
type Tolerance string

const (
	ToleranceLow    Tolerance = "low"
	ToleranceMedium Tolerance = "medium"
	ToleranceHigh   Tolerance = "high"
)

// Band is an optimal range with its target value
type Band struct {
	Min, Max, Ideal float64
}

type CoffeeSpec struct {
	Temperature      Band
	Humidity         Band
	Sensitivity      Tolerance
	MaxStorageMonths int
}

type ProcessingSpec struct {
	HumidityTolerance     Tolerance
	TempStabilityRequired Tolerance
}

type ContainerSpec struct {
	Breathability      Tolerance
	MoistureProtection Tolerance
}

// SeasonalAdjustment is the set-point offset applied during a season. Ventilation is a percent change.
type SeasonalAdjustment struct {
	TempOffset     float64
	HumidityOffset float64
	Ventilation    float64
}

// KnowledgeBase holds the static storage reference tables. It is read-only
// after construction; lookups return copies.
type KnowledgeBase struct {
	coffee     map[models.CoffeeType]CoffeeSpec
	processing map[models.ProcessingMethod]ProcessingSpec
	containers map[models.StorageContainer]ContainerSpec
	seasons    map[models.Season]SeasonalAdjustment
}

func DefaultKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		coffee: map[models.CoffeeType]CoffeeSpec{
			models.CoffeeArabica: {
				Temperature:      Band{Min: 18, Max: 22, Ideal: 20},
				Humidity:         Band{Min: 55, Max: 65, Ideal: 60},
				Sensitivity:      ToleranceHigh,
				MaxStorageMonths: 12,
			},
			models.CoffeeRobusta: {
				Temperature:      Band{Min: 20, Max: 25, Ideal: 22.5},
				Humidity:         Band{Min: 60, Max: 70, Ideal: 65},
				Sensitivity:      ToleranceMedium,
				MaxStorageMonths: 18,
			},
			models.CoffeeBlend: {
				Temperature:      Band{Min: 19, Max: 24, Ideal: 21.5},
				Humidity:         Band{Min: 58, Max: 68, Ideal: 63},
				Sensitivity:      ToleranceMedium,
				MaxStorageMonths: 15,
			},
		},
		processing: map[models.ProcessingMethod]ProcessingSpec{
			models.ProcessingWashed:  {HumidityTolerance: ToleranceLow, TempStabilityRequired: ToleranceHigh},
			models.ProcessingNatural: {HumidityTolerance: ToleranceMedium, TempStabilityRequired: ToleranceMedium},
			models.ProcessingHoney:   {HumidityTolerance: ToleranceMedium, TempStabilityRequired: ToleranceHigh},
		},
		containers: map[models.StorageContainer]ContainerSpec{
			models.ContainerJuteBags: {Breathability: ToleranceHigh, MoistureProtection: ToleranceLow},
			models.ContainerGrainPro: {Breathability: ToleranceLow, MoistureProtection: ToleranceHigh},
			models.ContainerSilos:    {Breathability: ToleranceMedium, MoistureProtection: ToleranceHigh},
		},
		seasons: map[models.Season]SeasonalAdjustment{
			models.SeasonSummer: {TempOffset: 2, HumidityOffset: 5, Ventilation: 20},
			models.SeasonWinter: {TempOffset: -1, HumidityOffset: -3, Ventilation: -10},
		},
	}
}

// Coffee returns the spec for t and the type it resolved to. Unknown types use blend.
func (kb *KnowledgeBase) Coffee(t models.CoffeeType) (CoffeeSpec, models.CoffeeType) {
	if spec, ok := kb.coffee[t]; ok {
		return spec, t
	}
	return kb.coffee[models.CoffeeBlend], models.CoffeeBlend
}

// Processing returns the spec for p. Processing only sets the humidity and
// temperature-stability tolerances; the bands themselves always come from
// Coffee, so an unknown type still lands on the blend band. An unknown
// method takes the natural (medium) tolerances, which never escalate a
// humidity breach to urgent.
func (kb *KnowledgeBase) Processing(p models.ProcessingMethod) ProcessingSpec {
	if spec, ok := kb.processing[p]; ok {
		return spec
	}
	return kb.processing[models.ProcessingNatural]
}

func (kb *KnowledgeBase) Container(c models.StorageContainer) (ContainerSpec, bool) {
	spec, ok := kb.containers[c]
	return spec, ok
}

// Seasonal returns the offsets for s; spring and fall have none
func (kb *KnowledgeBase) Seasonal(s models.Season) SeasonalAdjustment {
	return kb.seasons[s]
}
