package main

import (
	"math"
	"math/rand"
	"time"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

// Generator produces plausible warehouse readings: a diurnal temperature
// swing, humidity moving against it, and dust raised during working hours.
type Generator struct {
	deviceID           string
	anomalyProbability float64
	missingProbability float64
	baseTemp           float64
	baseHumidity       float64
	baseDust           float64
	rng                *rand.Rand
}

func NewGenerator(deviceID string, anomalyProb, missingProb float64, seed int64) *Generator {
	return &Generator{
		deviceID:           deviceID,
		anomalyProbability: anomalyProb,
		missingProbability: missingProb,
		baseTemp:           21.5,
		baseHumidity:       62.0,
		baseDust:           25.0,
		rng:                rand.New(rand.NewSource(seed)),
	}
}

// Reading generates the sample taken at ts
func (g *Generator) Reading(ts time.Time) models.RawReading {
	hour := float64(ts.Hour()) + float64(ts.Minute())/60
	// Warmest mid afternoon, coolest before dawn
	phase := 2 * math.Pi * (hour - 9) / 24

	temperature := g.baseTemp + 2.5*math.Sin(phase) + g.rng.NormFloat64()*0.4
	humidity := g.baseHumidity - 4*math.Sin(phase) + g.rng.NormFloat64()*1.2
	dust := g.baseDust + g.rng.Float64()*6
	if ts.Hour() >= 8 && ts.Hour() <= 17 && ts.Weekday() != time.Sunday {
		dust += 12
	}

	if g.rng.Float64() < g.anomalyProbability {
		switch g.rng.Intn(3) {
		case 0:
			if g.rng.Float64() < 0.5 {
				temperature = 27 + g.rng.Float64()*5 // above the storage ceiling
			} else {
				temperature = 12 + g.rng.Float64()*4
			}
		case 1:
			humidity = 74 + g.rng.Float64()*12
		default:
			dust = 70 + g.rng.Float64()*80
		}
	}

	return models.RawReading{
		DeviceID:    g.deviceID,
		Timestamp:   ts.UTC().Format(time.RFC3339),
		Temperature: g.maybe(round(temperature, 1)),
		Humidity:    g.maybe(round(humidity, 1)),
		DustLevel:   g.maybe(round(dust, 1)),
	}
}

// Series generates n readings spaced step apart starting at start
func (g *Generator) Series(start time.Time, n int, step time.Duration) []models.RawReading {
	out := make([]models.RawReading, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.Reading(start.Add(time.Duration(i)*step)))
	}
	return out
}

// maybe drops the value with the configured probability to exercise gap filling
func (g *Generator) maybe(v float64) *float64 {
	if g.rng.Float64() < g.missingProbability {
		return nil
	}
	return &v
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
