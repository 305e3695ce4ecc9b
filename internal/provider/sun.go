package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/sixdouglas/suncalc"
)

// SunCalcProvider computes sun times locally using the suncalc library
type SunCalcProvider struct{}

// NewSunCalcProvider creates a suncalc-backed SunTimesProvider
func NewSunCalcProvider() *SunCalcProvider {
	return &SunCalcProvider{}
}

// Times returns sunrise and sunset for the given location and date
func (p *SunCalcProvider) Times(ctx context.Context, lat, lon float64, date time.Time) (*SunTimes, error) {
	// Anchor the calculation at local noon so both events fall on the target date
	noon := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, date.Location())
	times := suncalc.GetTimes(noon, lat, lon)

	sunrise, ok := times[suncalc.Sunrise]
	if !ok {
		return nil, fmt.Errorf("no sunrise at lat=%.4f lon=%.4f on %s", lat, lon, date.Format("2006-01-02"))
	}
	sunset, ok := times[suncalc.Sunset]
	if !ok {
		return nil, fmt.Errorf("no sunset at lat=%.4f lon=%.4f on %s", lat, lon, date.Format("2006-01-02"))
	}

	return &SunTimes{
		Sunrise: sunrise.Value.In(date.Location()),
		Sunset:  sunset.Value.In(date.Location()),
	}, nil
}
