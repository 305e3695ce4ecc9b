package behavior

import (
	"context"

	"github.com/wakewise/wakewise-platform/internal/provider"
)

// Numeric field names used by location patterns
const (
	FieldHomeLatitude  = "home_latitude"
	FieldHomeLongitude = "home_longitude"
)

const defaultPlaceRadiusMeters = 500

// PlaceProvider serves learned significant places from the pattern store,
// implementing provider.LocationPatternProvider
type PlaceProvider struct {
	store *Store
}

// NewPlaceProvider creates a store-backed location pattern provider
func NewPlaceProvider(store *Store) *PlaceProvider {
	return &PlaceProvider{store: store}
}

// Patterns returns the user's learned places. Currently only the home
// location is learned (EMA over recorded wake positions).
func (p *PlaceProvider) Patterns(ctx context.Context, userID string) ([]provider.LocationPattern, error) {
	pattern := p.store.Pattern(ctx, userID, PatternLocation)
	if pattern == nil {
		return nil, nil
	}

	lat, hasLat := pattern.Numeric[FieldHomeLatitude]
	lon, hasLon := pattern.Numeric[FieldHomeLongitude]
	if !hasLat || !hasLon {
		return nil, nil
	}

	return []provider.LocationPattern{
		{
			Type:         provider.PlaceHome,
			Latitude:     lat,
			Longitude:    lon,
			RadiusMeters: defaultPlaceRadiusMeters,
		},
	}, nil
}
