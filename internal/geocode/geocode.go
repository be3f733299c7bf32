// README: Reverse geocoding via the Google Maps Geocoding API.
package geocode

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"bloodlink/internal/types"
)

// Service resolves coordinates to human-readable place names.
type Service struct {
	client *maps.Client
}

// NewService creates a geocoding service with the given API key.
func NewService(apiKey string) (*Service, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Service{client: client}, nil
}

// ReverseGeocode returns the formatted address of the first result for the
// given point. An empty string with nil error means no result was found;
// callers treat the name as optional.
func (s *Service) ReverseGeocode(ctx context.Context, pt types.Point) (string, error) {
	results, err := s.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: pt.Lat, Lng: pt.Lng},
	})
	if err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	if len(results) == 0 {
		return "", nil
	}
	return results[0].FormattedAddress, nil
}
