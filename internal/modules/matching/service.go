// README: Nearby matcher combining distance, compatibility, and eligibility over candidate sets.
package matching

import (
	"context"
	"time"

	"go.uber.org/zap"

	"bloodlink/internal/modules/blood"
	"bloodlink/internal/modules/profile"
	"bloodlink/internal/sentinel"
	"bloodlink/internal/types"
)

// ProfileSource lists donor candidates with coarse filters applied at the
// storage boundary; the matcher handles distance and ranking.
type ProfileSource interface {
	ListDonorCandidates(ctx context.Context, f DonorFilter) ([]profile.Profile, error)
}

// RequestSource lists ACTIVE requests (optionally narrowed to one blood group)
// with their response counts.
type RequestSource interface {
	ListActiveRequestCandidates(ctx context.Context, group *blood.Group) ([]RequestCandidate, error)
}

// GeoIndex narrows donor candidates via a geo lookup before the store scan.
// Optional; a nil index means every query goes straight to the store.
type GeoIndex interface {
	Nearby(ctx context.Context, origin types.Point, radiusKm float64) ([]types.ID, error)
}

// DonorFilter is the storage-boundary filter for donor candidates.
type DonorFilter struct {
	// Groups restricts candidates to these blood groups; nil means all.
	Groups        []blood.Group
	AvailableOnly bool
	Exclude       types.ID
	// IDs, when non-nil, restricts candidates to this id set (geo index narrowing).
	IDs []types.ID
}

type Service struct {
	profiles ProfileSource
	requests RequestSource
	index    GeoIndex
	log      *zap.Logger
}

func NewService(profiles ProfileSource, requests RequestSource, index GeoIndex, log *zap.Logger) *Service {
	return &Service{profiles: profiles, requests: requests, index: index, log: log}
}

// FindDonors returns donors within q.RadiusKm of q.Origin, ranked ascending by
// distance. The radius boundary is inclusive. Ties keep storage order.
func (s *Service) FindDonors(ctx context.Context, q DonorQuery) ([]DonorMatch, error) {
	if q.RadiusKm <= 0 {
		return nil, sentinel.NewValidation("radius_km", "must be positive")
	}

	filter := DonorFilter{AvailableOnly: q.AvailableOnly, Exclude: q.Exclude}
	switch {
	case q.CompatibleWith != nil:
		filter.Groups = blood.CompatibleDonors(*q.CompatibleWith)
	case q.Group != nil:
		filter.Groups = []blood.Group{*q.Group}
	}
	filter.IDs = s.narrowByIndex(ctx, q.Origin, q.RadiusKm)

	candidates, err := s.profiles.ListDonorCandidates(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	type ranked struct {
		match DonorMatch
		raw   float64
	}
	results := make([]ranked, 0, len(candidates))
	for _, c := range candidates {
		if c.Location == nil {
			continue
		}
		d := DistanceKm(q.Origin, *c.Location)
		if d > q.RadiusKm {
			continue
		}
		results = append(results, ranked{
			match: DonorMatch{
				ProfileID:  c.ID,
				Name:       c.Name,
				Email:      c.Email,
				Phone:      c.Phone,
				BloodGroup: c.BloodGroup,
				DistanceKm: RoundKm1(d),
				Eligible:   profile.IsEligible(c.LastDonation, now),
				LastActive: lastActiveBucket(c.UpdatedAt, now),
			},
			raw: d,
		})
	}

	sortByDistance(results, func(r ranked) float64 { return r.raw })
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}

	out := make([]DonorMatch, len(results))
	for i, r := range results {
		out[i] = r.match
	}
	return out, nil
}

// FindRequests returns ACTIVE requests within q.RadiusKm of q.Origin, ranked
// ascending by distance, each annotated with whether the querying donor's
// blood group may serve it.
func (s *Service) FindRequests(ctx context.Context, q RequestQuery) ([]RequestMatch, error) {
	if q.RadiusKm <= 0 {
		return nil, sentinel.NewValidation("radius_km", "must be positive")
	}
	if !q.DonorGroup.Valid() {
		return nil, sentinel.NewValidation("blood_group", "unknown donor blood group")
	}

	candidates, err := s.requests.ListActiveRequestCandidates(ctx, q.Group)
	if err != nil {
		return nil, err
	}

	type ranked struct {
		match RequestMatch
		raw   float64
	}
	results := make([]ranked, 0, len(candidates))
	for _, c := range candidates {
		d := DistanceKm(q.Origin, c.Location)
		if d > q.RadiusKm {
			continue
		}
		results = append(results, ranked{
			match: RequestMatch{
				RequestCandidate: c,
				DistanceKm:       RoundKm1(d),
				CanUserDonate:    blood.CanDonate(q.DonorGroup, c.BloodGroup),
			},
			raw: d,
		})
	}

	sortByDistance(results, func(r ranked) float64 { return r.raw })
	out := make([]RequestMatch, len(results))
	for i, r := range results {
		out[i] = r.match
	}
	return out, nil
}

// narrowByIndex asks the geo index for nearby donor ids. An error or an empty
// answer falls through to a full store scan: the index is an accelerator, not
// the source of truth, and may be cold.
func (s *Service) narrowByIndex(ctx context.Context, origin types.Point, radiusKm float64) []types.ID {
	if s.index == nil {
		return nil
	}
	ids, err := s.index.Nearby(ctx, origin, radiusKm)
	if err != nil {
		s.log.Warn("geo index lookup failed, scanning store", zap.Error(err))
		return nil
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}
