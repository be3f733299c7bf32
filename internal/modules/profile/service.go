// README: Profile service: identity resolution, donor-controlled mutations, donation stats.
package profile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"bloodlink/internal/sentinel"
	"bloodlink/internal/types"
)

// Store is the storage contract the profile service consumes.
type Store interface {
	GetProfile(ctx context.Context, id types.ID) (*Profile, error)
	GetProfileByIdentity(ctx context.Context, identityRef string) (*Profile, error)
	UpdateProfileAvailability(ctx context.Context, id types.ID, available bool) error
	UpdateProfileLocation(ctx context.Context, id types.ID, p types.Point) error
	UpdateProfileLastDonation(ctx context.Context, id types.ID, at time.Time) error
	CountDonations(ctx context.Context, donorID types.ID) (int, error)
	SumDonationUnits(ctx context.Context, donorID types.ID) (int, error)
}

// DonorIndex mirrors available donor positions into a geo index so nearby
// queries can narrow candidates cheaply. All index writes are best-effort.
type DonorIndex interface {
	Add(ctx context.Context, id types.ID, p types.Point) error
	Remove(ctx context.Context, id types.ID) error
}

type Service struct {
	store Store
	index DonorIndex
	log   *zap.Logger
}

func NewService(store Store, index DonorIndex, log *zap.Logger) *Service {
	return &Service{store: store, index: index, log: log}
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Profile, error) {
	return s.store.GetProfile(ctx, id)
}

// GetByIdentity resolves an external identity reference to a profile.
func (s *Service) GetByIdentity(ctx context.Context, identityRef string) (*Profile, error) {
	if identityRef == "" {
		return nil, sentinel.ErrUnauthenticated
	}
	return s.store.GetProfileByIdentity(ctx, identityRef)
}

// SetAvailability flips the donor-controlled availability flag and keeps the
// geo index in sync: available donors with a location are indexed, everyone
// else is evicted.
func (s *Service) SetAvailability(ctx context.Context, id types.ID, available bool) error {
	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.UpdateProfileAvailability(ctx, id, available); err != nil {
		return err
	}
	s.syncIndex(ctx, id, available, p.Location)
	return nil
}

// SetLocation records the donor's current position.
func (s *Service) SetLocation(ctx context.Context, id types.ID, p types.Point) error {
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return sentinel.NewValidation("location", "coordinates out of range")
	}
	prof, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.UpdateProfileLocation(ctx, id, p); err != nil {
		return err
	}
	s.syncIndex(ctx, id, prof.Available, &p)
	return nil
}

// SetLastDonation lets a donor record an external (direct) donation date.
func (s *Service) SetLastDonation(ctx context.Context, id types.ID, at time.Time) error {
	if at.After(time.Now()) {
		return sentinel.NewValidation("last_donation", "date cannot be in the future")
	}
	if _, err := s.store.GetProfile(ctx, id); err != nil {
		return err
	}
	return s.store.UpdateProfileLastDonation(ctx, id, at)
}

// Stats returns the donor's recorded donation count and total units.
func (s *Service) Stats(ctx context.Context, donorID types.ID) (Stats, error) {
	count, err := s.store.CountDonations(ctx, donorID)
	if err != nil {
		return Stats{}, err
	}
	units, err := s.store.SumDonationUnits(ctx, donorID)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Donations: count, TotalUnits: units}, nil
}

func (s *Service) syncIndex(ctx context.Context, id types.ID, available bool, loc *types.Point) {
	if s.index == nil {
		return
	}
	var err error
	if available && loc != nil {
		err = s.index.Add(ctx, id, *loc)
	} else {
		err = s.index.Remove(ctx, id)
	}
	if err != nil {
		s.log.Warn("donor index sync failed", zap.String("profile_id", string(id)), zap.Error(err))
	}
}
