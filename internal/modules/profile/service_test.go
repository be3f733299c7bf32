// README: Profile service tests: identity resolution, mutations, index sync, stats.
package profile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bloodlink/internal/modules/blood"
	"bloodlink/internal/modules/donation"
	"bloodlink/internal/modules/profile"
	"bloodlink/internal/sentinel"
	"bloodlink/internal/store"
	"bloodlink/internal/types"
)

type recordingIndex struct {
	added   []types.ID
	removed []types.ID
}

func (r *recordingIndex) Add(_ context.Context, id types.ID, _ types.Point) error {
	r.added = append(r.added, id)
	return nil
}

func (r *recordingIndex) Remove(_ context.Context, id types.ID) error {
	r.removed = append(r.removed, id)
	return nil
}

func seed(t *testing.T, mem *store.Memory, id types.ID, loc *types.Point, available bool) {
	t.Helper()
	p := profile.Profile{
		ID:          id,
		IdentityRef: "identity-" + string(id),
		Name:        "user " + string(id),
		BloodGroup:  blood.OPositive,
		Location:    loc,
		Available:   available,
	}
	require.NoError(t, mem.CreateProfile(context.Background(), &p))
}

func TestGetByIdentity(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := profile.NewService(mem, nil, zap.NewNop())
	seed(t, mem, "d1", nil, true)

	p, err := svc.GetByIdentity(ctx, "identity-d1")
	require.NoError(t, err)
	assert.Equal(t, types.ID("d1"), p.ID)

	_, err = svc.GetByIdentity(ctx, "")
	assert.ErrorIs(t, err, sentinel.ErrUnauthenticated)

	_, err = svc.GetByIdentity(ctx, "identity-unknown")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestSetAvailabilitySyncsIndex(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	idx := &recordingIndex{}
	svc := profile.NewService(mem, idx, zap.NewNop())

	loc := types.Point{Lat: 23.8, Lng: 90.4}
	seed(t, mem, "d1", &loc, false)

	require.NoError(t, svc.SetAvailability(ctx, "d1", true))
	assert.Equal(t, []types.ID{"d1"}, idx.added)

	require.NoError(t, svc.SetAvailability(ctx, "d1", false))
	assert.Equal(t, []types.ID{"d1"}, idx.removed)

	p, err := svc.Get(ctx, "d1")
	require.NoError(t, err)
	assert.False(t, p.Available)
}

func TestSetLocationValidatesRange(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := profile.NewService(mem, nil, zap.NewNop())
	seed(t, mem, "d1", nil, true)

	var verr *sentinel.ValidationError
	err := svc.SetLocation(ctx, "d1", types.Point{Lat: 91, Lng: 0})
	require.ErrorAs(t, err, &verr)
	err = svc.SetLocation(ctx, "d1", types.Point{Lat: 0, Lng: -181})
	require.ErrorAs(t, err, &verr)

	require.NoError(t, svc.SetLocation(ctx, "d1", types.Point{Lat: 23.8, Lng: 90.4}))
	p, err := svc.Get(ctx, "d1")
	require.NoError(t, err)
	require.NotNil(t, p.Location)
	assert.Equal(t, 23.8, p.Location.Lat)
}

func TestSetLastDonationRejectsFutureDates(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := profile.NewService(mem, nil, zap.NewNop())
	seed(t, mem, "d1", nil, true)

	var verr *sentinel.ValidationError
	err := svc.SetLastDonation(ctx, "d1", time.Now().Add(24*time.Hour))
	require.ErrorAs(t, err, &verr)

	past := time.Now().AddDate(0, -4, 0)
	require.NoError(t, svc.SetLastDonation(ctx, "d1", past))
	p, err := svc.Get(ctx, "d1")
	require.NoError(t, err)
	require.NotNil(t, p.LastDonation)
	assert.True(t, p.LastDonation.Equal(past))
}

func TestStatsAggregatesDonations(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := profile.NewService(mem, nil, zap.NewNop())
	seed(t, mem, "d1", nil, true)

	for i, units := range []int{2, 3} {
		d := donation.Donation{
			ID:        types.ID([]string{"don-1", "don-2"}[i]),
			DonorID:   "d1",
			DonatedAt: time.Now(),
			Units:     units,
		}
		require.NoError(t, mem.CreateDonation(ctx, &d))
	}

	stats, err := svc.Stats(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Donations)
	assert.Equal(t, 5, stats.TotalUnits)
}
