// README: Matcher tests over the in-memory store: radius, ranking, compatibility, index narrowing.
package matching_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"bloodlink/internal/modules/blood"
	"bloodlink/internal/modules/matching"
	"bloodlink/internal/modules/profile"
	"bloodlink/internal/modules/request"
	"bloodlink/internal/store"
	"bloodlink/internal/types"
)

var origin = types.Point{Lat: 23.8103, Lng: 90.4125}

func seedDonor(t *testing.T, mem *store.Memory, id string, group blood.Group, loc types.Point) {
	t.Helper()
	seedDonorFull(t, mem, profile.Profile{
		ID:          types.ID(id),
		IdentityRef: "identity-" + id,
		Name:        "donor " + id,
		BloodGroup:  group,
		Location:    &loc,
		Available:   true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	})
}

func seedDonorFull(t *testing.T, mem *store.Memory, p profile.Profile) {
	t.Helper()
	if err := mem.CreateProfile(context.Background(), &p); err != nil {
		t.Fatalf("seed donor %s: %v", p.ID, err)
	}
}

// offsetNorth returns a point n hundredths of a degree north of origin,
// roughly n*1.1 km away.
func offsetNorth(n int) types.Point {
	return types.Point{Lat: origin.Lat + float64(n)*0.01, Lng: origin.Lng}
}

func TestFindDonorsRadiusBoundaryInclusive(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := matching.NewService(mem, mem, nil, zap.NewNop())

	loc := offsetNorth(5)
	seedDonor(t, mem, "d1", blood.OPositive, loc)
	exact := matching.DistanceKm(origin, loc)

	got, err := svc.FindDonors(ctx, matching.DonorQuery{Origin: origin, RadiusKm: exact})
	if err != nil {
		t.Fatalf("find donors: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("donor at exactly the radius should match, got %d results", len(got))
	}

	got, err = svc.FindDonors(ctx, matching.DonorQuery{Origin: origin, RadiusKm: exact - 0.001})
	if err != nil {
		t.Fatalf("find donors: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("donor beyond the radius should not match, got %d results", len(got))
	}
}

func TestFindDonorsRankedByDistanceWithLimit(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := matching.NewService(mem, mem, nil, zap.NewNop())

	seedDonor(t, mem, "far", blood.OPositive, offsetNorth(3))
	seedDonor(t, mem, "near", blood.OPositive, offsetNorth(1))
	seedDonor(t, mem, "mid", blood.OPositive, offsetNorth(2))

	got, err := svc.FindDonors(ctx, matching.DonorQuery{Origin: origin, RadiusKm: 10})
	if err != nil {
		t.Fatalf("find donors: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 donors, got %d", len(got))
	}
	for i, want := range []types.ID{"near", "mid", "far"} {
		if got[i].ProfileID != want {
			t.Fatalf("position %d: got %s, want %s", i, got[i].ProfileID, want)
		}
	}

	got, err = svc.FindDonors(ctx, matching.DonorQuery{Origin: origin, RadiusKm: 10, Limit: 2})
	if err != nil {
		t.Fatalf("find donors: %v", err)
	}
	if len(got) != 2 || got[0].ProfileID != "near" || got[1].ProfileID != "mid" {
		t.Fatalf("limit should keep the nearest donors, got %v", got)
	}
}

func TestFindDonorsCompatibilityFilter(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := matching.NewService(mem, mem, nil, zap.NewNop())

	seedDonor(t, mem, "a-pos", blood.APositive, offsetNorth(1))
	seedDonor(t, mem, "b-neg", blood.BNegative, offsetNorth(2))
	seedDonor(t, mem, "o-pos", blood.OPositive, offsetNorth(3))

	recipient := blood.BPositive
	got, err := svc.FindDonors(ctx, matching.DonorQuery{
		Origin:         origin,
		RadiusKm:       10,
		CompatibleWith: &recipient,
	})
	if err != nil {
		t.Fatalf("find donors: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected the 2 compatible donors, got %d", len(got))
	}
	if got[0].ProfileID != "b-neg" || got[1].ProfileID != "o-pos" {
		t.Fatalf("unexpected compatible set: %v", got)
	}
}

func TestFindDonorsAvailabilityAndExclusion(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := matching.NewService(mem, mem, nil, zap.NewNop())

	seedDonor(t, mem, "self", blood.OPositive, offsetNorth(1))
	seedDonor(t, mem, "other", blood.OPositive, offsetNorth(2))
	loc := offsetNorth(3)
	seedDonorFull(t, mem, profile.Profile{
		ID: "paused", IdentityRef: "identity-paused", Name: "donor paused",
		BloodGroup: blood.OPositive, Location: &loc, Available: false,
	})

	got, err := svc.FindDonors(ctx, matching.DonorQuery{
		Origin:        origin,
		RadiusKm:      10,
		AvailableOnly: true,
		Exclude:       "self",
	})
	if err != nil {
		t.Fatalf("find donors: %v", err)
	}
	if len(got) != 1 || got[0].ProfileID != "other" {
		t.Fatalf("expected only the other available donor, got %v", got)
	}
}

func TestFindDonorsEligibilityFlag(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := matching.NewService(mem, mem, nil, zap.NewNop())

	recent := time.Now().AddDate(0, -1, 0)
	old := time.Now().AddDate(0, -6, 0)
	locA, locB := offsetNorth(1), offsetNorth(2)
	seedDonorFull(t, mem, profile.Profile{
		ID: "recent", IdentityRef: "identity-recent", Name: "donor recent",
		BloodGroup: blood.OPositive, Location: &locA, Available: true, LastDonation: &recent,
	})
	seedDonorFull(t, mem, profile.Profile{
		ID: "rested", IdentityRef: "identity-rested", Name: "donor rested",
		BloodGroup: blood.OPositive, Location: &locB, Available: true, LastDonation: &old,
	})

	got, err := svc.FindDonors(ctx, matching.DonorQuery{Origin: origin, RadiusKm: 10})
	if err != nil {
		t.Fatalf("find donors: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 donors, got %d", len(got))
	}
	if got[0].ProfileID != "recent" || got[0].Eligible {
		t.Fatalf("recently donated donor should be listed but ineligible: %+v", got[0])
	}
	if !got[1].Eligible {
		t.Fatalf("rested donor should be eligible: %+v", got[1])
	}
}

func TestFindDonorsInvalidRadius(t *testing.T) {
	svc := matching.NewService(store.NewMemory(), store.NewMemory(), nil, zap.NewNop())
	if _, err := svc.FindDonors(context.Background(), matching.DonorQuery{Origin: origin}); err == nil {
		t.Fatal("expected a validation error for zero radius")
	}
}

type fakeIndex struct {
	ids []types.ID
	err error
}

func (f *fakeIndex) Nearby(context.Context, types.Point, float64) ([]types.ID, error) {
	return f.ids, f.err
}

func TestFindDonorsIndexNarrowing(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	seedDonor(t, mem, "indexed", blood.OPositive, offsetNorth(1))
	seedDonor(t, mem, "unindexed", blood.OPositive, offsetNorth(2))

	svc := matching.NewService(mem, mem, &fakeIndex{ids: []types.ID{"indexed"}}, zap.NewNop())
	got, err := svc.FindDonors(ctx, matching.DonorQuery{Origin: origin, RadiusKm: 10})
	if err != nil {
		t.Fatalf("find donors: %v", err)
	}
	if len(got) != 1 || got[0].ProfileID != "indexed" {
		t.Fatalf("index should narrow the candidate set, got %v", got)
	}

	// a broken index falls back to the full scan
	svc = matching.NewService(mem, mem, &fakeIndex{err: errors.New("redis down")}, zap.NewNop())
	got, err = svc.FindDonors(ctx, matching.DonorQuery{Origin: origin, RadiusKm: 10})
	if err != nil {
		t.Fatalf("find donors: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("index failure should fall back to the store, got %d results", len(got))
	}
}

func seedRequest(t *testing.T, mem *store.Memory, id string, group blood.Group, loc types.Point) {
	t.Helper()
	r := request.Request{
		ID:         types.ID(id),
		CreatorID:  "creator",
		BloodGroup: group,
		Units:      2,
		Urgency:    request.UrgencyHigh,
		Location:   loc,
		Status:     request.StatusActive,
		CreatedAt:  time.Now(),
	}
	if err := mem.CreateRequest(context.Background(), &r); err != nil {
		t.Fatalf("seed request %s: %v", id, err)
	}
}

func TestFindRequestsRankingAndDonateFlag(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := matching.NewService(mem, mem, nil, zap.NewNop())

	seedRequest(t, mem, "r-ab", blood.ABPositive, offsetNorth(2))
	seedRequest(t, mem, "r-b", blood.BNegative, offsetNorth(1))

	got, err := svc.FindRequests(ctx, matching.RequestQuery{
		Origin:     origin,
		DonorGroup: blood.APositive,
		RadiusKm:   10,
	})
	if err != nil {
		t.Fatalf("find requests: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(got))
	}
	if got[0].ID != "r-b" || got[1].ID != "r-ab" {
		t.Fatalf("requests not ranked by distance: %v", got)
	}
	if got[0].CanUserDonate {
		t.Fatal("A+ donor cannot serve a B- request")
	}
	if !got[1].CanUserDonate {
		t.Fatal("A+ donor can serve an AB+ request")
	}
}

func TestFindRequestsSkipsNonActive(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := matching.NewService(mem, mem, nil, zap.NewNop())

	seedRequest(t, mem, "done", blood.OPositive, offsetNorth(1))
	now := time.Now()
	ok, err := mem.UpdateRequestStatus(ctx, "done", request.StatusActive, request.StatusFulfilled, &now)
	if err != nil || !ok {
		t.Fatalf("fulfill request: ok=%v err=%v", ok, err)
	}

	got, err := svc.FindRequests(ctx, matching.RequestQuery{
		Origin:     origin,
		DonorGroup: blood.ONegative,
		RadiusKm:   10,
	})
	if err != nil {
		t.Fatalf("find requests: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("fulfilled requests must not surface, got %d", len(got))
	}
}
