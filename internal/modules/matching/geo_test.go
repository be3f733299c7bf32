// README: Distance math tests (run with -race along with the rest of the suite).
package matching

import (
	"math"
	"testing"

	"bloodlink/internal/types"
)

func TestDistanceKmKnownPairs(t *testing.T) {
	cases := []struct {
		name   string
		a, b   types.Point
		wantKm float64
		tolKm  float64
	}{
		{
			name:   "same point",
			a:      types.Point{Lat: 23.8103, Lng: 90.4125},
			b:      types.Point{Lat: 23.8103, Lng: 90.4125},
			wantKm: 0,
			tolKm:  0.001,
		},
		{
			name:   "dhaka to chittagong",
			a:      types.Point{Lat: 23.8103, Lng: 90.4125},
			b:      types.Point{Lat: 22.3569, Lng: 91.7832},
			wantKm: 215,
			tolKm:  5,
		},
		{
			name:   "one degree latitude",
			a:      types.Point{Lat: 0, Lng: 0},
			b:      types.Point{Lat: 1, Lng: 0},
			wantKm: 111.19,
			tolKm:  0.1,
		},
		{
			name:   "antipodal",
			a:      types.Point{Lat: 0, Lng: 0},
			b:      types.Point{Lat: 0, Lng: 180},
			wantKm: 20015,
			tolKm:  1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DistanceKm(tc.a, tc.b)
			if math.Abs(got-tc.wantKm) > tc.tolKm {
				t.Fatalf("DistanceKm = %f, want %f +- %f", got, tc.wantKm, tc.tolKm)
			}
		})
	}
}

func TestDistanceKmSymmetry(t *testing.T) {
	a := types.Point{Lat: 23.7104, Lng: 90.4074}
	b := types.Point{Lat: 24.3636, Lng: 88.6241}
	if DistanceKm(a, b) != DistanceKm(b, a) {
		t.Fatal("distance is not symmetric")
	}
}

func TestRoundKm1(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{1.24, 1.2},
		{1.25, 1.3},
		{19.96, 20.0},
	}
	for _, tc := range cases {
		if got := RoundKm1(tc.in); got != tc.want {
			t.Fatalf("RoundKm1(%f) = %f, want %f", tc.in, got, tc.want)
		}
	}
}

func TestSortByDistanceStable(t *testing.T) {
	type item struct {
		id string
		d  float64
	}
	items := []item{{"c", 5}, {"a", 1}, {"b", 1}, {"d", 0.5}}
	sortByDistance(items, func(i item) float64 { return i.d })

	want := []string{"d", "a", "b", "c"}
	for i, w := range want {
		if items[i].id != w {
			t.Fatalf("position %d: got %s, want %s", i, items[i].id, w)
		}
	}
}
