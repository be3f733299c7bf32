// README: Donor geo index backed by Redis GEO, plus fan-out bookkeeping.
package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bloodlink/internal/types"
)

const (
	donorGeoKey     = "matching:donors"
	fanoutKeyPrefix = "matching:request:%s:fanout"
	// TTL for fan-out keys (requests resolve well within 30 days).
	fanoutTTL = 30 * 24 * time.Hour
)

// Index mirrors available donor positions into Redis and remembers which
// donors were notified for each request. Postgres stays the source of truth;
// every caller treats index failures as non-fatal.
type Index struct {
	redis *redis.Client
}

func NewIndex(client *redis.Client) *Index {
	return &Index{redis: client}
}

func (ix *Index) Add(ctx context.Context, id types.ID, p types.Point) error {
	return ix.redis.GeoAdd(ctx, donorGeoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
}

func (ix *Index) Remove(ctx context.Context, id types.ID) error {
	return ix.redis.ZRem(ctx, donorGeoKey, string(id)).Err()
}

// Nearby returns indexed donor ids within radiusKm of origin, nearest first.
func (ix *Index) Nearby(ctx context.Context, origin types.Point, radiusKm float64) ([]types.ID, error) {
	results, err := ix.redis.GeoSearch(ctx, donorGeoKey, &redis.GeoSearchQuery{
		Longitude:  origin.Lng,
		Latitude:   origin.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(results))
	for i, r := range results {
		ids[i] = types.ID(r)
	}
	return ids, nil
}

// RecordFanout remembers which donors were notified when a request was created.
func (ix *Index) RecordFanout(ctx context.Context, requestID types.ID, donorIDs []types.ID) error {
	if len(donorIDs) == 0 {
		return nil
	}
	key := fanoutKey(requestID)
	members := make([]interface{}, len(donorIDs))
	for i, d := range donorIDs {
		members[i] = string(d)
	}
	pipe := ix.redis.Pipeline()
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, fanoutTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// FanoutDonors returns the donor ids recorded for a request's initial fan-out.
func (ix *Index) FanoutDonors(ctx context.Context, requestID types.ID) ([]types.ID, error) {
	members, err := ix.redis.SMembers(ctx, fanoutKey(requestID)).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(members))
	for i, m := range members {
		ids[i] = types.ID(m)
	}
	return ids, nil
}

func fanoutKey(requestID types.ID) string {
	return fmt.Sprintf(fanoutKeyPrefix, string(requestID))
}
