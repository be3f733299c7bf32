// README: Geo search handlers for nearby donors and nearby requests.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bloodlink/internal/modules/blood"
	"bloodlink/internal/modules/matching"
	"bloodlink/internal/modules/profile"
	"bloodlink/internal/types"
)

const defaultSearchRadiusKm = 10.0

type MatchingHandler struct {
	matcher  *matching.Service
	profiles *profile.Service
}

func NewMatchingHandler(matcher *matching.Service, profiles *profile.Service) *MatchingHandler {
	return &MatchingHandler{matcher: matcher, profiles: profiles}
}

// searchOrigin resolves the search center: explicit lat/lng params win,
// otherwise the caller's stored location is used.
func searchOrigin(c *gin.Context, p *profile.Profile) (types.Point, bool) {
	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr != "" || lngStr != "" {
		lat, err1 := strconv.ParseFloat(latStr, 64)
		lng, err2 := strconv.ParseFloat(lngStr, 64)
		if err1 != nil || err2 != nil {
			writeError(c, http.StatusBadRequest, "lat and lng must both be valid numbers")
			return types.Point{}, false
		}
		return types.Point{Lat: lat, Lng: lng}, true
	}
	if p.Location == nil {
		writeError(c, http.StatusBadRequest, "no search origin: pass lat/lng or set a profile location")
		return types.Point{}, false
	}
	return *p.Location, true
}

func searchRadius(c *gin.Context) (float64, bool) {
	s := c.Query("radius_km")
	if s == "" {
		return defaultSearchRadiusKm, true
	}
	r, err := strconv.ParseFloat(s, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "radius_km must be a number")
		return 0, false
	}
	return r, true
}

func parseGroupParam(c *gin.Context, key string) (*blood.Group, bool) {
	s := c.Query(key)
	if s == "" {
		return nil, true
	}
	g, err := blood.Parse(s)
	if err != nil {
		writeDomainError(c, err)
		return nil, false
	}
	return &g, true
}

func (h *MatchingHandler) NearbyDonors(c *gin.Context) {
	p := currentProfile(c, h.profiles)
	if p == nil {
		return
	}
	origin, ok := searchOrigin(c, p)
	if !ok {
		return
	}
	radius, ok := searchRadius(c)
	if !ok {
		return
	}
	group, ok := parseGroupParam(c, "group")
	if !ok {
		return
	}
	compatibleWith, ok := parseGroupParam(c, "compatible_with")
	if !ok {
		return
	}
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(c, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	matches, err := h.matcher.FindDonors(c.Request.Context(), matching.DonorQuery{
		Origin:         origin,
		Group:          group,
		CompatibleWith: compatibleWith,
		RadiusKm:       radius,
		AvailableOnly:  c.Query("available_only") != "false",
		Exclude:        p.ID,
		Limit:          limit,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"donors": matches, "count": len(matches)})
}

func (h *MatchingHandler) NearbyRequests(c *gin.Context) {
	p := currentProfile(c, h.profiles)
	if p == nil {
		return
	}
	origin, ok := searchOrigin(c, p)
	if !ok {
		return
	}
	radius, ok := searchRadius(c)
	if !ok {
		return
	}
	group, ok := parseGroupParam(c, "group")
	if !ok {
		return
	}
	matches, err := h.matcher.FindRequests(c.Request.Context(), matching.RequestQuery{
		Origin:     origin,
		DonorGroup: p.BloodGroup,
		Group:      group,
		RadiusKm:   radius,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"requests": matches, "count": len(matches)})
}
