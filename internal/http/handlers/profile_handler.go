// README: Donor profile handlers: availability, location, last donation, stats.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bloodlink/internal/modules/profile"
	"bloodlink/internal/types"
)

type ProfileHandler struct {
	profiles *profile.Service
}

func NewProfileHandler(profiles *profile.Service) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) Get(c *gin.Context) {
	p := currentProfile(c, h.profiles)
	if p == nil {
		return
	}
	writeJSON(c, http.StatusOK, p)
}

type setAvailabilityReq struct {
	Available *bool `json:"available"`
}

func (h *ProfileHandler) SetAvailability(c *gin.Context) {
	var req setAvailabilityReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Available == nil {
		writeError(c, http.StatusBadRequest, "invalid json: available required")
		return
	}
	p := currentProfile(c, h.profiles)
	if p == nil {
		return
	}
	if err := h.profiles.SetAvailability(c.Request.Context(), p.ID, *req.Available); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"available": *req.Available})
}

type setLocationReq struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (h *ProfileHandler) SetLocation(c *gin.Context) {
	var req setLocationReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Lat == nil || req.Lng == nil {
		writeError(c, http.StatusBadRequest, "invalid json: lat and lng required")
		return
	}
	p := currentProfile(c, h.profiles)
	if p == nil {
		return
	}
	if err := h.profiles.SetLocation(c.Request.Context(), p.ID, types.Point{Lat: *req.Lat, Lng: *req.Lng}); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"lat": *req.Lat, "lng": *req.Lng})
}

type setLastDonationReq struct {
	DonatedAt time.Time `json:"donated_at"`
}

func (h *ProfileHandler) SetLastDonation(c *gin.Context) {
	var req setLastDonationReq
	if err := c.ShouldBindJSON(&req); err != nil || req.DonatedAt.IsZero() {
		writeError(c, http.StatusBadRequest, "invalid json: donated_at required")
		return
	}
	p := currentProfile(c, h.profiles)
	if p == nil {
		return
	}
	if err := h.profiles.SetLastDonation(c.Request.Context(), p.ID, req.DonatedAt); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"donated_at": req.DonatedAt})
}

func (h *ProfileHandler) Stats(c *gin.Context) {
	p := currentProfile(c, h.profiles)
	if p == nil {
		return
	}
	stats, err := h.profiles.Stats(c.Request.Context(), p.ID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"donations":   stats.Donations,
		"total_units": stats.TotalUnits,
	})
}
