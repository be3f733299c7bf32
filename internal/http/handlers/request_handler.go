// README: Blood request handlers: create, list own, status transitions, delete.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bloodlink/internal/modules/profile"
	"bloodlink/internal/modules/request"
	"bloodlink/internal/types"
)

type RequestHandler struct {
	requests *request.Service
	profiles *profile.Service
}

func NewRequestHandler(requests *request.Service, profiles *profile.Service) *RequestHandler {
	return &RequestHandler{requests: requests, profiles: profiles}
}

type createRequestReq struct {
	PatientName  string  `json:"patient_name"`
	BloodGroup   string  `json:"blood_group"`
	Units        int     `json:"units"`
	Urgency      string  `json:"urgency"`
	ContactPhone string  `json:"contact_phone"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	LocationName string  `json:"location_name"`
}

func (h *RequestHandler) Create(c *gin.Context) {
	var req createRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p := currentProfile(c, h.profiles)
	if p == nil {
		return
	}
	result, err := h.requests.Create(c.Request.Context(), request.CreateCommand{
		CreatorID:    p.ID,
		PatientName:  req.PatientName,
		BloodGroup:   req.BloodGroup,
		Units:        req.Units,
		Urgency:      req.Urgency,
		ContactPhone: req.ContactPhone,
		Location:     types.Point{Lat: req.Lat, Lng: req.Lng},
		LocationName: req.LocationName,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{
		"request":             result.Request,
		"matched_donor_count": result.MatchedDonorCount,
	})
}

func (h *RequestHandler) Get(c *gin.Context) {
	if currentProfile(c, h.profiles) == nil {
		return
	}
	r, err := h.requests.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, r)
}

func (h *RequestHandler) ListMine(c *gin.Context) {
	p := currentProfile(c, h.profiles)
	if p == nil {
		return
	}
	rs, err := h.requests.ListByCreator(c.Request.Context(), p.ID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"requests": rs, "count": len(rs)})
}

func (h *RequestHandler) NotifiedDonors(c *gin.Context) {
	p := currentProfile(c, h.profiles)
	if p == nil {
		return
	}
	ids, err := h.requests.NotifiedDonors(c.Request.Context(), types.ID(c.Param("id")), p.ID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"donor_ids": ids, "count": len(ids)})
}

type updateStatusReq struct {
	Status string `json:"status"`
}

func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	to, err := request.ParseStatus(req.Status)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	p := currentProfile(c, h.profiles)
	if p == nil {
		return
	}
	if err := h.requests.UpdateStatus(c.Request.Context(), types.ID(c.Param("id")), p.ID, to); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": to})
}

func (h *RequestHandler) Delete(c *gin.Context) {
	p := currentProfile(c, h.profiles)
	if p == nil {
		return
	}
	if err := h.requests.Delete(c.Request.Context(), types.ID(c.Param("id")), p.ID); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
