// README: Donor response handlers: submit, list, accept, decline, edit, withdraw.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bloodlink/internal/modules/profile"
	"bloodlink/internal/modules/response"
	"bloodlink/internal/types"
)

type ResponseHandler struct {
	responses *response.Service
	profiles  *profile.Service
}

func NewResponseHandler(responses *response.Service, profiles *profile.Service) *ResponseHandler {
	return &ResponseHandler{responses: responses, profiles: profiles}
}

type messageReq struct {
	Message string `json:"message"`
}

func (h *ResponseHandler) Submit(c *gin.Context) {
	var req messageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p := currentProfile(c, h.profiles)
	if p == nil {
		return
	}
	r, err := h.responses.Submit(c.Request.Context(), types.ID(c.Param("id")), p.ID, req.Message)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

func (h *ResponseHandler) ListForRequest(c *gin.Context) {
	p := currentProfile(c, h.profiles)
	if p == nil {
		return
	}
	rs, err := h.responses.ListForRequest(c.Request.Context(), types.ID(c.Param("id")), p.ID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"responses": rs, "count": len(rs)})
}

func (h *ResponseHandler) Accept(c *gin.Context) {
	p := currentProfile(c, h.profiles)
	if p == nil {
		return
	}
	result, err := h.responses.Accept(c.Request.Context(), types.ID(c.Param("id")), p.ID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, result)
}

func (h *ResponseHandler) Decline(c *gin.Context) {
	p := currentProfile(c, h.profiles)
	if p == nil {
		return
	}
	if err := h.responses.Decline(c.Request.Context(), types.ID(c.Param("id")), p.ID); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": response.StatusDeclined})
}

func (h *ResponseHandler) EditMessage(c *gin.Context) {
	var req messageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	p := currentProfile(c, h.profiles)
	if p == nil {
		return
	}
	if err := h.responses.EditMessage(c.Request.Context(), types.ID(c.Param("id")), p.ID, req.Message); err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"message": req.Message})
}

func (h *ResponseHandler) Withdraw(c *gin.Context) {
	p := currentProfile(c, h.profiles)
	if p == nil {
		return
	}
	if err := h.responses.Withdraw(c.Request.Context(), types.ID(c.Param("id")), p.ID); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
