package server

import (
	"net/http"

	"github.com/alcoolio/neighbourgood/internal/community"
	"github.com/alcoolio/neighbourgood/internal/crisis"
	"github.com/gin-gonic/gin"
)

type togglePayload struct {
	Mode string `json:"mode"`
}

type votePayload struct {
	VoteType string `json:"vote_type"`
}

func (h *httpHandler) handleCrisisToggle(c *gin.Context) {
	communityID, ok := pathID(c, "community_id")
	if !ok {
		return
	}
	var payload togglePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	mode, err := community.ParseMode(payload.Mode)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status, err := h.crisisCtrl.ToggleMode(c.Request.Context(), communityID, h.currentUserID(c), mode)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *httpHandler) handleCrisisStatus(c *gin.Context) {
	communityID, ok := pathID(c, "community_id")
	if !ok {
		return
	}
	status, err := h.crisisCtrl.GetStatus(c.Request.Context(), communityID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *httpHandler) handleCastVote(c *gin.Context) {
	communityID, ok := pathID(c, "community_id")
	if !ok {
		return
	}
	var payload votePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	voteType, err := crisis.ParseVoteType(payload.VoteType)
	if err != nil {
		h.respondError(c, err)
		return
	}

	vote, err := h.crisisCtrl.CastVote(c.Request.Context(), communityID, h.currentUserID(c), voteType)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vote)
}

func (h *httpHandler) handleRetractVote(c *gin.Context) {
	communityID, ok := pathID(c, "community_id")
	if !ok {
		return
	}
	if err := h.crisisCtrl.RetractVote(c.Request.Context(), communityID, h.currentUserID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
