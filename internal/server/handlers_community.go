package server

import (
	"net/http"
	"strconv"

	"github.com/alcoolio/neighbourgood/internal/community"
	"github.com/gin-gonic/gin"
)

type createCommunityPayload struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	PostalCode      string `json:"postal_code"`
	City            string `json:"city"`
	CountryCode     string `json:"country_code"`
	PrimaryLanguage string `json:"primary_language"`
}

type mergePayload struct {
	SourceID uint `json:"source_id"`
	TargetID uint `json:"target_id"`
}

func (h *httpHandler) handleCreateCommunity(c *gin.Context) {
	var payload createCommunityPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	created, err := h.communities.Create(c.Request.Context(), h.currentUserID(c), community.CreateParams{
		Name:            payload.Name,
		Description:     payload.Description,
		PostalCode:      payload.PostalCode,
		City:            payload.City,
		CountryCode:     payload.CountryCode,
		PrimaryLanguage: payload.PrimaryLanguage,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *httpHandler) handleGetCommunity(c *gin.Context) {
	communityID, ok := pathID(c, "community_id")
	if !ok {
		return
	}
	found, err := h.communities.Get(c.Request.Context(), communityID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

func (h *httpHandler) handleMyCommunities(c *gin.Context) {
	mine, err := h.communities.MyCommunities(c.Request.Context(), h.currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mine)
}

func (h *httpHandler) handleJoinCommunity(c *gin.Context) {
	communityID, ok := pathID(c, "community_id")
	if !ok {
		return
	}
	member, err := h.communities.Join(c.Request.Context(), communityID, h.currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

func (h *httpHandler) handleLeaveCommunity(c *gin.Context) {
	communityID, ok := pathID(c, "community_id")
	if !ok {
		return
	}
	if err := h.communities.Leave(c.Request.Context(), communityID, h.currentUserID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleListMembers(c *gin.Context) {
	communityID, ok := pathID(c, "community_id")
	if !ok {
		return
	}
	members, err := h.communities.Members(c.Request.Context(), communityID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func (h *httpHandler) handleMergeCommunities(c *gin.Context) {
	var payload mergePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	merged, err := h.communities.Merge(c.Request.Context(), payload.SourceID, payload.TargetID, h.currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, merged)
}

func (h *httpHandler) handleListLeaders(c *gin.Context) {
	communityID, ok := pathID(c, "community_id")
	if !ok {
		return
	}
	leaders, err := h.communities.Leaders(c.Request.Context(), communityID, h.currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, leaders)
}

func (h *httpHandler) handlePromoteLeader(c *gin.Context) {
	communityID, ok := pathID(c, "community_id")
	if !ok {
		return
	}
	targetUserID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	member, err := h.communities.PromoteLeader(c.Request.Context(), communityID, targetUserID, h.currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *httpHandler) handleDemoteLeader(c *gin.Context) {
	communityID, ok := pathID(c, "community_id")
	if !ok {
		return
	}
	targetUserID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	member, err := h.communities.DemoteLeader(c.Request.Context(), communityID, targetUserID, h.currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *httpHandler) handleListActivity(c *gin.Context) {
	if h.activity == nil {
		c.JSON(http.StatusOK, []struct{}{})
		return
	}

	var communityID uint
	if raw := c.Query("community_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "community_id must be a positive integer"})
			return
		}
		communityID = uint(parsed)
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	events, err := h.activity.List(c.Request.Context(), communityID, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

type webhookPayload struct {
	URL       string `json:"url"`
	EventType string `json:"event_type"`
	Secret    string `json:"secret"`
}

func (h *httpHandler) handleSubscribeWebhook(c *gin.Context) {
	if h.webhooks == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "webhooks are not configured"})
		return
	}
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	subscription, err := h.webhooks.Subscribe(c.Request.Context(), payload.URL, payload.EventType, payload.Secret)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, subscription)
}
