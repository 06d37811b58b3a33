package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/alcoolio/neighbourgood/internal/tickets"
	"github.com/gin-gonic/gin"
)

type createTicketPayload struct {
	TicketType  string     `json:"ticket_type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Urgency     string     `json:"urgency"`
	DueAt       *time.Time `json:"due_at"`
}

// updateTicketPayload keeps due_at as raw JSON so an explicit null (clear
// the deadline) stays distinguishable from an omitted field.
type updateTicketPayload struct {
	Title        *string         `json:"title"`
	Description  *string         `json:"description"`
	Status       *string         `json:"status"`
	Urgency      *string         `json:"urgency"`
	DueAt        json.RawMessage `json:"due_at"`
	AssignedToID *uint           `json:"assigned_to_id"`
}

func (h *httpHandler) handleCreateTicket(c *gin.Context) {
	communityID, ok := pathID(c, "community_id")
	if !ok {
		return
	}
	var payload createTicketPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	created, err := h.tickets.Create(c.Request.Context(), communityID, h.currentUserID(c), tickets.CreateParams{
		TicketType:  tickets.Type(payload.TicketType),
		Title:       payload.Title,
		Description: payload.Description,
		Urgency:     tickets.Urgency(payload.Urgency),
		DueAt:       payload.DueAt,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *httpHandler) handleGetTicket(c *gin.Context) {
	communityID, ok := pathID(c, "community_id")
	if !ok {
		return
	}
	ticketID, ok := pathID(c, "ticket_id")
	if !ok {
		return
	}
	found, err := h.tickets.Get(c.Request.Context(), communityID, ticketID, h.currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

func (h *httpHandler) handleUpdateTicket(c *gin.Context) {
	communityID, ok := pathID(c, "community_id")
	if !ok {
		return
	}
	ticketID, ok := pathID(c, "ticket_id")
	if !ok {
		return
	}
	var payload updateTicketPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	patch := tickets.UpdatePatch{
		Title:        payload.Title,
		Description:  payload.Description,
		AssignedToID: payload.AssignedToID,
	}
	if payload.Status != nil {
		status := tickets.Status(*payload.Status)
		patch.Status = &status
	}
	if payload.Urgency != nil {
		urgency := tickets.Urgency(*payload.Urgency)
		patch.Urgency = &urgency
	}
	if len(payload.DueAt) > 0 {
		patch.DueAtSet = true
		if !bytes.Equal(bytes.TrimSpace(payload.DueAt), []byte("null")) {
			var dueAt time.Time
			if err := json.Unmarshal(payload.DueAt, &dueAt); err != nil {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "due_at must be an RFC 3339 timestamp or null"})
				return
			}
			patch.DueAt = &dueAt
		}
	}

	updated, err := h.tickets.Update(c.Request.Context(), communityID, ticketID, h.currentUserID(c), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleListTickets(c *gin.Context) {
	communityID, ok := pathID(c, "community_id")
	if !ok {
		return
	}

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.tickets.List(c.Request.Context(), communityID, h.currentUserID(c),
		tickets.Filters{
			TicketType: c.Query("ticket_type"),
			Status:     c.Query("status"),
			Urgency:    c.Query("urgency"),
		},
		c.DefaultQuery("sort", tickets.SortCreatedDesc),
		tickets.Page{Skip: skip, Limit: limit},
	)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleTriage(c *gin.Context) {
	communityID, ok := pathID(c, "community_id")
	if !ok {
		return
	}
	result, err := h.tickets.Triage(c.Request.Context(), communityID, h.currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
