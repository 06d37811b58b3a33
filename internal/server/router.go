package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alcoolio/neighbourgood/internal/activity"
	"github.com/alcoolio/neighbourgood/internal/community"
	"github.com/alcoolio/neighbourgood/internal/crisis"
	"github.com/alcoolio/neighbourgood/internal/domain"
	"github.com/alcoolio/neighbourgood/internal/notify"
	"github.com/alcoolio/neighbourgood/internal/tickets"
	"github.com/alcoolio/neighbourgood/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userIDContextKey = "neighbourgood_user_id"

var (
	errMissingTokenManager     = errors.New("token manager dependency required")
	errMissingUserService      = errors.New("user service dependency required")
	errMissingCommunityService = errors.New("community service dependency required")
	errMissingCrisisService    = errors.New("crisis service dependency required")
	errMissingTicketService    = errors.New("ticket service dependency required")
)

// TokenManager issues and validates API session tokens.
type TokenManager interface {
	IssueToken(userID uint) (string, int64, error)
	ValidateToken(token string) (uint, error)
}

// Dependencies wires the services behind the HTTP surface.
type Dependencies struct {
	TokenManager     TokenManager
	UserService      *users.Service
	CommunityService *community.Service
	CrisisService    *crisis.Service
	TicketService    *tickets.Service
	ActivityRecorder *activity.Recorder
	Webhooks         *notify.WebhookDispatcher
	CORSOrigins      []string
	Logger           *zap.Logger
}

// NewHTTPHandler builds the REST router.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.UserService == nil {
		return nil, errMissingUserService
	}
	if deps.CommunityService == nil {
		return nil, errMissingCommunityService
	}
	if deps.CrisisService == nil {
		return nil, errMissingCrisisService
	}
	if deps.TicketService == nil {
		return nil, errMissingTicketService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:      deps.TokenManager,
		userService: deps.UserService,
		communities: deps.CommunityService,
		crisisCtrl:  deps.CrisisService,
		tickets:     deps.TicketService,
		activity:    deps.ActivityRecorder,
		webhooks:    deps.Webhooks,
		logger:      logger,
	}

	router.POST("/auth/register", handler.handleRegister)
	router.POST("/auth/login", handler.handleLogin)
	router.GET("/communities/:community_id", handler.handleGetCommunity)
	router.GET("/communities/:community_id/crisis/status", handler.handleCrisisStatus)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)

	protected.POST("/communities", handler.handleCreateCommunity)
	protected.GET("/communities", handler.handleMyCommunities)
	protected.POST("/communities/merge", handler.handleMergeCommunities)
	protected.POST("/communities/:community_id/join", handler.handleJoinCommunity)
	protected.DELETE("/communities/:community_id/membership", handler.handleLeaveCommunity)
	protected.GET("/communities/:community_id/members", handler.handleListMembers)
	protected.GET("/communities/:community_id/leaders", handler.handleListLeaders)
	protected.POST("/communities/:community_id/leaders/:user_id", handler.handlePromoteLeader)
	protected.DELETE("/communities/:community_id/leaders/:user_id", handler.handleDemoteLeader)

	protected.POST("/communities/:community_id/crisis/toggle", handler.handleCrisisToggle)
	protected.POST("/communities/:community_id/crisis/vote", handler.handleCastVote)
	protected.DELETE("/communities/:community_id/crisis/vote", handler.handleRetractVote)

	protected.POST("/communities/:community_id/tickets", handler.handleCreateTicket)
	protected.GET("/communities/:community_id/tickets", handler.handleListTickets)
	protected.GET("/communities/:community_id/tickets/triage", handler.handleTriage)
	protected.GET("/communities/:community_id/tickets/:ticket_id", handler.handleGetTicket)
	protected.PATCH("/communities/:community_id/tickets/:ticket_id", handler.handleUpdateTicket)

	protected.GET("/activity", handler.handleListActivity)
	protected.POST("/webhooks", handler.handleSubscribeWebhook)

	return router, nil
}

type httpHandler struct {
	tokens      TokenManager
	userService *users.Service
	communities *community.Service
	crisisCtrl  *crisis.Service
	tickets     *tickets.Service
	activity    *activity.Recorder
	webhooks    *notify.WebhookDispatcher
	logger      *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header missing or invalid"})
		return
	}

	userID, err := h.tokens.ValidateToken(strings.TrimSpace(parts[1]))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	c.Set(userIDContextKey, userID)
	c.Next()
}

func (h *httpHandler) currentUserID(c *gin.Context) uint {
	value, ok := c.Get(userIDContextKey)
	if !ok {
		return 0
	}
	userID, ok := value.(uint)
	if !ok {
		return 0
	}
	return userID
}

func pathID(c *gin.Context, name string) (uint, bool) {
	raw, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || raw == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": name + " must be a positive integer"})
		return 0, false
	}
	return uint(raw), true
}

// respondError maps domain error kinds onto HTTP statuses. Unclassified
// errors are logged and hidden behind a generic 500.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	if errors.Is(err, users.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		status := http.StatusInternalServerError
		switch domainErr.Kind() {
		case domain.KindNotFound:
			status = http.StatusNotFound
		case domain.KindForbidden:
			status = http.StatusForbidden
		case domain.KindConflict:
			status = http.StatusConflict
		case domain.KindInvalid:
			status = http.StatusUnprocessableEntity
		}
		if status != http.StatusInternalServerError {
			c.JSON(status, gin.H{"error": domainErr.Message()})
			return
		}
	}

	h.logger.Error("request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
