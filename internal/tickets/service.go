package tickets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alcoolio/neighbourgood/internal/community"
	"github.com/alcoolio/neighbourgood/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// SortCreatedDesc orders by creation time, newest first. Default.
	SortCreatedDesc = "created_desc"
	// SortPriorityDesc orders by triage score, highest first. The full
	// filtered set is scored before pagination is applied.
	SortPriorityDesc = "priority_desc"

	defaultPageLimit = 20
	maxPageLimit     = 100
)

var errMissingDatabase = errors.New("tickets: database handle is required")

// ActivityRecorder receives domain events for the activity feed. Recording
// is best-effort and must never fail the calling operation.
type ActivityRecorder interface {
	Record(ctx context.Context, eventType, summary string, actorID, communityID uint)
}

// ServiceConfig describes the dependencies for the ticket engine.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
	Activity ActivityRecorder
}

// Service manages the emergency ticket lifecycle and the triage views.
type Service struct {
	db       *gorm.DB
	clock    func() time.Time
	logger   *zap.Logger
	activity ActivityRecorder
}

// NewService constructs the ticket engine.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, clock: clock, logger: logger, activity: cfg.Activity}, nil
}

// CreateParams carries the input for ticket creation.
type CreateParams struct {
	TicketType  Type
	Title       string
	Description string
	Urgency     Urgency
	DueAt       *time.Time
}

// Create opens a ticket. Emergency pings require the community to be in
// red mode at creation time.
func (s *Service) Create(ctx context.Context, communityID, actorID uint, params CreateParams) (*View, error) {
	ticketType, err := ParseType(string(params.TicketType))
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, domain.Invalid("title is required")
	}
	urgency := params.Urgency
	if urgency == "" {
		urgency = UrgencyMedium
	}
	if _, err := ParseUrgency(string(urgency)); err != nil {
		return nil, err
	}

	target, err := community.ResolveActive(s.db.WithContext(ctx), communityID)
	if err != nil {
		return nil, err
	}
	if _, err := community.Membership(s.db.WithContext(ctx), communityID, actorID); err != nil {
		return nil, err
	}

	if ticketType == TypeEmergencyPing && target.Mode != community.ModeRed {
		return nil, domain.Invalid("emergency pings are only available in Red Sky (crisis) mode")
	}

	now := s.clock().UTC()
	ticket := Ticket{
		CommunityID: communityID,
		AuthorID:    actorID,
		TicketType:  ticketType,
		Title:       title,
		Description: strings.TrimSpace(params.Description),
		Status:      StatusOpen,
		Urgency:     urgency,
		DueAt:       params.DueAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&ticket).Error; err != nil {
		return nil, domain.Internal("ticket create failed", err)
	}

	s.logger.Info("ticket created",
		zap.Uint("ticket_id", ticket.ID),
		zap.Uint("community_id", communityID),
		zap.String("ticket_type", string(ticketType)))
	s.record(ctx, "ticket_created",
		fmt.Sprintf("created %s ticket %q", ticketType, title), actorID, communityID)

	return s.view(ticket), nil
}

// UpdatePatch carries partial update fields. Nil pointers mean "leave
// unchanged". DueAtSet distinguishes an explicit null (clear the deadline)
// from an omitted field.
type UpdatePatch struct {
	Title        *string
	Description  *string
	Status       *Status
	Urgency      *Urgency
	DueAt        *time.Time
	DueAtSet     bool
	AssignedToID *uint
}

// Update applies a partial update. The author, a leader, or an admin may
// update; a new assignee must be a member of the community.
func (s *Service) Update(ctx context.Context, communityID, ticketID, actorID uint, patch UpdatePatch) (*View, error) {
	if _, err := community.ResolveActive(s.db.WithContext(ctx), communityID); err != nil {
		return nil, err
	}
	membership, err := community.Membership(s.db.WithContext(ctx), communityID, actorID)
	if err != nil {
		return nil, err
	}

	ticket, err := s.load(ctx, communityID, ticketID)
	if err != nil {
		return nil, err
	}

	if ticket.AuthorID != actorID && !membership.Role.Can(community.CapManageTickets) {
		return nil, domain.Forbidden("only the author, leaders, or admins can update this ticket")
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, domain.Invalid("title cannot be empty")
		}
		updates["title"] = title
	}
	if patch.Description != nil {
		updates["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil {
		status, err := ParseStatus(string(*patch.Status))
		if err != nil {
			return nil, err
		}
		updates["status"] = status
	}
	if patch.Urgency != nil {
		urgency, err := ParseUrgency(string(*patch.Urgency))
		if err != nil {
			return nil, err
		}
		updates["urgency"] = urgency
	}
	if patch.DueAtSet {
		updates["due_at"] = patch.DueAt
	}
	if patch.AssignedToID != nil {
		if _, err := community.Membership(s.db.WithContext(ctx), communityID, *patch.AssignedToID); err != nil {
			return nil, domain.Invalid("assignee must be a community member")
		}
		updates["assigned_to_id"] = *patch.AssignedToID
	}

	if len(updates) > 0 {
		updates["updated_at"] = s.clock().UTC()
		if err := s.db.WithContext(ctx).Model(&Ticket{}).
			Where("id = ?", ticket.ID).
			Updates(updates).Error; err != nil {
			return nil, domain.Internal("ticket update failed", err)
		}
		ticket, err = s.load(ctx, communityID, ticketID)
		if err != nil {
			return nil, err
		}
	}

	return s.view(*ticket), nil
}

// Get returns a single ticket with its current score. Member only.
func (s *Service) Get(ctx context.Context, communityID, ticketID, actorID uint) (*View, error) {
	if _, err := community.ResolveActive(s.db.WithContext(ctx), communityID); err != nil {
		return nil, err
	}
	if _, err := community.Membership(s.db.WithContext(ctx), communityID, actorID); err != nil {
		return nil, err
	}
	ticket, err := s.load(ctx, communityID, ticketID)
	if err != nil {
		return nil, err
	}
	return s.view(*ticket), nil
}

// Filters narrows a ticket listing. Empty values match everything.
type Filters struct {
	TicketType string
	Status     string
	Urgency    string
}

// Page controls offset pagination.
type Page struct {
	Skip  int
	Limit int
}

// ListResult is one page of tickets plus the filtered total.
type ListResult struct {
	Items []View `json:"items"`
	Total int64  `json:"total"`
}

// List returns tickets for a community. Member only. With priority sort
// the whole filtered set is scored and ordered before the page is sliced.
func (s *Service) List(ctx context.Context, communityID, actorID uint, filters Filters, sortOrder string, page Page) (*ListResult, error) {
	if _, err := community.ResolveActive(s.db.WithContext(ctx), communityID); err != nil {
		return nil, err
	}
	if _, err := community.Membership(s.db.WithContext(ctx), communityID, actorID); err != nil {
		return nil, err
	}

	skip := page.Skip
	if skip < 0 {
		skip = 0
	}
	limit := page.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	query := s.db.WithContext(ctx).Model(&Ticket{}).Where("community_id = ?", communityID)
	if filters.TicketType != "" {
		ticketType, err := ParseType(filters.TicketType)
		if err != nil {
			return nil, err
		}
		query = query.Where("ticket_type = ?", ticketType)
	}
	if filters.Status != "" {
		status, err := ParseStatus(filters.Status)
		if err != nil {
			return nil, err
		}
		query = query.Where("status = ?", status)
	}
	if filters.Urgency != "" {
		urgency, err := ParseUrgency(filters.Urgency)
		if err != nil {
			return nil, err
		}
		query = query.Where("urgency = ?", urgency)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, domain.Internal("ticket count failed", err)
	}

	var items []Ticket
	if sortOrder == SortPriorityDesc {
		var all []Ticket
		if err := query.Find(&all).Error; err != nil {
			return nil, domain.Internal("ticket query failed", err)
		}
		s.sortByScore(all)
		if skip > len(all) {
			skip = len(all)
		}
		end := skip + limit
		if end > len(all) {
			end = len(all)
		}
		items = all[skip:end]
	} else {
		if err := query.Order("created_at DESC").Offset(skip).Limit(limit).Find(&items).Error; err != nil {
			return nil, domain.Internal("ticket query failed", err)
		}
	}

	views := make([]View, 0, len(items))
	for _, ticket := range items {
		views = append(views, *s.view(ticket))
	}
	return &ListResult{Items: views, Total: total}, nil
}

// Triage returns every unresolved ticket sorted by score, highest first.
// Leaders and admins only; this is the operational view during red mode.
func (s *Service) Triage(ctx context.Context, communityID, actorID uint) (*ListResult, error) {
	if _, err := community.ResolveActive(s.db.WithContext(ctx), communityID); err != nil {
		return nil, err
	}
	membership, err := community.Membership(s.db.WithContext(ctx), communityID, actorID)
	if err != nil {
		return nil, err
	}
	if !membership.Role.Can(community.CapTriage) {
		return nil, domain.Forbidden("only leaders and admins can access the triage view")
	}

	var open []Ticket
	err = s.db.WithContext(ctx).
		Where("community_id = ? AND status <> ?", communityID, StatusResolved).
		Find(&open).Error
	if err != nil {
		return nil, domain.Internal("ticket query failed", err)
	}
	s.sortByScore(open)

	views := make([]View, 0, len(open))
	for _, ticket := range open {
		views = append(views, *s.view(ticket))
	}
	return &ListResult{Items: views, Total: int64(len(open))}, nil
}

func (s *Service) load(ctx context.Context, communityID, ticketID uint) (*Ticket, error) {
	var ticket Ticket
	err := s.db.WithContext(ctx).
		Where("id = ? AND community_id = ?", ticketID, communityID).
		Take(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("ticket not found")
	}
	if err != nil {
		return nil, domain.Internal("ticket lookup failed", err)
	}
	return &ticket, nil
}

// sortByScore orders by triage score descending with one score snapshot
// for the whole set; ties fall back to newest first.
func (s *Service) sortByScore(items []Ticket) {
	now := s.clock().UTC()
	sort.SliceStable(items, func(i, j int) bool {
		left, right := TriageScore(items[i], now), TriageScore(items[j], now)
		if left != right {
			return left > right
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

func (s *Service) view(ticket Ticket) *View {
	return &View{Ticket: ticket, TriageScore: TriageScore(ticket, s.clock().UTC())}
}

func (s *Service) record(ctx context.Context, eventType, summary string, actorID, communityID uint) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, eventType, summary, actorID, communityID)
}
