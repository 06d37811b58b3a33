package community

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alcoolio/neighbourgood/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errMissingDatabase = errors.New("community: database handle is required")

// ActivityRecorder receives domain events for the activity feed. Recording
// is best-effort and must never fail the calling operation.
type ActivityRecorder interface {
	Record(ctx context.Context, eventType, summary string, actorID, communityID uint)
}

// ServiceConfig describes the dependencies for the community service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
	Activity ActivityRecorder
}

// Service manages communities, membership, and leader roles.
type Service struct {
	db       *gorm.DB
	clock    func() time.Time
	logger   *zap.Logger
	activity ActivityRecorder
}

// NewService constructs the community service.
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

// ResolveActive loads a community that is active and not merged away.
// Shared with the crisis and ticket services so lookups inside their
// transactions apply the same rules.
func ResolveActive(db *gorm.DB, communityID uint) (*Community, error) {
	var c Community
	err := db.Take(&c, communityID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("community not found")
	}
	if err != nil {
		return nil, domain.Internal("community lookup failed", err)
	}
	// Merged communities are also inactive; check the merge pointer first so
	// callers get the survivor reference instead of a bare not-found.
	if c.MergedIntoID != nil {
		return nil, domain.Conflict(fmt.Sprintf("this community has been merged into community #%d", *c.MergedIntoID))
	}
	if !c.IsActive {
		return nil, domain.NotFound("community not found")
	}
	return &c, nil
}

// Membership loads the caller's membership row, or Forbidden when absent.
func Membership(db *gorm.DB, communityID, userID uint) (*Member, error) {
	var m Member
	err := db.Where("community_id = ? AND user_id = ?", communityID, userID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.Forbidden("not a member of this community")
	}
	if err != nil {
		return nil, domain.Internal("membership lookup failed", err)
	}
	return &m, nil
}

// MemberCount returns the total member count for a community.
func MemberCount(db *gorm.DB, communityID uint) (int64, error) {
	var total int64
	if err := db.Model(&Member{}).Where("community_id = ?", communityID).Count(&total).Error; err != nil {
		return 0, domain.Internal("member count failed", err)
	}
	return total, nil
}

// CreateParams carries the input for community creation.
type CreateParams struct {
	Name            string
	Description     string
	PostalCode      string
	City            string
	CountryCode     string
	PrimaryLanguage string
}

// Create opens a new community. The creator becomes its admin.
func (s *Service) Create(ctx context.Context, actorID uint, params CreateParams) (*Community, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, domain.Invalid("community name is required")
	}
	if strings.TrimSpace(params.PostalCode) == "" || strings.TrimSpace(params.City) == "" {
		return nil, domain.Invalid("postal code and city are required")
	}
	countryCode := strings.TrimSpace(params.CountryCode)
	if countryCode == "" {
		countryCode = "DE"
	}

	created := Community{
		Name:            name,
		Description:     strings.TrimSpace(params.Description),
		PostalCode:      strings.TrimSpace(params.PostalCode),
		City:            strings.TrimSpace(params.City),
		CountryCode:     countryCode,
		PrimaryLanguage: strings.TrimSpace(params.PrimaryLanguage),
		IsActive:        true,
		Mode:            ModeBlue,
		CreatedByID:     actorID,
		CreatedAt:       s.clock().UTC(),
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&created).Error; err != nil {
			return domain.Internal("community create failed", err)
		}
		founder := Member{
			CommunityID: created.ID,
			UserID:      actorID,
			Role:        RoleAdmin,
			JoinedAt:    s.clock().UTC(),
		}
		if err := tx.Create(&founder).Error; err != nil {
			return domain.Internal("founder membership create failed", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.logger.Info("community created",
		zap.Uint("community_id", created.ID),
		zap.Uint("created_by", actorID))
	return &created, nil
}

// Get returns a community regardless of merge state so callers can follow
// the merge pointer.
func (s *Service) Get(ctx context.Context, communityID uint) (*Community, error) {
	var c Community
	err := s.db.WithContext(ctx).Take(&c, communityID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("community not found")
	}
	if err != nil {
		return nil, domain.Internal("community lookup failed", err)
	}
	return &c, nil
}

// Join adds the caller as a regular member.
func (s *Service) Join(ctx context.Context, communityID, actorID uint) (*Member, error) {
	community, err := ResolveActive(s.db.WithContext(ctx), communityID)
	if err != nil {
		return nil, err
	}

	var existing Member
	err = s.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, actorID).
		Take(&existing).Error
	if err == nil {
		return nil, domain.Conflict("already a member of this community")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.Internal("membership lookup failed", err)
	}

	member := Member{
		CommunityID: communityID,
		UserID:      actorID,
		Role:        RoleMember,
		JoinedAt:    s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&member).Error; err != nil {
		return nil, domain.Internal("membership create failed", err)
	}

	s.record(ctx, "member_joined", fmt.Sprintf("joined %q", community.Name), actorID, communityID)
	return &member, nil
}

// Leave removes the caller's membership.
func (s *Service) Leave(ctx context.Context, communityID, actorID uint) error {
	if _, err := ResolveActive(s.db.WithContext(ctx), communityID); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, actorID).
		Delete(&Member{})
	if result.Error != nil {
		return domain.Internal("membership delete failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NotFound("not a member of this community")
	}
	return nil
}

// Members lists all memberships of a community ordered by join time.
func (s *Service) Members(ctx context.Context, communityID uint) ([]Member, error) {
	if _, err := ResolveActive(s.db.WithContext(ctx), communityID); err != nil {
		return nil, err
	}
	var members []Member
	err := s.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("joined_at").
		Find(&members).Error
	if err != nil {
		return nil, domain.Internal("member list failed", err)
	}
	return members, nil
}

// MyCommunities lists the communities the caller belongs to.
func (s *Service) MyCommunities(ctx context.Context, actorID uint) ([]Community, error) {
	var communities []Community
	err := s.db.WithContext(ctx).
		Joins("JOIN community_members ON community_members.community_id = communities.id").
		Where("community_members.user_id = ? AND communities.is_active = ? AND communities.merged_into_id IS NULL", actorID, true).
		Order("communities.name").
		Find(&communities).Error
	if err != nil {
		return nil, domain.Internal("community list failed", err)
	}
	return communities, nil
}

// Merge folds the source community into the target and returns the
// surviving target. The actor must be an admin of the source. Source
// members are carried over unless already members of the target; the
// source is marked merged and inactive so it drops out of discovery.
func (s *Service) Merge(ctx context.Context, sourceID, targetID, actorID uint) (*Community, error) {
	if sourceID == targetID {
		return nil, domain.Invalid("cannot merge a community into itself")
	}

	var survivor Community
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ResolveActive(tx, sourceID); err != nil {
			return err
		}
		target, err := ResolveActive(tx, targetID)
		if err != nil {
			return err
		}

		membership, err := Membership(tx, sourceID, actorID)
		if err != nil {
			return err
		}
		if !membership.Role.Can(CapManageCommunity) {
			return domain.Forbidden("must be an admin of the source community")
		}

		var sourceMembers []Member
		if err := tx.Where("community_id = ?", sourceID).Find(&sourceMembers).Error; err != nil {
			return domain.Internal("source member list failed", err)
		}
		for _, sourceMember := range sourceMembers {
			var existing Member
			err := tx.Where("community_id = ? AND user_id = ?", targetID, sourceMember.UserID).
				Take(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.Internal("target membership lookup failed", err)
			}
			carried := Member{
				CommunityID: targetID,
				UserID:      sourceMember.UserID,
				Role:        RoleMember,
				JoinedAt:    s.clock().UTC(),
			}
			if err := tx.Create(&carried).Error; err != nil {
				return domain.Internal("member carry-over failed", err)
			}
		}

		if err := tx.Model(&Community{}).Where("id = ?", sourceID).
			Updates(map[string]interface{}{
				"merged_into_id": target.ID,
				"is_active":      false,
			}).Error; err != nil {
			return domain.Internal("merge marker update failed", err)
		}

		survivor = *target
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.logger.Info("community merged",
		zap.Uint("source_id", sourceID),
		zap.Uint("target_id", targetID),
		zap.Uint("actor_id", actorID))
	return &survivor, nil
}

// Leaders lists the community's leaders ordered by join time.
func (s *Service) Leaders(ctx context.Context, communityID, actorID uint) ([]Member, error) {
	if _, err := ResolveActive(s.db.WithContext(ctx), communityID); err != nil {
		return nil, err
	}
	if _, err := Membership(s.db.WithContext(ctx), communityID, actorID); err != nil {
		return nil, err
	}
	var leaders []Member
	err := s.db.WithContext(ctx).
		Where("community_id = ? AND role = ?", communityID, RoleLeader).
		Order("joined_at").
		Find(&leaders).Error
	if err != nil {
		return nil, domain.Internal("leader list failed", err)
	}
	return leaders, nil
}

// PromoteLeader elevates a regular member to leader. Admin only.
func (s *Service) PromoteLeader(ctx context.Context, communityID, targetUserID, actorID uint) (*Member, error) {
	community, err := ResolveActive(s.db.WithContext(ctx), communityID)
	if err != nil {
		return nil, err
	}
	if err := s.requireCapability(ctx, communityID, actorID, CapManageLeaders); err != nil {
		return nil, err
	}

	target, err := s.targetMembership(ctx, communityID, targetUserID)
	if err != nil {
		return nil, err
	}
	switch target.Role {
	case RoleAdmin:
		return nil, domain.Invalid("cannot change the role of an admin")
	case RoleLeader:
		return nil, domain.Conflict("user is already a leader")
	}

	if err := s.setRole(ctx, target, RoleLeader); err != nil {
		return nil, err
	}
	s.record(ctx, "leader_promoted",
		fmt.Sprintf("promoted user #%d to leader in %q", targetUserID, community.Name),
		actorID, communityID)
	return target, nil
}

// DemoteLeader returns a leader to regular membership. Admin only.
func (s *Service) DemoteLeader(ctx context.Context, communityID, targetUserID, actorID uint) (*Member, error) {
	community, err := ResolveActive(s.db.WithContext(ctx), communityID)
	if err != nil {
		return nil, err
	}
	if err := s.requireCapability(ctx, communityID, actorID, CapManageLeaders); err != nil {
		return nil, err
	}

	target, err := s.targetMembership(ctx, communityID, targetUserID)
	if err != nil {
		return nil, err
	}
	if target.Role != RoleLeader {
		return nil, domain.Invalid("user is not a leader")
	}

	if err := s.setRole(ctx, target, RoleMember); err != nil {
		return nil, err
	}
	s.record(ctx, "leader_demoted",
		fmt.Sprintf("demoted user #%d from leader in %q", targetUserID, community.Name),
		actorID, communityID)
	return target, nil
}

func (s *Service) requireCapability(ctx context.Context, communityID, actorID uint, capability Capability) error {
	membership, err := Membership(s.db.WithContext(ctx), communityID, actorID)
	if err != nil {
		return err
	}
	if !membership.Role.Can(capability) {
		return domain.Forbidden("admin access required")
	}
	return nil
}

func (s *Service) targetMembership(ctx context.Context, communityID, targetUserID uint) (*Member, error) {
	var target Member
	err := s.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, targetUserID).
		Take(&target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("user is not a member of this community")
	}
	if err != nil {
		return nil, domain.Internal("membership lookup failed", err)
	}
	return &target, nil
}

func (s *Service) setRole(ctx context.Context, member *Member, role Role) error {
	if err := s.db.WithContext(ctx).Model(&Member{}).
		Where("id = ?", member.ID).
		Update("role", role).Error; err != nil {
		return domain.Internal("role update failed", err)
	}
	member.Role = role
	return nil
}

func (s *Service) record(ctx context.Context, eventType, summary string, actorID, communityID uint) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, eventType, summary, actorID, communityID)
}
