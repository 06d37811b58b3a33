package crisis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alcoolio/neighbourgood/internal/community"
	"github.com/alcoolio/neighbourgood/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errMissingDatabase = errors.New("crisis: database handle is required")

// ActivityRecorder receives domain events for the activity feed. Recording
// is best-effort and must never fail the calling operation.
type ActivityRecorder interface {
	Record(ctx context.Context, eventType, summary string, actorID, communityID uint)
}

// ServiceConfig describes the dependencies for the crisis mode controller.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
	Activity ActivityRecorder
}

// Service owns the blue/red state of communities: admin override, member
// voting with quorum-triggered auto-switch, and vote retraction.
type Service struct {
	db       *gorm.DB
	clock    func() time.Time
	logger   *zap.Logger
	activity ActivityRecorder
}

// NewService constructs the crisis mode controller.
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

// ToggleMode force-sets the community mode. Admin only. Any in-flight
// votes are discarded: an override invalidates whatever consensus was
// forming.
func (s *Service) ToggleMode(ctx context.Context, communityID, actorID uint, mode community.Mode) (Status, error) {
	if _, err := community.ParseMode(string(mode)); err != nil {
		return Status{}, err
	}

	var communityName string
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := community.ResolveActive(lockForUpdate(tx), communityID)
		if err != nil {
			return err
		}
		membership, err := community.Membership(tx, communityID, actorID)
		if err != nil {
			return err
		}
		if !membership.Role.Can(community.CapOverrideMode) {
			return domain.Forbidden("admin access required")
		}

		if err := tx.Model(&community.Community{}).
			Where("id = ?", communityID).
			Update("mode", mode).Error; err != nil {
			return domain.Internal("mode update failed", err)
		}
		if err := clearVotes(tx, communityID); err != nil {
			return err
		}

		communityName = target.Name
		return nil
	})
	if txErr != nil {
		return Status{}, txErr
	}

	s.logger.Info("crisis mode overridden",
		zap.Uint("community_id", communityID),
		zap.Uint("actor_id", actorID),
		zap.String("mode", string(mode)))
	s.record(ctx, fmt.Sprintf("switched %q to %s", communityName, mode.Label()), actorID, communityID)

	return s.status(ctx, communityID, mode)
}

// CastVote records a vote toward activating or deactivating crisis mode.
// A repeat vote in the same direction is a conflict; a vote in the other
// direction replaces the standing vote. When the cast direction reaches
// quorum and the implied mode differs from the current one, the switch and
// the vote clear happen atomically with the tally.
func (s *Service) CastVote(ctx context.Context, communityID, actorID uint, voteType VoteType) (*Vote, error) {
	if _, err := ParseVoteType(string(voteType)); err != nil {
		return nil, err
	}

	var (
		castVote      Vote
		switched      bool
		switchSummary string
	)
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := community.ResolveActive(lockForUpdate(tx), communityID)
		if err != nil {
			return err
		}
		if _, err := community.Membership(tx, communityID, actorID); err != nil {
			return err
		}

		var existing Vote
		err = tx.Where("community_id = ? AND user_id = ?", communityID, actorID).
			Take(&existing).Error
		switch {
		case err == nil:
			if existing.VoteType == voteType {
				return domain.Conflict("you have already voted this way")
			}
			if err := tx.Model(&Vote{}).
				Where("id = ?", existing.ID).
				Update("vote_type", voteType).Error; err != nil {
				return domain.Internal("vote update failed", err)
			}
			existing.VoteType = voteType
			castVote = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			fresh := Vote{
				CommunityID: communityID,
				UserID:      actorID,
				VoteType:    voteType,
				CreatedAt:   s.clock().UTC(),
			}
			if err := tx.Create(&fresh).Error; err != nil {
				return domain.Internal("vote create failed", err)
			}
			castVote = fresh
		default:
			return domain.Internal("vote lookup failed", err)
		}

		totalMembers, err := community.MemberCount(tx, communityID)
		if err != nil {
			return err
		}
		var sameDirection int64
		if err := tx.Model(&Vote{}).
			Where("community_id = ? AND vote_type = ?", communityID, voteType).
			Count(&sameDirection).Error; err != nil {
			return domain.Internal("vote count failed", err)
		}

		newMode := voteType.TargetMode()
		if sameDirection >= QuorumThreshold(totalMembers) && target.Mode != newMode {
			if err := tx.Model(&community.Community{}).
				Where("id = ?", communityID).
				Update("mode", newMode).Error; err != nil {
				return domain.Internal("mode update failed", err)
			}
			if err := clearVotes(tx, communityID); err != nil {
				return err
			}
			switched = true
			switchSummary = fmt.Sprintf("community vote switched %q to %s", target.Name, newMode.Label())
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if switched {
		s.logger.Info("crisis mode switched by quorum",
			zap.Uint("community_id", communityID),
			zap.String("mode", string(voteType.TargetMode())))
		s.record(ctx, switchSummary, actorID, communityID)
	}

	// The response reflects the just-cast vote even when the quorum switch
	// has already cleared it from storage.
	return &castVote, nil
}

// RetractVote withdraws the caller's standing vote.
func (s *Service) RetractVote(ctx context.Context, communityID, actorID uint) error {
	if _, err := community.ResolveActive(s.db.WithContext(ctx), communityID); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, actorID).
		Delete(&Vote{})
	if result.Error != nil {
		return domain.Internal("vote delete failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NotFound("no vote to retract")
	}
	return nil
}

// GetStatus returns the current mode, per-direction vote counts, member
// total, and the quorum percentage. No authentication required.
func (s *Service) GetStatus(ctx context.Context, communityID uint) (Status, error) {
	target, err := community.ResolveActive(s.db.WithContext(ctx), communityID)
	if err != nil {
		return Status{}, err
	}
	return s.status(ctx, communityID, target.Mode)
}

func (s *Service) status(ctx context.Context, communityID uint, mode community.Mode) (Status, error) {
	db := s.db.WithContext(ctx)

	totalMembers, err := community.MemberCount(db, communityID)
	if err != nil {
		return Status{}, err
	}

	countVotes := func(voteType VoteType) (int64, error) {
		var count int64
		err := db.Model(&Vote{}).
			Where("community_id = ? AND vote_type = ?", communityID, voteType).
			Count(&count).Error
		if err != nil {
			return 0, domain.Internal("vote count failed", err)
		}
		return count, nil
	}
	activate, err := countVotes(VoteActivate)
	if err != nil {
		return Status{}, err
	}
	deactivate, err := countVotes(VoteDeactivate)
	if err != nil {
		return Status{}, err
	}

	return Status{
		CommunityID:       communityID,
		Mode:              mode,
		VotesToActivate:   activate,
		VotesToDeactivate: deactivate,
		TotalMembers:      totalMembers,
		ThresholdPct:      ThresholdPct,
	}, nil
}

func (s *Service) record(ctx context.Context, summary string, actorID, communityID uint) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, "crisis_mode_changed", summary, actorID, communityID)
}

func clearVotes(tx *gorm.DB, communityID uint) error {
	if err := tx.Where("community_id = ?", communityID).Delete(&Vote{}).Error; err != nil {
		return domain.Internal("vote clear failed", err)
	}
	return nil
}

// lockForUpdate serializes concurrent quorum evaluation per community by
// locking the community row for the duration of the transaction.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
