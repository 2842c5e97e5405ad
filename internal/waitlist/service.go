package waitlist

import (
	"context"
	"fmt"
	"time"

	"ticketly/internal/notifications"
	"ticketly/internal/shared/metrics"
	"ticketly/pkg/logger"

	"github.com/google/uuid"
)

// Config carries the waitlist policy knobs
type Config struct {
	MaxQuantity  int
	NotifyWindow time.Duration
}

// DefaultConfig returns the default waitlist policy
func DefaultConfig() Config {
	return Config{
		MaxQuantity:  10,
		NotifyWindow: 15 * time.Minute,
	}
}

type Service interface {
	Enroll(ctx context.Context, userID, eventID uuid.UUID, quantity int) (*Entry, error)
	Withdraw(ctx context.Context, userID, eventID uuid.UUID) (*Entry, error)
	Position(ctx context.Context, userID, eventID uuid.UUID) (*PositionInfo, error)

	// Promote scans the queue front-to-back after capacity is freed, notifying
	// every entry whose quantity still fits. It never creates bookings.
	Promote(ctx context.Context, eventID uuid.UUID, freedQuantity int) (*PromotionResult, error)

	// MarkConverted closes a notified entry once its user completed a booking.
	MarkConverted(ctx context.Context, userID, eventID uuid.UUID) error

	// ProcessExpired expires notified entries whose booking window lapsed.
	ProcessExpired(ctx context.Context) (int, error)
}

type service struct {
	repo       Repository
	dispatcher notifications.Dispatcher
	collector  metrics.Collector
	log        *logger.Logger
	cfg        Config
}

func NewService(repo Repository, dispatcher notifications.Dispatcher, collector metrics.Collector, log *logger.Logger, cfg Config) Service {
	if collector == nil {
		collector = metrics.Noop{}
	}
	if log == nil {
		log = logger.GetDefault()
	}
	if dispatcher == nil {
		dispatcher = notifications.NewLogDispatcher(log)
	}
	if cfg.MaxQuantity <= 0 {
		cfg.MaxQuantity = DefaultConfig().MaxQuantity
	}
	if cfg.NotifyWindow <= 0 {
		cfg.NotifyWindow = DefaultConfig().NotifyWindow
	}
	return &service{
		repo:       repo,
		dispatcher: dispatcher,
		collector:  collector,
		log:        log,
		cfg:        cfg,
	}
}

func (s *service) Enroll(ctx context.Context, userID, eventID uuid.UUID, quantity int) (*Entry, error) {
	if quantity < 1 || quantity > s.cfg.MaxQuantity {
		return nil, ErrInvalidQuantity
	}
	return s.repo.Enroll(ctx, userID, eventID, quantity)
}

func (s *service) Withdraw(ctx context.Context, userID, eventID uuid.UUID) (*Entry, error) {
	return s.repo.Withdraw(ctx, userID, eventID)
}

func (s *service) Position(ctx context.Context, userID, eventID uuid.UUID) (*PositionInfo, error) {
	entry, peopleAhead, quantityAhead, err := s.repo.PositionOf(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}

	totalWaiting, err := s.repo.CountActive(ctx, eventID)
	if err != nil {
		return nil, err
	}

	return &PositionInfo{
		EntryID:       entry.ID,
		EventID:       entry.EventID,
		Position:      entry.Position,
		Quantity:      entry.Quantity,
		Status:        entry.Status,
		PeopleAhead:   peopleAhead,
		QuantityAhead: quantityAhead,
		TotalWaiting:  totalWaiting,
		JoinedAt:      entry.JoinedAt,
		ExpiresAt:     entry.ExpiresAt,
	}, nil
}

// Promote walks the active queue in position order and greedily notifies
// every entry that fits into the freed quantity. Entries too large for the
// remainder are skipped, not blocked on: a 5-ticket head does not starve a
// 2-ticket entry behind it when only 3 were freed.
func (s *service) Promote(ctx context.Context, eventID uuid.UUID, freedQuantity int) (*PromotionResult, error) {
	result := &PromotionResult{
		EventID:       eventID,
		FreedQuantity: freedQuantity,
	}
	if freedQuantity <= 0 {
		return result, nil
	}

	entries, err := s.repo.ActiveEntries(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load waitlist: %w", err)
	}

	remaining := freedQuantity
	for i := range entries {
		if remaining == 0 {
			break
		}
		entry := &entries[i]
		if entry.Quantity > remaining {
			continue
		}

		expiresAt := time.Now().Add(s.cfg.NotifyWindow)
		if err := s.repo.MarkNotified(ctx, entry.ID, expiresAt); err != nil {
			// Entry left the queue between scan and update; move on
			s.log.WarnContext(ctx, "skipping waitlist entry during promotion",
				"entry_id", entry.ID.String(),
				"error", err.Error(),
			)
			continue
		}

		intent := notifications.NewSpotAvailableIntent(entry.UserID, entry.EventID, entry.ID, entry.Quantity, &expiresAt)
		if err := s.dispatcher.Dispatch(ctx, intent); err != nil {
			// The entry stays NOTIFIED; the expiry job reclaims it if the
			// user never hears about the spot.
			s.log.ErrorWithContext(ctx, "failed to dispatch promotion intent", err, map[string]interface{}{
				"entry_id": entry.ID.String(),
				"user_id":  entry.UserID.String(),
			})
		}

		entry.Status = StatusNotified
		entry.ExpiresAt = &expiresAt
		result.Notified = append(result.Notified, entry)
		result.NotifiedCount++
		remaining -= entry.Quantity
	}

	s.collector.IncPromotionNotified(result.NotifiedCount)
	s.log.LogWaitlistPromotion(ctx, eventID.String(), freedQuantity, result.NotifiedCount)

	return result, nil
}

func (s *service) MarkConverted(ctx context.Context, userID, eventID uuid.UUID) error {
	_, err := s.repo.MarkConverted(ctx, userID, eventID)
	return err
}

func (s *service) ProcessExpired(ctx context.Context) (int, error) {
	return s.repo.ExpireLapsed(ctx, time.Now())
}
