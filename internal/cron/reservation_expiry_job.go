package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/bookingtms/bookingtms-backend/internal/reservations"
	"github.com/bookingtms/bookingtms-backend/pkg/db/models"
	"github.com/bookingtms/bookingtms-backend/pkg/enums"
	"github.com/bookingtms/bookingtms-backend/pkg/logger"
	"github.com/bookingtms/bookingtms-backend/pkg/metrics"
	"github.com/bookingtms/bookingtms-backend/pkg/outbox"
	"github.com/bookingtms/bookingtms-backend/pkg/outbox/payloads"
)

const defaultExpiryBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type expiredHoldReader interface {
	ListExpiredHolds(ctx context.Context, cutoff time.Time, limit int) ([]models.ReservationHold, error)
}

type reservationRepoFactory func(tx *gorm.DB) *reservations.Repository

// ReservationExpiryJobParams configure the hold sweep.
type ReservationExpiryJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	HoldReader  expiredHoldReader
	RepoFactory reservationRepoFactory
	Outbox      outboxEmitter
	Metrics     *metrics.ReservationMetrics
	BatchSize   int
}

// NewReservationExpiryJob builds the cron job that releases capacity from
// holds whose payment window lapsed.
func NewReservationExpiryJob(params ReservationExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.HoldReader == nil {
		return nil, fmt.Errorf("hold reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = reservations.NewRepository
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	return &reservationExpiryJob{
		logg:        params.Logger,
		db:          params.DB,
		holdReader:  params.HoldReader,
		repoFactory: repoFactory,
		outbox:      params.Outbox,
		metrics:     params.Metrics,
		batchSize:   batch,
		now:         time.Now,
	}, nil
}

type reservationExpiryJob struct {
	logg        *logger.Logger
	db          txRunner
	holdReader  expiredHoldReader
	repoFactory reservationRepoFactory
	outbox      outboxEmitter
	metrics     *metrics.ReservationMetrics
	batchSize   int
	now         func() time.Time
}

func (j *reservationExpiryJob) Name() string { return "reservation-expiry" }

// Run sweeps reserved holds past their deadline. Each hold expires in its
// own transaction with a status guard, so a concurrent confirm or a second
// sweep of the same hold is a clean no-op.
func (j *reservationExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	holds, err := j.holdReader.ListExpiredHolds(ctx, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("query expired holds: %w", err)
	}

	var errs []error
	expiredCount := 0
	capacityReleased := 0
	for _, hold := range holds {
		released, err := j.expireHold(ctx, hold)
		if err != nil {
			errs = append(errs, fmt.Errorf("expire hold %s: %w", hold.ID, err))
			continue
		}
		if released > 0 {
			expiredCount++
			capacityReleased += released
		}
	}

	if j.metrics != nil && capacityReleased > 0 {
		j.metrics.AddReleased("expired", capacityReleased)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"expired_count":     expiredCount,
		"capacity_released": capacityReleased,
		"scanned":           len(holds),
	})
	j.logg.Info(logCtx, "reservation expiry sweep complete")
	return multierr.Combine(errs...)
}

func (j *reservationExpiryJob) expireHold(ctx context.Context, hold models.ReservationHold) (int, error) {
	released := 0
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repoFactory(tx)
		now := j.now().UTC()

		ok, err := repo.TransitionHold(ctx, hold.ID, enums.HoldStatusReserved, enums.HoldStatusExpired, &now)
		if err != nil {
			return err
		}
		if !ok {
			// Confirmed or already swept since the batch was listed.
			return nil
		}

		if err := repo.RestoreCapacity(ctx, hold.SessionID, hold.PartySize); err != nil {
			return err
		}

		// The booking may already be cancelled; only pending ones expire.
		if _, err := repo.TransitionBooking(ctx, hold.BookingID, enums.BookingStatusPending, enums.BookingStatusExpired, nil); err != nil {
			return err
		}

		if err := j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReservationExpired,
			AggregateType: enums.AggregateReservation,
			AggregateID:   hold.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.ReservationExpiredEvent{
				HoldID:    hold.ID,
				BookingID: hold.BookingID,
				SessionID: hold.SessionID,
				PartySize: hold.PartySize,
				ExpiredAt: now,
			},
		}); err != nil {
			return err
		}

		released = hold.PartySize
		return nil
	})
	return released, err
}
