package staging

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"snapstage-backend/internal/models"
)

const (
	defaultSweepInterval = 5 * time.Minute

	// An hd_generating request older than this with no artifact is treated
	// as abandoned; comfortably past the reconciler's attempt budget.
	defaultStuckAfter = 15 * time.Minute
)

// Sweeper is the safety net for the unlinked debit: the credit deduction and
// the HD job are two separate writes, so a crash or an unrefunded failure
// can strand a paid-for request with nothing delivered. The sweep finds such
// requests, forces them terminal and refunds the credit exactly once; the
// conditional flag clear arbitrates between concurrent sweeps.
type Sweeper struct {
	store  Store
	ledger Ledger
	log    zerolog.Logger

	interval   time.Duration
	stuckAfter time.Duration
	stop       chan struct{}
}

func NewSweeper(store Store, ledger Ledger, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:      store,
		ledger:     ledger,
		log:        log,
		interval:   defaultSweepInterval,
		stuckAfter: defaultStuckAfter,
		stop:       make(chan struct{}),
	}
}

// SetTiming overrides the sweep cadence and staleness cutoff.
func (s *Sweeper) SetTiming(interval, stuckAfter time.Duration) {
	s.interval = interval
	s.stuckAfter = stuckAfter
}

// Start runs the sweep on its interval until Stop is called.
func (s *Sweeper) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.SweepOnce()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	close(s.stop)
}

// SweepOnce refunds every debited-but-undelivered request found right now.
func (s *Sweeper) SweepOnce() {
	candidates, err := s.store.FindRefundCandidates(s.stuckAfter)
	if err != nil {
		s.log.Error().Err(err).Msg("refund sweep query failed")
		return
	}

	for i := range candidates {
		s.refundRequest(&candidates[i])
	}
}

func (s *Sweeper) refundRequest(req *models.StagingRequest) {
	if req.Status == models.StatusHdGenerating {
		changed, err := s.store.MarkFailed(req.ID, "HD generation abandoned after timeout")
		if err != nil {
			s.log.Error().Err(err).Str("request_id", req.ID.String()).Msg("failed to fail stuck request")
			return
		}
		if !changed {
			// Someone advanced it since the query; re-evaluate next sweep.
			return
		}
	}

	cleared, err := s.store.ClearHdCreditFlag(req.ID)
	if err != nil {
		s.log.Error().Err(err).Str("request_id", req.ID.String()).Msg("failed to clear credit flag")
		return
	}
	if !cleared {
		return
	}

	projectID := uuid.NullUUID{UUID: req.ProjectID, Valid: true}
	if _, err := s.ledger.CreditCredits(req.UserID, hdCreditCost, projectID, "Refund: HD staging failed - "+req.Style); err != nil {
		s.log.Error().Err(err).Str("request_id", req.ID.String()).Msg("failed to refund credit")
		return
	}

	if err := s.store.InsertAuditLog(req.UserID, "hd.refunded", req.ID.String(), map[string]interface{}{
		"style": req.Style,
	}); err != nil {
		s.log.Warn().Err(err).Str("request_id", req.ID.String()).Msg("failed to write audit log")
	}

	s.log.Info().Str("request_id", req.ID.String()).Msg("refunded undelivered hd request")
}
