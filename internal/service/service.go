// Package service orchestrates batch processing: score, evaluate
// thresholds, append flags durably, refresh the session snapshot.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/skyward-systems/proctorwatch/internal/flagger"
	"github.com/skyward-systems/proctorwatch/internal/logging"
	"github.com/skyward-systems/proctorwatch/internal/metrics"
	"github.com/skyward-systems/proctorwatch/internal/models"
	"github.com/skyward-systems/proctorwatch/internal/repository"
	"github.com/skyward-systems/proctorwatch/internal/scorer"
	"github.com/skyward-systems/proctorwatch/internal/snapshot"
)

// sessionLockCount is the size of the striped lock table serializing
// snapshot read-modify-write per session.
const sessionLockCount = 128

// SnapshotStore is the cache surface the service needs.
type SnapshotStore interface {
	Write(ctx context.Context, snap *models.SessionSnapshot) error
	Read(ctx context.Context, sessionID string) (*models.SessionSnapshot, error)
	TTL() time.Duration
}

// Publisher mirrors events.Publisher without importing the bus package.
type Publisher interface {
	PublishFlags(ctx context.Context, sessionID string, flags []*models.Flag) error
	PublishSnapshot(ctx context.Context, snap *models.SessionSnapshot) error
}

// Service processes observation batches end to end.
type Service struct {
	scorers   *scorer.Registry
	flagger   *flagger.Generator
	repo      repository.Repository
	snapshots SnapshotStore
	publisher Publisher
	log       *logging.Logger

	locks [sessionLockCount]sync.Mutex
}

// New creates a Service. publisher may be nil when the event bus is
// disabled.
func New(scorers *scorer.Registry, gen *flagger.Generator, repo repository.Repository, snapshots SnapshotStore, publisher Publisher, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Default()
	}
	return &Service{
		scorers:   scorers,
		flagger:   gen,
		repo:      repo,
		snapshots: snapshots,
		publisher: publisher,
		log:       log,
	}
}

func (s *Service) sessionLock(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%sessionLockCount]
}

// ProcessBatch scores the batch, generates flags, appends them durably,
// and refreshes the session snapshot. The returned stale flag is true
// when the snapshot cache write failed; the durable record is still
// intact in that case.
//
// Processing is bounded by the snapshot TTL: a batch that cannot finish
// inside the real-time window is abandoned rather than allowed to
// overwrite newer data late.
func (s *Service) ProcessBatch(ctx context.Context, batch *models.ObservationBatch) (*models.ScoreResult, []*models.Flag, bool, error) {
	if batch.SessionID == "" {
		return nil, nil, false, &scorer.InvalidPayloadError{Field: "session_id", Reason: "required"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.snapshots.TTL())
	defer cancel()

	start := time.Now()
	result, err := s.scorers.Score(batch)
	if err != nil {
		metrics.BatchesTotal.WithLabelValues(string(batch.Category), "rejected").Inc()
		return nil, nil, false, err
	}
	metrics.ScoreDuration.WithLabelValues(string(batch.Category)).Observe(time.Since(start).Seconds())

	flags := s.flagger.Generate(result)
	for _, f := range flags {
		metrics.FlagsRaisedTotal.WithLabelValues(string(f.Severity)).Inc()
	}

	// Snapshot read-modify-write and the durable append are serialized
	// per session so concurrent categories cannot interleave partial
	// state or reorder appends.
	lock := s.sessionLock(batch.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		metrics.BatchesTotal.WithLabelValues(string(batch.Category), "timeout").Inc()
		return nil, nil, false, fmt.Errorf("batch processing deadline exceeded: %w", err)
	}

	if err := s.repo.AppendFlags(ctx, flags); err != nil {
		metrics.StorageErrors.Inc()
		metrics.BatchesTotal.WithLabelValues(string(batch.Category), "storage_error").Inc()
		return nil, nil, false, err
	}

	stale := s.refreshSnapshot(ctx, batch.SessionID, result, flags)

	metrics.BatchesTotal.WithLabelValues(string(batch.Category), "ok").Inc()
	s.log.InfoContext(ctx, "batch processed",
		logging.SessionID(batch.SessionID),
		logging.Category(string(batch.Category)),
		logging.FlagCount(len(flags)),
		logging.Duration(time.Since(start).Milliseconds()),
	)

	if s.publisher != nil {
		if err := s.publisher.PublishFlags(ctx, batch.SessionID, flags); err != nil {
			s.log.WarnContext(ctx, "flag event publish failed", logging.Error(err))
		}
	}

	return result, flags, stale, nil
}

// refreshSnapshot rebuilds and writes the session snapshot. Returns true
// when the cache write failed (response should be marked stale).
func (s *Service) refreshSnapshot(ctx context.Context, sessionID string, result *models.ScoreResult, newFlags []*models.Flag) bool {
	now := time.Now().UTC()

	prev, err := s.snapshots.Read(ctx, sessionID)
	if err != nil {
		// A broken read degrades to a fresh snapshot; the write below
		// decides staleness.
		s.log.WarnContext(ctx, "snapshot read failed", logging.SessionID(sessionID), logging.Error(err))
		prev = nil
	}

	snap := &models.SessionSnapshot{
		SessionID:    sessionID,
		LatestScores: map[models.Category]*models.ScoreResult{},
		LastUpdated:  now,
	}
	if prev != nil {
		for cat, r := range prev.LatestScores {
			snap.LatestScores[cat] = r
		}
		snap.ActiveFlags = snapshot.ActiveWithin(prev.ActiveFlags, s.snapshots.TTL(), now)
	}
	snap.LatestScores[result.Category] = result
	snap.ActiveFlags = append(snap.ActiveFlags, newFlags...)
	flagger.SortFlags(snap.ActiveFlags)
	snap.RiskLevel = snapshot.ComputeRiskLevel(snap.ActiveFlags)

	if err := s.snapshots.Write(ctx, snap); err != nil {
		metrics.SnapshotCacheErrors.Inc()
		s.log.WarnContext(ctx, "snapshot write failed, serving stale",
			logging.SessionID(sessionID), logging.Error(err))
		return true
	}
	metrics.SnapshotWrites.Inc()

	if s.publisher != nil {
		if err := s.publisher.PublishSnapshot(ctx, snap); err != nil {
			s.log.WarnContext(ctx, "snapshot event publish failed", logging.Error(err))
		}
	}
	return false
}

// Monitor refreshes and returns the session's real-time snapshot. The
// monitoring heartbeat does not score; it re-filters the active flag
// window, recomputes risk, and extends the snapshot TTL. A missing or
// expired snapshot yields (nil, nil, false, nil): no recent data.
func (s *Service) Monitor(ctx context.Context, sessionID string, heartbeat json.RawMessage) (*models.SessionSnapshot, []*models.Flag, bool, error) {
	if sessionID == "" {
		return nil, nil, false, &scorer.InvalidPayloadError{Field: "session_id", Reason: "required"}
	}
	if len(heartbeat) > 0 && !json.Valid(heartbeat) {
		return nil, nil, false, &scorer.InvalidPayloadError{Field: "monitoring_data", Reason: "malformed JSON"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.snapshots.TTL())
	defer cancel()

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	snap, err := s.snapshots.Read(ctx, sessionID)
	if err != nil {
		return nil, nil, true, nil
	}
	if snap == nil {
		return nil, nil, false, nil
	}

	now := time.Now().UTC()
	snap.ActiveFlags = snapshot.ActiveWithin(snap.ActiveFlags, s.snapshots.TTL(), now)
	snap.RiskLevel = snapshot.ComputeRiskLevel(snap.ActiveFlags)
	snap.LastUpdated = now

	stale := false
	if err := s.snapshots.Write(ctx, snap); err != nil {
		metrics.SnapshotCacheErrors.Inc()
		s.log.WarnContext(ctx, "monitor snapshot write failed",
			logging.SessionID(sessionID), logging.Error(err))
		stale = true
	} else {
		metrics.SnapshotWrites.Inc()
	}

	return snap, snap.ActiveFlags, stale, nil
}

// SessionFlags returns one page of the session's durable flag history.
func (s *Service) SessionFlags(ctx context.Context, sessionID string, page, limit int) (*models.ListFlagsResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 1000 {
		limit = 50
	}

	flags, total, err := s.repo.ListFlagsBySession(ctx, sessionID, page, limit)
	if err != nil {
		return nil, err
	}

	totalPages := (total + limit - 1) / limit
	return &models.ListFlagsResponse{
		Flags: flags,
		Pagination: models.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}
