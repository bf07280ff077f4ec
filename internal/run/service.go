package run

import (
	"context"
	"errors"
	"sync"

	"backend-pacetrack/internal/gps"

	"github.com/google/uuid"
)

var ErrRunNotFound = errors.New("run not found")

// Saver persists a finished run. The summary carries no storage
// identity; the store mints one and returns it.
type Saver interface {
	SaveRun(ctx context.Context, summary Summary) (string, error)
}

// Service keeps the registry of active run sessions. Sessions live in
// memory only; whatever is not stopped and saved is gone on restart.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*Session

	saver     Saver
	announcer Announcer
}

func NewService(saver Saver, announcer Announcer) *Service {
	return &Service{
		sessions:  make(map[string]*Session),
		saver:     saver,
		announcer: announcer,
	}
}

func (s *Service) Start(deviceID string, startedAtMs int64, autoPause bool) LiveStatus {
	runID := uuid.NewString()
	session := NewSession(runID, deviceID, startedAtMs, autoPause, s.announcer)

	s.mu.Lock()
	s.sessions[runID] = session
	s.mu.Unlock()

	return session.Status(startedAtMs)
}

func (s *Service) session(runID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return session, nil
}

func (s *Service) Ingest(runID string, sample gps.RawSample) (IngestResult, error) {
	session, err := s.session(runID)
	if err != nil {
		return IngestResult{}, err
	}
	return session.Ingest(sample)
}

func (s *Service) SourceError(runID string, code int, nowMs int64) (string, error) {
	session, err := s.session(runID)
	if err != nil {
		return "", err
	}
	category, err := session.SourceError(code, nowMs)
	return string(category), err
}

func (s *Service) Pause(runID string, nowMs int64) error {
	session, err := s.session(runID)
	if err != nil {
		return err
	}
	return session.Pause(nowMs)
}

func (s *Service) Resume(runID string, nowMs int64) error {
	session, err := s.session(runID)
	if err != nil {
		return err
	}
	return session.Resume(nowMs)
}

func (s *Service) Status(runID string, nowMs int64) (LiveStatus, error) {
	session, err := s.session(runID)
	if err != nil {
		return LiveStatus{}, err
	}
	return session.Status(nowMs), nil
}

func (s *Service) Trajectory(runID string) ([]TrackPoint, error) {
	session, err := s.session(runID)
	if err != nil {
		return nil, err
	}
	return session.Trajectory(), nil
}

// Stop ends the run, hands the summary to the store, and drops the
// session. The returned id is the store's, not the live run id. A save
// failure is reported as-is; nothing retries.
func (s *Service) Stop(ctx context.Context, runID string, nowMs int64) (Summary, string, error) {
	session, err := s.session(runID)
	if err != nil {
		return Summary{}, "", err
	}

	summary, err := session.Stop(nowMs)
	if err != nil {
		return Summary{}, "", err
	}

	s.mu.Lock()
	delete(s.sessions, runID)
	s.mu.Unlock()

	if s.saver == nil {
		return summary, "", nil
	}
	savedID, err := s.saver.SaveRun(ctx, summary)
	if err != nil {
		return summary, "", err
	}
	return summary, savedID, nil
}
