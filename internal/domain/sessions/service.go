package sessions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"checkin-app-go/internal/domain/actor"
	"checkin-app-go/internal/domain/program"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type Service struct {
	repo     Repository
	catalog  program.Catalog
	codes    *CodeGenerator
	cache    ActiveCache
	cacheTTL time.Duration
	metrics  Metrics
	clock    func() time.Time
	location *time.Location
	group    singleflight.Group

	// generations counts invalidations per program so a cache fill that
	// raced with an open or close does not store what it read.
	genMu       sync.Mutex
	generations map[string]uint64
}

type Option func(*Service)

func WithCache(cache ActiveCache, ttl time.Duration) Option {
	return func(s *Service) {
		if cache != nil && ttl > 0 {
			s.cache = cache
			s.cacheTTL = ttl
		}
	}
}

func WithCodeGenerator(codes *CodeGenerator) Option {
	return func(s *Service) {
		if codes != nil {
			s.codes = codes
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

func NewService(repo Repository, catalog program.Catalog, opts ...Option) *Service {
	codes, _ := NewCodeGenerator(DefaultCodeLength, DefaultCodeAttempts)
	s := &Service{
		repo:     repo,
		catalog:  catalog,
		codes:    codes,
		cache:    noopCache{},
		metrics:  noopMetrics{},
		clock:    func() time.Time { return time.Now().UTC() },
		location: time.UTC,

		generations: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Catalog() program.Catalog {
	return s.catalog
}

func (s *Service) CodeLength() int {
	return s.codes.Length()
}

// ServiceDate is the church-local calendar date of t.
func (s *Service) ServiceDate(t time.Time) string {
	return t.In(s.location).Format(ServiceDateLayout)
}

func (s *Service) Today() string {
	return s.ServiceDate(s.clock())
}

// OpenSession starts a check-in window for programKey with a fresh code.
func (s *Service) OpenSession(ctx context.Context, a *actor.Actor, programKey string) (*Session, error) {
	if err := actor.Require(a, actor.PermManageSessions); err != nil {
		return nil, err
	}
	prog, err := s.catalog.Get(programKey)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		session, err := s.openOnce(ctx, a, prog)
		if err == nil {
			s.invalidate(prog.Key)
			s.metrics.SessionOpened(prog.Key)
			return session, nil
		}
		if errors.Is(err, ErrConflict) {
			s.metrics.OpenConflict(prog.Key)
			return nil, err
		}
		if !errors.Is(err, ErrDuplicate) {
			return nil, err
		}

		// A concurrent open won the race: either for this program or for the code.
		existing, lookupErr := s.repo.GetActiveByProgram(ctx, prog.Key)
		if lookupErr == nil && existing != nil {
			s.metrics.OpenConflict(prog.Key)
			return nil, ErrConflict
		}
		if lookupErr != nil && !errors.Is(lookupErr, ErrNotFound) {
			return nil, lookupErr
		}
		if attempt >= s.codes.Attempts() {
			return nil, ErrExhaustedRetries
		}
	}
}

func (s *Service) openOnce(ctx context.Context, a *actor.Actor, prog program.Program) (*Session, error) {
	var result Session
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		existing, err := tx.GetActiveByProgram(ctx, prog.Key)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if existing != nil {
			return ErrConflict
		}

		code, err := s.codes.Generate(ctx, tx.IsCodeActive)
		if err != nil {
			return err
		}

		now := s.clock()
		session := Session{
			ID:          uuid.NewString(),
			Program:     prog.Key,
			Status:      StatusActive,
			Code:        code,
			ServiceDate: s.ServiceDate(now),
			OpenedAt:    now,
			OpenedBy:    a.ID,
		}
		if err := tx.Create(ctx, &session); err != nil {
			return err
		}

		result = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CloseSession ends the program's active session. Closing a program with no
// active session, including a second close, returns ErrNotFound.
func (s *Service) CloseSession(ctx context.Context, a *actor.Actor, programKey string) (*Session, error) {
	if err := actor.Require(a, actor.PermManageSessions); err != nil {
		return nil, err
	}
	prog, err := s.catalog.Get(programKey)
	if err != nil {
		return nil, err
	}

	var result Session
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		session, err := tx.LockActiveByProgram(ctx, prog.Key)
		if err != nil {
			return err
		}

		now := s.clock()
		if err := tx.Close(ctx, session.ID, now, a.ID); err != nil {
			return err
		}

		closedBy := a.ID
		session.Status = StatusClosed
		session.ClosedAt = &now
		session.ClosedBy = &closedBy
		result = *session
		return nil
	})
	s.invalidate(prog.Key)
	if err != nil {
		return nil, err
	}

	s.metrics.SessionClosed(prog.Key)
	return &result, nil
}

// CloseCurrentService closes the most recently opened active service session.
func (s *Service) CloseCurrentService(ctx context.Context, a *actor.Actor) (*Session, error) {
	if err := actor.Require(a, actor.PermManageSessions); err != nil {
		return nil, err
	}
	current, _, err := s.CurrentServiceSession(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotFound
	}
	return s.CloseSession(ctx, a, current.Program)
}

// GetActiveSession returns the program's active session, or nil when there is none.
func (s *Service) GetActiveSession(ctx context.Context, programKey string) (*Session, error) {
	prog, err := s.catalog.Get(programKey)
	if err != nil {
		return nil, err
	}

	if cached, ok := s.cache.Get(prog.Key); ok {
		return cached, nil
	}

	value, err, _ := s.group.Do(prog.Key, func() (interface{}, error) {
		gen := s.generation(prog.Key)
		session, err := s.repo.GetActiveByProgram(ctx, prog.Key)
		if errors.Is(err, ErrNotFound) {
			session, err = nil, nil
		}
		if err != nil {
			return nil, err
		}
		s.fill(prog.Key, gen, session)
		return session, nil
	})
	if err != nil {
		return nil, err
	}

	session, _ := value.(*Session)
	if session == nil {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (s *Service) invalidate(programKey string) {
	s.genMu.Lock()
	s.generations[programKey]++
	s.genMu.Unlock()
	s.cache.Delete(programKey)
	s.group.Forget(programKey)
}

func (s *Service) generation(programKey string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[programKey]
}

// fill caches session unless the program was invalidated after gen was taken.
func (s *Service) fill(programKey string, gen uint64, session *Session) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generations[programKey] != gen {
		return
	}
	s.cache.Set(programKey, session, s.cacheTTL)
}

func (s *Service) ListActiveSessions(ctx context.Context) ([]Session, error) {
	return s.repo.ListActive(ctx)
}

// CurrentServiceSession picks the most recently opened active session whose
// program is a worship service. It returns nil when none is active.
func (s *Service) CurrentServiceSession(ctx context.Context) (*Session, program.Program, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, program.Program{}, err
	}

	var (
		current *Session
		prog    program.Program
	)
	for i := range active {
		p, err := s.catalog.Get(active[i].Program)
		if err != nil || p.Kind != program.KindService {
			continue
		}
		if current == nil || active[i].OpenedAt.After(current.OpenedAt) {
			current = &active[i]
			prog = p
		}
	}
	return current, prog, nil
}

// ActiveByKind maps every catalog program of kind to its active session or nil.
func (s *Service) ActiveByKind(ctx context.Context, kind program.Kind) (map[string]*Session, error) {
	result := make(map[string]*Session)
	for _, p := range s.catalog.ByKind(kind) {
		session, err := s.GetActiveSession(ctx, p.Key)
		if err != nil {
			return nil, err
		}
		result[p.Key] = session
	}
	return result, nil
}

// ResolveSession returns the program's active session or, failing that, its
// latest session on serviceDate. An active session opened on an earlier day
// still counts for today, since sessions stay open until closed. It returns
// nil when neither exists.
func (s *Service) ResolveSession(ctx context.Context, programKey, serviceDate string) (*Session, error) {
	today := s.Today()
	if serviceDate == "" {
		serviceDate = today
	}
	active, err := s.GetActiveSession(ctx, programKey)
	if err != nil {
		return nil, err
	}
	if active != nil && (serviceDate == today || active.ServiceDate == serviceDate) {
		return active, nil
	}

	latest, err := s.repo.GetLatestByProgramDate(ctx, program.NormalizeKey(programKey), serviceDate)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return latest, nil
}

// ListSessions returns the session history of a program for a service date.
func (s *Service) ListSessions(ctx context.Context, a *actor.Actor, programKey, serviceDate string) ([]Session, error) {
	if err := actor.Require(a, actor.PermViewRoster); err != nil {
		return nil, err
	}
	prog, err := s.catalog.Get(programKey)
	if err != nil {
		return nil, err
	}
	serviceDate, err = s.normalizeDate(serviceDate)
	if err != nil {
		return nil, err
	}

	sessions, err := s.repo.ListByProgramDate(ctx, prog.Key, serviceDate)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].OpenedAt.Before(sessions[j].OpenedAt)
	})
	return sessions, nil
}

func (s *Service) normalizeDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return s.Today(), nil
	}
	if _, err := time.Parse(ServiceDateLayout, value); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return value, nil
}
