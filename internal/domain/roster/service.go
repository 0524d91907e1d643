package roster

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"checkin-app-go/internal/domain/actor"
	"checkin-app-go/internal/domain/children"
	"checkin-app-go/internal/domain/program"
	"checkin-app-go/internal/domain/sessions"
	"github.com/google/uuid"
)

const (
	maxNameLength    = 160
	maxNotesLength   = 2000
	maxPartySize     = 50
	maxRequestKeyLen = 128
	maxPickupRetries = 3
	minPhoneDigits   = 7
	maxPhoneDigits   = 15
)

type SessionLookup interface {
	ResolveSession(ctx context.Context, programKey, serviceDate string) (*sessions.Session, error)
	CurrentServiceSession(ctx context.Context) (*sessions.Session, program.Program, error)
	ServiceDate(t time.Time) string
	Today() string
}

type ChildDirectory interface {
	GetForGuardian(ctx context.Context, guardianID string, ids []string) ([]children.Child, error)
}

type Service struct {
	repo        Repository
	sessions    SessionLookup
	children    ChildDirectory
	catalog     program.Catalog
	codeLength  int
	pickupCodes *sessions.CodeGenerator
	metrics     Metrics
	clock       func() time.Time
}

type Option func(*Service)

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

func WithPickupCodes(gen *sessions.CodeGenerator) Option {
	return func(s *Service) {
		if gen != nil {
			s.pickupCodes = gen
		}
	}
}

// WithCodeLength sets the expected session code length used to reject malformed codes early.
func WithCodeLength(length int) Option {
	return func(s *Service) {
		if length > 0 {
			s.codeLength = length
		}
	}
}

func NewService(repo Repository, lookup SessionLookup, directory ChildDirectory, catalog program.Catalog, opts ...Option) *Service {
	pickup, _ := sessions.NewCodeGenerator(sessions.DefaultCodeLength, sessions.DefaultCodeAttempts)
	s := &Service{
		repo:        repo,
		sessions:    lookup,
		children:    directory,
		catalog:     catalog,
		codeLength:  sessions.DefaultCodeLength,
		pickupCodes: pickup,
		metrics:     noopMetrics{},
		clock:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitCode records a member check-in against the active session holding code.
func (s *Service) SubmitCode(ctx context.Context, a *actor.Actor, input SubmitCodeInput) (*CheckInResult, error) {
	if err := actor.Require(a, actor.PermCheckIn); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(input.Code)
	if !sessions.IsDigits(code, s.codeLength) {
		s.metrics.InvalidCode()
		return nil, ErrInvalidCode
	}
	requestKey, err := normalizeRequestKey(input.RequestKey)
	if err != nil {
		return nil, err
	}

	subjectID := a.ID
	checkedInBy := a.ID
	entry := Entry{
		Type:        TypeMember,
		SubjectID:   &subjectID,
		DisplayName: a.DisplayName(),
		Email:       optional(a.Email),
		Adults:      1,
		CheckedInBy: &checkedInBy,
		RequestKey:  requestKey,
	}

	result, err := s.record(ctx, entry, func(tx Repository) (*sessions.Session, error) {
		return tx.LockActiveSessionByCode(ctx, code)
	})
	if err != nil {
		return nil, err
	}
	if result.Duplicate && !sameSubject(result.Entry, entry) {
		return nil, ErrRequestKeyReused
	}

	result.Greeting = fmt.Sprintf("Welcome, %s! You're checked in to %s.", a.DisplayName(), s.title(result.Session.Program))
	return result, nil
}

// CheckInGuest records a visitor. The caller may be anonymous. Without a code
// the guest joins the current worship service session.
func (s *Service) CheckInGuest(ctx context.Context, a *actor.Actor, input GuestInput) (*CheckInResult, error) {
	guest, err := s.validateGuest(input)
	if err != nil {
		return nil, err
	}
	if a.Authenticated() {
		by := a.ID
		guest.CheckedInBy = &by
	}

	code := strings.TrimSpace(input.Code)
	var lock func(tx Repository) (*sessions.Session, error)
	if code != "" {
		if !sessions.IsDigits(code, s.codeLength) {
			s.metrics.InvalidCode()
			return nil, ErrInvalidCode
		}
		lock = func(tx Repository) (*sessions.Session, error) {
			return tx.LockActiveSessionByCode(ctx, code)
		}
	} else {
		current, _, err := s.sessions.CurrentServiceSession(ctx)
		if err != nil {
			return nil, err
		}
		if current == nil {
			s.metrics.InvalidCode()
			return nil, ErrInvalidCode
		}
		lock = func(tx Repository) (*sessions.Session, error) {
			return tx.LockActiveSessionByProgram(ctx, current.Program)
		}
	}

	result, err := s.record(ctx, *guest, lock)
	if err != nil {
		return nil, err
	}
	if result.Duplicate && !sameSubject(result.Entry, *guest) {
		return nil, ErrRequestKeyReused
	}

	greeting := fmt.Sprintf("Welcome, %s! Thanks for joining us at %s.", firstName(guest.DisplayName), s.title(result.Session.Program))
	if guest.FirstTime {
		greeting += " We're so glad you're here for the first time."
	}
	result.Greeting = greeting
	return result, nil
}

// record inserts entry into the session returned by lock inside one
// transaction, so a concurrent close cannot slip between lookup and insert.
func (s *Service) record(ctx context.Context, entry Entry, lock func(tx Repository) (*sessions.Session, error)) (*CheckInResult, error) {
	var result CheckInResult
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		session, err := lock(tx)
		if errors.Is(err, sessions.ErrNotFound) {
			return ErrInvalidCode
		}
		if err != nil {
			return err
		}
		result.Session = *session

		if entry.RequestKey != nil {
			existing, err := tx.FindByRequestKey(ctx, session.ID, *entry.RequestKey)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			if existing != nil {
				result.Entry = *existing
				result.Duplicate = true
				return nil
			}
		}

		entry.ID = uuid.NewString()
		entry.SessionID = session.ID
		entry.Program = session.Program
		entry.CheckedInAt = s.clock()
		entry.ServiceDate = s.sessions.ServiceDate(entry.CheckedInAt)
		if err := tx.CreateEntry(ctx, &entry); err != nil {
			return err
		}
		result.Entry = entry
		return nil
	})
	if errors.Is(err, ErrDuplicateRequest) && entry.RequestKey != nil {
		existing, findErr := s.repo.FindByRequestKey(ctx, result.Session.ID, *entry.RequestKey)
		if findErr != nil {
			return nil, findErr
		}
		return &CheckInResult{Entry: *existing, Session: result.Session, Duplicate: true}, nil
	}
	if errors.Is(err, ErrInvalidCode) {
		s.metrics.InvalidCode()
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if !result.Duplicate {
		s.metrics.CheckedIn(result.Entry.Program, result.Entry.Type)
	}
	return &result, nil
}

// CheckInChildren records one entry per child, each with its own pickup code.
func (s *Service) CheckInChildren(ctx context.Context, a *actor.Actor, programKey string, input ChildrenInput) ([]Entry, error) {
	if err := actor.Require(a, actor.PermCheckIn); err != nil {
		return nil, err
	}
	prog, err := s.catalog.Get(programKey)
	if err != nil {
		return nil, err
	}
	if !prog.IsChildren() {
		return nil, fmt.Errorf("%w: %s is not a children's program", ErrValidation, prog.Key)
	}

	ids, err := uniqueIDs(input.ChildIDs)
	if err != nil {
		return nil, err
	}
	contactName := strings.TrimSpace(input.EmergencyContactName)
	if contactName == "" {
		return nil, fmt.Errorf("%w: emergency_contact_name is required", ErrValidation)
	}
	contactPhone, err := normalizePhone(input.EmergencyContactPhone)
	if err != nil {
		return nil, fmt.Errorf("%w: emergency_contact_phone %s", ErrValidation, err.Error())
	}
	notes := strings.TrimSpace(input.Notes)
	if len(notes) > maxNotesLength {
		return nil, fmt.Errorf("%w: notes is too long", ErrValidation)
	}

	kids, err := s.children.GetForGuardian(ctx, a.ID, ids)
	if errors.Is(err, children.ErrChildNotFound) {
		return nil, ErrNotFound
	}
	if errors.Is(err, children.ErrValidation) {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	if err != nil {
		return nil, err
	}

	now := s.clock()
	for _, kid := range kids {
		age := kid.AgeOn(now)
		if (prog.MinAge > 0 && age < prog.MinAge) || (prog.MaxAge > 0 && age > prog.MaxAge) {
			return nil, fmt.Errorf("%w: %s is outside the %s age range", ErrValidation, kid.FullName(), prog.Title)
		}
	}

	var created []Entry
	for attempt := 1; ; attempt++ {
		created, err = s.insertChildren(ctx, a, prog.Key, kids, contactName, contactPhone, notes)
		if errors.Is(err, ErrPickupCodeTaken) && attempt < maxPickupRetries {
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	for _, entry := range created {
		s.metrics.CheckedIn(entry.Program, entry.Type)
	}
	return created, nil
}

func (s *Service) insertChildren(ctx context.Context, a *actor.Actor, programKey string, kids []children.Child, contactName, contactPhone, notes string) ([]Entry, error) {
	now := s.clock()
	var created []Entry
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		session, err := tx.LockActiveSessionByProgram(ctx, programKey)
		if errors.Is(err, sessions.ErrNotFound) {
			return ErrSessionNotActive
		}
		if err != nil {
			return err
		}

		checkedInBy := a.ID
		created = make([]Entry, 0, len(kids))
		for _, kid := range kids {
			code, err := s.pickupCodes.Generate(ctx, func(ctx context.Context, code string) (bool, error) {
				return tx.IsPickupCodeOpen(ctx, session.ID, code)
			})
			if err != nil {
				return err
			}

			childID := kid.ID
			entry := Entry{
				ID:                    uuid.NewString(),
				SessionID:             session.ID,
				Program:               session.Program,
				ServiceDate:           s.sessions.ServiceDate(now),
				Type:                  TypeChild,
				SubjectID:             &childID,
				DisplayName:           kid.FullName(),
				Children:              1,
				CheckedInAt:           now,
				CheckedInBy:           &checkedInBy,
				PickupCode:            &code,
				EmergencyContactName:  &contactName,
				EmergencyContactPhone: &contactPhone,
				Notes:                 optional(notes),
				Allergies:             kid.Allergies,
			}
			if err := tx.CreateEntry(ctx, &entry); err != nil {
				return err
			}
			created = append(created, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// VerifyPickup releases a child by exchanging its single-use pickup code.
// Wrong and already-used codes are indistinguishable to the caller.
func (s *Service) VerifyPickup(ctx context.Context, a *actor.Actor, programKey, pickupCode string) (*PickupResult, error) {
	if err := actor.Require(a, actor.PermVerifyPickup); err != nil {
		return nil, err
	}
	prog, err := s.catalog.Get(programKey)
	if err != nil {
		return nil, err
	}
	code := strings.TrimSpace(pickupCode)
	if !s.pickupCodes.Valid(code) {
		s.metrics.PickupRejected(prog.Key)
		return nil, ErrNotFound
	}

	session, err := s.sessions.ResolveSession(ctx, prog.Key, s.sessions.Today())
	if err != nil {
		return nil, err
	}
	if session == nil {
		s.metrics.PickupRejected(prog.Key)
		return nil, ErrNotFound
	}

	now := s.clock()
	entry, err := s.repo.MarkPickedUp(ctx, session.ID, code, now, a.ID)
	if errors.Is(err, ErrNotFound) {
		s.metrics.PickupRejected(prog.Key)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s.metrics.PickupVerified(prog.Key)
	return &PickupResult{EntryID: entry.ID, ChildName: entry.DisplayName, PickedUpAt: now}, nil
}

func (s *Service) validateGuest(input GuestInput) (*Entry, error) {
	name := strings.Join(strings.Fields(input.FullName), " ")
	if name == "" {
		return nil, fmt.Errorf("%w: fullName is required", ErrValidation)
	}
	if len(name) > maxNameLength {
		return nil, fmt.Errorf("%w: fullName is too long", ErrValidation)
	}
	phone, err := normalizePhone(input.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: phone %s", ErrValidation, err.Error())
	}

	email := strings.TrimSpace(input.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("%w: email is invalid", ErrValidation)
		}
	}

	adults := input.Adults
	if adults == 0 {
		adults = 1
	}
	if adults < 0 || adults > maxPartySize {
		return nil, fmt.Errorf("%w: adults must be between 1 and %d", ErrValidation, maxPartySize)
	}
	if input.Children < 0 || input.Children > maxPartySize {
		return nil, fmt.Errorf("%w: children must be between 0 and %d", ErrValidation, maxPartySize)
	}

	prayer := strings.TrimSpace(input.PrayerRequest)
	if len(prayer) > maxNotesLength {
		return nil, fmt.Errorf("%w: prayerRequest is too long", ErrValidation)
	}
	requestKey, err := normalizeRequestKey(input.RequestKey)
	if err != nil {
		return nil, err
	}

	return &Entry{
		Type:          TypeGuest,
		DisplayName:   name,
		Phone:         &phone,
		Email:         optional(email),
		Adults:        adults,
		Children:      input.Children,
		FirstTime:     input.FirstTime,
		ContactOK:     input.ContactOK,
		PrayerRequest: optional(prayer),
		RequestKey:    requestKey,
	}, nil
}

func (s *Service) title(programKey string) string {
	p, err := s.catalog.Get(programKey)
	if err != nil {
		return programKey
	}
	return p.Title
}

func normalizePhone(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("is required")
	}
	var digits strings.Builder
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", errors.New("contains invalid characters")
		}
	}
	n := digits.Len()
	if n < minPhoneDigits || n > maxPhoneDigits {
		return "", fmt.Errorf("must have %d to %d digits", minPhoneDigits, maxPhoneDigits)
	}
	return digits.String(), nil
}

func normalizeRequestKey(value string) (*string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if len(value) > maxRequestKeyLen {
		return nil, fmt.Errorf("%w: request key is too long", ErrValidation)
	}
	return &value, nil
}

func uniqueIDs(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: child_ids is required", ErrValidation)
	}
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%w: child_ids contains an empty id", ErrValidation)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate child id %s", ErrValidation, id)
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result, nil
}

// sameSubject reports whether a replayed entry belongs to the caller. Guests
// have no identity, so they match on normalized phone and name.
func sameSubject(existing, incoming Entry) bool {
	if existing.Type != incoming.Type {
		return false
	}
	if existing.Type == TypeGuest {
		return existing.Phone != nil && incoming.Phone != nil &&
			*existing.Phone == *incoming.Phone &&
			strings.EqualFold(existing.DisplayName, incoming.DisplayName)
	}
	if existing.SubjectID == nil || incoming.SubjectID == nil {
		return existing.SubjectID == incoming.SubjectID
	}
	return *existing.SubjectID == *incoming.SubjectID
}

func firstName(full string) string {
	if fields := strings.Fields(full); len(fields) > 0 {
		return fields[0]
	}
	return full
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
