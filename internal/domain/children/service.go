package children

import (
	"context"
	"fmt"
	"strings"
	"time"

	"checkin-app-go/internal/domain/actor"
	"github.com/google/uuid"
)

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Register(ctx context.Context, a *actor.Actor, input RegisterInput) (*Child, error) {
	if err := actor.Require(a, actor.PermCheckIn); err != nil {
		return nil, err
	}

	first := strings.TrimSpace(input.FirstName)
	last := strings.TrimSpace(input.LastName)
	if first == "" {
		return nil, fmt.Errorf("%w: first_name is required", ErrValidation)
	}
	if last == "" {
		return nil, fmt.Errorf("%w: last_name is required", ErrValidation)
	}
	if len(first) > 80 || len(last) > 80 {
		return nil, fmt.Errorf("%w: name is too long", ErrValidation)
	}

	birthValue := strings.TrimSpace(input.BirthDate)
	if birthValue == "" {
		return nil, fmt.Errorf("%w: birth_date is required", ErrValidation)
	}
	birth, err := time.Parse(BirthDateLayout, birthValue)
	if err != nil {
		return nil, fmt.Errorf("%w: birth_date must be YYYY-MM-DD", ErrValidation)
	}
	if birth.After(s.clock()) {
		return nil, fmt.Errorf("%w: birth_date is in the future", ErrValidation)
	}

	child := Child{
		ID:         uuid.NewString(),
		GuardianID: a.ID,
		FirstName:  first,
		LastName:   last,
		BirthDate:  birth,
		Allergies:  optional(input.Allergies),
		Notes:      optional(input.Notes),
	}
	if err := s.repo.Create(ctx, &child); err != nil {
		return nil, err
	}
	return &child, nil
}

func (s *Service) ListMine(ctx context.Context, a *actor.Actor) ([]Child, error) {
	if err := actor.Require(a, actor.PermCheckIn); err != nil {
		return nil, err
	}
	return s.repo.ListByGuardian(ctx, a.ID)
}

// GetForGuardian loads the requested children in request order. Any id that is
// unknown or belongs to another guardian yields ErrChildNotFound.
func (s *Service) GetForGuardian(ctx context.Context, guardianID string, ids []string) ([]Child, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: child_ids is required", ErrValidation)
	}

	found, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Child, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	result := make([]Child, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok || c.GuardianID != guardianID {
			return nil, ErrChildNotFound
		}
		result = append(result, c)
	}
	return result, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
