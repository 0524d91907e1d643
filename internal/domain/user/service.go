package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkin-app-go/internal/domain/actor"
)

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: func() time.Time { return time.Now().UTC() }}
}

// Touch records the caller's latest identity claims.
func (s *Service) Touch(ctx context.Context, a *actor.Actor) error {
	if !a.Authenticated() {
		return fmt.Errorf("user id is required")
	}

	profile := Profile{
		UserID:     a.ID,
		Role:       string(a.Role),
		LastSeenAt: s.clock(),
	}
	if name := strings.TrimSpace(a.Name); name != "" {
		profile.Name = &name
	}
	if email := strings.TrimSpace(a.Email); email != "" {
		profile.Email = &email
	}

	return s.repo.UpsertProfile(ctx, &profile)
}

// Enrich fills a missing name or email on a from the stored profile.
func (s *Service) Enrich(ctx context.Context, a *actor.Actor) (*actor.Actor, error) {
	if !a.Authenticated() || (a.Name != "" && a.Email != "") {
		return a, nil
	}
	profile, err := s.repo.GetProfile(ctx, a.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return a, nil
		}
		return nil, err
	}

	enriched := *a
	if enriched.Name == "" && profile.Name != nil {
		enriched.Name = *profile.Name
	}
	if enriched.Email == "" && profile.Email != nil {
		enriched.Email = *profile.Email
	}
	return &enriched, nil
}
