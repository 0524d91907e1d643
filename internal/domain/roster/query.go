package roster

import (
	"context"
	"fmt"
	"strings"
	"time"

	"checkin-app-go/internal/domain/actor"
	"checkin-app-go/internal/domain/sessions"
)

// ListRoster returns the entries of a program on a service date in check-in order.
func (s *Service) ListRoster(ctx context.Context, a *actor.Actor, query Query) ([]Entry, error) {
	if err := actor.Require(a, actor.PermViewRoster); err != nil {
		return nil, err
	}
	filter, err := s.filterFor(query)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter)
}

// EventRoster lists the program's active session, or its latest session today.
func (s *Service) EventRoster(ctx context.Context, a *actor.Actor, programKey string) ([]Entry, error) {
	if err := actor.Require(a, actor.PermViewRoster); err != nil {
		return nil, err
	}
	prog, err := s.catalog.Get(programKey)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.ResolveSession(ctx, prog.Key, s.sessions.Today())
	if err != nil {
		return nil, err
	}
	if session == nil {
		return []Entry{}, nil
	}
	return s.list(ctx, Filter{SessionID: session.ID})
}

// Summary totals the roster of a program on a service date. Type and search
// narrowing in query are ignored.
func (s *Service) Summary(ctx context.Context, a *actor.Actor, query Query) (*Summary, error) {
	if err := actor.Require(a, actor.PermViewRoster); err != nil {
		return nil, err
	}
	filter, err := s.filterFor(Query{Program: query.Program, Date: query.Date})
	if err != nil {
		return nil, err
	}
	entries, err := s.list(ctx, filter)
	if err != nil {
		return nil, err
	}

	summary := Summary{Program: filter.Program, Date: filter.ServiceDate, Entries: len(entries)}
	for _, e := range entries {
		switch e.Type {
		case TypeMember:
			summary.Members++
		case TypeGuest:
			summary.Guests++
		case TypeChild:
			summary.Children++
			if e.PickedUpAt != nil {
				summary.PickedUp++
			} else {
				summary.AwaitingPickup++
			}
		}
		if e.FirstTime {
			summary.FirstTime++
		}
		summary.AdultHeadcount += e.Adults
		summary.ChildHeadcount += e.Children
	}
	return &summary, nil
}

func (s *Service) filterFor(query Query) (Filter, error) {
	prog, err := s.catalog.Get(query.Program)
	if err != nil {
		return Filter{}, err
	}

	date := strings.TrimSpace(query.Date)
	if date == "" {
		date = s.sessions.Today()
	} else if _, err := time.Parse(sessions.ServiceDateLayout, date); err != nil {
		return Filter{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}

	switch query.Type {
	case "", TypeMember, TypeGuest, TypeChild:
	default:
		return Filter{}, fmt.Errorf("%w: unknown entry type %q", ErrValidation, query.Type)
	}

	return Filter{
		Program:     prog.Key,
		ServiceDate: date,
		Type:        query.Type,
		FirstTime:   query.FirstTimeOnly,
		Search:      strings.ToLower(strings.TrimSpace(query.Search)),
	}, nil
}

func (s *Service) list(ctx context.Context, filter Filter) ([]Entry, error) {
	entries, err := s.repo.ListEntries(ctx, filter)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}
