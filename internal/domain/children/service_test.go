package children

import (
	"context"
	"errors"
	"testing"
	"time"

	"checkin-app-go/internal/domain/actor"
)

type fakeChildrenRepo struct {
	children map[string]*Child
}

func newFakeChildrenRepo() *fakeChildrenRepo {
	return &fakeChildrenRepo{children: make(map[string]*Child)}
}

func (r *fakeChildrenRepo) Create(ctx context.Context, child *Child) error {
	copied := *child
	r.children[child.ID] = &copied
	return nil
}

func (r *fakeChildrenRepo) ListByGuardian(ctx context.Context, guardianID string) ([]Child, error) {
	result := make([]Child, 0)
	for _, c := range r.children {
		if c.GuardianID == guardianID {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (r *fakeChildrenRepo) GetByIDs(ctx context.Context, ids []string) ([]Child, error) {
	result := make([]Child, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.children[id]; ok {
			result = append(result, *c)
		}
	}
	return result, nil
}

var parent = &actor.Actor{ID: "parent-1", Name: "Jordan", Role: actor.RoleMember}

func TestRegisterChild(t *testing.T) {
	repo := newFakeChildrenRepo()
	svc := NewService(repo)

	child, err := svc.Register(context.Background(), parent, RegisterInput{
		FirstName: " Ava ",
		LastName:  "Stone",
		BirthDate: "2022-03-14",
		Allergies: "peanuts",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if child.FullName() != "Ava Stone" {
		t.Fatalf("expected trimmed name, got %q", child.FullName())
	}
	if child.GuardianID != parent.ID {
		t.Fatalf("expected guardian %s, got %s", parent.ID, child.GuardianID)
	}
	if child.Allergies == nil || *child.Allergies != "peanuts" {
		t.Fatalf("expected allergies stored, got %v", child.Allergies)
	}
	if child.Notes != nil {
		t.Fatalf("expected empty notes to be nil")
	}
}

func TestRegisterChildValidation(t *testing.T) {
	svc := NewService(newFakeChildrenRepo())
	svc.clock = func() time.Time { return time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC) }

	cases := []RegisterInput{
		{LastName: "Stone", BirthDate: "2022-03-14"},
		{FirstName: "Ava", BirthDate: "2022-03-14"},
		{FirstName: "Ava", LastName: "Stone"},
		{FirstName: "Ava", LastName: "Stone", BirthDate: "14/03/2022"},
		{FirstName: "Ava", LastName: "Stone", BirthDate: "2030-01-01"},
	}
	for _, input := range cases {
		_, err := svc.Register(context.Background(), parent, input)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation for %+v, got %v", input, err)
		}
	}
}

func TestGetForGuardianRejectsOtherFamilies(t *testing.T) {
	repo := newFakeChildrenRepo()
	repo.children["c1"] = &Child{ID: "c1", GuardianID: parent.ID, FirstName: "Ava"}
	repo.children["c2"] = &Child{ID: "c2", GuardianID: "someone-else", FirstName: "Leo"}
	svc := NewService(repo)

	got, err := svc.GetForGuardian(context.Background(), parent.ID, []string{"c1"})
	if err != nil || len(got) != 1 {
		t.Fatalf("expected one child, got %v, %v", got, err)
	}

	_, err = svc.GetForGuardian(context.Background(), parent.ID, []string{"c1", "c2"})
	if !errors.Is(err, ErrChildNotFound) {
		t.Fatalf("expected ErrChildNotFound, got %v", err)
	}

	_, err = svc.GetForGuardian(context.Background(), parent.ID, []string{"missing"})
	if !errors.Is(err, ErrChildNotFound) {
		t.Fatalf("expected ErrChildNotFound, got %v", err)
	}
}

func TestAgeOn(t *testing.T) {
	child := Child{BirthDate: time.Date(2020, 6, 15, 0, 0, 0, 0, time.UTC)}
	if got := child.AgeOn(time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC)); got != 5 {
		t.Fatalf("expected 5 the day before birthday, got %d", got)
	}
	if got := child.AgeOn(time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)); got != 6 {
		t.Fatalf("expected 6 on birthday, got %d", got)
	}
}
