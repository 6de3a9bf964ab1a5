package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	fixturemock "github.com/riskibarqy/prediction-league/internal/mocks/domain/fixture"
	"github.com/stretchr/testify/mock"
)

func TestFixtureService_List_SuccessUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.WithValue(context.Background(), "trace_id", "trace-123")
	fixtureRepo := fixturemock.NewRepository(t)

	service := NewFixtureService(fixtureRepo)
	expectedFixtures := []fixture.Fixture{
		{
			ID:        "fx-001",
			Gameweek:  3,
			HomeTeam:  "Liverpool",
			AwayTeam:  "Everton",
			KickoffAt: time.Date(2026, 8, 29, 11, 30, 0, 0, time.UTC),
			IsDerby:   true,
		},
	}

	fixtureRepo.
		On("List", mock.MatchedBy(func(v context.Context) bool { return v == ctx }), fixture.Filter{Gameweek: 3}).
		Return(expectedFixtures, nil).
		Once()

	got, err := service.List(ctx, fixture.Filter{Gameweek: 3})
	if err != nil {
		t.Fatalf("list fixtures: %v", err)
	}
	if len(got) != len(expectedFixtures) {
		t.Fatalf("unexpected fixture count: got=%d want=%d", len(got), len(expectedFixtures))
	}
	if got[0].ID != expectedFixtures[0].ID {
		t.Fatalf("unexpected fixture id: got=%s want=%s", got[0].ID, expectedFixtures[0].ID)
	}
}

func TestFixtureService_List_InvalidGameweekUsingMockery(t *testing.T) {
	t.Parallel()

	fixtureRepo := fixturemock.NewRepository(t)
	service := NewFixtureService(fixtureRepo)

	_, err := service.List(context.Background(), fixture.Filter{Gameweek: 39})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got: %v", err)
	}
	fixtureRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestFixtureService_Get_NotFoundUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fixtureRepo := fixturemock.NewRepository(t)
	service := NewFixtureService(fixtureRepo)

	fixtureRepo.
		On("GetByID", ctx, "fx-missing").
		Return(fixture.Fixture{}, false, nil).
		Once()

	_, err := service.Get(ctx, "fx-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestFixtureService_Get_RepositoryErrorUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fixtureRepo := fixturemock.NewRepository(t)
	service := NewFixtureService(fixtureRepo)
	storeErr := errors.New("db down")

	fixtureRepo.
		On("GetByID", ctx, "fx-001").
		Return(fixture.Fixture{}, false, storeErr).
		Once()

	_, err := service.Get(ctx, "fx-001")
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got: %v", err)
	}
}
