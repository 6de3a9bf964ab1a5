package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
	"github.com/riskibarqy/prediction-league/internal/domain/user"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/prediction-league/internal/platform/cache"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/riskibarqy/prediction-league/internal/usecase"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	principals map[string]user.Principal
}

var _ TokenVerifier = (*stubVerifier)(nil)

func (s *stubVerifier) VerifyAccessToken(_ context.Context, token string) (user.Principal, error) {
	principal, ok := s.principals[token]
	if !ok {
		return user.Principal{}, fmt.Errorf("%w: unknown token", usecase.ErrUnauthorized)
	}
	return principal, nil
}

type stubResultProvider struct{}

var _ usecase.ResultProvider = stubResultProvider{}

func (stubResultProvider) LookupResult(context.Context, int64) (usecase.ResultLookup, error) {
	return usecase.ResultLookup{}, nil
}

const jobToken = "job-token"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store := memory.NewStore()
	fixtures := memory.NewFixtureRepository(store)
	kickoff := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	fixtures.Seed([]fixture.Fixture{
		{ID: "fx-1", ExternalID: 101, Gameweek: 1, HomeTeam: "Liverpool", AwayTeam: "Everton", KickoffAt: kickoff, IsDerby: true},
		{ID: "fx-2", ExternalID: 102, Gameweek: 1, HomeTeam: "Arsenal", AwayTeam: "Chelsea", KickoffAt: kickoff.Add(2 * time.Hour)},
		{ID: "fx-3", ExternalID: 103, Gameweek: 2, HomeTeam: "Fulham", AwayTeam: "Brentford", KickoffAt: kickoff.Add(7 * 24 * time.Hour)},
	})
	predictions := memory.NewPredictionRepository(store)
	scores := memory.NewScoringRepository(store)
	logger := logging.NewNop()

	leaderboard := usecase.NewLeaderboardService(scores, cache.NewStore(time.Minute))
	settlement := usecase.NewSettlementService(fixtures, scores, stubResultProvider{}, usecase.DefaultSettlementConfig(), logger,
		usecase.WithStandingsInvalidator(leaderboard),
	)
	handler := NewHandler(Services{
		Fixtures:    usecase.NewFixtureService(fixtures),
		Predictions: usecase.NewPredictionService(fixtures, predictions, scores, usecase.PredictionConfig{DeadlineLead: time.Hour}, logger),
		Prophecies:  usecase.NewProphecyService(memory.NewProphecyRepository(store), fixtures),
		Users:       usecase.NewUserService(memory.NewUserRepository(store), scores, predictions, leaderboard),
		Leaderboard: leaderboard,
		Settlement:  settlement,
		Jobs:        usecase.NewSettlementJobService(settlement, nil, nil, memory.NewJobDispatchRepository(store), usecase.SettlementJobConfig{}, logger),
	}, logger)

	verifier := &stubVerifier{principals: map[string]user.Principal{
		"player-token": {UserID: "u-1", Email: "ana@example.com", Name: "Ana"},
		"admin-token":  {UserID: "u-admin", Name: "Admin", IsAdmin: true},
		"listed-token": {UserID: "u-listed", Name: "Listed"},
	}}
	return NewRouter(handler, verifier, logger, RouterConfig{
		CORSAllowedOrigins: []string{"*"},
		InternalJobToken:   jobToken,
		AdminUserIDs:       []string{"u-listed"},
	})
}

type decodedEnvelope struct {
	APIVersion string         `json:"apiVersion"`
	Data       map[string]any `json:"data"`
	Error      *struct {
		Code   int    `json:"code"`
		Status string `json:"status"`
	} `json:"error"`
}

func do(t *testing.T, router http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, decodedEnvelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out decodedEnvelope
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		// list endpoints carry an array in data; only the status matters there.
		_ = sonic.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func TestRouter_Healthz(t *testing.T) {
	t.Parallel()

	rec, body := do(t, newTestRouter(t), http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body.Data["status"])
}

func TestRouter_ListFixtures(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec, _ := do(t, router, http.MethodGet, "/v1/fixtures?gameweek=1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Data []fixtureDTO `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Data, 2)
	require.Equal(t, "fx-1", out.Data[0].ID)
	require.True(t, out.Data[0].IsDerby)

	rec, body := do(t, router, http.MethodGet, "/v1/fixtures?gameweek=abc", "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_ARGUMENT", body.Error.Status)
}

func TestRouter_PredictionsRequireAuth(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec, _ := do(t, router, http.MethodGet, "/v1/me/predictions", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, router, http.MethodGet, "/v1/me/predictions", "forged", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_SubmitPredictions_FlexibleScores(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	body := `{
		"predictions": {
			"fx-1": {"homeScore": 2, "awayScore": "1"},
			"fx-2": {"homeScore": "two", "awayScore": 0},
			"fx-3": {"homeScore": 1}
		},
		"jokerFixtureId": "fx-1"
	}`
	rec, out := do(t, router, http.MethodPut, "/v1/me/predictions", "player-token", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, float64(1), out.Data["saved"])
	require.Equal(t, float64(2), out.Data["skipped"])

	rec, _ = do(t, router, http.MethodGet, "/v1/me/predictions", "player-token", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Data userPredictionsDTO `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Data.Predictions, 1)
	require.Equal(t, predictionDTO{
		FixtureID:   "fx-1",
		HomeScore:   2,
		AwayScore:   1,
		SubmittedAt: listed.Data.Predictions[0].SubmittedAt,
	}, listed.Data.Predictions[0])
	require.Equal(t, "fx-1", listed.Data.Joker.FixtureID)
	require.True(t, listed.Data.Joker.UsedInSeason)
}

func TestRouter_SubmitPredictions_ReplacesPrevious(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	for _, body := range []string{
		`{"predictions":{"fx-2":{"homeScore":1,"awayScore":0}}}`,
		`{"predictions":{"fx-2":{"homeScore":"3","awayScore":3}}}`,
	} {
		rec, _ := do(t, router, http.MethodPut, "/v1/me/predictions", "player-token", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec, _ := do(t, router, http.MethodGet, "/v1/me/predictions", "player-token", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Data userPredictionsDTO `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Data.Predictions, 1)
	require.Equal(t, "fx-2", listed.Data.Predictions[0].FixtureID)
	require.Equal(t, 3, listed.Data.Predictions[0].HomeScore)
	require.Equal(t, 3, listed.Data.Predictions[0].AwayScore)
}

func TestRouter_SubmitPredictions_UnknownFixture(t *testing.T) {
	t.Parallel()

	rec, out := do(t, newTestRouter(t), http.MethodPut, "/v1/me/predictions", "player-token",
		`{"predictions":{"missing":{"homeScore":1,"awayScore":1}}}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", out.Error.Status)
}

func TestRouter_SubmitPredictions_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	rec, _ := do(t, newTestRouter(t), http.MethodPut, "/v1/me/predictions", "player-token", `{"picks":{}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Me(t *testing.T) {
	t.Parallel()

	rec, out := do(t, newTestRouter(t), http.MethodGet, "/v1/me", "player-token", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "u-1", out.Data["id"])
	require.Equal(t, "Ana", out.Data["name"])
	require.Equal(t, float64(0), out.Data["total"])
}

func TestRouter_Prophecies(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec, _ := do(t, router, http.MethodPut, "/v1/me/prophecies", "player-token",
		`{"winner":"Arsenal","relegation":["Burnley","Luton Town"],"goldenBoot":"Haaland","firstSacking":"Ten Hag"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, out := do(t, router, http.MethodGet, "/v1/me/prophecies", "player-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Arsenal", out.Data["winner"])
	require.Len(t, out.Data["relegation"], 2)

	rec, _ = do(t, router, http.MethodPut, "/v1/me/prophecies", "player-token",
		`{"relegation":["A","B","C","D"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_AdminSettlement(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec, out := do(t, router, http.MethodPost, "/v1/admin/settlements", "player-token", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "PERMISSION_DENIED", out.Error.Status)

	for _, token := range []string{"admin-token", "listed-token"} {
		rec, out = do(t, router, http.MethodPost, "/v1/admin/settlements", token, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Equal(t, true, out.Data["success"])
		require.Equal(t, "nothing to do: no finished fixtures", out.Data["message"])
	}
}

func TestRouter_AdminCorrectResult_NotKickedOff(t *testing.T) {
	t.Parallel()

	rec, _ := do(t, newTestRouter(t), http.MethodPut, "/v1/admin/fixtures/fx-1/result", "admin-token",
		`{"homeScore":1,"awayScore":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, newTestRouter(t), http.MethodPut, "/v1/admin/fixtures/fx-1/result", "admin-token",
		`{"homeScore":-1,"awayScore":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_InternalSettlementJob(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/settlement", strings.NewReader(`{"dispatch_id":"settlement-1"}`))
	req.Header.Set("X-Internal-Job-Token", "wrong")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/settlement", nil)
	req.Header.Set("X-Internal-Job-Token", jobToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRouter_InternalFixtureSyncWithoutSource(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/fixture-sync", nil)
	req.Header.Set("X-Internal-Job-Token", jobToken)
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGoalsValue_Decode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want int
	}{
		{raw: `{"homeScore":3,"awayScore":0}`, want: 3},
		{raw: `{"homeScore":"4","awayScore":0}`, want: 4},
		{raw: `{"homeScore":" 2 ","awayScore":0}`, want: 2},
		{raw: `{"homeScore":"x","awayScore":0}`, want: -1},
		{raw: `{"homeScore":null,"awayScore":0}`, want: -1},
		{raw: `{"homeScore":-2,"awayScore":0}`, want: -1},
		{raw: `{"homeScore":1.5,"awayScore":0}`, want: -1},
		{raw: `{"awayScore":0}`, want: -1},
	}
	for _, tt := range tests {
		var payload scorePayload
		if err := sonic.Unmarshal([]byte(tt.raw), &payload); err != nil {
			t.Fatalf("decode %s: %v", tt.raw, err)
		}
		if got := payload.HomeScore.orMissing(); got != tt.want {
			t.Fatalf("decode %s: got=%d want=%d", tt.raw, got, tt.want)
		}
	}
}
