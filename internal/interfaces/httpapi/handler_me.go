package httpapi

import (
	"net/http"
	"sort"

	"github.com/riskibarqy/prediction-league/internal/usecase"
)

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMe")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	summary, err := h.userService.Me(ctx, principal)
	if err != nil {
		h.logger.WarnContext(ctx, "get me failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, meToDTO(summary))
}

func (h *Handler) ListMyPredictions(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyPredictions")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.predictionService.List(ctx, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "list predictions failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, userPredictionsToDTO(items))
}

func (h *Handler) SubmitMyPredictions(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitMyPredictions")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req submitPredictionsRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if _, err := h.userService.EnsureProfile(ctx, principal); err != nil {
		writeError(ctx, w, err)
		return
	}

	fixtureIDs := make([]string, 0, len(req.Predictions))
	for fixtureID := range req.Predictions {
		fixtureIDs = append(fixtureIDs, fixtureID)
	}
	sort.Strings(fixtureIDs)

	entries := make([]usecase.PredictionEntry, 0, len(fixtureIDs))
	for _, fixtureID := range fixtureIDs {
		score := req.Predictions[fixtureID]
		entries = append(entries, usecase.PredictionEntry{
			FixtureID: fixtureID,
			Home:      score.HomeScore.orMissing(),
			Away:      score.AwayScore.orMissing(),
		})
	}

	result, err := h.predictionService.Submit(ctx, usecase.SubmitPredictionsInput{
		UserID:         principal.UserID,
		Entries:        entries,
		JokerFixtureID: req.JokerFixtureID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submit predictions failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, submitResultToDTO(result))
}

func (h *Handler) GetMyProphecy(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMyProphecy")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.prophecyService.Get(ctx, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "get prophecy failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, prophecyToDTO(item))
}

func (h *Handler) SaveMyProphecy(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SaveMyProphecy")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req saveProphecyRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.prophecyService.Save(ctx, usecase.SaveProphecyInput{
		UserID:       principal.UserID,
		Winner:       req.Winner,
		Relegation:   req.Relegation,
		GoldenBoot:   req.GoldenBoot,
		FirstSacking: req.FirstSacking,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "save prophecy failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, prophecyToDTO(item))
}
