package httpapi

import (
	"net/http"
	"strings"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
)

// RunSettlement triggers a manual settlement run.
func (h *Handler) RunSettlement(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSettlement")
	defer span.End()

	result, err := h.settlementService.RunSettlement(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual settlement failed", "message", result.Message, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, settlementToDTO(result))
}

func (h *Handler) CorrectFixtureResult(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CorrectFixtureResult")
	defer span.End()

	fixtureID := strings.TrimSpace(r.PathValue("fixtureID"))
	var req correctResultRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.settlementService.CorrectResult(ctx, fixtureID, fixture.Score{Home: *req.HomeScore, Away: *req.AwayScore})
	if err != nil {
		h.logger.WarnContext(ctx, "correct fixture result failed", "fixture_id", fixtureID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, settlementToDTO(result))
}
