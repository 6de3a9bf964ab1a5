package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, metrics http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/fixtures", handler.ListFixtures)
	mux.HandleFunc("GET /v1/fixtures/{fixtureID}", handler.GetFixture)
	mux.HandleFunc("GET /v1/leaderboard", handler.ListLeaderboard)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("GET /v1/me", RequireAuth(verifier, http.HandlerFunc(handler.GetMe)))
	mux.Handle("GET /v1/me/predictions", RequireAuth(verifier, http.HandlerFunc(handler.ListMyPredictions)))
	mux.Handle("PUT /v1/me/predictions", RequireAuth(verifier, http.HandlerFunc(handler.SubmitMyPredictions)))
	mux.Handle("GET /v1/me/prophecies", RequireAuth(verifier, http.HandlerFunc(handler.GetMyProphecy)))
	mux.Handle("PUT /v1/me/prophecies", RequireAuth(verifier, http.HandlerFunc(handler.SaveMyProphecy)))
}

func registerAdminRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier, adminUserIDs []string) {
	admin := func(next http.HandlerFunc) http.Handler {
		return RequireAuth(verifier, RequireAdmin(adminUserIDs, next))
	}
	mux.Handle("POST /v1/admin/settlements", admin(handler.RunSettlement))
	mux.Handle("PUT /v1/admin/fixtures/{fixtureID}/result", admin(handler.CorrectFixtureResult))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/bootstrap", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunBootstrapJob)))
	mux.Handle("POST /v1/internal/jobs/settlement", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunSettlementJob)))
	mux.Handle("POST /v1/internal/jobs/fixture-sync", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunFixtureSyncJob)))
}
