package usecase

import "time"

const (
	SettlementOutcomeSuccess = "success"
	SettlementOutcomeFailed  = "failed"
)

type SettlementMetrics interface {
	ObserveRun(outcome string, duration time.Duration)
	AddFixturesScored(count int)
	IncLookupFailure()
}

type noopSettlementMetrics struct{}

func (noopSettlementMetrics) ObserveRun(string, time.Duration) {}
func (noopSettlementMetrics) AddFixturesScored(int)            {}
func (noopSettlementMetrics) IncLookupFailure()                {}
