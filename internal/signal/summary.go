package signal

import (
	"time"

	"github.com/psam21/btct/models"
)

// Summary aggregates a batch of signals into counts and statistics.
type Summary struct {
	TotalSignals           int                            `json:"total_signals"`
	BuySignals             int                            `json:"buy_signals"`
	SellSignals            int                            `json:"sell_signals"`
	AvgConfidence          float64                        `json:"avg_confidence"`
	ConfidenceDistribution map[models.ConfidenceLevel]int `json:"confidence_distribution"`
	LatestSignal           time.Time                      `json:"latest_signal,omitempty"`
}

// Summarize computes summary statistics for a list of signals. An empty
// input yields zero counts, a 0.0 average and an empty distribution.
func Summarize(signals []*models.Signal) Summary {
	summary := Summary{
		ConfidenceDistribution: make(map[models.ConfidenceLevel]int),
	}

	if len(signals) == 0 {
		return summary
	}

	totalConfidence := 0.0
	for _, sig := range signals {
		summary.TotalSignals++
		switch sig.Type {
		case models.SignalGoLong:
			summary.BuySignals++
		case models.SignalGoShort:
			summary.SellSignals++
		}
		totalConfidence += sig.Confidence
		summary.ConfidenceDistribution[sig.ConfidenceLevel]++
	}

	summary.AvgConfidence = totalConfidence / float64(len(signals))
	summary.LatestSignal = signals[len(signals)-1].Timestamp
	return summary
}
