package auction

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	intents metric.Int64Counter
	bids    metric.Int64Counter
	sales   metric.Int64Histogram
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	meter := mp.Meter(instrumentationName)

	intents, err := meter.Int64Counter("auction.intents",
		metric.WithDescription("Auction commands handled, by intent and outcome."))
	if err != nil {
		return nil, fmt.Errorf("creating intents counter: %w", err)
	}
	bids, err := meter.Int64Counter("auction.bids",
		metric.WithDescription("Accepted bids."))
	if err != nil {
		return nil, fmt.Errorf("creating bids counter: %w", err)
	}
	sales, err := meter.Int64Histogram("auction.sale.amount",
		metric.WithDescription("Winning bid of each sold player."))
	if err != nil {
		return nil, fmt.Errorf("creating sale histogram: %w", err)
	}
	return &metrics{intents: intents, bids: bids, sales: sales}, nil
}
