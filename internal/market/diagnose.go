package market

import (
	"context"
	"fmt"
	"time"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"

	"github.com/helios-trade/helios/internal/broker"
	"github.com/helios-trade/helios/internal/logger"
	"github.com/helios-trade/helios/internal/types"
)

// diagnosticTimeframes is the grid of timeframes probed per feed.
var diagnosticTimeframes = []types.Timeframe{
	types.Timeframe1Min,
	types.Timeframe5Min,
	types.Timeframe15Min,
	types.Timeframe1H,
	types.Timeframe1D,
}

// diagnosticLimit is the bar count requested per probe.
const diagnosticLimit = 10

// FeedResult is the outcome of probing one feed/timeframe pair.
type FeedResult struct {
	Feed      string          `json:"feed"`
	Timeframe types.Timeframe `json:"timeframe"`
	OK        bool            `json:"ok"`
	BarCount  int             `json:"bar_count"`
	Elapsed   time.Duration   `json:"elapsed"`
	Error     string          `json:"error,omitempty"`
}

// DiagnosticReport summarizes feed availability for one symbol.
type DiagnosticReport struct {
	Symbol      string       `json:"symbol"`
	Results     []FeedResult `json:"results"`
	WorkingFeed string       `json:"working_feed,omitempty"`
}

// DiagnoseFeeds probes every feed and timeframe combination against the
// source and reports which ones deliver bars. Intended for operator
// troubleshooting when a symbol keeps failing in the main loop.
func DiagnoseFeeds(ctx context.Context, source BarSource, symbol string, feeds []broker.Feed, log *logger.Logger) DiagnosticReport {
	if len(feeds) == 0 {
		feeds = defaultFeeds
	}

	log.Event(logger.EventDiagnosticTestStart, map[string]any{
		"symbol": symbol,
		"source": source.Name(),
		"feeds":  len(feeds),
	})

	bar := progressbar.NewOptions(len(feeds)*len(diagnosticTimeframes),
		progressbar.OptionSetDescription(fmt.Sprintf("Probing %s", symbol)),
		progressbar.OptionShowCount(),
	)

	report := DiagnosticReport{
		Symbol:      symbol,
		Results:     make([]FeedResult, 0, len(feeds)*len(diagnosticTimeframes)),
		WorkingFeed: "",
	}

	for _, feed := range feeds {
		for _, tf := range diagnosticTimeframes {
			report.Results = append(report.Results, probeFeed(ctx, source, symbol, feed, tf))
			//nolint:errcheck // progress display only
			bar.Add(1)
		}
	}

	//nolint:errcheck // progress display only
	bar.Finish()

	working := 0

	for _, result := range report.Results {
		if result.OK {
			working++

			if report.WorkingFeed == "" {
				report.WorkingFeed = result.Feed
			}
		}
	}

	log.Event(logger.EventDiagnosticTestResults, map[string]any{
		"symbol":       symbol,
		"total_probes": len(report.Results),
		"working":      working,
		"working_feed": report.WorkingFeed,
	})

	return report
}

func probeFeed(ctx context.Context, source BarSource, symbol string, feed broker.Feed, tf types.Timeframe) FeedResult {
	start := time.Now()

	raw, err := source.GetBars(ctx, broker.BarRequest{
		Symbol:    symbol,
		Timeframe: tf,
		Limit:     diagnosticLimit,
		Feed:      feed,
		End:       optional.None[time.Time](),
	})

	result := FeedResult{
		Feed:      feed.Name(),
		Timeframe: tf,
		OK:        err == nil && len(raw) > 0,
		BarCount:  len(raw),
		Elapsed:   time.Since(start),
		Error:     "",
	}
	if err != nil {
		result.Error = err.Error()
	}

	return result
}
