package interfaces

import "market-rotator/src/models"

// -----------------------------------------------------------------------------
// IMarketFeed is the queryable surface of the streaming feed client as seen by
// downstream collaborators. Connection churn is invisible behind it.
// -----------------------------------------------------------------------------

type IMarketFeed interface {

	// Status returns the observable connection snapshot.
	Status() models.MFeedStatus

	// -----------------------------------------------------------------------------

	// LatestPrice returns the last ticker snapshot for a symbol, if any.
	LatestPrice(symbol string) (models.MPriceUpdate, bool)

	// -----------------------------------------------------------------------------

	// HistoricalOHLCV returns up to limit most recent bars for a symbol and
	// timeframe, oldest first.
	HistoricalOHLCV(symbol string, tf models.Timeframe, limit int) []models.MOHLCVBar
}
