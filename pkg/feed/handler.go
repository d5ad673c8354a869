package feed

import (
	"encoding/json"

	"go.uber.org/zap"
)

// MakeMessageHandler returns a function that decodes state messages and
// passes them to onState. Non-state and malformed messages are logged and skipped.
func MakeMessageHandler(logger *zap.Logger, onState func(StateMessage)) func(msg []byte) {
	return func(msg []byte) {
		// Extract type for early filtering
		var meta struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &meta); err != nil {
			logger.Warn("failed to extract message type", zap.Error(err))
			return
		}
		if meta.Type != TypeState {
			return
		}

		var parsed StateMessage
		if err := json.Unmarshal(msg, &parsed); err != nil {
			logger.Warn("failed to parse state payload", zap.Error(err))
			return
		}
		onState(parsed)
	}
}

// LogState renders a state message to the logger: the watchlist first,
// then up to top coins of the full list.
func LogState(logger *zap.Logger, top int) func(StateMessage) {
	return func(s StateMessage) {
		if s.LastError != "" {
			logger.Warn("coinwatch reported an error", zap.String("error", s.LastError))
		}
		if s.IsLoading {
			logger.Debug("refresh in progress")
			return
		}

		for _, c := range s.WatchedCoins {
			logger.Info("watched",
				zap.String("symbol", c.Symbol),
				zap.String("price", c.FormattedPrice),
				zap.String("24h", c.FormattedPriceChange),
			)
		}

		for i, c := range s.AllCoins {
			if i >= top {
				break
			}
			logger.Info("market",
				zap.Int("rank", i+1),
				zap.String("symbol", c.Symbol),
				zap.String("price", c.FormattedPrice),
				zap.String("24h", c.FormattedPriceChange),
				zap.Bool("watched", c.Watched),
			)
		}
	}
}
