package models

// -----------------------------------------------------------------------------
// Connection state machine
// -----------------------------------------------------------------------------

// ConnectionState is the lifecycle state of one feed client.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// MarshalJSON renders the state as its lowercase name.
func (s ConnectionState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// -----------------------------------------------------------------------------

// MFeedStatus is the observable snapshot of one feed client.
type MFeedStatus struct {
	State             ConnectionState `json:"state"`
	Products          []string        `json:"products"`
	ReconnectAttempts int             `json:"reconnect_attempts"`
	PriceSubscribers  int             `json:"price_subscribers"`
	OHLCVSubscribers  int             `json:"ohlcv_subscribers"`
	LastMessageAt     int64           `json:"last_message_at"` // unix millis, 0 if none
	MessagesReceived  int64           `json:"messages_received"`
	FramesDropped     int64           `json:"frames_dropped"`
}
