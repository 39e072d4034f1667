package domain

// EventType identifies the type of a session event.
type EventType string

const (
	// EventTypePlayerJoined records a fresh player joining the session.
	EventTypePlayerJoined EventType = "PLAYER_JOINED"
	// EventTypeEnvelopeOpened records one envelope being opened.
	EventTypeEnvelopeOpened EventType = "ENVELOPE_OPENED"
	// EventTypeGameReset records the session being replaced wholesale.
	EventTypeGameReset EventType = "GAME_RESET"
	// EventTypeGameStatus is an on-demand status push to one subscriber.
	EventTypeGameStatus EventType = "GAME_STATUS"
)

// Event captures one committed session mutation for subscriber fan-out.
// Events are only produced after the mutation has been persisted.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"data"`
}

// PlayerJoined is the payload for EventTypePlayerJoined.
type PlayerJoined struct {
	PlayerID       string `json:"playerId"`
	PlayerName     string `json:"playerName"`
	CurrentPlayers int    `json:"currentPlayers"`
}

// EnvelopeOpened is the payload for EventTypeEnvelopeOpened.
type EnvelopeOpened struct {
	PlayerID           string `json:"playerId"`
	PlayerName         string `json:"playerName"`
	Amount             int64  `json:"amount"`
	RemainingMoney     int64  `json:"remainingMoney"`
	RemainingEnvelopes int    `json:"remainingEnvelopes"`
	IsGameFinished     bool   `json:"isGameFinished"`
}

// GameReset is the payload for EventTypeGameReset: the full fresh state.
type GameReset struct {
	Status Status `json:"status"`
}

// IsValid reports whether the event type is supported.
func (t EventType) IsValid() bool {
	switch t {
	case EventTypePlayerJoined,
		EventTypeEnvelopeOpened,
		EventTypeGameReset,
		EventTypeGameStatus:
		return true
	default:
		return false
	}
}
