package common

// Wire objects shared by the relay and the clients. All byte fields travel
// base64-encoded inside JSON, which is Go's default []byte encoding; both
// ends must keep using the same encoding.

// Bundle is the prekey bundle a client publishes.
type Bundle struct {
	PubKey        []byte   `json:"pubKey" validate:"required,len=32"`
	PubSignPreKey []byte   `json:"pubSignPreKey" validate:"required,len=32"`
	PreKeySig     []byte   `json:"preKeySig" validate:"required,len=64"`
	OneTimeKeys   [][]byte `json:"oneTimeKeys" validate:"required,min=1,dive,len=32"`
}

// FetchedBundle is what an initiator receives: the relay pops exactly one
// one-time key per fetch.
type FetchedBundle struct {
	PubSignPreKey []byte `json:"pubSignPreKey"`
	PreKeySig     []byte `json:"preKeySig"`
	OneTimeKey    []byte `json:"oneTimeKey"`
}

// InitialMessage is the single handshake message the relay queues for the
// addressed responder.
type InitialMessage struct {
	PubKey        []byte `json:"pubKey" validate:"required,len=32"`
	PeerKey       []byte `json:"peerKey" validate:"required,len=32"`
	PubSignPreKey []byte `json:"pubSignPreKey" validate:"required,len=32"`
	EphemeralKey  []byte `json:"ephemeralKey" validate:"required,len=32"`
	OneTimeKey    []byte `json:"oneTimeKey" validate:"required,len=32"`
	Header        []byte `json:"header" validate:"required"`
	Payload       []byte `json:"payload" validate:"required"`
}

// SessionCreated is the relay's answer to a submitted initial message.
type SessionCreated struct {
	SessionID string `json:"sessionId"`
}

// Frame is one encrypted message on the live bridge.
type Frame struct {
	Header  []byte `json:"header" validate:"required"`
	Payload []byte `json:"payload" validate:"required"`
}
