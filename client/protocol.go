package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"murmur/common"
	"murmur/configs"
	"murmur/crypto/key25519"
	"murmur/protocol/x3dh/alice"
	"murmur/protocol/x3dh/bob"
)

var (
	ErrMalformedWireKey = errors.New("malformed key on the wire")
	ErrUnknownSession   = errors.New("unknown session")
)

// PublishBundle rotates the signed prekey, mints fresh one-time prekeys and
// publishes the resulting bundle to the relay.
func (app *ChatApp) PublishBundle() error {
	pub, err := app.directory.Ring.Rotate(configs.OneTimePrekeyCount)
	if err != nil {
		return fmt.Errorf("failed to rotate prekeys: %w", err)
	}

	oneTime := make([][]byte, 0, len(pub.OneTimeKeys))
	for _, key := range pub.OneTimeKeys {
		oneTime = append(oneTime, append([]byte(nil), key[:]...))
	}
	wire := common.Bundle{
		PubKey:        pub.IdentityKey[:],
		PubSignPreKey: pub.SignedPrekey[:],
		PreKeySig:     pub.SignedPrekeySig,
		OneTimeKeys:   oneTime,
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("failed to marshal bundle: %w", err)
	}

	url := fmt.Sprintf("http://%s%s/%s", configs.ServerAddress, configs.KeysPath, app.userID)
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to publish bundle: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("relay rejected bundle: %s", readErrorBody(resp))
	}
	return nil
}

// FetchBundle retrieves a peer's prekey bundle; the relay pops one one-time
// prekey for this fetch.
func (app *ChatApp) FetchBundle(peer key25519.PublicKey) (*alice.PeerBundle, error) {
	url := fmt.Sprintf("http://%s%s/%x", configs.ServerAddress, configs.KeysPath, peer[:])
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bundle: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay refused bundle fetch: %s", readErrorBody(resp))
	}

	var wire common.FetchedBundle
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}

	spk, ok := key25519.PublicFromBytes(wire.PubSignPreKey)
	if !ok {
		return nil, ErrMalformedWireKey
	}
	opk, ok := key25519.PublicFromBytes(wire.OneTimeKey)
	if !ok {
		return nil, ErrMalformedWireKey
	}
	return &alice.PeerBundle{
		IdentityKey:     peer,
		SignedPrekey:    spk,
		SignedPrekeySig: wire.PreKeySig,
		OneTimePrekey:   opk,
	}, nil
}

// SendInitialMessage runs the initiator handshake against the peer's bundle,
// submits the initial message, and registers the new session under the
// relay-minted session id.
func (app *ChatApp) SendInitialMessage(peer key25519.PublicKey, plaintext []byte) (string, error) {
	bundle, err := app.FetchBundle(peer)
	if err != nil {
		return "", err
	}

	msg, ratchet, err := alice.CreateInitialMessage(app.directory.Identity, bundle, configs.HKDFInfo, plaintext)
	if err != nil {
		return "", fmt.Errorf("failed to perform key agreement: %w", err)
	}

	body, err := json.Marshal(initialMessageToWire(msg))
	if err != nil {
		return "", fmt.Errorf("failed to marshal initial message: %w", err)
	}

	url := fmt.Sprintf("http://%s%s", configs.ServerAddress, configs.MessagesPath)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to submit initial message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("relay rejected initial message: %s", readErrorBody(resp))
	}

	var created common.SessionCreated
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode session id: %w", err)
	}

	app.directory.Register(created.SessionID, ratchet)
	return created.SessionID, nil
}

// ReceiveInitialMessage fetches the queued initial message for a session id,
// runs the responder handshake and registers the session. The decrypted first
// plaintext is returned to the caller.
func (app *ChatApp) ReceiveInitialMessage(sid string) ([]byte, error) {
	url := fmt.Sprintf("http://%s%s/%s", configs.ServerAddress, configs.MessagesPath, sid)
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch initial message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay has no message for session %s: %s", sid, readErrorBody(resp))
	}

	var wire common.InitialMessage
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode initial message: %w", err)
	}
	msg, err := wireToInitialMessage(&wire)
	if err != nil {
		return nil, err
	}

	plaintext, ratchet, err := bob.AcceptInitialMessage(app.directory.Ring, msg, configs.HKDFInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to accept initial message: %w", err)
	}

	app.directory.Register(sid, ratchet)
	app.peerKey = msg.IdentityKey
	return plaintext, nil
}

// EncryptFrame encrypts one outgoing plaintext on the session.
func (app *ChatApp) EncryptFrame(sid string, plaintext []byte) (*common.Frame, error) {
	app.sessionLock.Lock()
	defer app.sessionLock.Unlock()

	session, ok := app.directory.Session(sid)
	if !ok {
		return nil, ErrUnknownSession
	}
	header, payload, err := session.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}
	return &common.Frame{Header: header, Payload: payload}, nil
}

// DecryptFrame decrypts one incoming frame on the session.
func (app *ChatApp) DecryptFrame(sid string, frame *common.Frame) ([]byte, error) {
	app.sessionLock.Lock()
	defer app.sessionLock.Unlock()

	session, ok := app.directory.Session(sid)
	if !ok {
		return nil, ErrUnknownSession
	}
	return session.Decrypt(frame.Header, frame.Payload)
}

func initialMessageToWire(msg *alice.InitialMessage) *common.InitialMessage {
	return &common.InitialMessage{
		PubKey:        msg.IdentityKey[:],
		PeerKey:       msg.PeerKey[:],
		PubSignPreKey: msg.SignedPrekey[:],
		EphemeralKey:  msg.EphemeralKey[:],
		OneTimeKey:    msg.OneTimeKey[:],
		Header:        msg.Header,
		Payload:       msg.Payload,
	}
}

func wireToInitialMessage(wire *common.InitialMessage) (*alice.InitialMessage, error) {
	pubKey, ok1 := key25519.PublicFromBytes(wire.PubKey)
	peerKey, ok2 := key25519.PublicFromBytes(wire.PeerKey)
	spk, ok3 := key25519.PublicFromBytes(wire.PubSignPreKey)
	eph, ok4 := key25519.PublicFromBytes(wire.EphemeralKey)
	opk, ok5 := key25519.PublicFromBytes(wire.OneTimeKey)
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return nil, ErrMalformedWireKey
	}
	return &alice.InitialMessage{
		IdentityKey:  pubKey,
		PeerKey:      peerKey,
		SignedPrekey: spk,
		EphemeralKey: eph,
		OneTimeKey:   opk,
		Header:       wire.Header,
		Payload:      wire.Payload,
	}, nil
}

func readErrorBody(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512))
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		return resp.Status
	}
	return string(bytes.TrimSpace(body))
}
