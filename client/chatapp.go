package client

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jroimartin/gocui"
	"github.com/sirupsen/logrus"

	"murmur/common"
	"murmur/configs"
	"murmur/crypto/key25519"
	"murmur/protocol/fingerprint"
)

var logger = logrus.New()

type ChatApp struct {
	Gui         *gocui.Gui
	directory   *Directory
	userID      string
	sessionID   string
	peerKey     key25519.PublicKey
	messages    []string
	wsConn      *websocket.Conn
	messageLock sync.Mutex
	// sessionLock serializes ratchet operations; encrypt and decrypt on one
	// session must never run concurrently.
	sessionLock sync.Mutex
	wg          sync.WaitGroup
}

// NewChatApp initializes a new ChatApp around a long-term identity pair. The
// hex-encoded identity public doubles as the user id on the relay.
func NewChatApp(identity key25519.Pair) *ChatApp {
	return &ChatApp{
		directory: NewDirectory(identity),
		userID:    fmt.Sprintf("%x", identity.Pub[:]),
	}
}

// UserID is the hex-encoded identity public this client registers under.
func (app *ChatApp) UserID() string {
	return app.userID
}

// StartSession runs the initiator side: handshake through the relay, then
// join the live bridge for the freshly minted session.
func (app *ChatApp) StartSession(peer key25519.PublicKey, greeting []byte) error {
	sid, err := app.SendInitialMessage(peer, greeting)
	if err != nil {
		return err
	}
	app.sessionID = sid
	app.peerKey = peer
	app.appendMessage(fmt.Sprintf("[session] %s (share this id with your peer)", sid))
	app.appendMessage("[You] " + string(greeting))
	return app.connectToBridge(sid)
}

// JoinSession runs the responder side: accept the queued initial message,
// then join the live bridge.
func (app *ChatApp) JoinSession(sid string) error {
	plaintext, err := app.ReceiveInitialMessage(sid)
	if err != nil {
		return err
	}
	app.sessionID = sid
	app.appendMessage("[Peer] " + string(plaintext))
	return app.connectToBridge(sid)
}

// connectToBridge dials the relay's live bridge and waits for the pairing
// acknowledgement before any frame is exchanged.
func (app *ChatApp) connectToBridge(sid string) error {
	serverUrl := fmt.Sprintf("ws://%s%s?session=%s", configs.ServerAddress, configs.WebSocketPath, sid)
	conn, _, err := websocket.DefaultDialer.Dial(serverUrl, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to WebSocket server: %w", err)
	}

	_, ack, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to read pairing acknowledgement: %w", err)
	}
	if string(ack) != "OK" {
		conn.Close()
		return fmt.Errorf("unexpected pairing acknowledgement %q", ack)
	}
	app.wsConn = conn

	if number, err := fingerprint.SafetyNumber(
		app.directory.Identity.Pub, app.peerKey,
		app.directory.Identity.Pub[:], app.peerKey[:],
	); err == nil {
		app.appendMessage("[safety number] " + number)
	}

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.listenForFrames()
	}()
	return nil
}

// listenForFrames reads frames off the live bridge. Decrypt failures are
// reported and the loop keeps listening; the session stays usable for the
// next legitimate frame.
func (app *ChatApp) listenForFrames() {
	for {
		_, raw, err := app.wsConn.ReadMessage()
		if err != nil {
			logger.Errorf("Error reading message: %v", err)
			return
		}

		var frame common.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			logger.Errorf("Error unmarshalling frame: %v", err)
			continue
		}

		plaintext, err := app.DecryptFrame(app.sessionID, &frame)
		if err != nil {
			logger.Errorf("Error decrypting frame on session %s: %v", app.sessionID, err)
			app.appendMessage("[undecryptable frame dropped]")
			continue
		}
		app.appendMessage("[Peer] " + string(plaintext))
	}
}

// sendText encrypts one message on the session and sends it over the bridge.
func (app *ChatApp) sendText(text string) error {
	if app.wsConn == nil {
		return fmt.Errorf("WebSocket connection not established")
	}

	frame, err := app.EncryptFrame(app.sessionID, []byte(text))
	if err != nil {
		return fmt.Errorf("error encrypting message: %w", err)
	}
	raw, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal frame to JSON: %w", err)
	}
	if err := app.wsConn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (app *ChatApp) appendMessage(line string) {
	app.messageLock.Lock()
	app.messages = append(app.messages, line)
	app.messageLock.Unlock()

	if app.Gui != nil {
		app.Gui.Update(func(g *gocui.Gui) error {
			return app.UpdateMessages(g)
		})
	}
}

// quit handles quitting the application
func (app *ChatApp) quit(_ *gocui.Gui, _ *gocui.View) error {
	logger.Info("Shutting down gracefully...")
	if app.wsConn != nil {
		app.wsConn.Close()
	}
	app.wg.Wait()
	return gocui.ErrQuit
}
