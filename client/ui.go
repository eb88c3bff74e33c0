package client

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/jroimartin/gocui"

	"murmur/crypto/key25519"
)

// InitGui initializes the gocui screen
func (app *ChatApp) InitGui() error {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return fmt.Errorf("failed to initialize gocui: %w", err)
	}
	app.Gui = g
	g.SetManagerFunc(app.layout)

	return nil
}

// PromptPeer asks for either a peer identity key (hex, to initiate) or a
// session id (to join) and switches to the chat layout.
func (app *ChatApp) PromptPeer() error {
	return app.Gui.SetKeybinding("prompt", gocui.KeyEnter, gocui.ModNone, func(g *gocui.Gui, v *gocui.View) error {
		input := strings.TrimSpace(v.Buffer())
		if input == "" {
			return nil
		}

		if peer, ok := parsePeerKey(input); ok {
			if err := app.StartSession(peer, []byte("hello")); err != nil {
				logger.Fatalf("Error starting session: %v", err)
			}
		} else {
			if err := app.JoinSession(input); err != nil {
				logger.Fatalf("Error joining session: %v", err)
			}
		}

		g.DeleteView("prompt")
		g.SetManagerFunc(app.layout)
		g.SetCurrentView("input")

		if err := app.Gui.SetKeybinding("input", gocui.KeyEnter, gocui.ModNone, app.SendMessageHandler); err != nil {
			logger.Fatalf("Error setting keybinding for input: %v", err)
		}
		return nil
	})
}

// UpdateMessages updates the message view
func (app *ChatApp) UpdateMessages(g *gocui.Gui) error {
	v, err := g.View("messages")
	if err != nil {
		return err
	}
	v.Clear()
	app.messageLock.Lock()
	defer app.messageLock.Unlock()
	for _, msg := range app.messages {
		fmt.Fprintln(v, msg)
	}
	return nil
}

// SendMessageHandler handles sending messages on Enter press
func (app *ChatApp) SendMessageHandler(g *gocui.Gui, v *gocui.View) error {
	message := strings.TrimSpace(v.Buffer())
	if message != "" {
		if err := app.sendText(message); err != nil {
			logger.Errorf("Error sending message: %v", err)
		}

		app.appendMessage("[You] " + message)
		v.Clear()
		v.SetCursor(0, 0)
		app.UpdateMessages(g)
	}
	return nil
}

// Layout function for the UI
func (app *ChatApp) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if app.sessionID == "" {
		if v, err := g.SetView("prompt", maxX/4, maxY/4, 3*maxX/4, maxY/2); err != nil {
			if !errors.Is(err, gocui.ErrUnknownView) {
				return err
			}
			v.Title = "Peer identity key (hex) or session id"
			v.Editable = true
			v.Wrap = true
			g.SetCurrentView("prompt")
		}
		return nil
	}

	if v, err := g.SetView("messages", 0, 0, maxX-1, maxY-5); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "Session " + app.sessionID
		v.Autoscroll = true
		v.Wrap = true
		app.UpdateMessages(g)
	}

	if v, err := g.SetView("input", 0, maxY-4, maxX-1, maxY-2); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "Type a message"
		v.Editable = true
		v.Wrap = true
		g.SetCurrentView("input")
	}

	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, app.quit); err != nil {
		return err
	}

	return nil
}

func parsePeerKey(input string) (key25519.PublicKey, bool) {
	if len(input) != 2*key25519.KeySize {
		return key25519.PublicKey{}, false
	}
	decoded, err := hex.DecodeString(input)
	if err != nil {
		return key25519.PublicKey{}, false
	}
	return key25519.PublicFromBytes(decoded)
}
