package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/jroimartin/gocui"
	"github.com/sirupsen/logrus"

	"murmur/client"
	"murmur/crypto/key25519"
)

var logger = logrus.New()

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run main.go <userID>")
		return
	}
	userID := os.Args[1]

	switch userID {
	case "alice":
		godotenv.Load(".env.alice")
	case "bob":
		godotenv.Load(".env.bob")
	default:
		godotenv.Load(".env")
	}

	identity, err := loadIdentity(os.Getenv("IDENTITY_KEY"))
	if err != nil {
		fmt.Printf("Failed to load IDENTITY_KEY: %v\n", err)
		return
	}

	chatApp := client.NewChatApp(identity)
	logger.Infof("Identity key: %s", chatApp.UserID())

	if err := chatApp.InitGui(); err != nil {
		logger.Fatalf("Error initializing gocui interface: %v", err)
	}

	if err := chatApp.PublishBundle(); err != nil {
		logger.Fatalf("Error publishing bundle: %v", err)
	}

	if err := chatApp.PromptPeer(); err != nil {
		logger.Fatalf("Error prompting peer: %v", err)
	}

	if err := chatApp.Gui.MainLoop(); err != nil && !errors.Is(err, gocui.ErrQuit) {
		logger.Fatalf("Error in gocui main loop: %v", err)
	}

	logger.Info("Application exited.")
}

// loadIdentity decodes the identity private key from the environment, or
// generates a fresh pair when none is configured.
func loadIdentity(hexStr string) (key25519.Pair, error) {
	if hexStr == "" {
		return key25519.NewPair()
	}

	decoded, err := hex.DecodeString(hexStr)
	if err != nil {
		return key25519.Pair{}, err
	}
	priv, ok := key25519.PrivateFromBytes(decoded)
	if !ok {
		return key25519.Pair{}, fmt.Errorf("decoded key is not %d bytes long", key25519.KeySize)
	}
	pub, err := priv.Public()
	if err != nil {
		return key25519.Pair{}, err
	}
	return key25519.Pair{Priv: priv, Pub: pub}, nil
}
