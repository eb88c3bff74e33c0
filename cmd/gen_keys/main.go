package main

import (
	"fmt"
	"log"

	"murmur/crypto/key25519"
)

func main() {
	// Generate a new identity keypair
	pair, err := key25519.NewPair()
	if err != nil {
		log.Fatalf("Failed to generate identity key: %v", err)
	}

	// Print the private and public key in hex format
	fmt.Printf("PRIVATE: %x\n", pair.Priv[:])
	fmt.Printf("PUBLIC: %x\n", pair.Pub[:])
}
