//go:build ignore

// Generates the ES256 signing key used for session tokens.
//
//	go run scripts/generate-jwt-keys.go -out jwt-private-key.pem
package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"os"
	"strings"
)

func main() {
	out := flag.String("out", "", "also write the PEM key to this file")
	flag.Parse()

	// Generate ECDSA P-256 key pair
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate key: %v\n", err)
		os.Exit(1)
	}

	privateKeyBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal private key: %v\n", err)
		os.Exit(1)
	}
	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "EC PRIVATE KEY",
		Bytes: privateKeyBytes,
	})

	// godotenv expands \n inside double quoted values
	singleLine := strings.ReplaceAll(strings.TrimSpace(string(privateKeyPEM)), "\n", `\n`)
	fmt.Println("Add this line to your .env file:")
	fmt.Printf("JWT_SECRET=\"%s\"\n", singleLine)

	if *out == "" {
		return
	}
	if err := os.WriteFile(*out, privateKeyPEM, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write private key file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Private key saved to: %s\n", *out)
}
