package vault

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
)

// Client wraps HashiCorp Vault API
type Client struct {
	client       *api.Client
	transitMount string
}

// Config holds Vault configuration
type Config struct {
	Address      string
	Token        string
	TransitMount string
}

// NewClient creates a new Vault client and makes sure the transit engine is mounted
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	config := api.DefaultConfig()
	config.Address = cfg.Address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(cfg.Token)

	vaultClient := &Client{
		client:       client,
		transitMount: cfg.TransitMount,
	}

	if err := vaultClient.initTransitEngine(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize transit engine: %w", err)
	}

	return vaultClient, nil
}

// initTransitEngine enables the transit secrets engine if not already enabled
func (c *Client) initTransitEngine(ctx context.Context) error {
	mounts, err := c.client.Sys().ListMountsWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to list mounts: %w", err)
	}

	if _, exists := mounts[c.transitMount+"/"]; exists {
		return nil
	}

	err = c.client.Sys().MountWithContext(ctx, c.transitMount, &api.MountInput{
		Type:        "transit",
		Description: "Transit encryption for the thesis portal",
	})
	if err != nil {
		return fmt.Errorf("failed to mount transit engine: %w", err)
	}

	return nil
}

// CreateDerivedKey creates a transit key whose encryption key is derived from
// the context passed with every operation. Creating an existing key is a no-op.
func (c *Client) CreateDerivedKey(ctx context.Context, keyName string) error {
	path := fmt.Sprintf("%s/keys/%s", c.transitMount, keyName)

	data := map[string]interface{}{
		"type":       "aes256-gcm96",
		"exportable": false,
		"derived":    true,
	}

	if _, err := c.client.Logical().WriteWithContext(ctx, path, data); err != nil {
		return fmt.Errorf("failed to create key %s: %w", keyName, err)
	}

	return nil
}

// Encrypt encrypts data using Vault's transit engine. aad is bound to the
// ciphertext and must be passed unchanged to Decrypt.
func (c *Client) Encrypt(ctx context.Context, keyName string, plaintext []byte, aad map[string]string) (string, error) {
	path := fmt.Sprintf("%s/encrypt/%s", c.transitMount, keyName)

	data := map[string]interface{}{
		"plaintext": base64.StdEncoding.EncodeToString(plaintext),
	}
	if len(aad) > 0 {
		data["context"] = base64.StdEncoding.EncodeToString([]byte(encodeContext(aad)))
	}

	secret, err := c.client.Logical().WriteWithContext(ctx, path, data)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt: %w", err)
	}
	if secret == nil {
		return "", errors.New("empty encrypt response")
	}

	ciphertext, ok := secret.Data["ciphertext"].(string)
	if !ok {
		return "", fmt.Errorf("invalid ciphertext response")
	}

	return ciphertext, nil
}

// Decrypt decrypts data using Vault's transit engine
func (c *Client) Decrypt(ctx context.Context, keyName string, ciphertext string, aad map[string]string) ([]byte, error) {
	path := fmt.Sprintf("%s/decrypt/%s", c.transitMount, keyName)

	data := map[string]interface{}{
		"ciphertext": ciphertext,
	}
	if len(aad) > 0 {
		data["context"] = base64.StdEncoding.EncodeToString([]byte(encodeContext(aad)))
	}

	secret, err := c.client.Logical().WriteWithContext(ctx, path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	if secret == nil {
		return nil, errors.New("empty decrypt response")
	}

	encodedPlaintext, ok := secret.Data["plaintext"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid plaintext response")
	}

	plaintext, err := base64.StdEncoding.DecodeString(encodedPlaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode plaintext: %w", err)
	}

	return plaintext, nil
}

// Health checks Vault health status
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}

	if !health.Initialized {
		return fmt.Errorf("vault is not initialized")
	}

	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}

	return nil
}

// encodeContext serializes the context map in key order
func encodeContext(aad map[string]string) string {
	keys := make([]string, 0, len(aad))
	for k := range aad {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s;", k, aad[k])
	}
	return b.String()
}
