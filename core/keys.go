package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ActionCreateKey is the action name signed for key creation.
const ActionCreateKey = "CREATE_KEY"

// KeyRequest is what the user asks for when creating an API key.
type KeyRequest struct {
	Permissions string
	Expires     bool
	ExpiresIn   string
}

// DefaultKeyRequest returns the values a key creation form starts with.
func DefaultKeyRequest() KeyRequest {
	return KeyRequest{
		Permissions: "-1",
		Expires:     true,
		ExpiresIn:   "10h",
	}
}

// Validate checks that the request can be turned into a payload.
func (r KeyRequest) Validate() error {
	if r.Permissions == "" {
		return fmt.Errorf("%w: permissions must not be empty", ErrInvalidKeyRequest)
	}
	if r.Expires && r.ExpiresIn == "" {
		return fmt.Errorf("%w: expiry requested without a duration", ErrInvalidKeyRequest)
	}
	return nil
}

// KeyData is the user-controlled part of a key payload. ExpiresIn is
// omitted entirely when the key never expires.
type KeyData struct {
	Permissions string `json:"permissions"`
	ExpiresIn   string `json:"expiresIn,omitempty"`
}

// KeyPayload is the document the wallet signs. Field order is the wire
// order and must not change: the server re-serializes it to verify.
type KeyPayload struct {
	Action     string  `json:"action"`
	OwnerID    string  `json:"owner_id"`
	InstanceID string  `json:"instance_id"`
	Data       KeyData `json:"data"`
}

// NewKeyPayload builds the CREATE_KEY payload for the session in claims.
func NewKeyPayload(claims *SessionClaims, req KeyRequest) (KeyPayload, error) {
	if err := req.Validate(); err != nil {
		return KeyPayload{}, err
	}

	data := KeyData{Permissions: req.Permissions}
	if req.Expires {
		data.ExpiresIn = req.ExpiresIn
	}

	return KeyPayload{
		Action:     ActionCreateKey,
		OwnerID:    claims.OwnerID,
		InstanceID: claims.InstanceID,
		Data:       data,
	}, nil
}

// CanonicalMessage renders the payload as two-space indented JSON without
// HTML escaping. The output is deterministic for equal payloads.
func (p KeyPayload) CanonicalMessage() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// SignedKeyRequest is the body of POST /api/keys.
type SignedKeyRequest struct {
	Message   string     `json:"message"`
	Payload   KeyPayload `json:"payload"`
	Signature string     `json:"signature"`
}

// IssuedKey is the server-side record of an API key. Only the hash of the
// secret is kept.
type IssuedKey struct {
	ID          string     `json:"id"`
	Hash        string     `json:"hash"`
	OwnerID     string     `json:"owner_id"`
	InstanceID  string     `json:"instance_id"`
	Permissions string     `json:"permissions"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ParseExpiresIn converts an expiresIn value such as "10h", "30m", "7d" or
// "2w" to a duration. An empty value means the key never expires and
// yields zero.
func ParseExpiresIn(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	var unit time.Duration
	switch {
	case strings.HasSuffix(s, "d"):
		unit = 24 * time.Hour
	case strings.HasSuffix(s, "w"):
		unit = 7 * 24 * time.Hour
	}
	if unit != 0 {
		n, err := strconv.ParseFloat(strings.TrimSpace(s[:len(s)-1]), 64)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%w: bad expiresIn %q", ErrInvalidKeyRequest, s)
		}
		return time.Duration(n * float64(unit)), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: bad expiresIn %q", ErrInvalidKeyRequest, s)
	}
	return d, nil
}
