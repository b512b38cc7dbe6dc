package core

import (
	"fmt"
	"time"
)

// Challenge is a login nonce bound to a wallet address. The server accepts
// each challenge once.
type Challenge struct {
	ID        string
	Address   string
	Nonce     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Message is the text the wallet signs to answer the challenge. It is
// rebuilt from the verified challenge on the server, so it must depend on
// the challenge fields only.
func (c *Challenge) Message() []byte {
	return []byte(fmt.Sprintf(
		"Sign in to Signal\n\nAddress: %s\nNonce: %s\nIssued At: %s",
		c.Address,
		c.Nonce,
		c.IssuedAt.UTC().Format(time.RFC3339),
	))
}
