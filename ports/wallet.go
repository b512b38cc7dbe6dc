package ports

import (
	"context"

	"github.com/layer-3/signal/core"
)

// WalletProbe reports whether a wallet is connected and its address.
type WalletProbe interface {
	Connection(ctx context.Context) core.WalletConnection
}

// Signer signs arbitrary messages with the wallet key. It blocks until the
// user approves and returns core.ErrSignatureDeclined when they refuse.
type Signer interface {
	SignMessage(ctx context.Context, message []byte) (string, error)
}

// Wallet is the external wallet capability.
type Wallet interface {
	WalletProbe
	Signer
}
