package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/signal/core"
	"github.com/layer-3/signal/internal/eth"
	"github.com/layer-3/signal/ports"
)

// ConfirmFunc asks the user whether message may be signed.
type ConfirmFunc func(ctx context.Context, message []byte) (bool, error)

// AutoApprove signs everything without asking.
func AutoApprove(context.Context, []byte) (bool, error) { return true, nil }

// KeyWallet is a wallet backed by a local secp256k1 key. Signatures are
// EIP-191 personal messages, as produced by browser wallets.
type KeyWallet struct {
	key     *ecdsa.PrivateKey
	confirm ConfirmFunc
}

// NewKeyWallet creates a wallet for key. A nil key yields a disconnected
// wallet; a nil confirm approves every request.
func NewKeyWallet(key *ecdsa.PrivateKey, confirm ConfirmFunc) *KeyWallet {
	if confirm == nil {
		confirm = AutoApprove
	}
	return &KeyWallet{key: key, confirm: confirm}
}

// LoadKeyWallet builds a wallet from a hex private key or, when that is
// empty, from a key file. With neither set the wallet is disconnected.
func LoadKeyWallet(hexKey, keyFile string, confirm ConfirmFunc) (*KeyWallet, error) {
	switch {
	case hexKey != "":
		key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return NewKeyWallet(key, confirm), nil
	case keyFile != "":
		key, err := crypto.LoadECDSA(keyFile)
		if err != nil {
			return nil, fmt.Errorf("load key file: %w", err)
		}
		return NewKeyWallet(key, confirm), nil
	default:
		return NewKeyWallet(nil, confirm), nil
	}
}

var _ ports.Wallet = (*KeyWallet)(nil)

// Address returns the checksummed address, or "" when disconnected.
func (w *KeyWallet) Address() string {
	if w.key == nil {
		return ""
	}
	return crypto.PubkeyToAddress(w.key.PublicKey).Hex()
}

func (w *KeyWallet) Connection(ctx context.Context) core.WalletConnection {
	if w.key == nil {
		return core.WalletConnection{Status: core.WalletDisconnected}
	}
	return core.WalletConnection{Status: core.WalletConnected, Address: w.Address()}
}

func (w *KeyWallet) SignMessage(ctx context.Context, message []byte) (string, error) {
	if w.key == nil {
		return "", fmt.Errorf("no wallet connected")
	}

	approved, err := w.confirm(ctx, message)
	if err != nil {
		return "", err
	}
	if !approved {
		return "", core.ErrSignatureDeclined
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return eth.SignText(w.key, message)
}
