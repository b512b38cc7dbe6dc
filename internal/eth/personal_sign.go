// Package eth implements EIP-191 "personal_sign" signing and recovery, the
// scheme browser wallets use for signMessage.
package eth

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/signal/core"
)

// SignText signs message with the EIP-191 prefix and returns the 65 byte
// signature hex encoded, with V in the 27/28 form wallets produce.
func SignText(key *ecdsa.PrivateKey, message []byte) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash(message), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// RecoverText returns the address that produced signature over message.
func RecoverText(message []byte, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", core.ErrInvalidSignature)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes: %w", crypto.SignatureLength, core.ErrInvalidSignature)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", core.ErrInvalidSignature)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyText checks that signature over message was made by address.
func VerifyText(message []byte, signature, address string) error {
	if !common.IsHexAddress(address) {
		return core.ErrInvalidAddress
	}

	signer, err := RecoverText(message, signature)
	if err != nil {
		return err
	}
	if signer != common.HexToAddress(address) {
		return core.ErrInvalidSignature
	}
	return nil
}
