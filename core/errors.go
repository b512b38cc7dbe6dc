package core

import "errors"

var (
	ErrNotAuthenticated   = errors.New("session is not authenticated")
	ErrInvalidKeyRequest  = errors.New("invalid key request")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrSignatureDeclined  = errors.New("signature request declined")
	ErrIssuanceCanceled   = errors.New("key issuance canceled")
	ErrIssuanceFailed     = errors.New("key issuance failed")
	ErrUnexpectedStatus   = errors.New("unexpected response status")
	ErrMalformedResponse  = errors.New("malformed response")
	ErrStaleLookup        = errors.New("lookup superseded by a newer address")
	ErrNotFound           = errors.New("not found")
	ErrStoreOperation     = errors.New("store operation failed")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrInvalidAddress     = errors.New("invalid ethereum address")
	ErrPermissionMismatch = errors.New("payload does not match session")
	ErrNotAllowlisted     = errors.New("address is not allowlisted")
	ErrLoginCanceled      = errors.New("login canceled")
	ErrChallengeUsed      = errors.New("challenge already used")
)
