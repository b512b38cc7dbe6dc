package core

// AuthState is the derived authentication state of the client.
type AuthState string

const (
	AuthStateLoading        AuthState = "loading"
	AuthStateLoadingAlt     AuthState = "loading-alt"
	AuthStateNoWallet       AuthState = "no-wallet"
	AuthStateNotWhitelisted AuthState = "not-whitelisted"
	AuthStateNoToken        AuthState = "no-token"
	AuthStateAuthenticated  AuthState = "authenticated"
)

// WalletStatus is the tri-state reported by a wallet probe.
type WalletStatus string

const (
	WalletLoading      WalletStatus = "loading"
	WalletConnected    WalletStatus = "connected"
	WalletDisconnected WalletStatus = "disconnected"
)

// WalletConnection is a read-only snapshot of the wallet probe.
type WalletConnection struct {
	Status  WalletStatus
	Address string // set only when Status is WalletConnected
}

// Connected reports whether the wallet resolved to a concrete address.
func (w WalletConnection) Connected() bool {
	return w.Status == WalletConnected && w.Address != ""
}

// DeriveAuthState combines the wallet connection, allow-list membership and
// the persisted session token into a single state. The first matching rule
// wins. It never performs I/O.
func DeriveAuthState(wallet WalletConnection, allowlisted bool, token string) AuthState {
	switch {
	case wallet.Status == WalletLoading && token != "":
		// a token exists, so the consumer can show "resuming session"
		return AuthStateLoadingAlt
	case wallet.Status == WalletLoading:
		return AuthStateLoading
	case !wallet.Connected():
		return AuthStateNoWallet
	case !allowlisted:
		return AuthStateNotWhitelisted
	case token == "":
		return AuthStateNoToken
	default:
		return AuthStateAuthenticated
	}
}

// Loading reports whether the state is one of the two loading variants.
func (s AuthState) Loading() bool {
	return s == AuthStateLoading || s == AuthStateLoadingAlt
}

func (s AuthState) String() string {
	return string(s)
}
