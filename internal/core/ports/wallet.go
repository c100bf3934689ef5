package ports

import "context"

// WalletProvider is a capability reference bound to exactly one wallet
// variant. Implementations are not guaranteed re-entrant: callers must
// serialize concurrent signing requests against the same provider.
type WalletProvider interface {
	// Name returns the wallet variant name, eg. "eternl" or "vespr".
	Name() string
	// IsEnabled probes whether the provider is currently able to sign.
	IsEnabled(ctx context.Context) (bool, error)
	// Address returns the payment address of the active account.
	Address(ctx context.Context) (string, error)
	// SignTx signs the given CBOR-encoded unsigned transaction and returns
	// the signed envelope, which must reference the same transaction body.
	SignTx(ctx context.Context, unsignedTxHex string) (string, error)
}
