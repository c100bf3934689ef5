package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/perplabs/perp-agent/internal/core/ports"
	"github.com/perplabs/perp-agent/pkg/httputil"
)

const (
	// DefaultSignTimeout leaves room for the user to review and approve the
	// signature in the wallet UI.
	DefaultSignTimeout = 2 * time.Minute
)

var (
	// ErrInvalidBridgeURL ...
	ErrInvalidBridgeURL = errors.New("wallet bridge url must be a valid http(s) url")
	// ErrNullVariant ...
	ErrNullVariant = errors.New("wallet variant must not be null")
)

// provider talks to one wallet variant through the local signing bridge that
// fronts the browser-injected wallets. All variants speak the same bridge
// protocol, nothing here is specific to a single one.
type provider struct {
	variant   string
	bridgeURL string
	client    *httputil.Client
}

// NewWalletProvider returns a ports.WalletProvider bound to the given wallet
// variant behind the bridge.
func NewWalletProvider(
	bridgeURL, variant string, timeout time.Duration,
) (ports.WalletProvider, error) {
	if !strings.HasPrefix(bridgeURL, "http") {
		return nil, ErrInvalidBridgeURL
	}
	if len(variant) <= 0 {
		return nil, ErrNullVariant
	}
	if timeout <= 0 {
		timeout = DefaultSignTimeout
	}

	return &provider{
		variant:   variant,
		bridgeURL: strings.TrimSuffix(bridgeURL, "/"),
		client:    httputil.NewClient(timeout),
	}, nil
}

func (p *provider) Name() string {
	return p.variant
}

func (p *provider) IsEnabled(ctx context.Context) (bool, error) {
	reply := struct {
		Enabled bool `json:"enabled"`
	}{}
	if err := p.get(ctx, "enabled", &reply); err != nil {
		return false, err
	}
	return reply.Enabled, nil
}

func (p *provider) Address(ctx context.Context) (string, error) {
	reply := struct {
		Address      string `json:"address"`
		StakeAddress string `json:"stakeAddress"`
	}{}
	if err := p.get(ctx, "address", &reply); err != nil {
		return "", err
	}
	if len(reply.Address) <= 0 {
		return "", fmt.Errorf("wallet %s returned no address", p.variant)
	}
	return reply.Address, nil
}

func (p *provider) SignTx(
	ctx context.Context, unsignedTxHex string,
) (string, error) {
	body, _ := json.Marshal(map[string]string{"tx": unsignedTxHex})

	url := fmt.Sprintf("%s/%s/sign", p.bridgeURL, p.variant)
	status, resp, err := p.client.NewHTTPRequest(
		ctx, http.MethodPost, url, string(body),
		map[string]string{"Content-Type": "application/json"},
	)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("wallet %s refused to sign: %s", p.variant, resp)
	}

	reply := struct {
		Tx string `json:"tx"`
	}{}
	if err := json.Unmarshal([]byte(resp), &reply); err != nil {
		return "", fmt.Errorf("malformed reply from wallet %s: %v", p.variant, err)
	}
	return reply.Tx, nil
}

func (p *provider) get(ctx context.Context, path string, result interface{}) error {
	url := fmt.Sprintf("%s/%s/%s", p.bridgeURL, p.variant, path)
	status, resp, err := p.client.NewHTTPRequest(ctx, http.MethodGet, url, "", nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("wallet bridge replied with status %d: %s", status, resp)
	}
	return json.Unmarshal([]byte(resp), result)
}
