package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// TradingEndpointKey is the base url of the external trading API
	TradingEndpointKey = "TRADING_ENDPOINT"
	// TradingApiKeyKey is the bearer token used to authenticate against the trading API
	TradingApiKeyKey = "TRADING_API_KEY"
	// SubmitEndpointKey is the base url of the network submission endpoint
	SubmitEndpointKey = "SUBMIT_ENDPOINT"
	// WalletBridgeEndpointKey is the base url of the local wallet signing bridge
	WalletBridgeEndpointKey = "WALLET_BRIDGE_ENDPOINT"
	// WalletsKey is the comma-separated, ordered list of wallet variants to try when signing
	WalletsKey = "WALLETS"
	// SigningAttemptsKey is the attempt bound of the signing coordinator
	SigningAttemptsKey = "SIGNING_ATTEMPTS"
	// SignTimeoutKey is the duration to wait for a wallet to resolve a signature request
	SignTimeoutKey = "SIGN_TIMEOUT"
	// RequestTimeoutKey is the bounded timeout of every trading API call
	RequestTimeoutKey = "REQUEST_TIMEOUT"
	// UnsignedTxTTLKey is the age after which an unsigned transaction is considered stale
	UnsignedTxTTLKey = "UNSIGNED_TX_TTL"
	// MaxLeverageKey is the highest leverage accepted when validating intents
	MaxLeverageKey = "MAX_LEVERAGE"
	// DatadirKey is the local data directory storing the order journal
	DatadirKey = "DATA_DIR_PATH"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// NoJournalKey disables the on-disk order journal
	NoJournalKey = "NO_JOURNAL"

	// JournalLocation ...
	JournalLocation = "journal"
)

var vip *viper.Viper

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("PERP")
	vip.AutomaticEnv()

	vip.SetDefault(TradingEndpointKey, "https://api.perpdex.io")
	vip.SetDefault(SubmitEndpointKey, "https://cardano-mainnet.blockfrost.io/api/v0")
	vip.SetDefault(WalletBridgeEndpointKey, "http://localhost:8090")
	vip.SetDefault(WalletsKey, "eternl,nami,vespr")
	vip.SetDefault(SigningAttemptsKey, 3)
	vip.SetDefault(SignTimeoutKey, 2*time.Minute)
	vip.SetDefault(RequestTimeoutKey, 30*time.Second)
	vip.SetDefault(UnsignedTxTTLKey, 3*time.Minute)
	vip.SetDefault(MaxLeverageKey, 10)
	vip.SetDefault(DatadirKey, defaultDatadir())
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(NoJournalKey, false)

	if err := validate(); err != nil {
		log.WithError(err).Panic("error while validating config")
	}
}

func validate() error {
	for _, key := range []string{
		TradingEndpointKey, SubmitEndpointKey, WalletBridgeEndpointKey,
	} {
		if !strings.HasPrefix(GetString(key), "http") {
			return fmt.Errorf("%s must be a valid http(s) url", key)
		}
	}
	if len(GetWallets()) <= 0 {
		return fmt.Errorf("%s must list at least one wallet variant", WalletsKey)
	}
	if GetInt(SigningAttemptsKey) <= 0 {
		return fmt.Errorf("%s must be a positive number", SigningAttemptsKey)
	}
	if GetInt(MaxLeverageKey) <= 0 {
		return fmt.Errorf("%s must be a positive number", MaxLeverageKey)
	}
	return nil
}

// GetString ...
func GetString(key string) string {
	return vip.GetString(key)
}

// GetInt ...
func GetInt(key string) int {
	return vip.GetInt(key)
}

// GetDuration ...
func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

// GetBool ...
func GetBool(key string) bool {
	return vip.GetBool(key)
}

// GetWallets returns the ordered wallet variants to try when signing.
func GetWallets() []string {
	wallets := make([]string, 0)
	for _, w := range strings.Split(GetString(WalletsKey), ",") {
		if w = strings.TrimSpace(w); len(w) > 0 {
			wallets = append(wallets, w)
		}
	}
	return wallets
}

// GetDatadir ...
func GetDatadir() string {
	return GetString(DatadirKey)
}

// GetJournalPath returns the directory of the order journal, creating it if
// needed, or an empty string if journaling is disabled.
func GetJournalPath() (string, error) {
	if GetBool(NoJournalKey) {
		return "", nil
	}
	dir := filepath.Join(GetDatadir(), JournalLocation)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

func defaultDatadir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".perp-agent"
	}
	return filepath.Join(home, ".perp-agent")
}
