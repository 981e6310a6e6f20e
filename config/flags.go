package config

import (
	"github.com/spf13/pflag"
)

// Flag names are the full config keys so that they bind without aliases.
const (
	flagLogLevel        = "log-level"
	flagRPCURL          = "chain.rpc-url"
	flagChainID         = "chain.chain-id"
	flagContractAddress = "chain.contract-address"
	flagKeystore        = "account.keystore"
	flagAddress         = "account.address"
	flagConfirmTimeout  = "transactions.confirmation-timeout"
	flagPollInterval    = "lifecycle.poll-interval"
	flagMaxPollAttempts = "lifecycle.max-poll-attempts"
	flagSubscribeEvents = "lifecycle.subscribe-events"
	flagRelayerURL      = "relayer.url"
	flagDataDir         = "storage.datadir"
	flagMetricsEnabled  = "metrics.enabled"
	flagMetricsPort     = "metrics.port"
	flagListenAddress   = "rest.listen-address"
	flagAllowedOrigins  = "rest.allowed-origins"
)

// InitializeFlags registers the command line overrides on flags, showing the
// values of defaults. The private key and the relayer API key have no flag;
// pass them through the config file or BOUNZY_ACCOUNT_PRIVATE_KEY and
// BOUNZY_RELAYER_API_KEY.
func InitializeFlags(flags *pflag.FlagSet, defaults *Config) {
	flags.String(flagLogLevel, defaults.LogLevel, "log level: trace, debug, info, warn or error")
	flags.String(flagRPCURL, defaults.Chain.RPCURL, "Ethereum JSON-RPC endpoint, use ws(s):// for event subscriptions")
	flags.String(flagChainID, defaults.Chain.ChainID.String(), "chain id used to sign transactions")
	flags.String(flagContractAddress, defaults.Chain.ContractAddress.Hex(), "address of the bounty contract")
	flags.String(flagKeystore, defaults.Account.Keystore, "path of a V3 keystore file to sign with, the passphrase is read from account.passphrase")
	flags.String(flagAddress, "", "watch-only account address")
	flags.Duration(flagConfirmTimeout, defaults.Transactions.ConfirmationTimeout, "how long to wait for a transaction to be mined")
	flags.Duration(flagPollInterval, defaults.Lifecycle.PollInterval, "delay between reads while waiting for decryption")
	flags.Uint64(flagMaxPollAttempts, defaults.Lifecycle.MaxPollAttempts, "reads before giving up waiting for decryption")
	flags.Bool(flagSubscribeEvents, defaults.Lifecycle.SubscribeEvents, "refresh watched evidence on contract events")
	flags.String(flagRelayerURL, defaults.Relayer.URL, "FHE relayer gateway")
	flags.String(flagDataDir, defaults.Storage.DataDir, "directory of the activity journal")
	flags.Bool(flagMetricsEnabled, defaults.Metrics.Enabled, "serve prometheus metrics")
	flags.Uint(flagMetricsPort, defaults.Metrics.Port, "port of the metrics server")
	flags.String(flagListenAddress, defaults.Rest.ListenAddress, "address of the REST API")
	flags.StringSlice(flagAllowedOrigins, defaults.Rest.AllowedOrigins, "origins allowed by CORS")
}
