package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bounzy/bounzy-go/engine/lifecycle"
	"github.com/bounzy/bounzy-go/engine/rest"
	"github.com/bounzy/bounzy-go/module/contract"
	"github.com/bounzy/bounzy-go/module/fhe/relayer"
)

const envPrefix = "BOUNZY"

var (
	//go:embed default-config.yml
	configFile string

	validate = validator.New()
)

// ErrInvalidConfig is returned when the loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete client configuration. Values are read, lowest
// priority first, from the embedded defaults, the config file, BOUNZY_*
// environment variables and command line flags.
type Config struct {
	LogLevel     string           `mapstructure:"log-level" validate:"oneof=trace debug info warn error"`
	Chain        ChainConfig      `mapstructure:"chain"`
	Account      AccountConfig    `mapstructure:"account"`
	Transactions contract.Config  `mapstructure:"transactions"`
	Lifecycle    lifecycle.Config `mapstructure:"lifecycle"`
	Relayer      RelayerConfig    `mapstructure:"relayer"`
	Storage      StorageConfig    `mapstructure:"storage"`
	Metrics      MetricsConfig    `mapstructure:"metrics"`
	Rest         rest.Config      `mapstructure:"rest"`
}

type ChainConfig struct {
	RPCURL          string         `mapstructure:"rpc-url" validate:"required,url"`
	ChainID         *big.Int       `mapstructure:"chain-id" validate:"required"`
	ContractAddress common.Address `mapstructure:"contract-address"`
}

// AccountConfig selects the signer. Empty means read only.
type AccountConfig struct {
	PrivateKey string         `mapstructure:"private-key"`
	Keystore   string         `mapstructure:"keystore"`
	Passphrase string         `mapstructure:"passphrase"`
	Address    common.Address `mapstructure:"address"`
}

type RelayerConfig struct {
	relayer.Config `mapstructure:",squash"`
	// InitTimeout bounds the lazy initialization of the relayer session.
	InitTimeout time.Duration `mapstructure:"init-timeout" validate:"gt=0"`
}

type StorageConfig struct {
	DataDir string `mapstructure:"datadir" validate:"required"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    uint `mapstructure:"port" validate:"max=65535"`
}

// DefaultConfig returns the embedded default configuration.
func DefaultConfig() (*Config, error) {
	v := viper.New()
	if err := readDefaults(v); err != nil {
		return nil, err
	}
	return unmarshal(v)
}

// Load reads the configuration into v. The file and the flags are optional;
// only flags set on the command line override other sources.
func Load(v *viper.Viper, file string, flags *pflag.FlagSet) (*Config, error) {
	if err := readDefaults(v); err != nil {
		return nil, err
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config file %s: %w", file, err)
		}
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}
	return unmarshal(v)
}

func readDefaults(v *viper.Viper) error {
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(configFile)); err != nil {
		return fmt.Errorf("could not read default config: %w", err)
	}
	return nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	err := v.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		addressHookFunc(),
		bigIntHookFunc(),
	)))
	if err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks field constraints and the account selection.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	set := 0
	if c.Account.PrivateKey != "" {
		set++
	}
	if c.Account.Keystore != "" {
		set++
	}
	if c.Account.Address != (common.Address{}) {
		set++
	}
	if set > 1 {
		return fmt.Errorf("%w: at most one of account.private-key, account.keystore and account.address may be set", ErrInvalidConfig)
	}
	if c.Chain.ContractAddress == (common.Address{}) {
		return fmt.Errorf("%w: chain.contract-address must be set", ErrInvalidConfig)
	}
	if c.Chain.ChainID.Sign() <= 0 {
		return fmt.Errorf("%w: chain id must be positive", ErrInvalidConfig)
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// Signer builds the signer selected by the account section. Without a key the
// returned signer is watch only and every transaction fails with
// contract.ErrNoSigner.
func (c *Config) Signer() (contract.Signer, error) {
	switch {
	case c.Account.PrivateKey != "":
		return contract.NewHexSigner(c.Account.PrivateKey, c.Chain.ChainID)
	case c.Account.Keystore != "":
		return contract.NewKeystoreSigner(c.Account.Keystore, c.Account.Passphrase, c.Chain.ChainID)
	default:
		return contract.NewWatchOnlySigner(c.Account.Address), nil
	}
}

// bindFlags binds every flag named after a config key, e.g. --chain.rpc-url.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(flag *pflag.Flag) {
		if err != nil || !v.IsSet(flag.Name) {
			return
		}
		err = v.BindPFlag(flag.Name, flag)
	})
	if err != nil {
		return fmt.Errorf("could not bind flags: %w", err)
	}
	return nil
}

func addressHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(common.Address{}) || from == to {
			return data, nil
		}
		if from.Kind() != reflect.String {
			// unquoted short hex like 0x1234 reaches us as an integer
			return nil, fmt.Errorf("invalid address %v: addresses must be quoted hex strings", data)
		}
		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return common.Address{}, nil
		}
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("invalid address %q", raw)
		}
		return common.HexToAddress(raw), nil
	}
}

func bigIntHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(&big.Int{}) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			n, ok := new(big.Int).SetString(strings.TrimSpace(v), 0)
			if !ok {
				return nil, fmt.Errorf("invalid integer %q", v)
			}
			return n, nil
		case int:
			return big.NewInt(int64(v)), nil
		case int64:
			return big.NewInt(v), nil
		case uint64:
			return new(big.Int).SetUint64(v), nil
		case float64:
			if v != float64(int64(v)) {
				return nil, fmt.Errorf("invalid integer %v", v)
			}
			return big.NewInt(int64(v)), nil
		default:
			return data, nil
		}
	}
}
