package config_test

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bounzy/bounzy-go/config"
	"github.com/bounzy/bounzy-go/engine/lifecycle"
	"github.com/bounzy/bounzy-go/module/contract"
	"github.com/bounzy/bounzy-go/module/fhe/relayer"
)

func TestDefaultConfig(t *testing.T) {
	c, err := config.DefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://ethereum-sepolia-rpc.publicnode.com", c.Chain.RPCURL)
	assert.Equal(t, 0, c.Chain.ChainID.Cmp(big.NewInt(11155111)))
	assert.Equal(t, common.HexToAddress("0x1af8c2c3ff2427223113ccd9a60cad027cf2fdd0"), c.Chain.ContractAddress)
	assert.Equal(t, common.Address{}, c.Account.Address)

	// the embedded file agrees with the defaults of each module
	assert.Equal(t, contract.DefaultConfig(), c.Transactions)
	assert.Equal(t, lifecycle.DefaultConfig(), c.Lifecycle)
	assert.Equal(t, relayer.DefaultConfig(), c.Relayer.Config)
	assert.Equal(t, time.Minute, c.Relayer.InitTimeout)
	assert.Equal(t, []string{"*"}, c.Rest.AllowedOrigins)
	assert.Equal(t, 30*time.Second, c.Rest.Updates.PingPeriod)
	assert.Equal(t, zerolog.InfoLevel, c.Level())

	signer, err := c.Signer()
	require.NoError(t, err)
	assert.IsType(t, &contract.WatchOnlySigner{}, signer)
}

func TestLoad_Precedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bounzy.yml")
	require.NoError(t, os.WriteFile(file, []byte(`
log-level: debug
lifecycle:
  poll-interval: 2s
  max-poll-attempts: 10
rest:
  listen-address: 0.0.0.0:9000
`), 0600))

	t.Setenv("BOUNZY_LIFECYCLE_MAX_POLL_ATTEMPTS", "20")
	t.Setenv("BOUNZY_CHAIN_CHAIN_ID", "31337")
	t.Setenv("BOUNZY_REST_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	defaults, err := config.DefaultConfig()
	require.NoError(t, err)
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.InitializeFlags(flags, defaults)
	require.NoError(t, flags.Parse([]string{"--rest.listen-address=localhost:9100"}))

	c, err := config.Load(viper.New(), file, flags)
	require.NoError(t, err)

	// file over defaults
	assert.Equal(t, 2*time.Second, c.Lifecycle.PollInterval)
	assert.Equal(t, zerolog.DebugLevel, c.Level())
	// env over file
	assert.Equal(t, uint64(20), c.Lifecycle.MaxPollAttempts)
	assert.Equal(t, 0, c.Chain.ChainID.Cmp(big.NewInt(31337)))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.Rest.AllowedOrigins)
	// flags over everything
	assert.Equal(t, "localhost:9100", c.Rest.ListenAddress)
	// untouched flags keep the defaults
	assert.Equal(t, defaults.Relayer.URL, c.Relayer.URL)
}

func TestLoad_Invalid(t *testing.T) {
	write := func(t *testing.T, content string) string {
		file := filepath.Join(t.TempDir(), "bounzy.yml")
		require.NoError(t, os.WriteFile(file, []byte(content), 0600))
		return file
	}

	cases := map[string]string{
		"log level":        "log-level: loud\n",
		"address":          "chain:\n  contract-address: 0x1234\n",
		"quoted address":   "chain:\n  contract-address: \"0x1234\"\n",
		"zero address":     "chain:\n  contract-address: \"0x0000000000000000000000000000000000000000\"\n",
		"numeric address":  "account:\n  address: 4660\n",
		"chain id":         "chain:\n  chain-id: 0\n",
		"poll interval":    "lifecycle:\n  poll-interval: 0s\n",
		"pong before ping": "rest:\n  updates:\n    pong-wait: 1s\n",
		"two accounts":     "account:\n  keystore: key.json\n  address: \"0x1af8c2c3ff2427223113ccd9a60cad027cf2fdd0\"\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(viper.New(), write(t, content), nil)
			require.Error(t, err)
		})
	}

	_, err := config.Load(viper.New(), filepath.Join(t.TempDir(), "missing.yml"), nil)
	require.Error(t, err)
}

func TestSigner(t *testing.T) {
	c, err := config.DefaultConfig()
	require.NoError(t, err)

	c.Account.PrivateKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	signer, err := c.Signer()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"), signer.Address())

	c.Account.PrivateKey = "not a key"
	_, err = c.Signer()
	require.Error(t, err)

	c.Account.PrivateKey = ""
	c.Account.Address = common.HexToAddress("0x1af8c2c3ff2427223113ccd9a60cad027cf2fdd0")
	signer, err = c.Signer()
	require.NoError(t, err)
	assert.Equal(t, c.Account.Address, signer.Address())
}

func TestLoad_ContractAddress(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bounzy.yml")
	content := "chain:\n  contract-address: \"0x00000000000000000000000000000000000012aB\"\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0600))

	c, err := config.Load(viper.New(), file, nil)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x12ab"), c.Chain.ContractAddress)

	// the same short value unquoted is decoded by yaml as an integer
	require.NoError(t, os.WriteFile(file, []byte("chain:\n  contract-address: 0x12ab\n"), 0600))
	_, err = config.Load(viper.New(), file, nil)
	assert.ErrorContains(t, err, "must be quoted")
}
