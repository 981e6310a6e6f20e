package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bounzy/bounzy-go/config"
)

var (
	flagConfig string

	conf *config.Config
	log  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "bounzy",
	Short:         "Client for the Bounzy confidential whistleblower bounty contract",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		conf, err = config.Load(viper.New(), flagConfig, cmd.Flags())
		if err != nil {
			return err
		}
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().
			Timestamp().
			Logger().
			Level(conf.Level())
		return nil
	},
}

// Execute runs the root command until it finishes or the process receives
// SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	defaults, err := config.DefaultConfig()
	if err != nil {
		panic(fmt.Sprintf("invalid embedded config: %v", err))
	}

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path of a YAML config file")
	config.InitializeFlags(rootCmd.PersistentFlags(), defaults)
}
