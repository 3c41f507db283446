package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/onchain-coinflip/coinflip/configs"
	"github.com/onchain-coinflip/coinflip/internal/devchain"
	"github.com/onchain-coinflip/coinflip/internal/logger"
	"github.com/onchain-coinflip/coinflip/internal/output"
	"github.com/onchain-coinflip/coinflip/internal/play"
	"github.com/onchain-coinflip/coinflip/internal/stats"
	"github.com/onchain-coinflip/coinflip/internal/webhook"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	appName   = "coinflip"
	envPrefix = "COINFLIP"
)

// envAliases keeps the variable names of the web app working. Earlier names
// win.
var envAliases = map[string][]string{
	"paymaster.url":                {"NEXT_PUBLIC_PAYMASTER_URL"},
	"chains.base.contract-address": {"NEXT_PUBLIC_CONTRACT_ADDRESS"},
	"chains.base.rpc-url":          {"NEXT_PUBLIC_BASE_RPC", "NEXT_PUBLIC_BASE_MAINNET_RPC"},
	"chains.base-sepolia.rpc-url":  {"NEXT_PUBLIC_BASE_SEPOLIA_RPC"},
	"wallet.private-key":           {"PRIVATE_KEY"},
}

var logLevel string

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "Daily coin flip game on Base",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger.Initialize(level)

		if err := godotenv.Load(); err != nil {
			slog.Debug("no .env file found, using environment variables")
		}

		if err := configs.ReadDefaults(viper.GetViper()); err != nil {
			const errMsg = "error reading embedded defaults"
			slog.With("err", err.Error()).Error(errMsg)
			return errors.Join(err, errors.New(errMsg))
		}

		viper.SetConfigName("config")
		if execPath, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(execPath))
		}
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")

		// Try to read config file, but don't fail if it doesn't exist
		// Flags, env and embedded defaults can provide all necessary configuration
		if err := viper.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				slog.Debug("no config file found, will rely on flags, env and defaults")
			} else {
				const errMsg = "error reading config file"
				slog.With("err", err.Error()).Error(errMsg)
				return errors.Join(err, errors.New(errMsg))
			}
		} else {
			slog.With("config_file", viper.ConfigFileUsed()).Debug("config file loaded")
		}

		if err := bindEnv(); err != nil {
			return err
		}

		cfg, err := configs.Decode(viper.GetViper())
		if err != nil {
			const errMsg = "unable to decode application config"
			slog.With("err", err.Error()).Error(errMsg)
			return errors.Join(err, errors.New(errMsg))
		}
		configs.Values = cfg

		slog.With("chain_id", configs.Values.Game.ChainID).
			With("paymaster_configured", configs.Values.Paymaster.URL != "").
			Debug("configuration loaded")

		return nil
	},
}

func bindEnv() error {
	viper.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_", "-", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	for key, aliases := range envAliases {
		names := append([]string{envPrefix + "_" + replacer.Replace(strings.ToUpper(key))}, aliases...)
		if err := viper.BindEnv(append([]string{key}, names...)...); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("chain-id", 0, "Chain id to play on (defaults to game.chain-id)")
	if err := viper.BindPFlag("game.chain-id", rootCmd.PersistentFlags().Lookup("chain-id")); err != nil {
		panic(err)
	}
}

func main() {
	rootCmd.AddCommand(play.CMD)
	rootCmd.AddCommand(stats.CMD)
	rootCmd.AddCommand(output.CMD)
	rootCmd.AddCommand(webhook.CMD)
	rootCmd.AddCommand(devchain.CMD)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.With("err", err.Error()).Error("failed to execute root command")
		stop()
		os.Exit(1)
	}
}
