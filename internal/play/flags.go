package play

import (
	"time"

	"github.com/spf13/viper"
)

type (
	flagType interface {
		string | int | bool
	}

	flagDef[T flagType] struct {
		name         string
		viperKey     string
		defaultValue T
		description  string
	}
)

var (
	stringFlags = []flagDef[string]{
		// Wallet
		{"wallet-rpc-url", "wallet.rpc-url", "", "EIP-5792 wallet RPC URL"},
		{"wallet-address", "wallet.address", "", "Player address used with --wallet-rpc-url"},
		{"private-key", "wallet.private-key", "", "Player private key for local signing"},

		// Sponsorship
		{"paymaster-url", "paymaster.url", "", "ERC-7677 paymaster service URL"},
	}

	intFlags = []flagDef[int]{
		{"confirmations", "game.confirmations", 1, "Blocks to wait before a local flip is final"},
	}

	boolFlags = []flagDef[bool]{}
)

// Round options are per-run and stay out of the config file.
var (
	sideFlag      string
	simulateFlag  bool
	seedFlag      uint64
	blockTimeFlag time.Duration
	shareURLFlag  string
)

func init() {
	if err := declareFlags(stringFlags); err != nil {
		panic(err)
	}
	if err := declareFlags(intFlags); err != nil {
		panic(err)
	}
	if err := declareFlags(boolFlags); err != nil {
		panic(err)
	}

	CMD.Flags().StringVar(&sideFlag, "side", "", "Side to call: heads or tails (prompts when empty)")
	CMD.Flags().BoolVar(&simulateFlag, "simulate", false, "Play against an in-memory chain with a throwaway key")
	CMD.Flags().Uint64Var(&seedFlag, "seed", uint64(time.Now().UnixNano()), "Outcome seed for --simulate")
	CMD.Flags().DurationVar(&blockTimeFlag, "block-time", time.Second, "Block time for --simulate")
	CMD.Flags().StringVar(&shareURLFlag, "share-url", "", "Link embedded in share intents")

	CMD.AddCommand(sponsorshipCmd)
}

func declareFlags[T flagType](flags []flagDef[T]) error {
	for _, flag := range flags {
		if err := declareFlag(flag.name, flag.viperKey, flag.defaultValue, flag.description); err != nil {
			return err
		}
	}
	return nil
}

// declareFlag declares a persistent flag, so subcommands share the wallet
// setup, and binds it to a viper configuration key.
func declareFlag[T flagType](flagName, viperKey string, defaultValue T, description string) error {
	var zero T
	switch any(zero).(type) {
	case string:
		CMD.PersistentFlags().String(flagName, any(defaultValue).(string), description)
	case int:
		CMD.PersistentFlags().Int(flagName, any(defaultValue).(int), description)
	case bool:
		CMD.PersistentFlags().Bool(flagName, any(defaultValue).(bool), description)
	}
	return viper.BindPFlag(viperKey, CMD.PersistentFlags().Lookup(flagName))
}
