package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	useMock bool
)

const mockPrice = 25000

func main() {
	rootCmd := &cobra.Command{
		Use:   "stock-sentinel",
		Short: "Telegram alerts for a KRX stock",
		Long: `StockSentinel polls the Naver mobile stock API during market hours and sends
Telegram alerts when the market opens, when the price moves past a threshold,
and when the market closes.

Examples:
  stock-sentinel run
  stock-sentinel price --config configs/config.yaml`,
		SilenceUsage: true,
	}

	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVar(&useMock, "mock", false, "use fixed sample quotes instead of the Naver API")

	rootCmd.AddCommand(
		newRunCmd(),
		newOnceCmd(),
		newCronCmd(),
		newTestCmd(),
		newPriceCmd(),
		newResetCmd(),
	)

	// plain invocation keeps the daemon behaviour
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd.Context())
	}

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("exit")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
