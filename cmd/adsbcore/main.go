package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"adsbcore/internal/app"
)

func main() {
	cfg := app.DefaultConfig()
	logger := logrus.New()

	rootCmd := &cobra.Command{
		Use:   "adsbcore",
		Short: "ADS-B/Mode S capture-and-decode core",
		Long: `adsbcore is a real-time ADS-B/Mode S receiver core: it consumes raw
8-bit IQ samples from a software-defined radio at 1090 MHz, demodulates
PPM Mode S frames, validates them, extracts aircraft telemetry, and
publishes decoded observations plus signal-health telemetry.

Example usage:
  adsbcore --device-index 0 --gain-db 40 --gateway-url ws://localhost:8080/ingest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.ShowVersion {
				app.ShowVersion()
				return nil
			}

			application, err := app.NewApplication(cfg, logger)
			if err != nil {
				var cfgErr *app.ConfigError
				if ok := asConfigError(err, &cfgErr); ok {
					fmt.Fprintf(os.Stderr, "configuration error: %v\n", cfgErr)
					os.Exit(2)
				}
				return err
			}

			if err := application.Start(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
				os.Exit(3)
			}
			return nil
		},
	}

	flags := rootCmd.Flags()
	flags.IntVarP(&cfg.DeviceIndex, "device-index", "d", cfg.DeviceIndex, "SDR device index")
	flags.StringVar(&cfg.DeviceID, "device-id", cfg.DeviceID, "logical tag attached to every published record")
	flags.IntVar(&cfg.GainDB, "gain-db", cfg.GainDB, "front-end gain in dB (0 = auto)")
	flags.IntVar(&cfg.PPMError, "ppm-error", cfg.PPMError, "front-end clock correction in PPM")
	flags.StringVar(&cfg.GatewayURL, "gateway-url", cfg.GatewayURL, "downstream gateway URL, stored in the config; the core does not connect to it")
	flags.StringVar(&cfg.FrontendCmd, "frontend-cmd", cfg.FrontendCmd, "child-process SDR front-end (e.g. rtl_sdr); empty selects the direct RTL-SDR device")
	flags.Float64Var(&cfg.PreambleGate, "preamble-gate", cfg.PreambleGate, "multiplier over noise floor for preamble acceptance")
	flags.IntVar(&cfg.CPRWindowS, "cpr-window-s", cfg.CPRWindowS, "maximum gap in seconds between even/odd CPR frames")
	flags.IntVar(&cfg.IdleTimeoutS, "idle-timeout-s", cfg.IdleTimeoutS, "track eviction age in seconds")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "verbose logging")
	flags.BoolVar(&cfg.ShowVersion, "version", false, "show version information")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func asConfigError(err error, target **app.ConfigError) bool {
	ce, ok := err.(*app.ConfigError)
	if ok {
		*target = ce
	}
	return ok
}
