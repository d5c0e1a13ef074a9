package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"swocat/config"
	"swocat/lpclink2"
	"swocat/transport"
	_ "swocat/transport/hidapi"
	_ "swocat/transport/rawusb"

	"github.com/spf13/cobra"
)

var (
	vidFlag       string
	pidFlag       string
	serialFlag    string
	transportFlag string
	profileFlag   string
	verbose       bool

	allowApprox bool
	noCat       bool
)

var rootCmd = &cobra.Command{
	Use:   "swocat BITRATE",
	Short: "Stream SWO trace data from an LPC-Link2 debug probe",
	Long: `swocat configures the trace unit of an LPC-Link2 debug probe and streams
the captured SWO bytes to standard output.

The probe only forwards what the target emits: the target must already be
configured to drive its SWO pin at the requested bit rate, in UART framing.`,
	Args: cobra.ExactArgs(1),
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		if err := config.Initialize(profileFlag); err != nil {
			cobra.CheckErr(fmt.Errorf("failed to initialize config: %w", err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		rate64, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			cobra.CheckErr(fmt.Errorf("can't parse bit rate %q", args[0]))
		}
		requested := uint32(rate64)

		id, mode, backend, err := resolveProbe(cmd)
		cobra.CheckErr(err)

		dev, err := transport.Open(backend, id)
		cobra.CheckErr(err)
		probe := lpclink2.NewClient(dev)
		defer probe.Close()

		cobra.CheckErr(probe.AnnounceMode(mode))

		maxRate, err := probe.QueryMaxRate()
		cobra.CheckErr(err)
		slog.Debug("probe reports maximum rate", "rate", maxRate)

		achieved, err := probe.SetBitRate(requested)
		cobra.CheckErr(err)

		if !checkRate(requested, achieved, allowApprox, os.Stderr) {
			probe.Close()
			os.Exit(1)
		}

		if noCat {
			return
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cobra.CheckErr(capture(ctx, probe, os.Stdout, os.Stderr))
	},
}

// resolveProbe merges the selected profile with any explicit flags.
// A flag that was set on the command line wins over the profile value.
func resolveProbe(cmd *cobra.Command) (transport.Identity, byte, string, error) {
	id := transport.Identity{
		VendorID:  config.VendorID,
		ProductID: config.ProductID,
		Serial:    config.Serial,
		Interface: config.Interface,
	}
	mode := config.Mode
	backend := config.Transport
	if backend == "" {
		backend = "hid"
	}

	if cmd.Flags().Changed("vid") {
		v, err := strconv.ParseUint(vidFlag, 16, 16)
		if err != nil {
			return id, 0, "", fmt.Errorf("can't parse vid %q as hex", vidFlag)
		}
		id.VendorID = uint16(v)
	}
	if cmd.Flags().Changed("pid") {
		p, err := strconv.ParseUint(pidFlag, 16, 16)
		if err != nil {
			return id, 0, "", fmt.Errorf("can't parse pid %q as hex", pidFlag)
		}
		id.ProductID = uint16(p)
	}
	if cmd.Flags().Changed("serial") {
		id.Serial = serialFlag
	}
	if cmd.Flags().Changed("transport") {
		backend = transportFlag
	}
	return id, mode, backend, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&vidFlag, "vid", fmt.Sprintf("%04x", lpclink2.VendorID),
		"vendor id of the probe (hex)")
	rootCmd.PersistentFlags().StringVar(&pidFlag, "pid", fmt.Sprintf("%04x", lpclink2.ProductID),
		"product id of the probe (hex)")
	rootCmd.PersistentFlags().StringVar(&serialFlag, "serial", "",
		"serial number, if you have multiple probes connected")
	rootCmd.PersistentFlags().StringVar(&transportFlag, "transport", "hid",
		"transport backend (hid or usb)")
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "",
		"probe profile from the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")

	rootCmd.Flags().BoolVar(&allowApprox, "allow-approx", false,
		"proceed when the probe can't match the bit rate exactly")
	rootCmd.Flags().BoolVar(&noCat, "no-cat", false,
		"configure the probe and exit without reading trace data")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
