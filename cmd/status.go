package cmd

import (
	"fmt"
	"strings"

	"swocat/config"
	"swocat/lpclink2"
	"swocat/transport"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the connected debug probe",
	Long:  "Open the probe, run the startup handshake and report what it supports.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		id, mode, backend, err := resolveProbe(cmd)
		cobra.CheckErr(err)

		dev, err := transport.Open(backend, id)
		cobra.CheckErr(err)
		probe := lpclink2.NewClient(dev)
		defer probe.Close()

		cobra.CheckErr(probe.AnnounceMode(mode))

		maxRate, err := probe.QueryMaxRate()
		cobra.CheckErr(err)

		fmt.Printf("Probe: %04x:%04x (%s transport)\n", id.VendorID, id.ProductID, backend)
		if id.Serial != "" {
			fmt.Printf("Serial Number: %s\n", id.Serial)
		}
		fmt.Printf("Trace Interface: %d\n", id.Interface)
		fmt.Printf("Max Bit Rate: %d bps\n", maxRate)
		fmt.Printf("\nConfiguration file: %s\n", config.FilePath)
		fmt.Printf("Probe Profile: %s (available: %s)\n",
			config.ProfileName, strings.Join(config.ProfileNames(), ", "))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
