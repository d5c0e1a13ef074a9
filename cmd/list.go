package cmd

import (
	"fmt"
	"strconv"

	"swocat/transport"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List matching probes without opening them",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		id, _, backend, err := resolveProbe(cmd)
		cobra.CheckErr(err)

		infos, err := transport.List(backend, id)
		cobra.CheckErr(err)

		if len(infos) == 0 {
			fmt.Printf("No matching devices found (VID=0x%04X PID=0x%04X).\n",
				id.VendorID, id.ProductID)
			return
		}
		for _, info := range infos {
			serial := info.Serial
			if serial == "" {
				serial = "-"
			}
			iface := "-"
			if info.Interface >= 0 {
				iface = strconv.Itoa(info.Interface)
			}
			fmt.Printf("%04x:%04x  interface %-2s serial %-14s %s\n",
				info.VendorID, info.ProductID, iface, serial, info.Path)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
