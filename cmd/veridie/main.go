// Command veridie runs the dice-coordination core against a simulated
// host: a scripted smoke run or an interactive terminal UI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "veridie",
	Short: "Peer-to-peer dice roller coordination core",
	Long: `VeriDie coordinates a group of devices rolling dice together: peers
discover each other, elect an authoritative generator, exchange roll
requests and responses, and periodically rotate the generator.

This binary drives the core against a simulated transport; the real
radio and UI surfaces are host integrations.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
