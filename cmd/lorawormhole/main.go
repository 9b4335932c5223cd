// Command lorawormhole runs a LoRaWAN signal wormhole between one or more
// entry transceivers (near a device) and exit transceivers (near a
// gateway), per a YAML configuration file.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chirpotle-go/wormhole/internal/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "lorawormhole",
	Short: "LoRaWAN signal wormhole",
	Long:  "Relays LoRaWAN traffic between a victim device and a gateway through a pair of transceivers, optionally forwarding the gateway's RX2 downlink back.",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the wormhole and run until interrupted",
	RunE:  runWormhole,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("lorawormhole v0.1.0")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/lorawormhole/config.yaml", "Configuration file path")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runWormhole(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	log := logrus.WithField("component", "lorawormhole")

	built, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build wormhole: %w", err)
	}
	defer closeNodes(built)

	sensitivityDBm, budgetDB := cfg.LinkBudget()
	log.WithFields(logrus.Fields{
		"wormhole_id":     built.Wormhole.ID(),
		"entry_nodes":     len(built.Entry),
		"exit_nodes":      len(built.Exit),
		"strategy":        cfg.Strategy.Kind,
		"sensitivity_dbm": sensitivityDBm,
		"link_budget_db":  budgetDB,
	}).Info("starting wormhole")

	built.Wormhole.Up()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.WithField("signal", sig).Info("shutting down")

	built.Wormhole.Down()
	return nil
}

func closeNodes(b *config.BuiltWormhole) {
	for _, n := range b.Entry {
		n.Client.Close()
	}
	for _, n := range b.Exit {
		n.Client.Close()
	}
}
