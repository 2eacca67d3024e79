package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jetsharklambo/pu2-toolkit/config"
)

const (
	FlagConfig  = "config"
	FlagProfile = "profile"
)

var (
	configPath  string
	profileName string
	cfg         *config.Config
)

func main() {
	godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "pu2",
		Short: "Toolkit for the PU2 peer-to-peer wagering contract",
		Long: `Create, join and settle peer-to-peer wagering games on the PU2 contract,
reconcile claimed winnings against on-chain events and serve the whole
surface to browser frontends over HTTP and websockets.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var err error
			cfg, err = config.Load(configPath, profileName)
			if err != nil {
				fmt.Printf("Config error: %v\n", err)
				os.Exit(1)
			}
			lvl, err := log.ParseLevel(cfg.LogLevel)
			if err != nil {
				lvl = log.InfoLevel
			}
			log.SetLevel(lvl)
			log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, FlagConfig, "f", "", "Path to the config file")
	rootCmd.PersistentFlags().StringVarP(&profileName, FlagProfile, "p", "", "Deployment profile to use")

	rootCmd.AddCommand(
		serveCmd(),
		createCmd(),
		joinCmd(),
		lockCmd(),
		winnersCmd(),
		claimCmd(),
		splitsCmd(),
		judgesCmd(),
		statusCmd(),
		scanCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
