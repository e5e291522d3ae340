/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/floorvault/apiserver/config"
	"github.com/floorvault/apiserver/internal/logger"
	"github.com/spf13/cobra"
)

var cfg config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "floorvault",
	Short: "Floor catalog media dashboard API",
	Long: `floorvault serves the floor catalog dashboard API: categories of
flooring photography, image uploads with thumbnails, staff accounts
and roles.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.LoadConfig()
		logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Flush()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
