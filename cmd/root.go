/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chanfinder",
	Short: "Telegram bot that answers anime channel requests",
	Long: `ChanFinder watches group chats for anime titles and replies with the
matching channel links from its response catalog. It can also delete
automated ads in groups where an admin turned that on.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
