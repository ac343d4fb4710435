package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/shiftbot/core/cmd/api/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "shiftbot",
		Short: "ShiftBot API Server",
		Long:  `ShiftBot is a shift scheduling service for small teams, combining a LINE group-chat bot with a file-backed schedule store and a management API.`,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewBackupCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
