package cmd

import (
	"fmt"
	"log"
	"os"

	"audiopub/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "audiopub",
	Short: "audiopub is an audio publishing platform.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting audiopub server...")
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
