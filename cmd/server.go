package cmd

import (
	"audiopub/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the audiopub HTTP server",
	Long:  `Start the audiopub HTTP server, serving the API and the uploaded audio files.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
