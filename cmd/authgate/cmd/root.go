package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is the release version reported by the banner.
const Version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "authgate",
	Short: "AuthGate is a demo backend with delegated authentication",
	Long: `A demo web backend that delegates authentication and session management
to an external session authority. Complete documentation is available at
https://github.com/jmcleod/authgate`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Define flags and configuration settings here.
}
