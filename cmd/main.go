package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stock-feature-pipeline",
	Short: "A CLI for managing the stock feature pipeline services",
	Long:  `Stock Feature Pipeline builds leak-free feature snapshots from news and price streams and verifies next-session predictions.`,
}

func main() {

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI '%s'", err)
		os.Exit(1)
	}
}
