package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the nostrmarket version",
	Run: func(*cobra.Command, []string) {
		fmt.Println("nostrmarket " + version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
