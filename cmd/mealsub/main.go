package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "mealsub",
		Short:        "Meal subscription checkout and billing webhooks",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
