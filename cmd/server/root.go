package main

import (
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "1.0.0"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "recipecart",
		Short:         "Recipe to shopping cart automation backend",
		Long:          `Parses recipes, matches their ingredients to products, and fills a storefront cart through a controlled browser.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newServeCommand(),
		newCartCommand(),
		newVersionCommand(),
	)
	return root
}
