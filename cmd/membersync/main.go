package main

import (
	"os"

	"github.com/openfga/membersync/cmd"
	"github.com/openfga/membersync/cmd/crawl"
	"github.com/openfga/membersync/cmd/diff"
	"github.com/openfga/membersync/cmd/migrate"
	"github.com/openfga/membersync/cmd/syncgroup"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	rootCmd.AddCommand(syncgroup.NewSyncCommand())
	rootCmd.AddCommand(crawl.NewCrawlCommand())
	rootCmd.AddCommand(diff.NewDiffCommand())
	rootCmd.AddCommand(migrate.NewMigrateCommand())
	rootCmd.AddCommand(cmd.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
