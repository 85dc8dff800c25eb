// Package crawl contains the command that resolves the transitive members of
// a group from a group graph file.
package crawl

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/openfga/membersync/cmd/common"
	"github.com/openfga/membersync/cmd/util"
	"github.com/openfga/membersync/internal/concurrency"
	"github.com/openfga/membersync/pkg/crawler"
	"github.com/openfga/membersync/pkg/directory"
	"github.com/openfga/membersync/pkg/logger"
	"github.com/openfga/membersync/pkg/notify"
)

const (
	fileFlag      = "file"
	rootFlag      = "root"
	dotFlag       = "dot"
	allCyclesFlag = "all-cycles"
	eventsFlag    = "events"

	eventBuffer = 64
)

func NewCrawlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Resolve the transitive members of a group",
		Long: `Resolve the transitive members of a group from a YAML group graph.

Prints every user reachable from the root group, the nested groups that were expanded,
the cycles found on the way and the groups that could not be read.`,
		Example: `membersync crawl --file groups.yaml --root 9daff68d-c8bd-5da6-9690-0e716c1b61e9 --dot groups.dot`,
		RunE:    runCrawl,
		Args:    cobra.NoArgs,
	}

	flags := cmd.Flags()

	flags.String(fileFlag, "", "(required) the YAML file describing groups and their members")
	flags.String(rootFlag, "", "(required) the id of the group to resolve")
	flags.String(dotFlag, "", "write the discovered group graph in DOT format to this file")
	flags.Bool(allCyclesFlag, false, "list every elementary cycle of the discovered group graph instead of those met during the crawl")
	flags.Bool(eventsFlag, false, "print crawl events as they happen")

	common.AddLogFlags(flags)
	common.AddCrawlerFlags(flags)

	cmd.MarkFlagRequired(fileFlag) //nolint:errcheck
	cmd.MarkFlagRequired(rootFlag) //nolint:errcheck

	cmd.PreRun = bindRunFlags

	return cmd
}

func bindRunFlags(command *cobra.Command, args []string) {
	flags := command.Flags()

	common.BindConfigFlags(command, args)

	util.MustBindPFlag("crawl.file", flags.Lookup(fileFlag))
	util.MustBindPFlag("crawl.root", flags.Lookup(rootFlag))
	util.MustBindPFlag("crawl.dot", flags.Lookup(dotFlag))
	util.MustBindPFlag("crawl.allCycles", flags.Lookup(allCyclesFlag))
	util.MustBindPFlag("crawl.events", flags.Lookup(eventsFlag))
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	cfg, err := common.ReadConfig()
	if err != nil {
		return err
	}
	l, err := common.NewLogger(cfg)
	if err != nil {
		return err
	}

	root, err := uuid.Parse(viper.GetString("crawl.root"))
	if err != nil {
		return fmt.Errorf("invalid root group id: %w", err)
	}

	graph, err := directory.LoadGraphFile(viper.GetString("crawl.file"))
	if err != nil {
		return err
	}

	var opts []crawler.CrawlerOption
	var events *crawler.ChannelObserver
	if viper.GetBool("crawl.events") {
		events = crawler.NewChannelObserver(eventBuffer)
		opts = append(opts, crawler.WithObserver(events))
	}

	c, closeCrawler, err := common.NewCrawler(cfg, graph, l, opts...)
	if err != nil {
		return err
	}
	defer closeCrawler()

	ctx := cmd.Context()
	if events == nil {
		result, err := c.Crawl(ctx, root)
		if err != nil {
			return err
		}
		return report(cmd, l, result)
	}

	ew := common.NewErrWriter(cmd.OutOrStdout())
	drained := concurrency.Drain(events.Events(), func(e crawler.Event) {
		printEvent(ew, e)
	})
	result, err := c.Crawl(ctx, root)
	events.Close()
	drained.Wait()
	if err != nil {
		return err
	}
	if err := ew.Err(); err != nil {
		return err
	}

	return report(cmd, l, result)
}

func report(cmd *cobra.Command, l logger.Logger, result *crawler.Result) error {
	ctx := cmd.Context()
	root := result.Root

	cycles := result.Cycles
	if viper.GetBool("crawl.allCycles") {
		cycles = crawler.FindAllCycles(result)
	}

	if len(cycles) > 0 {
		if err := notify.NewLogSink(l).Notify(ctx, notify.CycleReport(root, cycles)); err != nil {
			l.Warn("failed to report group cycles", zap.Error(err))
		}
	}

	if path := viper.GetString("crawl.dot"); path != "" {
		if err := writeDOT(path, result); err != nil {
			return err
		}
	}

	if err := printResult(cmd.OutOrStdout(), result, cycles); err != nil {
		return err
	}

	return result.Err()
}

func printEvent(ew *common.ErrWriter, e crawler.Event) {
	switch e.Kind {
	case crawler.EventCycleFound:
		ew.Printf("event: %s %s\n", e.Kind, e.Cycle)
	case crawler.EventFetchFailed:
		ew.Printf("event: %s %s: %v\n", e.Kind, e.ID, e.Err)
	default:
		ew.Printf("event: %s %s\n", e.Kind, e.ID)
	}
}

func writeDOT(path string, result *crawler.Result) error {
	data, err := crawler.EncodeDOT(result)
	if err != nil {
		return fmt.Errorf("encode group graph: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write group graph: %w", err)
	}
	return nil
}

func printResult(w io.Writer, result *crawler.Result, cycles []crawler.CycleRecord) error {
	ew := common.NewErrWriter(w)

	ew.Printf("root: %s\n", result.Root)
	ew.Printf("groups: %d\n", len(result.Groups))
	ew.Printf("users: %d\n", result.Users.Len())
	for _, m := range result.Users.Members() {
		ew.Printf("  %s\n", m.ID)
	}

	ew.Printf("cycles: %d\n", len(cycles))
	for _, cycle := range cycles {
		ew.Printf("  %s\n", cycle)
	}

	if len(result.Failures) > 0 {
		ew.Printf("failures: %d\n", len(result.Failures))
		for _, f := range result.Failures {
			ew.Printf("  %s\n", f.Error())
		}
	}

	return ew.Err()
}
