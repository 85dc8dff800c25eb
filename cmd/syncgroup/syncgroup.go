// Package syncgroup contains the command that synchronizes a member list file
// with the transitive members of a group.
package syncgroup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/openfga/membersync/cmd/common"
	"github.com/openfga/membersync/cmd/diff"
	"github.com/openfga/membersync/cmd/util"
	"github.com/openfga/membersync/pkg/directory"
	"github.com/openfga/membersync/pkg/membership"
	"github.com/openfga/membersync/pkg/notify"
	"github.com/openfga/membersync/pkg/reconcile"
)

const (
	fileFlag                = "file"
	rootFlag                = "root"
	currentFlag             = "current"
	jobFlag                 = "job"
	ignoreThresholdOnceFlag = "ignore-threshold-once"
)

// ErrDatastoreNotReady is returned when the datastore schema is missing or outdated.
var ErrDatastoreNotReady = errors.New("datastore is not ready, run 'membersync migrate' first")

func NewSyncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize a member list file with the transitive members of a group",
		Long: `Synchronize a member list file with the transitive members of a group.

The desired membership is resolved from a YAML group graph, published in parts,
reassembled, compared to the member list file and, when the delta passes the
configured thresholds, written back to it. Fan-in and violation state are kept in
the configured datastore so that repeated runs of the same job escalate violations.`,
		Example: `membersync sync --file groups.yaml --root 9daff68d-c8bd-5da6-9690-0e716c1b61e9 --current members.txt --job engineering`,
		RunE:    runSync,
		Args:    cobra.NoArgs,
	}

	flags := cmd.Flags()

	flags.String(fileFlag, "", "(required) the YAML file describing groups and their members")
	flags.String(rootFlag, "", "(required) the id of the source group")
	flags.String(currentFlag, "", "(required) the member list file of the destination, created if missing")
	flags.String(jobFlag, "", "the sync job id violations are tracked under (defaults to the destination file name)")
	flags.Bool(ignoreThresholdOnceFlag, false, "apply this run even if it exceeds a threshold")

	common.AddLogFlags(flags)
	common.AddDatastoreFlags(flags)
	common.AddSyncFlags(flags)
	common.AddCrawlerFlags(flags)
	common.AddObservabilityFlags(flags)

	cmd.MarkFlagRequired(fileFlag)    //nolint:errcheck
	cmd.MarkFlagRequired(rootFlag)    //nolint:errcheck
	cmd.MarkFlagRequired(currentFlag) //nolint:errcheck

	cmd.PreRun = bindRunFlags

	return cmd
}

func bindRunFlags(command *cobra.Command, args []string) {
	flags := command.Flags()

	common.BindConfigFlags(command, args)

	util.MustBindPFlag("sync.file", flags.Lookup(fileFlag))
	util.MustBindPFlag("sync.root", flags.Lookup(rootFlag))
	util.MustBindPFlag("sync.current", flags.Lookup(currentFlag))
	util.MustBindPFlag("sync.job", flags.Lookup(jobFlag))
	util.MustBindPFlag("sync.ignoreThresholdOnce", flags.Lookup(ignoreThresholdOnceFlag))
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := common.ReadConfig()
	if err != nil {
		return err
	}
	l, err := common.NewLogger(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	stopTracing := common.StartTracing(cfg, l)
	defer func() {
		if err := stopTracing(); err != nil {
			l.Error("failed to shut down tracing", zap.Error(err))
		}
	}()

	stopMetrics := common.StartMetricsServer(cfg, l)
	defer func() {
		if err := stopMetrics(context.Background()); err != nil {
			l.Error("failed to shut down metrics server", zap.Error(err))
		}
	}()

	root, err := uuid.Parse(viper.GetString("sync.root"))
	if err != nil {
		return fmt.Errorf("invalid root group id: %w", err)
	}

	currentPath := viper.GetString("sync.current")
	jobID := viper.GetString("sync.job")
	if jobID == "" {
		jobID = strings.TrimSuffix(filepath.Base(currentPath), filepath.Ext(currentPath))
	}

	ds, err := common.NewDatastore(cfg, l)
	if err != nil {
		return err
	}
	defer ds.Close()

	status, err := ds.IsReady(ctx)
	if err != nil {
		return err
	}
	if !status.IsReady {
		return fmt.Errorf("%w: %s", ErrDatastoreNotReady, status.Message)
	}

	graph, err := directory.LoadGraphFile(viper.GetString("sync.file"))
	if err != nil {
		return err
	}

	c, closeCrawler, err := common.NewCrawler(cfg, graph, l)
	if err != nil {
		return err
	}
	defer closeCrawler()

	sink := notify.NewMultiSink(
		notify.NewLogSink(l),
		&printSink{ew: common.NewErrWriter(cmd.OutOrStdout())},
	)
	desired, err := reconcile.DesiredFromGroup(ctx, c, root, sink, l)
	if err != nil {
		return err
	}

	dest := &fileDestination{path: currentPath}
	receiver := reconcile.NewReceiver(ds, dest, dest,
		reconcile.WithThresholds(cfg.Threshold.Add, cfg.Threshold.Remove),
		reconcile.WithMaxConsecutiveViolations(cfg.Threshold.MaxConsecutiveViolations),
		reconcile.WithDryRun(cfg.Threshold.DryRun),
		reconcile.WithSink(sink),
		reconcile.WithReceiverLogger(l),
	)
	if viper.GetBool("sync.ignoreThresholdOnce") {
		receiver.IgnoreThresholdOnce(jobID)
	}

	purged, err := receiver.PurgeFinalizedRuns(ctx, cfg.Chunking.FinalizedRunRetention)
	if err != nil {
		l.Warn("failed to purge finalized runs", zap.Error(err))
	} else if purged > 0 {
		l.Debug("purged finalized runs", zap.Int("purged", purged))
	}

	transport := &localTransport{receiver: receiver}
	publisher := reconcile.NewPublisher(transport,
		reconcile.WithMaxMembersPerChunk(cfg.Chunking.MaxMembersPerChunk),
		reconcile.WithPublisherLogger(l),
	)

	runID, err := publisher.Publish(ctx, membership.MembershipSet{
		Destination: membership.Destination{Type: "file", ID: currentPath},
		JobID:       jobID,
		Members:     desired.Members(),
	})
	if err != nil {
		return err
	}

	outcome := transport.Outcome()
	if outcome == nil {
		return fmt.Errorf("run %s did not complete", runID)
	}

	return printOutcome(cmd, outcome)
}

func printOutcome(cmd *cobra.Command, outcome *reconcile.Outcome) error {
	w := cmd.OutOrStdout()
	ew := common.NewErrWriter(w)
	ew.Printf("run: %s\n", outcome.RunID)
	if err := ew.Err(); err != nil {
		return err
	}

	if err := diff.PrintResult(w, outcome.Delta); err != nil {
		return err
	}

	ew.Printf("consecutive violations: %d\n", outcome.Verdict.Violations)
	ew.Printf("job disabled: %t\n", outcome.Verdict.JobDisabled)
	ew.Printf("applied: %t\n", outcome.Applied)
	if err := ew.Err(); err != nil {
		return err
	}

	if outcome.Delta.ViolatesThreshold {
		return diff.ErrThresholdViolated
	}
	return nil
}

// localTransport delivers parts straight to a receiver in the same process.
type localTransport struct {
	receiver *reconcile.Receiver

	mu      sync.Mutex
	outcome *reconcile.Outcome // GUARDED_BY(mu)
}

func (t *localTransport) SendChunk(ctx context.Context, payload []byte) error {
	outcome, err := t.receiver.Receive(ctx, payload)
	if err != nil {
		return err
	}

	if outcome.Complete {
		t.mu.Lock()
		t.outcome = outcome
		t.mu.Unlock()
	}
	return nil
}

func (t *localTransport) Outcome() *reconcile.Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outcome
}

// printSink reports notifications on the command output.
type printSink struct {
	mu sync.Mutex
	ew *common.ErrWriter // GUARDED_BY(mu)
}

func (s *printSink) Notify(_ context.Context, n notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch n.Kind {
	case notify.KindCycleReport:
		s.ew.Printf("notification: %s %s (%d cycles)\n", n.Kind, n.Root, len(n.Cycles))
	default:
		s.ew.Printf("notification: %s %s\n", n.Kind, n.JobID)
	}
	return s.ew.Err()
}

// fileDestination keeps the members of a destination in a member list file.
type fileDestination struct {
	path string
}

func (d *fileDestination) CurrentMembers(context.Context, membership.Destination) (membership.Set, error) {
	set, err := common.ReadMembersFile(d.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(membership.Set), nil
	}
	return set, err
}

func (d *fileDestination) Apply(ctx context.Context, dest membership.Destination, additions, removals membership.Set) error {
	current, err := d.CurrentMembers(ctx, dest)
	if err != nil {
		return err
	}

	for id, m := range additions {
		current[id] = m
	}
	for id := range removals {
		delete(current, id)
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), filepath.Base(d.path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := common.WriteMembers(tmp, current); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), d.path)
}

var (
	_ reconcile.MembershipReader = (*fileDestination)(nil)
	_ reconcile.Applier          = (*fileDestination)(nil)
	_ reconcile.Transport        = (*localTransport)(nil)
	_ notify.Sink                = (*printSink)(nil)
)
