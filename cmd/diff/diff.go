// Package diff contains the command that computes the delta between two
// member lists.
package diff

import (
	"errors"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openfga/membersync/cmd/common"
	"github.com/openfga/membersync/cmd/util"
	"github.com/openfga/membersync/pkg/delta"
	"github.com/openfga/membersync/pkg/membership"
)

const (
	desiredFlag             = "desired"
	currentFlag             = "current"
	exclusionaryFlag        = "exclusionary"
	ignoreThresholdOnceFlag = "ignore-threshold-once"
)

// ErrThresholdViolated is returned when the computed delta exceeds a threshold.
var ErrThresholdViolated = errors.New("delta exceeds the configured threshold")

func NewDiffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compute the members to add to and remove from a destination",
		Long: `Compute the members to add to and remove from a destination.

Both files list one member id per line. The command fails when the delta exceeds
the configured addition or removal threshold, unless --ignore-threshold-once is set.`,
		Example: `membersync diff --desired desired.txt --current current.txt --threshold-remove 10`,
		RunE:    runDiff,
		Args:    cobra.NoArgs,
	}

	flags := cmd.Flags()

	flags.String(desiredFlag, "", "(required) the file listing the desired members")
	flags.String(currentFlag, "", "(required) the file listing the current members of the destination")
	flags.Bool(exclusionaryFlag, false, "treat the desired file as the members to remove")
	flags.Bool(ignoreThresholdOnceFlag, false, "report but do not fail on a threshold violation")

	common.AddLogFlags(flags)
	common.AddSyncFlags(flags)

	cmd.MarkFlagRequired(desiredFlag) //nolint:errcheck
	cmd.MarkFlagRequired(currentFlag) //nolint:errcheck

	cmd.PreRun = bindRunFlags

	return cmd
}

func bindRunFlags(command *cobra.Command, args []string) {
	flags := command.Flags()

	common.BindConfigFlags(command, args)

	util.MustBindPFlag("diff.desired", flags.Lookup(desiredFlag))
	util.MustBindPFlag("diff.current", flags.Lookup(currentFlag))
	util.MustBindPFlag("diff.exclusionary", flags.Lookup(exclusionaryFlag))
	util.MustBindPFlag("diff.ignoreThresholdOnce", flags.Lookup(ignoreThresholdOnceFlag))
}

func runDiff(cmd *cobra.Command, _ []string) error {
	cfg, err := common.ReadConfig()
	if err != nil {
		return err
	}

	desired, err := common.ReadMembersFile(viper.GetString("diff.desired"))
	if err != nil {
		return err
	}
	current, err := common.ReadMembersFile(viper.GetString("diff.current"))
	if err != nil {
		return err
	}

	result := delta.Calculate(desired, current, delta.Options{
		Exclusionary:        viper.GetBool("diff.exclusionary"),
		ThresholdAdd:        cfg.Threshold.Add,
		ThresholdRemove:     cfg.Threshold.Remove,
		IgnoreThresholdOnce: viper.GetBool("diff.ignoreThresholdOnce"),
		DryRun:              cfg.Threshold.DryRun,
	})

	if err := PrintResult(cmd.OutOrStdout(), result); err != nil {
		return err
	}

	if result.ViolatesThreshold {
		return ErrThresholdViolated
	}
	return nil
}

// PrintResult writes a human readable report of result to w.
func PrintResult(w io.Writer, result delta.Result) error {
	ew := common.NewErrWriter(w)

	ew.Printf("additions: %d (%.2f%%)\n", result.Additions.Len(), result.AdditionPercentage)
	printMembers(ew, "+", result.Additions)
	ew.Printf("removals: %d (%.2f%%)\n", result.Removals.Len(), result.RemovalPercentage)
	printMembers(ew, "-", result.Removals)

	switch {
	case result.ViolatesThreshold:
		ew.Printf("threshold: violated\n")
	case result.ExceedsAdd || result.ExceedsRemove:
		ew.Printf("threshold: exceeded but ignored\n")
	default:
		ew.Printf("threshold: ok\n")
	}

	return ew.Err()
}

func printMembers(ew *common.ErrWriter, prefix string, set membership.Set) {
	for _, m := range set.Members() {
		ew.Printf("  %s %s\n", prefix, m.ID)
	}
}
