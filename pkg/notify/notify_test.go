package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/openfga/membersync/internal/mocks"
	"github.com/openfga/membersync/pkg/crawler"
	"github.com/openfga/membersync/pkg/delta"
	"github.com/openfga/membersync/pkg/logger"
	"github.com/openfga/membersync/pkg/membership"
	"github.com/openfga/membersync/pkg/notify"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var set = membership.MembershipSet{
	Destination: membership.Destination{Type: "group", ID: "dest"},
	JobID:       "job",
	RunID:       "run",
}

func TestConstructors(t *testing.T) {
	result := delta.Result{AdditionPercentage: 40}

	n := notify.ThresholdViolation(set, result, 2)
	require.Equal(t, notify.KindThresholdViolation, n.Kind)
	require.Equal(t, "job", n.JobID)
	require.Equal(t, "run", n.RunID)
	require.Equal(t, set.Destination, n.Destination)
	require.Equal(t, 2, n.Violations)
	require.InDelta(t, 40, n.Delta.AdditionPercentage, 0.0001)

	n = notify.JobDisabled(set, result, 3)
	require.Equal(t, notify.KindJobDisabled, n.Kind)
	require.Equal(t, 3, n.Violations)

	root := uuid.New()
	cycles := []crawler.CycleRecord{crawler.NewCycleRecord(root, uuid.New())}
	n = notify.CycleReport(root, cycles)
	require.Equal(t, notify.KindCycleReport, n.Kind)
	require.Equal(t, root, n.Root)
	require.Equal(t, cycles, n.Cycles)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "threshold_violation", notify.KindThresholdViolation.String())
	require.Equal(t, "job_disabled", notify.KindJobDisabled.String())
	require.Equal(t, "cycle_report", notify.KindCycleReport.String())
	require.Equal(t, "Kind(0)", notify.KindUnspecified.String())
}

func TestLogSink(t *testing.T) {
	ctx := context.Background()
	l, logs := logger.NewObserverLogger("warn")
	sink := notify.NewLogSink(l)

	require.NoError(t, sink.Notify(ctx, notify.ThresholdViolation(set, delta.Result{}, 1)))
	require.NoError(t, sink.Notify(ctx, notify.CycleReport(uuid.New(), []crawler.CycleRecord{crawler.NewCycleRecord(uuid.New())})))
	require.NoError(t, sink.Notify(ctx, notify.JobDisabled(set, delta.Result{}, 3)))
	require.Error(t, sink.Notify(ctx, notify.Notification{}))

	require.Equal(t, 2, logs.FilterMessage("sync notification").Len())
	require.Equal(t, 1, logs.FilterMessage("sync job disabled").Len())
}

func TestMultiSink(t *testing.T) {
	ctx := context.Background()
	n := notify.CycleReport(uuid.New(), nil)

	t.Run("delivers_to_all", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		first := mocks.NewMockSink(ctrl)
		second := mocks.NewMockSink(ctrl)
		first.EXPECT().Notify(gomock.Any(), n).Return(nil)
		second.EXPECT().Notify(gomock.Any(), n).Return(nil)

		require.NoError(t, notify.NewMultiSink(first, second).Notify(ctx, n))
	})

	t.Run("failure_does_not_stop_delivery", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		failing := mocks.NewMockSink(ctrl)
		healthy := mocks.NewMockSink(ctrl)
		boom := errors.New("boom")
		failing.EXPECT().Notify(gomock.Any(), n).Return(boom)
		healthy.EXPECT().Notify(gomock.Any(), n).Return(nil)

		err := notify.NewMultiSink(failing, healthy).Notify(ctx, n)
		require.ErrorIs(t, err, boom)
	})

	t.Run("empty", func(t *testing.T) {
		require.NoError(t, notify.NewMultiSink().Notify(ctx, n))
		require.NoError(t, notify.NoopSink{}.Notify(ctx, n))
	})
}
