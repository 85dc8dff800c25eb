// Package notify delivers operator notifications about sync runs.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/openfga/membersync/pkg/crawler"
	"github.com/openfga/membersync/pkg/delta"
	"github.com/openfga/membersync/pkg/membership"
)

//go:generate mockgen -source notify.go -destination ../../internal/mocks/mock_notify.go -package mocks Sink

// Kind classifies a [Notification].
type Kind int

const (
	KindUnspecified Kind = iota
	KindThresholdViolation
	KindJobDisabled
	KindCycleReport
)

func (k Kind) String() string {
	switch k {
	case KindThresholdViolation:
		return "threshold_violation"
	case KindJobDisabled:
		return "job_disabled"
	case KindCycleReport:
		return "cycle_report"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Notification is a single event worth telling an operator about. Which
// fields are set depends on Kind.
type Notification struct {
	Kind Kind

	JobID       string
	RunID       string
	Destination membership.Destination

	// Delta is set for threshold violations and disabled jobs.
	Delta *delta.Result

	// Violations is the job's consecutive violation count.
	Violations int

	// Root and Cycles are set for cycle reports.
	Root   uuid.UUID
	Cycles []crawler.CycleRecord
}

// Sink delivers notifications. Implementations must be safe for concurrent use.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// ThresholdViolation reports a delta that was not applied because it exceeded
// a threshold.
func ThresholdViolation(set membership.MembershipSet, result delta.Result, violations int) Notification {
	return Notification{
		Kind:        KindThresholdViolation,
		JobID:       set.JobID,
		RunID:       set.RunID,
		Destination: set.Destination,
		Delta:       &result,
		Violations:  violations,
	}
}

// JobDisabled reports a job turned off after too many consecutive violations.
func JobDisabled(set membership.MembershipSet, result delta.Result, violations int) Notification {
	n := ThresholdViolation(set, result, violations)
	n.Kind = KindJobDisabled
	return n
}

// CycleReport reports the nested group cycles met while crawling root.
func CycleReport(root uuid.UUID, cycles []crawler.CycleRecord) Notification {
	return Notification{
		Kind:   KindCycleReport,
		Root:   root,
		Cycles: cycles,
	}
}
