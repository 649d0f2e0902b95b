package monitor

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
)

// InvalidInputError reports unusable engine input. It is fatal to a cycle.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// PartialDataError reports channels whose snapshots could not be fetched.
// The cycle continues with empty snapshots for them.
type PartialDataError struct {
	Channels map[string]error
}

func (e *PartialDataError) Error() string {
	return fmt.Sprintf("partial data: %d channel(s) unavailable: %s",
		len(e.Channels), strings.Join(e.ChannelIDs(), ", "))
}

// ChannelIDs returns the failed channel ids in sorted order.
func (e *PartialDataError) ChannelIDs() []string {
	return slices.Sorted(maps.Keys(e.Channels))
}

// HistoryStoreError reports an unavailable alert history store. The
// cooldown gate degrades to notifying every alert.
type HistoryStoreError struct {
	Op  string
	Key model.HistoryKey
	Err error
}

func (e *HistoryStoreError) Error() string {
	return fmt.Sprintf("alert history %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *HistoryStoreError) Unwrap() error { return e.Err }

// IncompleteReportError reports required report fields missing at assembly.
type IncompleteReportError struct {
	Missing []string
}

func (e *IncompleteReportError) Error() string {
	return "incomplete report: missing " + strings.Join(e.Missing, ", ")
}
