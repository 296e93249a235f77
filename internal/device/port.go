// Package device defines the scheduling port the planner writes through:
// the on-device notification facility (or a server-side stand-in for it).
package device

import (
	"context"
	"time"
)

// FireSpec describes when a scheduled notification fires
type FireSpec struct {
	Hour     int
	Minute   int
	Weekdays []time.Weekday // empty = every day
}

// Request is one schedule request issued by the planner. ID is the stable
// identifier derived from the config key; issuing the same ID again replaces
// the existing entry instead of duplicating it.
type Request struct {
	ID      int32
	Title   string
	Body    string
	Sound   string
	Spec    FireSpec
	Payload map[string]string
}

// Port is the device scheduling facility. The planner is its only writer.
// On unsupported runtimes every operation is a safe no-op and Supported
// reports false.
type Port interface {
	Schedule(ctx context.Context, req *Request) error
	Cancel(ctx context.Context, ids []int32) error
	Pending(ctx context.Context) ([]int32, error)
	Supported() bool
}
