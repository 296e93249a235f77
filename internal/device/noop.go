package device

import "context"

// NoopPort is the Port used on runtimes without a notification facility.
// Every operation succeeds without doing anything.
type NoopPort struct{}

// NewNoopPort creates a no-op port
func NewNoopPort() *NoopPort {
	return &NoopPort{}
}

// Schedule does nothing
func (p *NoopPort) Schedule(ctx context.Context, req *Request) error {
	return nil
}

// Cancel does nothing
func (p *NoopPort) Cancel(ctx context.Context, ids []int32) error {
	return nil
}

// Pending reports no entries
func (p *NoopPort) Pending(ctx context.Context) ([]int32, error) {
	return nil, nil
}

// Supported reports false
func (p *NoopPort) Supported() bool {
	return false
}
