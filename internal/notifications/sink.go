package notifications

import "context"

// Sink receives fire-and-forget signals from the reservation engine. Failures
// are logged by the caller and never propagated to the buyer.
type Sink interface {
	NotifyTicketsIssued(ctx context.Context, recipientEmail, eventTitle string, ticketCount int) error
	RecordActivity(ctx context.Context, kind, summary string) error
}

// NoopSink is used in tests and kafka-less deployments.
type NoopSink struct{}

func (NoopSink) NotifyTicketsIssued(context.Context, string, string, int) error { return nil }
func (NoopSink) RecordActivity(context.Context, string, string) error           { return nil }
