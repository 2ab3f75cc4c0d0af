// File: internal/notify/notify.go
package notify

import (
	"context"
	"fmt"
)

// Kind labels an event for logs and metrics.
type Kind string

const (
	KindFound Kind = "found"
	KindAdded Kind = "added"
	KindFatal Kind = "fatal"
	KindTest  Kind = "test"
)

const subjectSuffix = " - ELECTIVES SCRAPER"

// Event is a fire-and-forget message to the operator.
type Event struct {
	Kind    Kind
	Subject string
	Body    string
}

// Channel delivers events to the operator. Send blocks until the message is
// handed to the transport; a failure is reported as a DeliveryFault and is
// never retried by the channel.
type Channel interface {
	Send(ctx context.Context, ev Event) error
}

// Found announces an actionable control.
func Found(token string) Event {
	return Event{
		Kind:    KindFound,
		Subject: "COURSE FOUND" + subjectSuffix,
		Body:    fmt.Sprintf("Found addable course: %s", token),
	}
}

// Added announces a control that was clicked successfully.
func Added(token string) Event {
	return Event{
		Kind:    KindAdded,
		Subject: "COURSE ADDED" + subjectSuffix,
		Body:    fmt.Sprintf("Added course: %s", token),
	}
}

// Fatal reports the fault that stopped the supervisor.
func Fatal(err error, runID string) Event {
	body := fmt.Sprintf("Scraper stopped with exception:\n%v", err)
	if runID != "" {
		body += fmt.Sprintf("\n\nrun id: %s", runID)
	}
	return Event{
		Kind:    KindFatal,
		Subject: "Fatal exception" + subjectSuffix,
		Body:    body,
	}
}

// Test is the message sent by the notify-test command.
func Test() Event {
	return Event{
		Kind:    KindTest,
		Subject: "TEST" + subjectSuffix,
		Body:    "Notification channel is configured correctly",
	}
}
