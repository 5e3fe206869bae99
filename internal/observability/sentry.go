// Package observability holds the Sentry hookup used by handlers, jobs and
// the notifier to report unexpected failures.
package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry configures the global Sentry client and returns a flush func
// for shutdown. An empty DSN disables reporting, so local runs need no
// Sentry account.
func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	})
	if err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureErr forwards the error to Sentry. Nil errors are ignored, so call
// sites need no guard.
func CaptureErr(err error) {
	if err != nil {
		sentry.CaptureException(err)
	}
}
