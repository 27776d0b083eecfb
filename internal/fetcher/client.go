package fetcher

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// ClientOptions configures the HTTP client used for remote fixtures and the
// offline precache.
type ClientOptions struct {
	// Retries is the number of extra attempts after a failed request.
	// Zero disables retrying.
	Retries int
	// Timeout bounds a single request. Zero means no timeout.
	Timeout time.Duration
	Logger  zerolog.Logger
}

// NewClient returns an *http.Client backed by retryablehttp.
func NewClient(opts ClientOptions) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.Retries
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Logger = leveledLogger{log: opts.Logger}
	// Hand non-2xx responses back to the caller instead of an opaque
	// "giving up" error once retries are exhausted.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc.StandardClient()
}

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.event(l.log.Error(), msg, kv) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.event(l.log.Debug(), msg, kv) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.event(l.log.Trace(), msg, kv) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.event(l.log.Warn(), msg, kv) }

func (l leveledLogger) event(e *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		e = e.Interface(fmt.Sprint(kv[i]), kv[i+1])
	}
	e.Msg(msg)
}
