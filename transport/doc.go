// Package transport provides the net/http implementation of fetch.Transport.
//
// A Client performs exactly one HTTP exchange per Do call. It never retries:
// retry decisions belong to the fetcher's evaluator.
//
// Credentials
//   - Basic auth and the cookie jar are sent for CredentialsInclude.
//   - CredentialsSameOrigin sends them only when the target shares scheme and
//     host with the configured base URL (or when no base URL is configured).
//   - CredentialsOmit never sends them.
//
// Tracing
//   - A request ID header (default X-Request-ID) is added when absent, taken
//     from the context or generated with uuid.
//   - With W3C tracing enabled, traceparent/tracestate come from the active
//     OpenTelemetry span, then from the context, and are generated otherwise.
//
// Errors
//   - Network failures, timeouts, interceptor failures and rate-limit waits
//     surface as ClientError values; HTTP statuses are never errors here.
package transport
