package testing

import "time"

// Logger constants
const (
	// TestLoggerLevelDebug is the debug log level used in most tests
	TestLoggerLevelDebug = "debug"
	// TestLoggerLevelDisabled completely disables logging in tests
	TestLoggerLevelDisabled = "disabled"
)

// Endpoint constants
const (
	TestBaseURL      = "https://api.example.com"
	TestEndpointName = "get-widget"
	TestWidgetPath   = "/widgets/{id}"
	TestWidgetID     = "42"
	TestWidgetName   = "gear"
)

// Time duration constants
const (
	// TestRetryDelay keeps retry loops fast in tests
	TestRetryDelay = time.Millisecond
	// TestEventuallyTimeout is the timeout for require.Eventually assertions
	TestEventuallyTimeout = 500 * time.Millisecond
	// TestEventuallyTick is the polling interval for require.Eventually
	TestEventuallyTick = 10 * time.Millisecond
)
