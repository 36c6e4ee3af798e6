package constants

// Application identity
const (
	APP_NAME    = "pulsepc"
	APP_TITLE   = "PulsePC"
	ENV_PREFIX  = "PULSEPC"
	METRIC_NAME = "pulsepc"
)

// Refresh engine defaults
const (
	DEFAULT_REFRESH_INTERVAL   = "2s"    // minimum time between cycle starts
	DEFAULT_IDLE_POLL_INTERVAL = "250ms" // quiescent poll while no dynamic category is active
	DEFAULT_PROVIDER_TIMEOUT   = "5s"    // per-provider call cap
	DEFAULT_CPU_SAMPLE_WINDOW  = "100ms" // shortest window giving a meaningful usage figure
	MIN_CPU_SAMPLE_WINDOW      = "100ms"
	DEFAULT_SHUTDOWN_GRACE     = "3s"
	DEFAULT_POWERSHELL_TIMEOUT = "5s"
)

// Thermal plausibility bounds, exclusive on both ends
const (
	DEFAULT_THERMAL_MIN_CELSIUS = 0.0
	DEFAULT_THERMAL_MAX_CELSIUS = 150.0
)

// Windows 11 reports itself as NT 10.0; the build number tells them apart
const (
	DEFAULT_WINDOWS11_MIN_BUILD = 22000
)

// Limits on enumerations that can get long
const (
	MAX_PERIPHERALS_PER_CLASS = 10
)

// Export defaults
const (
	DEFAULT_METRICS_LISTEN = ":9464"
	DEFAULT_LOG_LEVEL      = "info"
	OTLP_PATH              = "/v1/metrics"
	OTLP_EXPORT_INTERVAL   = "15s"
	INSTRUMENTATION_SCOPE  = "pulsepc/telemetry"
	VERSION                = "0.4.0"
)

// File paths
const (
	CONFIG_DIR_NAME = "/.pulsepc"
	PID_FILE        = "/tmp/pulsepc.pid"
	LOG_FILE        = "/tmp/pulsepc.log"
	SYSFS_ROOT      = "/"
)
