package health

// Health status constants represent the operational state of a component.
const (
	// StatusHealthy indicates the component is fully operational.
	StatusHealthy = "healthy"

	// StatusDegraded indicates the component works with reduced function,
	// e.g. a queue without live workers.
	StatusDegraded = "degraded"

	// StatusUnhealthy indicates the component is not operational.
	StatusUnhealthy = "unhealthy"
)

// Status is the outcome of one check.
type Status struct {
	// Name identifies the check, e.g. "config" or "redis".
	Name string `json:"name"`

	// Status is the current health state (healthy, degraded, or unhealthy).
	Status string `json:"status"`

	// Message provides a human-readable description of the health status.
	Message string `json:"message,omitempty"`

	// Details contains additional diagnostic information.
	Details map[string]any `json:"details,omitempty"`
}

// IsHealthy returns true if the status is StatusHealthy.
func (s Status) IsHealthy() bool {
	return s.Status == StatusHealthy
}

// IsDegraded returns true if the status is StatusDegraded.
func (s Status) IsDegraded() bool {
	return s.Status == StatusDegraded
}

// IsUnhealthy returns true if the status is StatusUnhealthy.
func (s Status) IsUnhealthy() bool {
	return s.Status == StatusUnhealthy
}

// Healthy creates a healthy status.
func Healthy(name, message string) Status {
	return Status{Name: name, Status: StatusHealthy, Message: message}
}

// Degraded creates a degraded status with optional details.
func Degraded(name, message string, details map[string]any) Status {
	return Status{Name: name, Status: StatusDegraded, Message: message, Details: details}
}

// Unhealthy creates an unhealthy status with optional details.
func Unhealthy(name, message string, details map[string]any) Status {
	return Status{Name: name, Status: StatusUnhealthy, Message: message, Details: details}
}
