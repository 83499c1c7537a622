package operations

import (
	"time"
)

// Config represents the pipeline execution configuration. Steps run
// sequentially in registration order; there is no retry machinery, a
// failed step fails the operation and the remaining steps are skipped.
type Config struct {
	// Step-specific timeouts
	StepTimeouts map[string]time.Duration `json:"step_timeouts"`
}

// NewConfig returns the default pipeline configuration
func NewConfig() *Config {
	return &Config{
		StepTimeouts: map[string]time.Duration{
			StepIDIngest:    DefaultIngestTimeout,
			StepIDClean:     DefaultCleanTimeout,
			StepIDExport:    DefaultExportTimeout,
			StepIDCharts:    DefaultChartsTimeout,
			StepIDDashboard: DefaultDashboardTimeout,
			StepIDPDF:       DefaultPDFTimeout,
		},
	}
}

// GetStepTimeout returns the timeout for a specific step
func (c *Config) GetStepTimeout(stepID string) time.Duration {
	if timeout, ok := c.StepTimeouts[stepID]; ok {
		return timeout
	}
	return DefaultStepTimeout
}

// SetStepTimeout sets the timeout for a specific step
func (c *Config) SetStepTimeout(stepID string, timeout time.Duration) {
	if c.StepTimeouts == nil {
		c.StepTimeouts = make(map[string]time.Duration)
	}
	c.StepTimeouts[stepID] = timeout
}
