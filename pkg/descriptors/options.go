package descriptors

import "github.com/hashicorp/go-hclog"

// config holds the Manager configuration.
type config struct {
	logger          hclog.Logger
	checkSlotNumber bool
}

func defaultConfig() config {
	return config{
		logger: hclog.NewNullLogger(),
	}
}

// Option is a functional option for configuring a Manager.
type Option func(*config)

// WithLogger sets a logger for validation diagnostics. Nothing is logged by
// default.
func WithLogger(logger hclog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSlotNumberCheck additionally requires each descriptor's
// AppSlotNumber to equal its position in the array. The default accepts any
// value, matching what deployed bootloaders tolerate.
func WithSlotNumberCheck() Option {
	return func(c *config) {
		c.checkSlotNumber = true
	}
}
