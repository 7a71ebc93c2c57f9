package observability

import (
	"github.com/rs/zerolog"
)

// Component returns base tagged with the owning component name.
func Component(base zerolog.Logger, component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}
