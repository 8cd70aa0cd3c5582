package instance

import (
	"os"

	"github.com/angelmondragon/larder-backend/pkg/env"
)

const defaultID = "larder-0"

// ID names the running process in logs. LARDER_INSTANCE_ID wins, then the
// container hostname.
func ID() string {
	if id := env.Get("LARDER_INSTANCE_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return defaultID
}
