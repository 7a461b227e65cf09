// Package startup handles application configuration and startup logging.
//
// Configuration is loaded from environment variables with validated
// defaults. The package also owns build information injected at link time
// and the structured startup/shutdown banner output.
package startup
