// Package app wires the incident dashboard together: configuration,
// logging, telemetry, the dataset cache, the session store, the WebSocket
// hub and the HTTP router.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, the YAML file and GCTI_* variables
//	2. Initialize logging and OpenTelemetry
//	3. Create the dataset cache and session store
//	4. Start the WebSocket hub and subscribe it to session events
//	5. Set up handlers and middleware
//	6. Start the HTTP server and warm the default dataset
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// # Graceful Shutdown
//
// Run stops on SIGINT or SIGTERM. Connected clients get a final system
// status message, in-flight requests finish within the shutdown timeout,
// the session janitor and hub stop, and telemetry is flushed.
package app
