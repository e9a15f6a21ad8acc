// Package app wires aadhaarcli together and manages its lifecycle.
//
// New builds the analysis stack shared by the CLI and the server:
// observability, the stage pipeline, the optional SQLite run history and the
// analysis and health services. NewServer adds the chi router, the HTTP
// server and the WebSocket hub that streams run progress.
//
// Typical server usage:
//
//	application, err := app.NewServer(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run()
package app
