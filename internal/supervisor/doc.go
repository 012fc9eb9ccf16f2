// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

/*
Package supervisor provides process supervision for Moodscore using suture v4.

Long-running services are organized into a tree so each layer restarts
independently:

	RootSupervisor ("moodscore")
	├── DataSupervisor ("data-layer")
	│   └── badger value-log GC (badger driver only)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── NATSServerService (embedded NATS only)
	│   ├── event-forwarder
	│   ├── websocket-hub
	│   └── websocket-relay
	├── MonitoringSupervisor ("monitoring-layer")
	│   └── MonitorService (monitor.auto_start only)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

The correlation loop itself is not a suture service: it is started and
stopped over the API. MonitorService only performs the optional autostart
and stops the loop on shutdown.

Supervisor events are logged through sutureslog using the slog bridge from
internal/logging.

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    FailureThreshold: cfg.Supervisor.FailureThreshold,
	    FailureBackoff:   cfg.Supervisor.FailureBackoff,
	    ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	tree.AddMessagingService(hub)
	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second))
	err = tree.Serve(ctx)
*/
package supervisor
