// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

/*
Package services adapts Moodscore components that do not already implement
suture.Service.

  - HTTPServerService turns ListenAndServe/Shutdown into Serve(ctx).
  - MonitorService starts the correlation loop when auto-start is configured
    and stops it, bounded by a timeout, when the tree shuts down.
  - NATSServerService owns the embedded NATS server's shutdown.

Components with their own Serve method (the WebSocket hub and relay, the
event forwarder, badger GC) are added to the tree directly.
*/
package services
