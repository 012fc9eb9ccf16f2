// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

/*
Package vision adapts external camera and classifier services to the sampler.

FrameClient reads JPEG snapshots from a camera bridge over HTTP (for example
an mjpg-streamer or go2rtc snapshot endpoint). ClassifierClient posts frames
to a facial emotion classification service and expects a JSON reply:

	{"dominant_emotion": "happy", "scores": {"happy": 0.91, "neutral": 0.05}}

Both clients run behind circuit breakers, so a dead service fails fast
instead of stalling the capture loop.
*/
package vision
