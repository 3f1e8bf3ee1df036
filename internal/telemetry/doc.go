// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry provides Prometheus metrics for the transcript controller.
//
// # Key Types
//
//   - Metrics: counters and histograms for pagination, anchoring, typing,
//     sends and read receipts
//
// # Usage
//
//	m := telemetry.New(prometheus.NewRegistry())
//	m.PageLoaded(120*time.Millisecond, nil)
//
// A nil *Metrics is valid and records nothing, so components take one
// optionally. Serve exposes a registry on /metrics when the user asks for it.
//
// # Privacy
//
// Metrics are local-only. No message content or chat id is recorded.
package telemetry
