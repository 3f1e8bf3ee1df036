// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package collab defines the chat service the transcript controller depends
// on and ships a local implementation of it.
//
// # Key Types
//
//   - Collaborator: history pages, sends, uploads, typing and read receipts
//   - Directory: chat listing
//   - Publisher / Event: pushed messages, peer typing and read receipts
//   - Local: SQLite-backed service keeping one history cursor per chat
//   - Simulator: demo peers that type and post in the active chat
//
// # Usage
//
//	svc := collab.NewLocal(store, collab.LocalOptions{UserID: "me"})
//	unsubscribe := svc.Subscribe(func(ev collab.Event) { loop.Post(func() { ctrl.Receive(ev) }) })
//	defer unsubscribe()
//
// Event handlers run on the publisher's goroutine. Hop onto the event loop
// before touching controller state.
package collab
