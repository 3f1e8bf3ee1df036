// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session orchestrates the live transcript of the active chat.
//
// # Key Types
//
//   - Store: explicit session store shared by views, with an Open/Close
//     lifecycle per chat and change notifications
//   - Controller: wires grouping, scroll anchoring, autoscroll, pagination
//     and the typing heartbeat to the active chat
//   - State: the render-ready node sequence plus the flags the view needs
//
// # Usage
//
//	store := session.NewStore(me)
//	ctrl := session.NewController(loop, store, svc, surface, view, session.Options{UserID: me})
//	ctrl.Open(chatID)
//	ctrl.Keystroke(input)
//	ctrl.Send(input)
//
// # Threading
//
// Controller runs on a schedule.Loop and is not safe for concurrent use.
// Push events from the service must be posted onto the loop before calling
// Receive. Every timer the controller arms checks that the chat it was armed
// for is still active before doing anything.
package session
