// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

// Package chat keeps bounded multi-turn conversation histories for the AI
// tool-calling layer. There is no background timer: expiry is swept lazily.
package chat
