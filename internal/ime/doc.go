// Package ime implements the composition front end of the Wayland
// Chewing input method: key routing, candidate panel navigation, key
// repeat emulation and the activation lifecycle.
//
// # Architecture Overview
//
// Protocol notifications arrive on the Wayland pump goroutine and are
// posted into a Mailbox. A single loop goroutine (Session.Run) drains
// the mailbox and is the only code that touches session state, the
// composition engine, or the candidate panel:
//
//	compositor ──► pump ──► Mailbox ──► Session.Run ──► Engine
//	                           ▲              │
//	repeat timer ──────────────┘              ├──► Transport (preedit, commit)
//	control bus  ──────────────┘              ├──► Forwarder (virtual keyboard)
//	config watch ──────────────┘              └──► PanelRenderer
//
// # Modes
//
// Exactly one mode is active at a time:
//
//	┌─────────────────┬──────────────────────────────────────────────┐
//	│ Mode            │ Behavior                                     │
//	├─────────────────┼──────────────────────────────────────────────┤
//	│ Composing       │ keys feed the engine; preedit is published   │
//	│ CandidateSelect │ arrow keys move through the candidate panel  │
//	│ Forwarding      │ keys pass through to the application         │
//	└─────────────────┴──────────────────────────────────────────────┘
//
// The toggle chord (Control+space by default) switches between
// Composing and Forwarding and is recognized in every mode.
package ime
