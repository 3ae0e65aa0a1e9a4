// Package main hosts the tubewatch CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon: channel management, video listings, download and
// summarization jobs, live event watching, and configuration scaffolding.
// Configuration resolution and API address discovery are centralized so
// subcommands can focus on user experience instead of wiring.
package main
