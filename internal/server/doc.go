// Package server exposes the HTTP surface of the daemon: a JSON API for
// querying videos and starting jobs, and a server-sent event stream that
// pushes lifecycle events to connected clients.
package server
