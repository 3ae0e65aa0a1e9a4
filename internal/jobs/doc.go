// Package jobs runs download and summarize work for single videos and
// coordinates admission so each video has at most one in-flight job per
// kind. The runner owns one job's end-to-end flow; the orchestrator owns
// the activity state and the lifecycle events broadcast to clients.
package jobs
