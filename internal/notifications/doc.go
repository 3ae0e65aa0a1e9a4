// Package notifications delivers push notifications for pipeline milestones
// through ntfy. When no topic is configured every notification is a no-op.
package notifications
