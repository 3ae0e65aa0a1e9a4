// Package youtube discovers recently published videos for tracked channels
// by scraping the channel videos page. A poller runs the discovery loop on
// an interval and broadcasts anything unseen.
package youtube
