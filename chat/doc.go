// Package chat holds the collaborators the chatguard CLI drives: an API
// client for the chat backend, the social-graph feature controller, a static
// element document and the guarded uploader.
//
// Failures from the client are published on a bootstrap.EventBus so that an
// attached orchestrator can schedule recovery of the affected feature.
package chat
