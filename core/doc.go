// Package core holds the small set of domain types shared by the agent layers:
// role based conversational content (Content and its Parts), identifiers and
// the ToolContext handed to tools while an executor run is in flight.
//
// The package has no knowledge of concrete models, tools or transports so the
// higher layers (model, tool, memory, agent) can depend on it without cycles.
package core
