// Package envelope builds request envelopes sent to the Handoff daemon and
// decodes the response envelopes it returns.
//
// Requests carry a fresh UUID, a UTC timestamp, the event name, and optional
// content. Responses keep their content as raw JSON because its shape depends
// on the event; typed decoding lives with the callers that know the event.
package envelope
