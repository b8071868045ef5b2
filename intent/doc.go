// Package intent classifies learner messages into coarse intent categories
// using keyword patterns. Detected intents are recorded on user turns so the
// Director and downstream analytics can reason about the learner's approach
// without an extra model call.
package intent
