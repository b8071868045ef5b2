// Package gateway defines the capability ports the orchestration core
// consumes: text generation and knowledge retrieval. Concrete provider
// adapters (OpenAI, local models, vector databases) live outside this module
// and plug in behind these interfaces; the core never branches on provider
// identity.
package gateway
