// Package npc builds grounded prompts for NPC personas and produces candidate
// reply turns through the generation gateway. It holds no state and persists
// nothing; the orchestrator owns the conversation it is handed.
//
// Prompt sections are assembled in a fixed order so that static content leads
// and dynamic content trails: persona rules, retrieved knowledge, recent
// history window, current instruction. Consumers that cache prompt prefixes
// rely on this order never changing between calls for the same persona.
package npc
