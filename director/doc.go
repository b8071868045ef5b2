// Package director implements the supervisor that audits every candidate NPC
// reply before it reaches the learner. The audit evaluates, in order: safety
// and policy violations (intervene), scenario objective progress (state
// update), persona consistency (revise), and otherwise accepts. It may also
// emit a coaching hint when the learner looks stuck.
//
// The audit is a pure function of the conversation plus persona and scenario
// configuration; its only external effect is the generation gateway call used
// to reason about the candidate.
package director
