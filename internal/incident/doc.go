// Package incident implements the triage conversation workflow: the
// per-incident state machine, the stage transition policy, parsing of model
// output into structured data with safe fallbacks, and the side-effect
// dispatch that fires exactly once when a diagnosis is produced.
package incident
