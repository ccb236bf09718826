package model

// Reason tokens surfaced on rejected events, failed graph construction and
// failed steps or jobs. External reporting matches on these exact values.
const REASON_MALFORMED_EVENT = "malformed-event"
const REASON_UNKNOWN_DEPENDENCY = "unknown-dependency"
const REASON_CYCLIC_DEPENDENCY = "cyclic-dependency"
const REASON_STEP_UNRESOLVABLE = "step-unresolvable"
const REASON_SLOT_TIMEOUT = "slot-timeout"
