// Package engine runs a query through the full resolution pipeline:
// deterministic intents first, then retrieval, bounded generation with tool
// dispatch, and numeric verification of whatever comes back.
package engine

import "txcopilot/internal/intent"

// Result is the grounded answer shape shared with the deterministic path.
type Result = intent.Result
