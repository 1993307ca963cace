package engine

import "fmt"

const timestampLayout = "2006-01-02 15:04:05"

// compose builds the cycle's message text. The first-found timestamp is
// captured on the first "found" cycle and reused for the rest of the run.
func (e *Engine) compose(found bool) string {
	now := e.now()
	stamp := now.Format(timestampLayout)

	if !found {
		return fmt.Sprintf("Not yet... Last checked at %s", stamp)
	}

	if e.firstFoundAt.IsZero() {
		e.firstFoundAt = now
	}
	return fmt.Sprintf("Job found! Initially found at %s. Last verified at %s.\n/deactivate",
		e.firstFoundAt.Format(timestampLayout), stamp)
}
