// Package engine executes scheduled work one task at a time.
//
// Triggers (the scheduler, the CLI, the HTTP trigger) enqueue tasks; a single
// supervised worker drains the queue in order, so two evaluation ticks never
// run concurrently. Failures and panics are recorded in history and published
// on the event bus; they never stop the worker.
package engine
