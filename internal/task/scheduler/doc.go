// Package scheduler decides when evaluation ticks fire.
//
// It turns the weekly day/time configuration into cron schedules
// (robfig/cron) and, on each firing, enqueues one tick into the task engine.
// Execution, ordering and failure isolation belong to the engine.
package scheduler
