// Package reminder decides which candidates get a reminder.
//
// It has three parts:
//   - Classify maps an item's age to an urgency level.
//   - ThrottlePolicy limits reminders per candidate (daily and weekly).
//   - Engine.EvaluateAll ties them together over every candidate in the store.
//
// Time is always passed in explicitly so every decision is reproducible.
package reminder
