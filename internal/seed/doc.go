// Package seed loads YAML fixtures into the entity store.
//
// Example:
//
//	schools:
//	  - {key: a, name: School A}
//	candidates:
//	  - key: john
//	    name: John
//	    reminders:
//	      - {age: 30h, type: invitations, urgency: nudge, items: [inv1]}
//	invitations:
//	  - {key: inv1, candidate: john, school: a, age: 50h}
//	  - {candidate: john, school: a, age: 80h, status: accepted, resolved_after: 2h}
//	messages:
//	  - {candidate: john, school: a, age: 26h, read_after: 1h}
package seed
