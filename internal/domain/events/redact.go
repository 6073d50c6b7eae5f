package events

import "github.com/citycal/server/internal/domain/identity"

// RedactContact strips organizer contact info from records read by
// non-elevated callers. Elevated callers see events unchanged. Nil and
// empty inputs are no-ops.
func RedactContact(caller identity.Identity, records []Event) []Event {
	if caller.Elevated {
		return records
	}
	for i := range records {
		records[i].OrganizerContact = nil
	}
	return records
}

// RedactContactOne applies the same stripping to a single record.
func RedactContactOne(caller identity.Identity, record *Event) *Event {
	if caller.Elevated || record == nil {
		return record
	}
	record.OrganizerContact = nil
	return record
}
