package commander

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// recordDateLayout is the date key format for attendance records
const recordDateLayout = "20060102"

var recordDatePattern = regexp.MustCompile(`^\d{8}$`)

// AttendanceRecord is the set of member IDs recorded as present for one
// (guild, date). The stored wire form is a space-joined, lexically
// sorted, duplicate-free list; the record is always written in full.
type AttendanceRecord struct {
	members map[string]struct{}
}

// ParseAttendanceRecord parses the stored wire form. Duplicates collapse.
func ParseAttendanceRecord(raw string) AttendanceRecord {
	record := AttendanceRecord{members: map[string]struct{}{}}
	for _, id := range strings.Fields(raw) {
		record.members[id] = struct{}{}
	}
	return record
}

// NewAttendanceRecord builds a record from the given member IDs.
func NewAttendanceRecord(memberIDs ...string) AttendanceRecord {
	record := AttendanceRecord{members: map[string]struct{}{}}
	for _, id := range memberIDs {
		if id != "" {
			record.members[id] = struct{}{}
		}
	}
	return record
}

func (r AttendanceRecord) Len() int {
	return len(r.members)
}

func (r AttendanceRecord) Contains(memberID string) bool {
	_, ok := r.members[memberID]
	return ok
}

// Add inserts the given member IDs, returning the IDs that were not
// already present.
func (r AttendanceRecord) Add(memberIDs ...string) []string {
	var added []string
	for _, id := range memberIDs {
		if id == "" {
			continue
		}
		if _, ok := r.members[id]; !ok {
			added = append(added, id)
		}
		r.members[id] = struct{}{}
	}
	return added
}

// Remove deletes the given member IDs, returning the IDs that were
// actually present.
func (r AttendanceRecord) Remove(memberIDs ...string) []string {
	var removed []string
	for _, id := range memberIDs {
		if _, ok := r.members[id]; ok {
			removed = append(removed, id)
			delete(r.members, id)
		}
	}
	return removed
}

// MemberIDs returns the member IDs in ascending lexical order.
func (r AttendanceRecord) MemberIDs() []string {
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// String renders the stored wire form: sorted, deduplicated,
// space-joined. Parse→String round-trips are idempotent.
func (r AttendanceRecord) String() string {
	return strings.Join(r.MemberIDs(), " ")
}

// isValidRecordDate reports whether date is an 8-digit YYYYMMDD string
// naming a real calendar date.
func isValidRecordDate(date string) bool {
	if !recordDatePattern.MatchString(date) {
		return false
	}
	_, err := time.Parse(recordDateLayout, date)
	return err == nil
}

// recordDate formats t as a record date key in UTC.
func recordDate(t time.Time) string {
	return t.UTC().Format(recordDateLayout)
}
