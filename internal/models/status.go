package models

// Status is the frontend task status
type Status string

const (
	StatusNotStarted Status = "NotStarted"
	StatusInProgress Status = "InProgress"
	StatusDone       Status = "Done"
	StatusArchive    Status = "Archive"
)

// Statuses lists every status in display order
var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusDone, StatusArchive}

var toBackend = map[Status]string{
	StatusNotStarted: "pending",
	StatusInProgress: "in_progress",
	StatusDone:       "completed",
	StatusArchive:    "archived",
}

var fromBackend = map[string]Status{
	"pending":     StatusNotStarted,
	"in_progress": StatusInProgress,
	"completed":   StatusDone,
	"archived":    StatusArchive,
}

// StatusToBackend maps a status to the backend code.
// Unknown statuses map to the NotStarted code.
func StatusToBackend(s Status) string {
	if code, ok := toBackend[s]; ok {
		return code
	}
	return toBackend[StatusNotStarted]
}

// StatusFromBackend maps a backend code to a status, defaulting to NotStarted
func StatusFromBackend(code string) Status {
	if s, ok := fromBackend[code]; ok {
		return s
	}
	return StatusNotStarted
}

// ParseStatus accepts either a frontend name or a backend code
func ParseStatus(s string) (Status, bool) {
	if _, ok := toBackend[Status(s)]; ok {
		return Status(s), true
	}
	st, ok := fromBackend[s]
	return st, ok
}

// Order returns the fixed display position of the status
func (s Status) Order() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return 0
}

// Label returns a human readable name
func (s Status) Label() string {
	switch s {
	case StatusInProgress:
		return "In progress"
	case StatusDone:
		return "Done"
	case StatusArchive:
		return "Archived"
	default:
		return "Not started"
	}
}

// Next cycles to the following status in display order
func (s Status) Next() Status {
	return Statuses[(s.Order()+1)%len(Statuses)]
}
