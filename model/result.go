package model

type Status uint8

const (
	// Missing means the key was absent and no default was supplied.
	Missing Status = iota
	// Found means the key was present.
	Found
	// Defaulted means the key was absent and the supplied default was returned.
	Defaulted
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Defaulted:
		return "defaulted"
	default:
		return "missing"
	}
}

// Result is the outcome of a keyed read or removal.
//
// Record is set for Full projections and removals, Fields for AllFields/Only.
// Invalidated reports that this read consumed the record's last allowed fetch
// and removed it from the segment.
type Result struct {
	Status      Status
	Record      *Record
	Fields      Fields
	Default     any
	Invalidated bool
}

func (r Result) Found() bool { return r.Status == Found }

// Value returns whichever payload the result carries.
func (r Result) Value() any {
	switch r.Status {
	case Found:
		if r.Record != nil {
			return r.Record
		}
		return r.Fields
	case Defaulted:
		return r.Default
	default:
		return nil
	}
}
