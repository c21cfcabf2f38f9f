package activity

import (
	"strings"
	"time"
)

// Type classifies an aid activity.
type Type string

const (
	TypeTransit      Type = "transit"
	TypeArrival      Type = "arrival"
	TypeDistribution Type = "distribution"
	TypeClass        Type = "class"
	TypeCompletion   Type = "completion"
	TypeUpdate       Type = "update"
	TypeOther        Type = "other"
)

// AttachmentKind distinguishes photo and document attachments.
type AttachmentKind string

const (
	AttachmentPhoto    AttachmentKind = "photo"
	AttachmentDocument AttachmentKind = "document"
)

// Attachment references a file shared during intake. FileID is the
// transport-native handle; PublicURL is set only when the object store
// upload succeeded.
type Attachment struct {
	Kind      AttachmentKind `json:"kind"`
	FileID    string         `json:"file_id,omitempty"`
	PublicURL string         `json:"public_url,omitempty"`
}

// Coordinates is a lat/lng pair from a device share or a geocoder hit.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Count holds a tally that is either numeric or preserved free text.
// Both fields empty means the count is unknown. Downstream aggregation
// re-attempts numeric extraction from Text independently.
type Count struct {
	Number *int64 `json:"number,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Known reports whether any count was captured.
func (c Count) Known() bool {
	return c.Number != nil || c.Text != ""
}

// String renders the count for display.
func (c Count) String() string {
	if c.Number != nil {
		return formatInt(*c.Number)
	}
	return c.Text
}

// Record is one logged aid activity. A Record is either a draft held in
// a dialogue session or committed with a storage-assigned ID; there is
// no partially committed state.
type Record struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Type          Type         `json:"type"`
	OccurredAt    time.Time    `json:"occurred_at"`
	OccurredAtRaw string       `json:"occurred_at_raw,omitempty"`
	Count         Count        `json:"count"`
	Location      string       `json:"location,omitempty"`
	Coordinates   *Coordinates `json:"coordinates,omitempty"`
	Note          string       `json:"note,omitempty"`
	Attachment    *Attachment  `json:"attachment,omitempty"`
	ReporterID    int64        `json:"reporter_id"`
	CreatedAt     time.Time    `json:"created_at"`
	ModifiedAt    time.Time    `json:"modified_at"`
}

// Clone returns a deep copy so callers can hold the record across
// session teardown.
func (r *Record) Clone() Record {
	out := *r
	if r.Count.Number != nil {
		n := *r.Count.Number
		out.Count.Number = &n
	}
	if r.Coordinates != nil {
		c := *r.Coordinates
		out.Coordinates = &c
	}
	if r.Attachment != nil {
		a := *r.Attachment
		out.Attachment = &a
	}
	return out
}

// DefaultTitle is used when a volunteer skips the title step in create mode.
const DefaultTitle = "Aktiviti"

func formatInt(n int64) string {
	// Thousands separators for readability in previews and recaps.
	s := strings.Builder{}
	digits := []byte{}
	neg := n < 0
	if neg {
		n = -n
	}
	if n == 0 {
		return "0"
	}
	for n > 0 {
		digits = append(digits, byte('0'+n%10))
		n /= 10
	}
	if neg {
		s.WriteByte('-')
	}
	for i := len(digits) - 1; i >= 0; i-- {
		s.WriteByte(digits[i])
		if i > 0 && i%3 == 0 {
			s.WriteByte(',')
		}
	}
	return s.String()
}
