package models

import (
	"time"
)

// Status is the displayed state of a case
type Status string

// Case statuses
const (
	StatusUnverified Status = "unverified"
	StatusVerified   Status = "verified"
	StatusSighting   Status = "sighting"
	StatusFound      Status = "found"
	StatusClosed     Status = "closed"
	StatusFlagged    Status = "flagged"
)

// Statuses lists every valid Status
var Statuses = []Status{StatusUnverified, StatusVerified, StatusSighting, StatusFound, StatusClosed, StatusFlagged}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Resolution records an explicit markFound / markClosed action
type Resolution string

// Resolutions
const (
	ResolutionNone   Resolution = ""
	ResolutionFound  Resolution = "found"
	ResolutionClosed Resolution = "closed"
)

// Coordinate is a WGS84 point
type Coordinate struct {
	Lat float64 `json:"lat" bson:"lat" validate:"lat"`
	Lng float64 `json:"lng" bson:"lng" validate:"lng"`
}

// Reporter holds the contact details of whoever submitted the case
type Reporter struct {
	Name         string `json:"name" bson:"name"`
	Phone        string `json:"phone" bson:"phone"`
	Email        string `json:"email,omitempty" bson:"email,omitempty"`
	Relationship string `json:"relationship" bson:"relationship"`
}

// Verification holds the three independent attestation flags
type Verification struct {
	FamilyAttestation bool `json:"familyAttestation" bson:"familyAttestation"`
	PoliceConfirmed   bool `json:"policeConfirmed" bson:"policeConfirmed"`
	NgoConfirmed      bool `json:"ngoConfirmed" bson:"ngoConfirmed"`
}

// Any is true when at least one source attested the case
func (v Verification) Any() bool {
	return v.FamilyAttestation || v.PoliceConfirmed || v.NgoConfirmed
}

// Moderation holds community report state for a case
type Moderation struct {
	ReportCount int      `json:"reportCount" bson:"reportCount"`
	Reasons     []string `json:"reasons" bson:"reasons"`
	Flagged     bool     `json:"flagged" bson:"flagged"`
}

// Case holds the structure for the cases collection in MongoDB
type Case struct {
	ID           string          `json:"id" bson:"_id"`
	CaseNumber   string          `json:"caseNumber" bson:"caseNumber"`
	FullName     string          `json:"fullName" bson:"fullName"`
	Age          int             `json:"age" bson:"age"`
	Description  string          `json:"description" bson:"description"`
	LastSeen     string          `json:"lastSeenLocation" bson:"lastSeenLocation"`
	LastSeenAt   time.Time       `json:"lastSeenAt" bson:"lastSeenAt"`
	Point        *Coordinate     `json:"point,omitempty" bson:"point,omitempty"`
	PhotoRef     string          `json:"photo,omitempty" bson:"photo,omitempty"`
	Reporter     Reporter        `json:"reporter" bson:"reporter"`
	Status       Status          `json:"status" bson:"status"`
	SubStatus    Status          `json:"subStatus,omitempty" bson:"subStatus,omitempty"`
	Resolution   Resolution      `json:"resolution,omitempty" bson:"resolution,omitempty"`
	Verification Verification    `json:"verification" bson:"verification"`
	Moderation   Moderation      `json:"moderation" bson:"moderation"`
	Timeline     []TimelineEvent `json:"timeline" bson:"timeline"`
	CreatedAt    time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt" bson:"updatedAt"`
	Version      int64           `json:"-" bson:"version"`
}

// Clone returns a deep copy so callers never share slices with a store
func (c Case) Clone() Case {
	out := c
	if c.Point != nil {
		p := *c.Point
		out.Point = &p
	}
	if c.Moderation.Reasons != nil {
		out.Moderation.Reasons = make([]string, len(c.Moderation.Reasons))
		copy(out.Moderation.Reasons, c.Moderation.Reasons)
	}
	if c.Timeline != nil {
		out.Timeline = make([]TimelineEvent, len(c.Timeline))
		copy(out.Timeline, c.Timeline)
	}
	return out
}

// HasReason reports whether reason was already recorded against the case
func (m Moderation) HasReason(reason string) bool {
	for _, r := range m.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

// CaseDraft is a validated submission ready to be stored
type CaseDraft struct {
	FullName    string
	Age         int
	Description string
	LastSeen    string
	LastSeenAt  time.Time
	Point       *Coordinate
	PhotoRef    string
	Reporter    Reporter
}

// CaseFilter narrows a case listing
type CaseFilter struct {
	Statuses       []Status
	Query          string
	From           *time.Time
	To             *time.Time
	ReporterPhone  string
	IncludeFlagged bool
	Limit          int
	Page           int
}

// CaseStats holds the counts shown on the admin review panel
type CaseStats struct {
	Total      int            `json:"total"`
	Pending    int            `json:"pending"`
	Verified   int            `json:"verified"`
	Flagged    int            `json:"flagged"`
	ByStatus   map[Status]int `json:"byStatus"`
	Reported   int            `json:"reported"`
	Resolved   int            `json:"resolved"`
	WithPhotos int            `json:"withPhotos"`
}
