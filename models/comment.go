package models

import "time"

// AnonymousAuthor is shown when a comment was posted without a name
const AnonymousAuthor = "Anonymous"

// Comment holds the structure for the comments collection in MongoDB
type Comment struct {
	ID          string    `json:"id" bson:"_id"`
	CaseID      string    `json:"caseId" bson:"caseId"`
	Author      string    `json:"author" bson:"author"`
	Content     string    `json:"content" bson:"content"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	IsOfficer   bool      `json:"isOfficer" bson:"isOfficer"`
	ReportCount int       `json:"reportCount" bson:"reportCount"`
	Reasons     []string  `json:"reasons,omitempty" bson:"reasons,omitempty"`
	IsModerated bool      `json:"isModerated" bson:"isModerated"`
	Version     int64     `json:"-" bson:"version"`
}

// Clone returns a deep copy of the comment
func (c Comment) Clone() Comment {
	out := c
	if c.Reasons != nil {
		out.Reasons = make([]string, len(c.Reasons))
		copy(out.Reasons, c.Reasons)
	}
	return out
}
