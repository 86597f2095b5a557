package verification

import "github.com/Rhejna/missing-person-app/models"

// Label is how a status is presented to users
type Label struct {
	Status models.Status `json:"status"`
	Text   string        `json:"label"`
	Color  string        `json:"color"`
	Badge  string        `json:"badge"`
}

var labels = map[models.Status]Label{
	models.StatusUnverified: {models.StatusUnverified, "Pending Verification", "yellow", "badge-missing"},
	models.StatusVerified:   {models.StatusVerified, "Missing", "red", "badge-missing"},
	models.StatusSighting:   {models.StatusSighting, "Possible Sighting", "orange", "badge-sighting"},
	models.StatusFound:      {models.StatusFound, "Found", "green", "badge-found"},
	models.StatusClosed:     {models.StatusClosed, "Closed", "gray", "badge-closed"},
	models.StatusFlagged:    {models.StatusFlagged, "Under Review", "purple", "badge-flagged"},
}

// StatusLabel returns the display label for s
func StatusLabel(s models.Status) Label {
	if l, ok := labels[s]; ok {
		return l
	}
	return Label{Status: s, Text: string(s), Color: "gray", Badge: "badge-closed"}
}

// DisplayStatus is the status shown on cards: an open case with a recent
// sighting shows the sighting badge.
func DisplayStatus(c models.Case) models.Status {
	if c.SubStatus == models.StatusSighting && (c.Status == models.StatusUnverified || c.Status == models.StatusVerified) {
		return models.StatusSighting
	}
	return c.Status
}
