package store

import (
	"sort"
	"strings"

	"github.com/Rhejna/missing-person-app/models"
)

// Matches reports whether c passes every criterion of f
func Matches(c models.Case, f models.CaseFilter) bool {
	if c.Status == models.StatusFlagged && !f.IncludeFlagged {
		return false
	}
	if len(f.Statuses) > 0 && !matchesStatus(c, f.Statuses) {
		return false
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		q = strings.ToLower(q)
		if !strings.Contains(strings.ToLower(c.FullName), q) &&
			!strings.Contains(strings.ToLower(c.LastSeen), q) {
			return false
		}
	}
	if f.From != nil && c.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && c.CreatedAt.After(*f.To) {
		return false
	}
	if f.ReporterPhone != "" && c.Reporter.Phone != f.ReporterPhone {
		return false
	}
	return true
}

func matchesStatus(c models.Case, statuses []models.Status) bool {
	for _, s := range statuses {
		if s == models.StatusSighting {
			if c.SubStatus == models.StatusSighting {
				return true
			}
			continue
		}
		if c.Status == s {
			return true
		}
	}
	return false
}

// sortNewestFirst orders cases by creation time, newest first
func sortNewestFirst(cases []models.Case) {
	sort.SliceStable(cases, func(i, j int) bool {
		if cases[i].CreatedAt.Equal(cases[j].CreatedAt) {
			return cases[i].CaseNumber > cases[j].CaseNumber
		}
		return cases[i].CreatedAt.After(cases[j].CreatedAt)
	})
}

// Paginate returns the 1-based page of cases; a zero limit returns all
func Paginate(cases []models.Case, limit, page int) []models.Case {
	if limit <= 0 {
		return cases
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(cases) {
		return []models.Case{}
	}
	end := start + limit
	if end > len(cases) {
		end = len(cases)
	}
	return cases[start:end]
}
