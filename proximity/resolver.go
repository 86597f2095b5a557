package proximity

import (
	"fmt"
	"math"
	"sort"

	"github.com/Rhejna/missing-person-app/apperr"
	"github.com/Rhejna/missing-person-app/models"
)

// Radius defaults
const (
	DefaultRadiusKm = 10.0
	MaxRadiusKm     = 100.0
)

// Snapshotter supplies the authority list to rank
type Snapshotter interface {
	Snapshot() []models.Authority
}

// Resolver answers nearest-authority queries
type Resolver struct {
	dir           Snapshotter
	defaultRadius float64
	maxRadius     float64
}

// NewResolver returns a Resolver over dir. Non-positive radii fall back to
// the defaults.
func NewResolver(dir Snapshotter, defaultRadius, maxRadius float64) *Resolver {
	if defaultRadius <= 0 {
		defaultRadius = DefaultRadiusKm
	}
	if maxRadius <= 0 {
		maxRadius = MaxRadiusKm
	}
	return &Resolver{dir: dir, defaultRadius: defaultRadius, maxRadius: maxRadius}
}

// Radius normalises a requested radius: zero means the default, anything
// above the maximum is capped.
func (r *Resolver) Radius(requested float64) (float64, error) {
	switch {
	case math.IsNaN(requested) || requested < 0:
		return 0, apperr.Validation("radius must be positive")
	case requested == 0:
		return r.defaultRadius, nil
	case requested > r.maxRadius:
		return r.maxRadius, nil
	}
	return requested, nil
}

// Nearest returns the authorities within radiusKm of from, closest first.
// Equal distances are ordered by name. An empty category matches all.
func (r *Resolver) Nearest(from models.Coordinate, radiusKm float64, category models.Category) ([]models.NearbyAuthority, error) {
	if !ValidCoordinate(from) {
		return nil, apperr.Validation("coordinate out of range")
	}
	if category != "" && !category.Valid() {
		return nil, apperr.Validation("unknown authority category %q", category)
	}
	radius, err := r.Radius(radiusKm)
	if err != nil {
		return nil, err
	}

	out := []models.NearbyAuthority{}
	for _, a := range r.dir.Snapshot() {
		if category != "" && a.Category != category {
			continue
		}
		d := DistanceKm(from, a.Coordinate)
		if d > radius {
			continue
		}
		out = append(out, models.NearbyAuthority{
			Authority:  a,
			DistanceKm: d,
			Distance:   FormatKm(d),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm == out[j].DistanceKm {
			return out[i].Name < out[j].Name
		}
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out, nil
}

// FormatKm renders a distance rounded to 0.1 km
func FormatKm(d float64) string {
	return fmt.Sprintf("%.1f km", math.Round(d*10)/10)
}
