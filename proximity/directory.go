// Package proximity ranks emergency contacts by distance to a viewer. The
// authority list is reference data held in an immutable snapshot that is
// swapped atomically on reload.
package proximity

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Rhejna/missing-person-app/databases"
	"github.com/Rhejna/missing-person-app/models"
)

// Loader produces a full authority list
type Loader interface {
	Load(ctx context.Context) ([]models.Authority, error)
}

// Directory holds the current authority snapshot
type Directory struct {
	snap    atomic.Pointer[[]models.Authority]
	loaders []Loader
}

// NewDirectory returns an empty Directory that Refresh fills from loaders
func NewDirectory(loaders ...Loader) *Directory {
	d := &Directory{loaders: loaders}
	empty := []models.Authority{}
	d.snap.Store(&empty)
	return d
}

// Snapshot returns the current list. Callers must not modify it.
func (d *Directory) Snapshot() []models.Authority {
	return *d.snap.Load()
}

// Replace validates list and swaps it in. Readers see either the old or the
// new list, never a mix.
func (d *Directory) Replace(list []models.Authority) error {
	next := make([]models.Authority, 0, len(list))
	for i, a := range list {
		if a.Name == "" {
			return fmt.Errorf("authority %d: name is required", i)
		}
		if !a.Category.Valid() {
			return fmt.Errorf("authority %q: unknown category %q", a.Name, a.Category)
		}
		if !ValidCoordinate(a.Coordinate) {
			return fmt.Errorf("authority %q: coordinate out of range", a.Name)
		}
		next = append(next, a)
	}
	d.snap.Store(&next)
	return nil
}

// Refresh reloads every loader and replaces the snapshot. On any failure the
// previous snapshot stays in place.
func (d *Directory) Refresh(ctx context.Context) error {
	var all []models.Authority
	for _, l := range d.loaders {
		list, err := l.Load(ctx)
		if err != nil {
			return err
		}
		all = append(all, list...)
	}
	if err := d.Replace(all); err != nil {
		return err
	}
	zap.S().Infow("authority directory refreshed", "count", len(all))
	return nil
}

// YAMLLoader reads authorities from a seed file
type YAMLLoader struct {
	Path string
}

type seedFile struct {
	Authorities []models.Authority `yaml:"authorities"`
}

// Load implements Loader
func (l YAMLLoader) Load(_ context.Context) ([]models.Authority, error) {
	b, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("read authority seed: %w", err)
	}
	return ParseSeed(b)
}

// ParseSeed decodes a YAML authority seed document
func ParseSeed(b []byte) ([]models.Authority, error) {
	var f seedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse authority seed: %w", err)
	}
	return f.Authorities, nil
}

// MongoLoader reads authorities from the authorities collection
type MongoLoader struct {
	DB databases.AuthorityDatabase
}

// Load implements Loader
func (l MongoLoader) Load(ctx context.Context) ([]models.Authority, error) {
	list, err := l.DB.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("load authorities: %w", err)
	}
	return list, nil
}
