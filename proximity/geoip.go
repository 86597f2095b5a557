package proximity

import (
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/Rhejna/missing-person-app/models"
)

// Locator guesses a coordinate for a client ip
type Locator interface {
	Locate(ip string) (models.Coordinate, bool)
}

// GeoIPLocator resolves ips with a MaxMind city database
type GeoIPLocator struct {
	db *geoip2.Reader
}

// OpenGeoIP opens the city database at path
func OpenGeoIP(path string) (*GeoIPLocator, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoIPLocator{db: db}, nil
}

// Locate implements Locator
func (g *GeoIPLocator) Locate(ip string) (models.Coordinate, bool) {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() {
		return models.Coordinate{}, false
	}
	record, err := g.db.City(parsed)
	if err != nil {
		return models.Coordinate{}, false
	}
	c := models.Coordinate{Lat: record.Location.Latitude, Lng: record.Location.Longitude}
	if c.Lat == 0 && c.Lng == 0 {
		return models.Coordinate{}, false
	}
	return c, true
}

// Close releases the database
func (g *GeoIPLocator) Close() error {
	return g.db.Close()
}

// ViewerLocation picks the coordinate to rank from: the explicit one when
// given, else a geoip guess, else fallback.
func ViewerLocation(explicit *models.Coordinate, ip string, locator Locator, fallback models.Coordinate) models.Coordinate {
	if explicit != nil {
		return *explicit
	}
	if locator != nil {
		if c, ok := locator.Locate(ip); ok {
			return c
		}
	}
	return fallback
}
