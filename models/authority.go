package models

// Category is the kind of emergency contact
type Category string

// Authority categories
const (
	CategoryPolice   Category = "police"
	CategoryHospital Category = "hospital"
	CategoryNGO      Category = "ngo"
)

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	return c == CategoryPolice || c == CategoryHospital || c == CategoryNGO
}

// Authority holds the structure for the authorities collection in MongoDB
type Authority struct {
	Name       string     `json:"name" bson:"name" yaml:"name"`
	Category   Category   `json:"type" bson:"category" yaml:"category"`
	Phone      string     `json:"phone" bson:"phone" yaml:"phone"`
	Address    string     `json:"address" bson:"address" yaml:"address"`
	Hours      string     `json:"hours" bson:"hours" yaml:"hours"`
	Coordinate Coordinate `json:"coordinates" bson:"coordinates" yaml:"coordinates"`
}

// NearbyAuthority is an Authority annotated with its distance to a viewer
type NearbyAuthority struct {
	Authority
	DistanceKm float64 `json:"distanceKm"`
	Distance   string  `json:"distance"`
}
