package handlers

import (
	"net/http"
	"strings"

	"github.com/Rhejna/missing-person-app/api"
	"github.com/Rhejna/missing-person-app/config"
	"github.com/Rhejna/missing-person-app/models"
	"github.com/Rhejna/missing-person-app/proximity"
	"github.com/Rhejna/missing-person-app/service"
)

// Authority exported for testing purposes
type Authority struct {
	Svc *service.Service
	// Locator guesses the viewer position when no lat/lng is sent
	Locator  proximity.Locator
	Fallback models.Coordinate
}

// AuthoritiesHandler lists the emergency contacts nearest to the viewer
func (h Authority) AuthoritiesHandler(w http.ResponseWriter, r *http.Request) {
	point, err := queryCoordinate(r)
	if err != nil {
		config.WriteError("invalid coordinate", w, err)
		return
	}
	radius, _, err := queryFloat(r, "radius")
	if err != nil {
		config.WriteError("invalid radius", w, err)
		return
	}
	category := models.Category(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("category"))))

	from := proximity.ViewerLocation(point, api.ClientIP(r), h.Locator, h.Fallback)
	nearby, err := h.Svc.NearestAuthorities(from, radius, category)
	if err != nil {
		config.WriteError("failed to get authorities", w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, nearby)
}
