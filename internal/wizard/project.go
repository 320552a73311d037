package wizard

import (
	"encoding/json"
	"strings"

	"github.com/garnizeh/realty/internal/pricing"
	"github.com/garnizeh/realty/pkg/models"
)

// Project maps a completed wizard state onto a listing. Rentals are priced by
// their monthly rent. The full form is kept in DraftData.
func Project(s State) (models.Project, error) {
	f := s.Form
	priceText := f.Price
	if models.ListingType(s.ListingType) == models.ListingRental && f.MonthlyRent != "" {
		priceText = f.MonthlyRent
	}
	price := pricing.PriceFromText(priceText)

	bedrooms := f.Bedrooms
	if bedrooms == 0 {
		bedrooms = pricing.BedroomsFromText(f.Configuration)
	}

	category := f.Category
	if category == "" {
		switch models.ListingType(s.ListingType) {
		case models.ListingCommercial:
			category = "commercial"
		case models.ListingLand:
			category = "plot"
		default:
			category = "residential"
		}
	}

	draft, err := json.Marshal(f)
	if err != nil {
		return models.Project{}, err
	}

	p := models.Project{
		Title:         strings.TrimSpace(f.Title),
		Description:   f.Description,
		Location:      f.Location,
		City:          f.City,
		PriceText:     priceText,
		PriceAmount:   price.Rupees(),
		PriceUnit:     string(price.Unit),
		Bedrooms:      bedrooms,
		Configuration: f.Configuration,
		ListingType:   models.ListingType(s.ListingType),
		Category:      category,
		Status:        f.Status,
		Images:        f.Images,
		Amenities:     f.Amenities,
		Latitude:      f.Latitude,
		Longitude:     f.Longitude,
		Pincode:       f.Pincode,
		Area:          f.Area,
		DraftData:     draft,
	}
	if f.BuilderID > 0 {
		id := f.BuilderID
		p.BuilderID = &id
	}
	for _, img := range f.FloorPlans {
		p.FloorPlans = append(p.FloorPlans, models.FloorPlan{ImageURL: img})
	}
	for _, name := range f.Landmarks {
		if name = strings.TrimSpace(name); name != "" {
			p.Landmarks = append(p.Landmarks, models.Landmark{Name: name})
		}
	}
	return p, nil
}
