package reference

import (
	"net/url"
	"strings"
)

const mapsSearchBase = "https://maps.google.com/search/"

// Facility is a healthcare provider listing.
type Facility struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Address     string   `json:"address"`
	Phone       string   `json:"phone"`
	Rating      float64  `json:"rating"`
	Timing      string   `json:"timing"`
	Specialties []string `json:"specialties"`
	Distance    string   `json:"distance"`
	TelURI      string   `json:"telUri"`
	MapsURL     string   `json:"directionsUrl"`
}

// FacilityTypes are the categories accepted by the facility search.
var FacilityTypes = []string{"hospital", "clinic", "pharmacy", "diagnostic center"}

// Facilities returns the nearby-facility directory.
func Facilities() []Facility {
	items := []Facility{
		{
			Name: "AIIMS Delhi", Type: "Government Hospital",
			Address: "Ansari Nagar, New Delhi, Delhi 110029", Phone: "011-26588500",
			Rating: 4.5, Timing: "24/7 Emergency",
			Specialties: []string{"Cardiology", "Neurology", "Oncology", "Emergency"},
			Distance:    "2.3 km",
		},
		{
			Name: "Apollo Hospital", Type: "Private Hospital",
			Address: "Press Enclave Road, Sarita Vihar, Delhi 110076", Phone: "011-26925858",
			Rating: 4.3, Timing: "24/7",
			Specialties: []string{"Multi-specialty", "Emergency", "ICU"},
			Distance:    "3.7 km",
		},
		{
			Name: "Safdarjung Hospital", Type: "Government Hospital",
			Address: "Ansari Nagar West, New Delhi, Delhi 110029", Phone: "011-26165060",
			Rating: 4.0, Timing: "24/7 Emergency",
			Specialties: []string{"General Medicine", "Surgery", "Emergency"},
			Distance:    "4.1 km",
		},
		{
			Name: "Max Super Speciality Hospital", Type: "Private Hospital",
			Address: "1, Press Enclave Road, Sarita Vihar, Delhi 110076", Phone: "011-26515050",
			Rating: 4.4, Timing: "24/7",
			Specialties: []string{"Cardiac Surgery", "Neurosurgery", "Emergency"},
			Distance:    "5.2 km",
		},
		{
			Name: "Primary Health Center", Type: "Government Clinic",
			Address: "Block A, Sarita Vihar, Delhi 110076", Phone: "011-26923456",
			Rating: 3.8, Timing: "8:00 AM - 8:00 PM",
			Specialties: []string{"General Medicine", "Vaccination", "Maternal Care"},
			Distance:    "1.5 km",
		},
		{
			Name: "Community Health Centre", Type: "Government Clinic",
			Address: "Sector 19, Dwarka, Delhi 110075", Phone: "011-28085000",
			Rating: 3.9, Timing: "9:00 AM - 5:00 PM",
			Specialties: []string{"General Medicine", "Pediatrics", "Women Health"},
			Distance:    "6.8 km",
		},
	}
	for i := range items {
		items[i].TelURI = TelURI(items[i].Phone)
		items[i].MapsURL = MapsSearchURL(items[i].Address)
	}
	return items
}

// TelURI builds a telephony deep link.
func TelURI(number string) string {
	return "tel:" + strings.TrimSpace(number)
}

// MapsSearchURL builds a maps search link for a free-text query.
func MapsSearchURL(query string) string {
	return mapsSearchBase + url.PathEscape(query)
}

// NearestHospitalURL is the quick action on the emergency page.
const NearestHospitalURL = "https://maps.google.com/search/hospital+near+me"

// FacilitySearchURL builds the maps link for "<type> near <location>".
// Unknown types fall back to hospital; an empty location means the current one.
func FacilitySearchURL(facilityType, location string) string {
	kind := strings.ToLower(strings.TrimSpace(facilityType))
	if !validFacilityType(kind) {
		kind = FacilityTypes[0]
	}
	where := strings.TrimSpace(location)
	if where == "" {
		where = "current location"
	}
	return MapsSearchURL(kind + " near " + where)
}

func validFacilityType(kind string) bool {
	for _, t := range FacilityTypes {
		if t == kind {
			return true
		}
	}
	return false
}
