package reference

// EmergencyNumber is a dialable emergency service.
type EmergencyNumber struct {
	Name        string `json:"name"`
	Number      string `json:"number"`
	Icon        string `json:"icon"`
	Description string `json:"description,omitempty"`
	TelURI      string `json:"telUri"`
}

// FirstAidGuide is an ordered list of steps for one situation.
type FirstAidGuide struct {
	Title string   `json:"title"`
	Icon  string   `json:"icon"`
	Steps []string `json:"steps"`
}

// AmbulanceNumber is the national ambulance line referenced by advisories.
const AmbulanceNumber = "108"

// EmergencyNumbers returns the full emergency directory.
func EmergencyNumbers() []EmergencyNumber {
	return withTel([]EmergencyNumber{
		{Name: "National Emergency Number", Number: "112", Icon: "🚨", Description: "All-in-one emergency services"},
		{Name: "Ambulance", Number: AmbulanceNumber, Icon: "🚑", Description: "Medical emergency & ambulance"},
		{Name: "Police", Number: "100", Icon: "👮", Description: "Police emergency services"},
		{Name: "Fire Services", Number: "101", Icon: "🚒", Description: "Fire emergency & rescue"},
		{Name: "Women Helpline", Number: "1091", Icon: "👩", Description: "24x7 helpline for women"},
		{Name: "Child Helpline", Number: "1098", Icon: "👶", Description: "Child protection services"},
	})
}

// QuickContacts returns the short list shown in the emergency dialog.
func QuickContacts() []EmergencyNumber {
	return withTel([]EmergencyNumber{
		{Name: "Ambulance", Number: AmbulanceNumber, Icon: "🚑"},
		{Name: "Police", Number: "100", Icon: "👮"},
		{Name: "Fire", Number: "101", Icon: "🚒"},
		{Name: "Women Helpline", Number: "1091", Icon: "👩"},
		{Name: "Child Helpline", Number: "1098", Icon: "👶"},
	})
}

// FirstAidGuides returns the built-in first-aid instructions.
func FirstAidGuides() []FirstAidGuide {
	return []FirstAidGuide{
		{
			Title: "Heart Attack",
			Icon:  "💓",
			Steps: []string{
				"Call 108 immediately",
				"Help person sit comfortably",
				"Loosen tight clothing",
				"Give aspirin if available",
				"Stay with the person until help arrives",
			},
		},
		{
			Title: "Choking",
			Icon:  "😰",
			Steps: []string{
				"Encourage coughing",
				"5 back blows between shoulder blades",
				"5 abdominal thrusts (Heimlich)",
				"Alternate until object clears",
				"Call 108 if unsuccessful",
			},
		},
		{
			Title: "Severe Bleeding",
			Icon:  "🩸",
			Steps: []string{
				"Apply direct pressure to wound",
				"Elevate injured area above heart",
				"Use clean cloth or bandage",
				"Don't remove embedded objects",
				"Call 108 for serious injuries",
			},
		},
		{
			Title: "Poisoning",
			Icon:  "☠️",
			Steps: []string{
				"Call 108 immediately",
				"Don't induce vomiting",
				"Keep poison container/label",
				"If conscious, give water/milk",
				"Monitor breathing until help arrives",
			},
		},
	}
}

func withTel(items []EmergencyNumber) []EmergencyNumber {
	for i := range items {
		items[i].TelURI = TelURI(items[i].Number)
	}
	return items
}
