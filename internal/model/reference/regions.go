package reference

import "strings"

// NavItem is one entry of the application sidebar.
type NavItem struct {
	Title string `json:"title"`
	Path  string `json:"path"`
}

// Navigation returns the sidebar entries.
func Navigation() []NavItem {
	return []NavItem{
		{Title: "Chat", Path: "/chat"},
		{Title: "Profile", Path: "/profile"},
		{Title: "Emergency", Path: "/emergency"},
		{Title: "Find Healthcare", Path: "/healthcare"},
	}
}

// States lists the Indian states and union territories offered on the profile.
func States() []string {
	return []string{
		"Andhra Pradesh", "Arunachal Pradesh", "Assam", "Bihar", "Chhattisgarh",
		"Goa", "Gujarat", "Haryana", "Himachal Pradesh", "Jharkhand", "Karnataka",
		"Kerala", "Madhya Pradesh", "Maharashtra", "Manipur", "Meghalaya", "Mizoram",
		"Nagaland", "Odisha", "Punjab", "Rajasthan", "Sikkim", "Tamil Nadu",
		"Telangana", "Tripura", "Uttar Pradesh", "Uttarakhand", "West Bengal",
		"Andaman and Nicobar Islands", "Chandigarh", "Dadra and Nagar Haveli",
		"Daman and Diu", "Delhi", "Lakshadweep", "Puducherry",
	}
}

// KnownState reports whether name is in States (case-insensitive).
func KnownState(name string) bool {
	for _, s := range States() {
		if strings.EqualFold(s, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}
