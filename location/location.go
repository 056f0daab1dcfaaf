// Package location holds the district and municipality reference table used to
// validate a user's location assignment.
package location

type district struct {
	name           string
	municipalities []string
}

// Jharkhand districts and their urban local bodies, in display order
var table = []district{
	{"Bokaro", []string{"Phusro", "Chas"}},
	{"Chatra", []string{"Chatra"}},
	{"Deoghar", []string{"Deoghar", "Madhupur"}},
	{"Dhanbad", []string{"Dhanbad", "Chirkunda"}},
	{"Dumka", []string{"Basukinath", "Dumka"}},
	{"Garhwa", []string{"Majhion", "Garhwa"}},
	{"Giridih", []string{"Giridih"}},
	{"Godda", []string{"Godda"}},
	{"Gumla", []string{"Gumla"}},
	{"Hazaribagh", []string{"Hazaribagh"}},
	{"Jamtara", []string{"Jamtara", "Mihijam"}},
	{"Khunti", []string{"Khunti"}},
	{"Kodarma", []string{"Kodarma", "Jhumri Tilaiya"}},
	{"Latehar", []string{"Latehar"}},
	{"Lohardaga", []string{"Lohardaga"}},
	{"Pakur", []string{"Pakur"}},
	{"Palamu", []string{"Hussainabad", "Bishrampur", "Medininagar (Daltonganj)"}},
	{"West Singhbhum", []string{"Chakardharpur", "Chaibasa"}},
	{"East Singhbhum", []string{"Mango", "Jamshedpur", "Jugsalai", "Chakulia"}},
	{"Ramgarh", []string{"Ramgarh (Cantonment)"}},
	{"Ranchi", []string{"Ranchi", "Bundu"}},
	{"Sahibganj", []string{"Sahibganj", "Rajmahal"}},
	{"Seraikela-Kharsawan", []string{"Adityapur", "Seraikela"}},
	{"Simdega", []string{"Simdega"}},
}

// Districts returns every district name
func Districts() []string {
	names := make([]string, 0, len(table))
	for _, d := range table {
		names = append(names, d.name)
	}
	return names
}

// Municipalities returns the municipalities of a district, or an empty list if the
// district is unknown
func Municipalities(districtName string) []string {
	for _, d := range table {
		if d.name == districtName {
			return append([]string(nil), d.municipalities...)
		}
	}
	return []string{}
}

// Valid reports whether municipality belongs to districtName
func Valid(districtName, municipality string) bool {
	for _, m := range Municipalities(districtName) {
		if m == municipality {
			return true
		}
	}
	return false
}
