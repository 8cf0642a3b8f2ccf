package models

// Profile ist der Inhalt der statischen "My Details"-Ansicht.
type Profile struct {
	Name      string            `json:"name"`
	Role      string            `json:"role"`
	Location  string            `json:"location"`
	Skills    []string          `json:"skills"`
	Interests []string          `json:"interests"`
	Bio       string            `json:"bio"`
	Links     map[string]string `json:"links"`
}

// DefaultProfile wird unter /about ausgeliefert.
var DefaultProfile = Profile{
	Name:     "Amjad Lal K",
	Role:     "Data Analyst",
	Location: "Malappuram, Kerala, India",
	Skills: []string{
		"Python, Pandas, NumPy, Matplotlib, Seaborn",
		"MySQL (legacy dashboards) migrated to Google Sheets for scalable public access",
		"Excel Dashboard Design",
		"Tableau & Power BI (learning)",
		"Machine Learning deployment",
		"ATS-friendly CV design",
	},
	Interests: []string{
		"Building realistic datasets for ML & BI",
		"Designing dashboards with Google Sheets integration",
		"Crafting recruiter-friendly CVs",
		"Debugging and modular code design",
	},
	Bio: "Persistent, methodical, and practical. Recently migrated donor dashboards from SQL to Google Sheets, " +
		"ensuring free, scalable access with full CRUD and visualization features.",
	Links: map[string]string{
		"github":    "https://github.com/amjadlalkodithodika",
		"instagram": "https://instagram.com/amjadlal_kodithodika",
		"linkedin":  "https://linkedin.com/in/amjadlalk",
	},
}
