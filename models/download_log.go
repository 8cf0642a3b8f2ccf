package models

// Platzhalter, wenn kein Filter gewählt wurde.
const (
	AllBloodGroups = "All"
	AllLocations   = "All Locations"
)

// TimestampLayout ist das Format der Zeitstempel im Log-Sheet.
const TimestampLayout = "2006-01-02 15:04:05"

// DownloadLog protokolliert eine Export-Anfrage. Einträge werden nur angehängt.
type DownloadLog struct {
	RecipientEmail   string `json:"recipient_email"`
	BloodGroupFilter string `json:"blood_group_filter"`
	LocationFilter   string `json:"location_filter"`
	Timestamp        string `json:"timestamp"`
}
