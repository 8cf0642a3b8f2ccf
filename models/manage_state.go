package models

// ManageAction ist die im Verwaltungsbereich gewählte Aktion.
type ManageAction string

const (
	ManageNone   ManageAction = ""
	ManageUpdate ManageAction = "update"
	ManageDelete ManageAction = "delete"
)

// ManageState beschreibt den Zustand des Verwaltungsbereichs. Er wird vom Controller
// zurückgegeben, statt in einer globalen Session-Variable zu leben.
type ManageState struct {
	Open   bool         `json:"open"`
	Action ManageAction `json:"action,omitempty"`
	Row    int          `json:"row,omitempty"`
}

// Closed ist der Zustand nach abgeschlossener oder abgebrochener Aktion.
func Closed() ManageState {
	return ManageState{}
}
