package services

import "blood-bank/models"

const ageBinCount = 10

// GroupCount ist die Anzahl der Spender einer Blutgruppe.
type GroupCount struct {
	BloodGroup string `json:"blood_group"`
	Count      int    `json:"count"`
}

// AgeBin zählt Spender im Altersbereich [From, To].
type AgeBin struct {
	From  int `json:"from"`
	To    int `json:"to"`
	Count int `json:"count"`
}

// Summary sind die Daten hinter den Diagrammen.
type Summary struct {
	Total        int          `json:"total"`
	ByBloodGroup []GroupCount `json:"by_blood_group"`
	AgeBins      []AgeBin     `json:"age_bins"`
	// AgeByGroup sind die Punkte des Streudiagramms Alter gegen Blutgruppe.
	AgeByGroup map[string][]int `json:"age_by_group"`
}

// Summarize zählt nach Blutgruppe (feste Reihenfolge) und verteilt das Alter auf zehn Klassen.
// Alter außerhalb von [18, 65] aus Altbeständen zählen nur in Total.
func Summarize(donors []models.Donor) Summary {
	width := (MaxAge - MinAge + ageBinCount) / ageBinCount
	bins := make([]AgeBin, ageBinCount)
	for i := range bins {
		from := MinAge + i*width
		to := from + width - 1
		if to > MaxAge {
			to = MaxAge
		}
		bins[i] = AgeBin{From: from, To: to}
	}

	counts := map[string]int{}
	byGroup := map[string][]int{}
	for _, d := range donors {
		counts[d.BloodGroup]++
		byGroup[d.BloodGroup] = append(byGroup[d.BloodGroup], d.Age)
		if d.Age >= MinAge && d.Age <= MaxAge {
			i := (d.Age - MinAge) / width
			if i >= ageBinCount {
				i = ageBinCount - 1
			}
			bins[i].Count++
		}
	}

	groups := make([]GroupCount, 0, len(models.BloodGroups))
	for _, g := range models.BloodGroups {
		groups = append(groups, GroupCount{BloodGroup: g, Count: counts[g]})
	}
	return Summary{Total: len(donors), ByBloodGroup: groups, AgeBins: bins, AgeByGroup: byGroup}
}
