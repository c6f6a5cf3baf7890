package rotation

import "market-rotator/src/models"

// -----------------------------------------------------------------------------
// Day-part resolution
//
// The active part is the one whose [StartHour, EndHour) window contains the
// current local hour. StartHour > EndHour spans midnight. At most one part is
// current; the first match wins.
// -----------------------------------------------------------------------------

func activeDayPart(parts []models.MDayPartConfig, hour int) (models.MDayPartConfig, bool) {
	for _, p := range parts {
		if dayPartContains(p, hour) {
			return p, true
		}
	}
	return models.MDayPartConfig{}, false
}

// -----------------------------------------------------------------------------

func dayPartContains(p models.MDayPartConfig, hour int) bool {
	if p.StartHour == p.EndHour {
		// degenerate empty window
		return false
	}
	if p.StartHour < p.EndHour {
		return hour >= p.StartHour && hour < p.EndHour
	}
	// overnight wrap
	return hour >= p.StartHour || hour < p.EndHour
}

// -----------------------------------------------------------------------------

func containsSymbol(symbols []string, symbol string) bool {
	for _, s := range symbols {
		if s == symbol {
			return true
		}
	}
	return false
}
