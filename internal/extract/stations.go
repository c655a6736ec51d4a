package extract

import (
	"regexp"
	"strings"
)

// knownStations enumerates the authority's regional offices. This is
// configuration data: adding a town extends the cascade without touching
// any matching logic.
var knownStations = []string{
	"NAIROBI", "MOMBASA", "KISUMU", "NAKURU", "ELDORET", "NYERI",
	"MERU", "MACHAKOS", "KITALE", "GARISSA", "ISIOLO", "MALINDI",
	"KILIFI", "EMBU", "THIKA", "KIAMBU", "KAKAMEGA", "KERICHO",
	"BOMET", "BUNGOMA", "WEBUYE", "MIGORI", "HOMABAY", "SIAYA",
	"BUSIA", "MARSABIT", "MANDERA", "WAJIR", "MOYALE", "KAPENGURIA",
	"MARALAL", "LODWAR",
}

var stationAlternation = strings.Join(knownStations, "|")

// bareStationAlternation drops NAIROBI from the anywhere-in-text rule.
// Every notice carries the Times Tower, Nairobi letterhead, so a bare
// NAIROBI match would override the taxpayer's actual station.
var bareStationAlternation = func() string {
	towns := make([]string, 0, len(knownStations)-1)
	for _, s := range knownStations {
		if s != "NAIROBI" {
			towns = append(towns, s)
		}
	}
	return strings.Join(towns, "|")
}()

var stationRules = []rule{
	// Name written directly before STATION or OFFICE, the most specific
	// form. Case-sensitive so running prose like "your station" never
	// matches.
	{re: regexp.MustCompile(`([A-Z]{4,})\s+(?:STATION|OFFICE)`), validate: validStation},
	// Known station anchored to the P.O. Box address. NAIROBI counts
	// here: the box line is the taxpayer's address, not the letterhead.
	{re: regexp.MustCompile(`(?i)P\.?\s*O\.?\s*BOX\s+\d+[^,\n]*,?\s*(` + stationAlternation + `)\b`), validate: validStation},
	// Known station anywhere in the text.
	{re: regexp.MustCompile(`(?i)\b(` + bareStationAlternation + `)\b`), validate: validStation},
	// Uppercase token after the box number, last resort. Also
	// case-sensitive for the captured token.
	{re: regexp.MustCompile(`P\.?\s*O\.?\s*BOX\s+\d+[-–\s]*\d*[,\s]*([A-Z]{3,})`), validate: validStation},
}
