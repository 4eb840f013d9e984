package coordinator

import "fmt"

// Rover display labels are drawn from two fixed wordlists so operators get
// memorable call signs instead of UUIDs. Allocation order is deterministic:
// the nth registration always yields the same label.

var labelAdjectives = []string{
	"Amber", "Basalt", "Cedar", "Drift", "Ember",
	"Flint", "Gale", "Harbor", "Iron", "Juniper",
	"Krait", "Lichen", "Mesa", "North", "Ochre",
	"Pumice", "Quartz", "Rime", "Slate", "Tundra",
	"Umber", "Vale", "Wren", "Yarrow", "Zenith",
}

var labelBirds = []string{
	"Auk", "Bittern", "Crake", "Dunlin", "Egret",
	"Finch", "Godwit", "Heron", "Ibis", "Jay",
	"Kite", "Loon", "Merlin", "Noddy", "Osprey",
	"Petrel", "Quail", "Rail", "Skua", "Tern",
	"Veery", "Willet", "Xenops", "Yaffle", "Zeledonia",
}

// LabelFor maps a registration sequence number to a display label. Labels
// repeat only after every adjective/bird pair is exhausted; past that point
// a numeric generation suffix keeps them unique.
func LabelFor(n int) string {
	if n < 0 {
		n = 0
	}
	adj := labelAdjectives[n%len(labelAdjectives)]
	bird := labelBirds[(n/len(labelAdjectives))%len(labelBirds)]

	cycle := n / (len(labelAdjectives) * len(labelBirds))
	if cycle == 0 {
		return fmt.Sprintf("%s %s", adj, bird)
	}
	return fmt.Sprintf("%s %s %d", adj, bird, cycle+1)
}
