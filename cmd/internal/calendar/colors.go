package calendar

// Palette is the fixed set of event colors. Display metadata only, no
// scheduling semantics.
var Palette = []string{
	"#3B82F6", // blue
	"#10B981", // green
	"#8B5CF6", // purple
	"#EF4444", // red
	"#F97316", // orange
	"#EC4899", // pink
	"#14B8A6", // teal
	"#6366F1", // indigo
}

func DefaultColor() string {
	return Palette[0]
}

func ValidColor(c string) bool {
	for _, p := range Palette {
		if p == c {
			return true
		}
	}
	return false
}
