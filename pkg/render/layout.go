package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Layout variant names. Each variant is a visual skin only; all variants
// render the same canonical fields.
const (
	VariantClassic = "classic"
	VariantModern  = "modern"
	VariantCompact = "compact"
)

type sectionID int

const (
	secStudent sectionID = iota
	secSubjects
	secSummary
	secAttendance
	secComments
)

type palette struct {
	background color.RGBA
	banner     color.RGBA
	bannerText color.RGBA
	text       color.RGBA
	subtle     color.RGBA
	accent     color.RGBA
	tableHead  color.RGBA
	rowAlt     color.RGBA
}

// skin bundles the per-variant presentation rules: colors, subject capacity
// per page, row geometry and section order.
type skin struct {
	name      string
	capacity  int
	rowHeight int
	pal       palette
	order     []sectionID
}

var skins = map[string]skin{
	VariantClassic: {
		name:      VariantClassic,
		capacity:  12,
		rowHeight: 30,
		pal: palette{
			background: color.RGBA{255, 255, 255, 255},
			banner:     color.RGBA{21, 61, 111, 255},
			bannerText: color.RGBA{255, 255, 255, 255},
			text:       color.RGBA{30, 30, 30, 255},
			subtle:     color.RGBA{110, 110, 110, 255},
			accent:     color.RGBA{21, 61, 111, 255},
			tableHead:  color.RGBA{222, 230, 241, 255},
			rowAlt:     color.RGBA{245, 247, 250, 255},
		},
		order: []sectionID{secStudent, secSubjects, secSummary, secAttendance, secComments},
	},
	VariantModern: {
		name:      VariantModern,
		capacity:  10,
		rowHeight: 34,
		pal: palette{
			background: color.RGBA{252, 252, 252, 255},
			banner:     color.RGBA{16, 122, 87, 255},
			bannerText: color.RGBA{255, 255, 255, 255},
			text:       color.RGBA{25, 32, 28, 255},
			subtle:     color.RGBA{96, 110, 102, 255},
			accent:     color.RGBA{16, 122, 87, 255},
			tableHead:  color.RGBA{209, 236, 226, 255},
			rowAlt:     color.RGBA{241, 248, 245, 255},
		},
		order: []sectionID{secStudent, secSummary, secSubjects, secAttendance, secComments},
	},
	VariantCompact: {
		name:      VariantCompact,
		capacity:  18,
		rowHeight: 22,
		pal: palette{
			background: color.RGBA{255, 255, 255, 255},
			banner:     color.RGBA{70, 70, 70, 255},
			bannerText: color.RGBA{255, 255, 255, 255},
			text:       color.RGBA{20, 20, 20, 255},
			subtle:     color.RGBA{120, 120, 120, 255},
			accent:     color.RGBA{150, 40, 40, 255},
			tableHead:  color.RGBA{230, 230, 230, 255},
			rowAlt:     color.RGBA{246, 246, 246, 255},
		},
		order: []sectionID{secStudent, secSubjects, secAttendance, secSummary, secComments},
	},
}

// Variants lists the registered layout variant names.
func Variants() []string {
	names := make([]string, 0, len(skins))
	for name := range skins {
		names = append(names, name)
	}
	return names
}

// IsVariant reports whether the given name is a registered layout variant.
func IsVariant(name string) bool {
	_, ok := skins[strings.ToLower(name)]
	return ok
}

func skinFor(variant string) (skin, error) {
	sk, ok := skins[strings.ToLower(variant)]
	if !ok {
		return skin{}, fmt.Errorf("unknown layout variant %q", variant)
	}
	return sk, nil
}

// Capacity exposes the per-page subject row capacity of a variant.
func Capacity(variant string) (int, error) {
	sk, err := skinFor(variant)
	if err != nil {
		return 0, err
	}
	return sk.capacity, nil
}

// parseHexColor converts "#rrggbb" into an RGBA, returning ok=false for
// anything it cannot parse.
func parseHexColor(raw string) (color.RGBA, bool) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if len(raw) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 255}, true
}
