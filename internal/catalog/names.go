package catalog

import "strings"

// commonNames maps lowercase proper names to Hipparcos numbers.
var commonNames = map[string]int{
	"polaris":         11767,
	"sirius":          32349,
	"vega":            91262,
	"betelgeuse":      27989,
	"rigel":           24436,
	"arcturus":        69673,
	"aldebaran":       21421,
	"antares":         80763,
	"spica":           65474,
	"capella":         24608,
	"barnard's star":  87937,
	"canopus":         30438,
	"procyon":         37279,
	"altair":          97649,
	"deneb":           102098,
	"regulus":         49669,
	"fomalhaut":       113368,
	"pollux":          37826,
	"castor":          36850,
	"dubhe":           54061,
	"alioth":          62956,
	"achernar":        7588,
	"rigil kentaurus": 71683,
	"alpha centauri":  71683,
	"hadar":           68702,
	"acrux":           60718,
	"bellatrix":       25336,
	"alnilam":         26311,
	"mirfak":          15863,
	"algol":           14576,
	"kochab":          72607,
	"mizar":           65378,

	// Resolvable once the full catalog is loaded.
	"alpheratz":      677,
	"caph":           746,
	"schedar":        3179,
	"diphda":         3419,
	"mirach":         5447,
	"almach":         9640,
	"hamal":          9884,
	"elnath":         25428,
	"mintaka":        25930,
	"alnitak":        26727,
	"saiph":          27366,
	"alhena":         31681,
	"adhara":         33579,
	"alphard":        46390,
	"algieba":        50583,
	"merak":          53910,
	"denebola":       57632,
	"phecda":         58001,
	"megrez":         59774,
	"gacrux":         61084,
	"mimosa":         62434,
	"alkaid":         67301,
	"thuban":         68756,
	"menkent":        68933,
	"zubenelgenubi":  72622,
	"alphecca":       76267,
	"shaula":         85927,
	"rasalhague":     86032,
	"eltanin":        87833,
	"kaus australis": 90185,
	"nunki":          92855,
	"albireo":        95947,
	"sadr":           100453,
	"enif":           107315,
	"scheat":         113881,
	"markab":         113963,
}

// LookupName resolves a star's proper name, ignoring case and surrounding space.
func LookupName(name string) (int, bool) {
	hip, ok := commonNames[strings.ToLower(strings.TrimSpace(name))]
	return hip, ok
}

// Names returns the known proper names.
func Names() []string {
	out := make([]string, 0, len(commonNames))
	for n := range commonNames {
		out = append(out, n)
	}
	return out
}
