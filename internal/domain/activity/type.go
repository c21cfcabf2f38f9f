package activity

import "strings"

// typeSynonyms maps the vocabulary volunteers actually type to the
// closed activity type set. Malay terms come from field usage.
var typeSynonyms = map[string]Type{
	"transit":      TypeTransit,
	"arrival":      TypeArrival,
	"tiba":         TypeArrival,
	"sampai":       TypeArrival,
	"distribution": TypeDistribution,
	"agihan":       TypeDistribution,
	"edaran":       TypeDistribution,
	"class":        TypeClass,
	"kelas":        TypeClass,
	"completion":   TypeCompletion,
	"khatam":       TypeCompletion,
	"update":       TypeUpdate,
	"kemaskini":    TypeUpdate,
	"other":        TypeOther,
	"lain":         TypeOther,
	"lain-lain":    TypeOther,
}

// NormalizeType maps raw user input to an activity type. Unrecognized
// values pass through as a lowercase slug so nothing is ever rejected.
func NormalizeType(raw string) Type {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return TypeOther
	}
	if t, ok := typeSynonyms[key]; ok {
		return t
	}
	return Type(strings.ReplaceAll(key, " ", "_"))
}

// KnownTypes lists the closed set in prompt order.
func KnownTypes() []Type {
	return []Type{
		TypeTransit,
		TypeArrival,
		TypeDistribution,
		TypeClass,
		TypeCompletion,
		TypeUpdate,
		TypeOther,
	}
}
