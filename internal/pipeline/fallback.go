package pipeline

// langDefaults holds the language-correct substitutes used when a
// field cannot be repaired. Every value satisfies the output contract
// by construction. Supporting another language means adding a row here.
type langDefaults struct {
	Title    string
	Feedback string
}

var defaultsByLang = map[string]langDefaults{
	"zh": {
		Title:    "今日记录",
		Feedback: "谢谢你愿意把今天的心情记录下来，无论这一天过得怎样，这份认真对待生活的心意都值得被温柔以待，好好休息。",
	},
	"en": {
		Title:    "Today's Reflection",
		Feedback: "Thank you for taking a moment to write this down. Whatever today held, it matters that you noticed it. Be gentle with yourself and rest well.",
	},
}

func defaultsFor(prof Profile) langDefaults {
	if d, ok := defaultsByLang[prof.Code]; ok {
		return d
	}
	return defaultsByLang["en"]
}

// Synthesize builds the deterministic fallback result used when
// generation fails outright. The source text is preserved verbatim so
// a content-quality failure never loses the user's entry.
func Synthesize(source string, prof Profile) Result {
	d := defaultsFor(prof)
	return Result{
		Title:            d.Title,
		PolishedContent:  source,
		Feedback:         d.Feedback,
		DetectedLanguage: prof.Code,
	}
}
