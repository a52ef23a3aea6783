package scoring

import "strings"

// Sentiment aggregates rule-based sentiment over a set of review texts.
// Review text is rarely available from listing scrapes; when it is, the
// adjustment feeds back into the lead score (unhappy customers signal a
// motivated owner).
type Sentiment struct {
	Overall     string  `json:"overall"`
	Compound    float64 `json:"compound_score"`
	PositivePct float64 `json:"positive_pct"`
	NegativePct float64 `json:"negative_pct"`
	ReviewCount int     `json:"review_count"`
	ScoreAdjust int     `json:"lead_score_adj"`
}

// Small valence lexicon. Scores are in [-1, 1]; words not listed are
// neutral. Offline on purpose: no model downloads, no API.
var valence = map[string]float64{
	"excellent": 0.9, "amazing": 0.9, "awesome": 0.8, "great": 0.7,
	"fantastic": 0.8, "wonderful": 0.8, "perfect": 0.8, "love": 0.7,
	"loved": 0.7, "best": 0.7, "good": 0.5, "friendly": 0.5,
	"professional": 0.5, "helpful": 0.5, "recommend": 0.6, "recommended": 0.6,
	"fast": 0.3, "clean": 0.3, "nice": 0.4, "happy": 0.5, "fair": 0.3,

	"terrible": -0.9, "horrible": -0.9, "awful": -0.9, "worst": -0.9,
	"bad": -0.6, "poor": -0.6, "rude": -0.7, "slow": -0.4,
	"scam": -0.9, "overpriced": -0.6, "dirty": -0.5, "disappointed": -0.6,
	"disappointing": -0.6, "unprofessional": -0.7, "avoid": -0.8,
	"never": -0.3, "late": -0.4, "broken": -0.5, "refund": -0.4,
	"hate": -0.8, "useless": -0.7,
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "isnt": true, "wasnt": true,
	"dont": true, "didnt": true, "wont": true, "cant": true,
}

// AnalyzeReviews scores a list of review strings and returns the
// aggregate sentiment plus a signed lead-score adjustment:
// very negative +4, slightly negative +2, very positive -1, else 0.
func AnalyzeReviews(reviews []string) Sentiment {
	if len(reviews) == 0 {
		return Sentiment{Overall: "unknown"}
	}

	var sum float64
	var positives, negatives int
	for _, r := range reviews {
		c := compound(r)
		sum += c
		if c > 0.05 {
			positives++
		} else if c < -0.05 {
			negatives++
		}
	}

	avg := sum / float64(len(reviews))

	adj := 0
	switch {
	case avg < -0.3:
		adj = 4
	case avg < 0:
		adj = 2
	case avg > 0.5:
		adj = -1
	}

	return Sentiment{
		Overall:     classify(avg),
		Compound:    avg,
		PositivePct: float64(positives) / float64(len(reviews)) * 100,
		NegativePct: float64(negatives) / float64(len(reviews)) * 100,
		ReviewCount: len(reviews),
		ScoreAdjust: adj,
	}
}

// compound scores one review in [-1, 1]: mean word valence with simple
// negation flipping ("not good" reads negative).
func compound(text string) float64 {
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}

	var sum float64
	hits := 0
	negate := false
	for _, w := range words {
		if negations[w] {
			negate = true
			continue
		}
		v, ok := valence[w]
		if !ok {
			continue
		}
		if negate {
			v = -v
			negate = false
		}
		sum += v
		hits++
	}
	if hits == 0 {
		return 0
	}

	c := sum / float64(hits)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return c
}

func tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == '\'':
			return -1 // "don't" -> "dont"
		default:
			return ' '
		}
	}, text)
	return strings.Fields(cleaned)
}

func classify(compound float64) string {
	switch {
	case compound >= 0.05:
		return "positive"
	case compound <= -0.05:
		return "negative"
	default:
		return "neutral"
	}
}
