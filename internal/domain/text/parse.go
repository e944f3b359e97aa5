package text

import (
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// SEOContent is the structured form of an SEO answer.
type SEOContent struct {
	MetaTitle          string   `json:"meta_title"`
	MetaDescription    string   `json:"meta_description"`
	AlternativeTitles  []string `json:"alternative_titles"`
	Keywords           []string `json:"keywords"`
	ProductDescription string   `json:"product_description"`
}

// SocialContent is the structured form of a social variants answer.
type SocialContent struct {
	InstagramCaptions []string `json:"instagram_captions"`
	TwitterPosts      []string `json:"twitter_posts"`
	FacebookPost      string   `json:"facebook_post"`
	Hashtags          []string `json:"hashtags"`
}

// MedicalReport is the structured form of a medical image analysis.
type MedicalReport struct {
	TechnicalAssessment    string `json:"technical_assessment"`
	AnatomicalObservations string `json:"anatomical_observations"`
	NotableFindings        string `json:"notable_findings"`
	Recommendations        string `json:"recommendations"`
}

// Sentiment is a category with a confidence score.
type Sentiment struct {
	Category   string   `json:"category"`
	Score      float64  `json:"score"`
	Indicators []string `json:"indicators"`
}

// sectionParser walks non-empty trimmed lines, switching section when a
// header line is recognised and collecting the rest into the current one.
type sectionParser struct {
	header func(line string) (section string, ok bool)
	skip   func(line string) bool
	flush  func(section string, lines []string)
}

func (p sectionParser) run(s string) {
	current := ""
	var buf []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if next, ok := p.header(line); ok {
			if current != "" && current != next {
				p.flush(current, buf)
				buf = nil
			}
			current = next
			if inline := inlineContent(line); inline != "" {
				buf = append(buf, inline)
			}
			continue
		}
		if current == "" || (p.skip != nil && p.skip(line)) {
			continue
		}
		buf = append(buf, line)
	}
	if current != "" {
		p.flush(current, buf)
	}
}

// inlineContent returns the text after a header's colon, e.g. the title in
// "**Meta Title:** Sunset over the bay".
func inlineContent(line string) string {
	i := strings.Index(line, ":")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(strings.Trim(line[i+1:], "* "))
}

func stripMarkup(s string) string {
	return strings.TrimSpace(strings.Trim(s, "*_#` "))
}

func nonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// ParseSEO splits an SEO answer into its sections by keyword headers.
func ParseSEO(s string) SEOContent {
	out := SEOContent{AlternativeTitles: []string{}, Keywords: []string{}}
	sectionParser{
		header: func(line string) (string, bool) {
			l := strings.ToLower(line)
			switch {
			case strings.Contains(l, "alternative titles") || strings.Contains(l, "a/b testing"):
				return "alternative_titles", true
			case strings.Contains(l, "product description"):
				return "product_description", true
			case strings.Contains(l, "meta description") || strings.HasPrefix(stripMarkup(l), "description:"):
				return "meta_description", true
			case strings.Contains(l, "meta title") || strings.HasPrefix(stripMarkup(l), "title:"):
				return "meta_title", true
			case strings.Contains(l, "keywords"):
				return "keywords", true
			}
			return "", false
		},
		flush: func(section string, lines []string) {
			switch section {
			case "meta_title":
				out.MetaTitle = stripMarkup(strings.Join(lines, " "))
			case "meta_description":
				out.MetaDescription = stripMarkup(strings.Join(lines, " "))
			case "alternative_titles":
				for _, l := range nonEmpty(lines) {
					out.AlternativeTitles = append(out.AlternativeTitles, stripMarkup(stripBullet(l)))
				}
			case "keywords":
				for _, k := range strings.Split(strings.Join(lines, " "), ",") {
					if k = stripMarkup(stripBullet(strings.TrimSpace(k))); k != "" {
						out.Keywords = append(out.Keywords, k)
					}
				}
			case "product_description":
				out.ProductDescription = strings.TrimSpace(strings.Join(lines, " "))
			}
		},
	}.run(s)
	return out
}

func numbered(max int) func(string) bool {
	return func(line string) bool {
		for i := 1; i <= max; i++ {
			if strings.HasPrefix(line, strconv.Itoa(i)+".") {
				return true
			}
		}
		return false
	}
}

// ParseSocial splits a social variants answer into per-network content.
// Numbered lines are dropped; hashtags are split on '#'.
func ParseSocial(s string) SocialContent {
	out := SocialContent{InstagramCaptions: []string{}, TwitterPosts: []string{}, Hashtags: []string{}}
	sectionParser{
		header: func(line string) (string, bool) {
			l := strings.ToLower(line)
			switch {
			case strings.Contains(l, "instagram"):
				return "instagram", true
			case strings.Contains(l, "twitter") || strings.Contains(l, "x post"):
				return "twitter", true
			case strings.Contains(l, "facebook"):
				return "facebook", true
			case strings.Contains(l, "hashtag"):
				return "hashtags", true
			}
			return "", false
		},
		skip: numbered(5),
		flush: func(section string, lines []string) {
			switch section {
			case "instagram":
				out.InstagramCaptions = append(out.InstagramCaptions, nonEmpty(lines)...)
			case "twitter":
				out.TwitterPosts = append(out.TwitterPosts, nonEmpty(lines)...)
			case "facebook":
				out.FacebookPost = strings.TrimSpace(strings.Join(lines, " "))
			case "hashtags":
				for _, h := range strings.Split(strings.Join(lines, " "), "#") {
					if h = strings.TrimSpace(h); h != "" {
						out.Hashtags = append(out.Hashtags, h)
					}
				}
			}
		},
	}.run(s)
	return out
}

// ParseMedical splits a medical report into its four sections. Header
// matching is case-sensitive.
func ParseMedical(s string) MedicalReport {
	var out MedicalReport
	sectionParser{
		header: func(line string) (string, bool) {
			for _, h := range []string{"Technical Assessment", "Anatomical Observations", "Notable Findings", "Recommendations"} {
				if strings.Contains(line, h) {
					return h, true
				}
			}
			return "", false
		},
		skip: numbered(4),
		flush: func(section string, lines []string) {
			body := strings.Join(lines, "\n")
			switch section {
			case "Technical Assessment":
				out.TechnicalAssessment = body
			case "Anatomical Observations":
				out.AnatomicalObservations = body
			case "Notable Findings":
				out.NotableFindings = body
			case "Recommendations":
				out.Recommendations = body
			}
		},
	}.run(s)
	return out
}

// NeutralSentiment is returned whenever a sentiment answer cannot be used.
var NeutralSentiment = Sentiment{Category: "Neutral", Score: 0.5, Indicators: []string{}}

// ParseSentiment extracts the outermost JSON object from s and reads its
// category, score and indicators. Any problem yields NeutralSentiment.
func ParseSentiment(s string) Sentiment {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return NeutralSentiment
	}

	var raw map[string]any
	if err := sonic.UnmarshalString(s[start:end+1], &raw); err != nil {
		return NeutralSentiment
	}

	category, ok := raw["category"].(string)
	if !ok || strings.TrimSpace(category) == "" {
		return NeutralSentiment
	}
	score, ok := toFloat(raw["score"])
	if !ok {
		return NeutralSentiment
	}
	ind, present := raw["indicators"]
	if !present {
		return NeutralSentiment
	}

	out := Sentiment{Category: strings.TrimSpace(category), Score: score, Indicators: []string{}}
	switch v := ind.(type) {
	case []any:
		for _, item := range v {
			if str, ok := item.(string); ok {
				out.Indicators = append(out.Indicators, str)
			}
		}
	case string:
		out.Indicators = append(out.Indicators, v)
	case nil:
	default:
		return NeutralSentiment
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
