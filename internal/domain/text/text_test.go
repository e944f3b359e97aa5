package text

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	reply  string
	err    error
	prompt string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func TestClean(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"the the cat", "the cat"},
		{"a a dog dog running", "a dog runing"},
		{"heeeello   world", "helo world"},
		{"a dog and a dog", "a dog and a dog"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clean(tt.in), tt.in)
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Hello there & friends", Sanitize("<p>Hello <b>there</b> & friends</p>"))
	assert.NotContains(t, Sanitize(`<img src=x onerror="alert(1)">caption`), "onerror")
	assert.Equal(t, "plain", Sanitize("  plain \n"))
}

func TestEnsureMinWords(t *testing.T) {
	ctx := context.Background()

	long := "a brown dog running across a field"
	gen := &stubGenerator{}
	assert.Equal(t, long, EnsureMinWords(ctx, gen, long, 6))
	assert.Empty(t, gen.prompt, "generator must not be called")

	gen = &stubGenerator{reply: "  a small brown dog sprints across green grass  "}
	assert.Equal(t, "a small brown dog sprints across green grass", EnsureMinWords(ctx, gen, "a dog", 6))
	assert.Contains(t, gen.prompt, `"a dog"`)
	assert.Contains(t, gen.prompt, "6 words")

	gen = &stubGenerator{reply: "a dog"}
	assert.Equal(t, "a dog with various details and elements visible in the scene", EnsureMinWords(ctx, gen, "dog", 6))

	gen = &stubGenerator{err: errors.New("quota")}
	assert.Equal(t, "dog", EnsureMinWords(ctx, gen, "dog", 6))
}

func TestExtractHashtags(t *testing.T) {
	assert.Equal(t, []string{"#Sun", "#Beach"}, ExtractHashtags("Here you go: #Sun #Beach enjoy"))
	assert.Equal(t, []string{"#Photography", "#Social", "#Content"}, ExtractHashtags("no tags here"))

	fallback := ExtractHashtags("")
	fallback[0] = "#Changed"
	assert.Equal(t, "#Photography", ExtractHashtags("")[0])
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"Dog", "Ball", "Tree"}, ParseList("1. Dog\n2. Ball, dog\n- Tree."))
	assert.Equal(t, []string{"cup", "table lamp"}, ParseList("cup, table lamp,  , CUP"))
	assert.Empty(t, ParseList(""))
}

func TestParseSEO(t *testing.T) {
	in := `Meta Title: Golden Sunset Over Calm Ocean Waters
Meta Description:
Watch the sun sink into a calm ocean.
Alternative Titles:
1. Sunset Serenity
- Ocean Gold
Evening Glow
Keywords: sunset, ocean, golden hour
Product Description:
A vivid print of the sea.
Perfect for living rooms.`

	got := ParseSEO(in)
	assert.Equal(t, "Golden Sunset Over Calm Ocean Waters", got.MetaTitle)
	assert.Equal(t, "Watch the sun sink into a calm ocean.", got.MetaDescription)
	assert.Equal(t, []string{"Sunset Serenity", "Ocean Gold", "Evening Glow"}, got.AlternativeTitles)
	assert.Equal(t, []string{"sunset", "ocean", "golden hour"}, got.Keywords)
	assert.Equal(t, "A vivid print of the sea. Perfect for living rooms.", got.ProductDescription)
}

func TestParseSEO_MarkdownHeaders(t *testing.T) {
	in := "**1. Meta Title:**\nSunset Print\n\n**2. Meta Description:**\nCalm seas."
	got := ParseSEO(in)
	assert.Equal(t, "Sunset Print", got.MetaTitle)
	assert.Equal(t, "Calm seas.", got.MetaDescription)
	assert.Empty(t, got.Keywords)
	assert.NotNil(t, got.AlternativeTitles)
}

func TestParseSocial(t *testing.T) {
	in := `**Instagram Captions:**
1. Chasing sunsets
Golden hour magic
Twitter/X Posts:
Sun's out, waves calm.
Facebook Post:
We spent the evening watching the sky.
It was unforgettable.
Hashtags:
#Sunset #Ocean #GoldenHour`

	got := ParseSocial(in)
	assert.Equal(t, []string{"Golden hour magic"}, got.InstagramCaptions)
	assert.Equal(t, []string{"Sun's out, waves calm."}, got.TwitterPosts)
	assert.Equal(t, "We spent the evening watching the sky. It was unforgettable.", got.FacebookPost)
	assert.Equal(t, []string{"Sunset", "Ocean", "GoldenHour"}, got.Hashtags)
}

func TestParseSocial_Empty(t *testing.T) {
	got := ParseSocial("nothing recognisable")
	assert.Empty(t, got.InstagramCaptions)
	assert.Empty(t, got.FacebookPost)
	assert.NotNil(t, got.Hashtags)
}

func TestParseMedical(t *testing.T) {
	in := `1. Technical Assessment
Image is sharp.
Good exposure.
2. Anatomical Observations
Chest radiograph showing both lungs.
3. Notable Findings
1. No masses
Clear fields.
4. Recommendations
Routine follow-up.`

	got := ParseMedical(in)
	assert.Equal(t, "Image is sharp.\nGood exposure.", got.TechnicalAssessment)
	assert.Equal(t, "Chest radiograph showing both lungs.", got.AnatomicalObservations)
	assert.Equal(t, "Clear fields.", got.NotableFindings)
	assert.Equal(t, "Routine follow-up.", got.Recommendations)
}

func TestParseMedical_CaseSensitiveHeaders(t *testing.T) {
	got := ParseMedical("technical assessment\nshould be ignored")
	assert.Equal(t, MedicalReport{}, got)
}

func TestParseSentiment(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Sentiment
	}{
		{
			name: "fenced json",
			in:   "```json\n{\"category\": \"Positive\", \"score\": 0.9, \"indicators\": [\"joy\", \"warmth\"]}\n```",
			want: Sentiment{Category: "Positive", Score: 0.9, Indicators: []string{"joy", "warmth"}},
		},
		{
			name: "scalar indicator",
			in:   `Sure! {"category":"Negative","score":0.2,"indicators":"gloom"}`,
			want: Sentiment{Category: "Negative", Score: 0.2, Indicators: []string{"gloom"}},
		},
		{
			name: "string score",
			in:   `{"category":"Neutral","score":"0.7","indicators":[]}`,
			want: Sentiment{Category: "Neutral", Score: 0.7, Indicators: []string{}},
		},
		{name: "missing score", in: `{"category":"Positive","indicators":[]}`, want: NeutralSentiment},
		{name: "missing indicators", in: `{"category":"Positive","score":1}`, want: NeutralSentiment},
		{name: "not json", in: "I think it is happy", want: NeutralSentiment},
		{name: "broken json", in: `{"category": "Positive", "score": }`, want: NeutralSentiment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSentiment(tt.in))
		})
	}
}

func TestPrompts(t *testing.T) {
	assert.Contains(t, ContextPrompt("a a dog"), "Caption: a dog")
	assert.Contains(t, EnhancePrompt("ctx"), "under 100 words")
	assert.Contains(t, SocialCaptionPrompt("ctx"), "200 characters")
	assert.True(t, strings.Contains(SEOPrompt("ctx", "alt"), "Caption: alt"))
	assert.NotContains(t, SEOPrompt("ctx", ""), "Caption:")
	assert.Contains(t, MedicalPrompt("knee"), "Additional Context: knee")
	require.Contains(t, SentimentPrompt("t"), `"indicators"`)
}
