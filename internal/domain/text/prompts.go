package text

import "fmt"

// ContextPrompt asks for a concise description built from a raw caption.
func ContextPrompt(alt string) string {
	return fmt.Sprintf(`Write a clear, concise description of this image.
Do not repeat words or phrases.

Caption: %s`, Clean(alt))
}

// EnhancePrompt asks for a richer but bounded rewrite of a description.
func EnhancePrompt(context string) string {
	return fmt.Sprintf(`Rewrite this description with more descriptive detail while staying accurate.

Description: %s

Guidelines:
1. Add sensory detail
2. Mention measurements or technical detail where they apply
3. Do not invent facts
4. Stay under 100 words`, context)
}

// SocialCaptionPrompt asks for a short conversational caption.
func SocialCaptionPrompt(context string) string {
	return fmt.Sprintf(`Write an engaging social media caption for this image.
Keep it conversational, add fitting emojis and stay under 200 characters.
Do not repeat words.

Image: %s`, context)
}

// HashtagPrompt asks for a space separated hashtag list.
func HashtagPrompt(text string) string {
	return fmt.Sprintf(`Suggest 8 to 10 specific, popular hashtags for this post.
Each hashtag starts with # and contains no spaces. Separate them with spaces.

Post: %s

Example: #Photography #Nature #Wildlife`, text)
}

// MinWordsPrompt asks for a description of at least min words.
func MinWordsPrompt(alt string, min int) string {
	return fmt.Sprintf(`This image description is too short: %q
Write a factual description of at least %d words covering what is visible,
where things are placed and the key details.`, alt, min)
}

// SEOPrompt asks for SEO copy in labelled sections.
func SEOPrompt(context, alt string) string {
	p := fmt.Sprintf("Write SEO content for this image.\n\nContext: %s\n", context)
	if alt != "" {
		p += fmt.Sprintf("Caption: %s\n", alt)
	}
	return p + `
Return these labelled sections:
Meta Title: 50 to 60 characters
Meta Description: 150 to 160 characters
Alternative Titles: three options for A/B testing, one per line
Keywords: five, comma separated
Product Description: 200 to 300 words`
}

// SocialVariantsPrompt asks for per-network variations of SEO copy.
func SocialVariantsPrompt(content string) string {
	return fmt.Sprintf(`Produce social media variations of this content.

Content: %s

Return these labelled sections:
Instagram: three captions under 200 characters, one per line
Twitter: three posts under 280 characters, one per line
Facebook: one post of 400 to 600 characters
Hashtags: five hashtags`, content)
}

// MedicalPrompt asks for an educational report in four named sections.
func MedicalPrompt(context string) string {
	p := `Review this medical image and write an educational report covering
the visible anatomy, notable patterns or abnormalities, image quality and
possible clinical relevance.

Use exactly these section headings:
Technical Assessment
Anatomical Observations
Notable Findings
Recommendations

This report is for education only and is not a diagnosis.`
	if context != "" {
		p += "\n\nAdditional Context: " + context
	}
	return p
}

// VisionContextPrompt asks a vision model for a detailed reading.
func VisionContextPrompt() string {
	return `Describe this image in detail: what it shows, the key elements and why
they matter, its notable visual qualities and any relevant context.`
}

// DeepAnalysisPrompt asks for a deeper interpretation of a description.
func DeepAnalysisPrompt(description string) string {
	return fmt.Sprintf(`Expand on this image description with a deeper analysis.

Description: %s

Cover the context, possible symbolism, technical aspects of the image and
any cultural or historical relevance.`, description)
}

// SentimentPrompt asks for a JSON sentiment verdict.
func SentimentPrompt(text string) string {
	return fmt.Sprintf(`Classify the sentiment of this text as Positive, Negative or Neutral,
give a confidence between 0 and 1 and list the emotional cues you relied on.

Text: %s

Answer with JSON only, no markdown:
{"category": "...", "score": 0.0, "indicators": ["..."]}`, text)
}

// ObjectsPrompt asks a vision model for the objects it can see.
func ObjectsPrompt() string {
	return `List the distinct objects visible in this image as a comma separated
list of short nouns. Answer with the list only.`
}
