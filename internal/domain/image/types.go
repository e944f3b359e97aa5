package image

import "strings"

// Upload is an in-memory file received from a multipart form.
type Upload struct {
	Filename    string
	Data        []byte
	Format      string
	ContentType string
}

// Extension returns the lowercased text after the last dot, or "".
func Extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

// AllowedFile reports whether filename carries one of the extensions.
func AllowedFile(filename string, extensions []string) bool {
	if filename == "" || !strings.Contains(filename, ".") {
		return false
	}
	ext := Extension(filename)
	for _, allowed := range extensions {
		if strings.EqualFold(strings.TrimPrefix(allowed, "."), ext) {
			return true
		}
	}
	return false
}

// ValidationResult captures the outcome of security validation.
type ValidationResult struct {
	IsValid      bool
	Format       string
	Width        int
	Height       int
	FileSize     int64
	Error        error
	SecurityRisk string
}

// QualityReport holds basic exposure metrics for a decoded image.
type QualityReport struct {
	Brightness float64  `json:"brightness"`
	Contrast   float64  `json:"contrast"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Issues     []string `json:"issues"`
}

// Valid reports whether no quality issue was found.
func (q QualityReport) Valid() bool { return len(q.Issues) == 0 }

// Color is one k-means cluster.
type Color struct {
	R          uint8   `json:"r"`
	G          uint8   `json:"g"`
	B          uint8   `json:"b"`
	Hex        string  `json:"hex"`
	Percentage float64 `json:"percentage"`
}

// RGB returns the center as an int triple.
func (c Color) RGB() [3]int { return [3]int{int(c.R), int(c.G), int(c.B)} }
