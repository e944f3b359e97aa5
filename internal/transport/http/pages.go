package httptransport

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"alttext-server-go/internal/domain/caption"
)

//go:embed assets
var assets embed.FS

// embeddedFiles serves the embedded static directory to static.Serve.
type embeddedFiles struct {
	http.FileSystem
}

func (e embeddedFiles) Exists(prefix, path string) bool {
	p := strings.TrimPrefix(path, prefix)
	if len(p) == len(path) || p == "" || p == "/" {
		return false
	}
	f, err := e.Open(p)
	if err != nil {
		return false
	}
	defer f.Close()
	st, err := f.Stat()
	return err == nil && !st.IsDir()
}

func staticFiles() (embeddedFiles, error) {
	sub, err := fs.Sub(assets, "assets/static")
	if err != nil {
		return embeddedFiles{}, fmt.Errorf("static assets: %w", err)
	}
	return embeddedFiles{http.FS(sub)}, nil
}

// Tool describes one analysis page: a form posting a single upload to Action.
type Tool struct {
	Path    string
	Title   string
	Summary string
	Action  string
	Field   string
	Accept  string
}

// Tools lists the analysis pages in navigation order.
var Tools = []Tool{
	{Path: "/social-media", Title: "Social media", Summary: "Alt text, an engaging caption and hashtags.", Action: "/social-media", Field: "image", Accept: ".png,.jpg,.jpeg,.gif"},
	{Path: "/seo", Title: "SEO", Summary: "Meta title, description, keywords and social variants.", Action: "/seo", Field: "image", Accept: ".png,.jpg,.jpeg,.gif"},
	{Path: "/general", Title: "General analysis", Summary: "Description, objects and dominant colors.", Action: "/api/analyze/general", Field: "image", Accept: ".png,.jpg,.jpeg,.gif"},
	{Path: "/image-analyzer", Title: "Image analyzer", Summary: "Alt text with an enhanced context paragraph.", Action: "/image-analyzer", Field: "image", Accept: ".png,.jpg,.jpeg,.gif"},
	{Path: "/social-media-analyzer", Title: "Social vision", Summary: "Vision model description, caption and hashtags.", Action: "/api/social-media/analyze", Field: "image", Accept: ".png,.jpg,.jpeg,.gif"},
	{Path: "/medical-image-analysis", Title: "Medical imaging", Summary: "Structured technical report for medical images.", Action: "/api/analyze-medical-image", Field: "file", Accept: ".png,.jpg,.jpeg,.gif,.tiff,.dcm"},
	{Path: "/advanced-analysis", Title: "Advanced analysis", Summary: "Enhanced description, color charts and sentiment.", Action: "/advanced-analysis", Field: "image", Accept: ".png,.jpg,.jpeg,.gif"},
}

func registerPages(engine *gin.Engine) error {
	tmpl, err := template.ParseFS(assets, "assets/templates/*.html")
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	engine.SetHTMLTemplate(tmpl)

	engine.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"Title": "Alt text generator",
			"Types": caption.Types,
			"Tools": Tools,
		})
	})
	engine.GET("/tools", func(c *gin.Context) {
		c.HTML(http.StatusOK, "landing.html", gin.H{
			"Title": "Image tools",
			"Tools": Tools,
		})
	})
	for _, tool := range Tools {
		tool := tool
		engine.GET(tool.Path, func(c *gin.Context) {
			c.HTML(http.StatusOK, "tool.html", gin.H{
				"Title": tool.Title,
				"Tool":  tool,
				"Tools": Tools,
			})
		})
	}
	return nil
}
