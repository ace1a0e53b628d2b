package handlers

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/riskserve/internal/domain/models"
	"github.com/turtacn/riskserve/pkg/logger"
)

//go:embed templates/index.html
var templateFS embed.FS

type pageField struct {
	Name string
	Min  float64
	Max  float64
}

type pageData struct {
	Title         string
	ActiveVersion string
	Fields        []pageField
	Labels        []string
}

// PageHandler renders the landing page.
type PageHandler struct {
	tmpl   *template.Template
	active ActiveVersion
	logger logger.Logger
}

// NewPageHandler parses the embedded template.
func NewPageHandler(active ActiveVersion, log logger.Logger) (*PageHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	return &PageHandler{tmpl: tmpl, active: active, logger: log.WithComponent("PageHandler")}, nil
}

// Index handles GET /.
func (h *PageHandler) Index(c *gin.Context) {
	data := pageData{
		Title:         "Maternal Health Risk",
		ActiveVersion: h.active.VersionID(),
	}
	for _, name := range models.FeatureNames {
		r := models.FeatureRanges[name]
		data.Fields = append(data.Fields, pageField{Name: name, Min: r.Min, Max: r.Max})
	}
	for _, level := range models.AllRiskLevels() {
		data.Labels = append(data.Labels, level.String())
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := h.tmpl.Execute(c.Writer, data); err != nil {
		h.logger.Error(c.Request.Context(), "Failed to render landing page", err)
	}
}

//Personal.AI order the ending
