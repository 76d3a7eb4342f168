package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mxl4r/Prism-LLM-frontend/internal/catalog"
	"github.com/mxl4r/Prism-LLM-frontend/internal/llm"
	"github.com/mxl4r/Prism-LLM-frontend/pkg/api"
)

type ModelHandler struct {
	defaultModel llm.ModelID
}

func NewModelHandler(defaultModel llm.ModelID) *ModelHandler {
	if defaultModel == "" {
		defaultModel = catalog.DefaultModel
	}
	return &ModelHandler{defaultModel: defaultModel}
}

// List returns the selectable models, optionally narrowed with ?provider=.
//
// GET /v1/models
func (h *ModelHandler) List(c *gin.Context) {
	models := catalog.Default()

	if name := c.Query("provider"); name != "" {
		kind, err := llm.ParseKind(name)
		if err != nil {
			_ = c.Error(api.ValidationError(map[string]string{"provider": err.Error()}))
			return
		}
		models = catalog.Filter(kind)
	}

	data := make([]api.Model, 0, len(models))
	for _, m := range models {
		data = append(data, api.Model{
			ID:          string(m.ID),
			Name:        m.Name,
			Provider:    m.Provider.String(),
			Description: m.Description,
			Multimodal:  m.Multimodal,
		})
	}

	c.JSON(http.StatusOK, api.ModelList{
		Object:  "list",
		Data:    data,
		Default: string(h.defaultModel),
	})
}
