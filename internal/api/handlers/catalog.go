package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/foresight-go/internal/catalog"
	"github.com/irfndi/foresight-go/internal/config"
)

// CatalogHandler serves the vocabularies offered by the UI selectors.
type CatalogHandler struct {
	catalog  *catalog.Catalog
	forecast config.ForecastConfig
}

type HorizonBounds struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
}

type CatalogResponse struct {
	Sources []catalog.Source `json:"sources"`
	Periods []string         `json:"periods"`
	Horizon HorizonBounds    `json:"horizon"`
	Method  string           `json:"method"`
	Level   int              `json:"level"`
}

func NewCatalogHandler(cat *catalog.Catalog, forecast config.ForecastConfig) *CatalogHandler {
	return &CatalogHandler{catalog: cat, forecast: forecast}
}

func (h *CatalogHandler) GetCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, CatalogResponse{
		Sources: h.catalog.SourceList(),
		Periods: h.catalog.Periods.Labels(),
		Horizon: HorizonBounds{Min: 1, Max: h.forecast.MaxHorizon, Default: h.forecast.DefaultHorizon},
		Method:  h.forecast.Method,
		Level:   h.forecast.Level,
	})
}
