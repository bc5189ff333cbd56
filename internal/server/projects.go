package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	projectdomain "github.com/smallbiznis/rewild/internal/project/domain"
)

type projectResponse struct {
	Code             string `json:"code"`
	Name             string `json:"name"`
	Country          string `json:"country,omitempty"`
	AvailableAreaSqm int64  `json:"available_area_sqm"`
	UnitPriceAmount  int64  `json:"unit_price_amount"`
	Currency         string `json:"currency"`
}

func (s *Server) ListProjects(c *gin.Context) {
	projects, err := s.projects.ListActive(c.Request.Context(), s.db)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]projectResponse, 0, len(projects))
	for _, project := range projects {
		out = append(out, toProjectResponse(project))
	}
	c.JSON(http.StatusOK, gin.H{"projects": out})
}

func toProjectResponse(project projectdomain.Project) projectResponse {
	return projectResponse{
		Code:             project.Code,
		Name:             project.Name,
		Country:          project.Country,
		AvailableAreaSqm: project.AvailableAreaSqm,
		UnitPriceAmount:  project.UnitPriceAmount,
		Currency:         project.Currency,
	}
}
