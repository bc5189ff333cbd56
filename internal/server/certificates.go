package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	certificatedomain "github.com/smallbiznis/rewild/internal/certificate/domain"
)

type certificateResponse struct {
	Number      string `json:"number"`
	Status      string `json:"status"`
	Type        string `json:"type"`
	ProjectCode string `json:"project_code"`
	ProjectName string `json:"project_name,omitempty"`
	AreaSqm     int64  `json:"area_sqm"`
	PDFURL      string `json:"pdf_url,omitempty"`
	IssuedAt    string `json:"issued_at"`
	RevokedAt   string `json:"revoked_at,omitempty"`
}

// GetCertificate is the public verification endpoint: anyone holding a
// certificate number can confirm what it attests. The holder's email is
// deliberately not returned.
func (s *Server) GetCertificate(c *gin.Context) {
	cert, err := s.certificates.FindByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCertificateResponse(cert))
}

func (s *Server) RerenderCertificate(c *gin.Context) {
	cert, err := s.renderer.Rerender(c.Request.Context(), c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCertificateResponse(cert))
}

func (s *Server) RevokeCertificate(c *gin.Context) {
	number := strings.TrimSpace(c.Param("number"))
	if number == "" {
		AbortWithError(c, newValidationError("number", "required", "certificate number is required"))
		return
	}

	cert, err := s.certificates.Revoke(c.Request.Context(), number)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCertificateResponse(cert))
}

func toCertificateResponse(cert *certificatedomain.Certificate) certificateResponse {
	resp := certificateResponse{
		Number:      cert.Number,
		Status:      string(cert.Status),
		Type:        string(cert.Type),
		ProjectCode: cert.ProjectCode,
		ProjectName: cert.ProjectName,
		AreaSqm:     cert.AreaSqm,
		PDFURL:      cert.PDFURL,
		IssuedAt:    cert.IssuedAt.UTC().Format("2006-01-02"),
	}
	if cert.RevokedAt != nil {
		resp.RevokedAt = cert.RevokedAt.UTC().Format("2006-01-02")
	}
	return resp
}
