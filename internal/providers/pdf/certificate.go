package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// CertificateData is everything the certificate document shows.
type CertificateData struct {
	Number          string
	ProjectName     string
	ProjectCode     string
	AreaSqm         int64
	HolderEmail     string
	IssuedAt        string
	VerificationURL string
}

// Renderer produces the printable certificate document.
type Renderer interface {
	RenderCertificate(ctx context.Context, data CertificateData) ([]byte, error)
}

type marotoRenderer struct{}

func NewRenderer() Renderer {
	return &marotoRenderer{}
}

func (r *marotoRenderer) RenderCertificate(_ context.Context, data CertificateData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(20).
		WithRightMargin(20).
		Build()

	m := maroto.New(cfg)

	projectName := data.ProjectName
	if projectName == "" {
		projectName = data.ProjectCode
	}

	m.AddRow(30,
		text.NewCol(12, "Certificate of Restoration", props.Text{
			Size:  24,
			Style: fontstyle.Bold,
			Align: align.Center,
			Top:   10,
		}),
	)
	m.AddRow(10,
		text.NewCol(12, data.Number, props.Text{
			Size:  12,
			Align: align.Center,
		}),
	)
	m.AddRow(8, line.NewCol(12))

	m.AddRow(25,
		text.NewCol(12, fmt.Sprintf("This certifies the restoration of %d m² of land", data.AreaSqm), props.Text{
			Size:  14,
			Align: align.Center,
			Top:   8,
		}),
	)
	m.AddRow(15,
		text.NewCol(12, "in "+projectName, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Center,
		}),
	)

	if data.HolderEmail != "" {
		m.AddRow(12,
			text.NewCol(12, "Held by "+data.HolderEmail, props.Text{
				Size:  11,
				Align: align.Center,
				Top:   4,
			}),
		)
	}

	m.AddRow(20,
		col.New(6).Add(
			text.New("Issued on", props.Text{Style: fontstyle.Bold, Size: 9, Top: 8}),
			text.New(data.IssuedAt, props.Text{Size: 9, Top: 13}),
		),
		col.New(6).Add(
			text.New("Verify at", props.Text{Style: fontstyle.Bold, Size: 9, Top: 8, Align: align.Right}),
			text.New(data.VerificationURL, props.Text{Size: 9, Top: 13, Align: align.Right}),
		),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
