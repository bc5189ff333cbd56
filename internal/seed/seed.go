package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	projectdomain "github.com/smallbiznis/rewild/internal/project/domain"
	"gorm.io/gorm"
)

var demoProjects = []projectdomain.Project{
	{
		Name:             "Serra do Açor",
		Country:          "PT",
		AvailableAreaSqm: 120000,
		UnitPriceAmount:  250,
		Currency:         "EUR",
		Active:           true,
	},
	{
		Name:             "Vale Glaciar do Zêzere",
		Country:          "PT",
		AvailableAreaSqm: 45000,
		UnitPriceAmount:  320,
		Currency:         "EUR",
		Active:           true,
	},
	{
		Name:             "Montado do Alentejo",
		Country:          "PT",
		AvailableAreaSqm: 300000,
		UnitPriceAmount:  180,
		Currency:         "EUR",
		Active:           true,
	},
}

// EnsureDemoProjects seeds a small catalog so a fresh deployment has
// something to sell. Existing codes are left untouched.
func EnsureDemoProjects(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	now := time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, project := range demoProjects {
			code := slug.Make(project.Name)

			var count int64
			if err := tx.Raw(
				`SELECT COUNT(*) FROM projects WHERE code = ?`, code,
			).Scan(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			if err := tx.Exec(
				`INSERT INTO projects (
					id, code, name, country, available_area_sqm, unit_price_amount,
					currency, active, created_at, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				node.Generate(),
				code,
				project.Name,
				project.Country,
				project.AvailableAreaSqm,
				project.UnitPriceAmount,
				project.Currency,
				project.Active,
				now,
				now,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
