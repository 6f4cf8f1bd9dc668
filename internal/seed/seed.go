// Package seed populates a development database with plausible data.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"civicboard/internal/models"
	"civicboard/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Options controls how much data the seeder generates.
type Options struct {
	Users        int
	Items        int
	CountiesFile string
}

// countiesFixture mirrors the YAML layout of the county assignment fixture.
type countiesFixture struct {
	Assignments []struct {
		AdminID  uint     `yaml:"admin_id"`
		Counties []string `yaml:"counties"`
	} `yaml:"assignments"`
}

var seedCounties = []string{
	"Dublin", "Cork", "Galway", "Limerick", "Waterford",
	"Kilkenny", "Kerry", "Mayo", "Sligo", "Donegal",
}

// Run fills the database with county assignments, items and appraisals.
// It is not idempotent and is meant for empty development databases.
func Run(ctx context.Context, db *gorm.DB, opts Options) error {
	if opts.Users <= 0 {
		opts.Users = 20
	}
	if opts.Items <= 0 {
		opts.Items = 50
	}

	counties := repository.NewCountyRepository(db)
	items := repository.NewItemRepository(db)
	appraisals := repository.NewAppraisalRepository(db)

	if err := seedAssignments(ctx, counties, opts.CountiesFile); err != nil {
		return fmt.Errorf("seeding county assignments: %w", err)
	}

	created := make([]*models.Item, 0, opts.Items)
	for i := 0; i < opts.Items; i++ {
		item := fakeItem(opts.Users)
		if err := items.Create(ctx, item); err != nil {
			return fmt.Errorf("seeding items: %w", err)
		}
		created = append(created, item)
	}

	// Random appraisal activity so trending has something to rank.
	toggles := 0
	for _, item := range created {
		if item.Visibility != models.VisibilityPublic {
			continue
		}
		for userID := uint(1); userID <= uint(opts.Users); userID++ {
			if rand.Intn(4) != 0 {
				continue
			}
			if _, err := appraisals.Toggle(ctx, userID, item.ID, item.Kind); err != nil {
				return fmt.Errorf("seeding appraisals: %w", err)
			}
			toggles++
		}
	}

	slog.Info("seed complete", "items", len(created), "appraisals", toggles)
	return nil
}

// seedAssignments loads the fixture when given, otherwise splits the default
// county list between two admins.
func seedAssignments(ctx context.Context, counties repository.CountyRepository, path string) error {
	if path == "" {
		half := len(seedCounties) / 2
		if _, err := counties.Assign(ctx, 1, seedCounties[:half]); err != nil {
			return err
		}
		_, err := counties.Assign(ctx, 2, seedCounties[half:])
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fixture countiesFixture
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		return err
	}
	for _, a := range fixture.Assignments {
		if _, err := counties.Assign(ctx, a.AdminID, a.Counties); err != nil {
			return err
		}
	}
	return nil
}

func fakeItem(users int) *models.Item {
	kind := models.KindIssue
	if gofakeit.Bool() {
		kind = models.KindSuggestion
	}
	visibility := models.VisibilityPublic
	if gofakeit.Number(0, 9) == 0 {
		visibility = models.VisibilityPrivate
	}

	created := gofakeit.DateRange(time.Now().AddDate(0, 0, -30), time.Now())
	return &models.Item{
		Kind:        kind,
		County:      seedCounties[gofakeit.Number(0, len(seedCounties)-1)],
		Visibility:  visibility,
		Status:      models.StatusUnderReview,
		Title:       gofakeit.Sentence(6),
		Description: gofakeit.Paragraph(1, 3, 12, " "),
		UserID:      uint(gofakeit.Number(1, users)),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}
