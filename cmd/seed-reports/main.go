package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"civicreport-backend/config"
	"civicreport-backend/location"
	"civicreport-backend/models"
	"civicreport-backend/repository"
	"civicreport-backend/service"
)

const (
	district     = "Ranchi"
	municipality = "Ranchi"
)

var sampleUsers = []struct {
	username string
	mobile   string
}{
	{"ravi123", "9876543210"},
	{"priya456", "9123456780"},
	{"amit_kumar", "9000000001"},
	{"sunita_yadav", "9000000002"},
	{"deepak_singh", "9000000003"},
}

var sampleReports = []struct {
	author     int
	text       string
	address    string
	department models.Department
	status     models.ReportStatus
	upvoters   []int
	comments   []string
	age        time.Duration
}{
	{0, "Garbage has not been collected for a week and the bin is overflowing", "Main Road, near Firayalal Chowk", models.DepartmentSanitation, models.StatusReported, []int{1, 2, 3}, []string{"Same situation on our lane", "Stray dogs are spreading it around"}, 2 * time.Hour},
	{1, "Large pothole in the middle of the road causing accidents", "Kanke Road, opposite CM House", models.DepartmentEngineering, models.StatusAcknowledged, []int{0, 2, 3, 4}, []string{"Two bikes slipped here yesterday"}, 26 * time.Hour},
	{2, "Drain blocked and water logging after every rain", "Lalpur Chowk", models.DepartmentDrainage, models.StatusInProgress, []int{0, 1}, nil, 50 * time.Hour},
	{3, "No water supply in the morning for three days", "Harmu Housing Colony", models.DepartmentWaterSupply, models.StatusReported, []int{4}, []string{"Tanker was promised but never came"}, 5 * time.Hour},
	{4, "Street lights not working on the whole stretch", "Circular Road", models.DepartmentElectricity, models.StatusResolved, []int{0, 1, 2}, []string{"Fixed now, thank you"}, 96 * time.Hour},
	{0, "Broken manhole cover near the school gate", "Bariatu Road", models.DepartmentDrainage, models.StatusReported, nil, nil, 30 * time.Minute},
}

func main() {
	config.LoadDotEnv()

	opts, err := config.LoadStore()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if opts.Driver == config.DriverMemory {
		log.Fatal("STORE_DRIVER=memory would discard seeded data on exit")
	}
	if !location.Valid(district, municipality) {
		log.Fatalf("%s / %s is not a selectable location", district, municipality)
	}

	ctx := context.Background()

	stores, err := repository.OpenStores(ctx, opts)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer stores.Close()

	if err := stores.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to prepare schema: %v", err)
	}

	users := make([]*models.User, len(sampleUsers))
	for i, su := range sampleUsers {
		user, err := ensureUser(ctx, stores.Users, su.username, su.mobile)
		if err != nil {
			log.Fatalf("Failed to create user %s: %v", su.username, err)
		}
		users[i] = user
	}

	now := time.Now()
	for _, sr := range sampleReports {
		report := &models.Report{
			UserID:       users[sr.author].ID,
			Text:         sr.text,
			Address:      sr.address,
			District:     district,
			Municipality: municipality,
			Department:   sr.department,
			Status:       models.StatusReported,
			Media:        make(models.MediaAssets, 0),
			CreatedAt:    now.Add(-sr.age),
		}
		if err := stores.Reports.Create(ctx, report); err != nil {
			log.Fatalf("Failed to create report: %v", err)
		}

		for _, u := range sr.upvoters {
			if _, err := stores.Reports.AddUpvote(ctx, report.ID, users[u].ID); err != nil {
				log.Fatalf("Failed to upvote report %s: %v", report.ID, err)
			}
		}
		for i, text := range sr.comments {
			comment := &models.Comment{
				ReportID: report.ID,
				UserID:   users[(sr.author+i+1)%len(users)].ID,
				Text:     text,
			}
			if err := stores.Reports.AddComment(ctx, comment); err != nil {
				log.Fatalf("Failed to comment on report %s: %v", report.ID, err)
			}
		}
		if sr.status != models.StatusReported {
			if _, err := stores.Reports.UpdateStatus(ctx, report.ID, sr.status); err != nil {
				log.Fatalf("Failed to set status of report %s: %v", report.ID, err)
			}
		}

		fmt.Printf("✓ %-12s %-13s %s\n", sr.department, sr.status, sr.text)
	}

	fmt.Printf("✅ Seeded %d users and %d reports in %s / %s\n", len(users), len(sampleReports), district, municipality)
	fmt.Printf("   Every sample user logs in with password %q\n", "password")
}

// ensureUser returns the existing account or creates it located in Ranchi
func ensureUser(ctx context.Context, store repository.UserStore, username, mobile string) (*models.User, error) {
	existing, err := store.GetByUsername(ctx, username)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := service.HashPassword("password")
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		MobileNumber: mobile,
		PasswordHash: hash,
		District:     district,
		Municipality: municipality,
	}
	if err := store.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
