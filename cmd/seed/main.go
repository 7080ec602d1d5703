package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/youknownothingjs/ayursutra/internal/db"
	redisclient "github.com/youknownothingjs/ayursutra/internal/redis"
	"github.com/youknownothingjs/ayursutra/internal/scheduling"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := scheduling.EnsureSchema(context.Background(), pool); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	repo := scheduling.NewPgRepository(pool)

	if err := seedResources(context.Background(), repo); err != nil {
		log.Fatalf("seed resources: %v", err)
	}
	if err := seedAppointments(context.Background(), repo, 200); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedResources(ctx context.Context, repo scheduling.Repository) error {
	specialties := []string{
		"Panchakarma Specialist",
		"Ayurvedic Physician",
		"Herbal Medicine Expert",
		"Rasayana Therapist",
		"Marma Therapist",
	}

	var resources []scheduling.Resource

	for i := 1; i <= 5; i++ {
		specialty := specialties[(i-1)%len(specialties)]
		resources = append(resources, scheduling.Resource{
			ID:          fmt.Sprintf("vaidya-%d", i),
			Kind:        scheduling.KindPractitioner,
			DisplayName: "Dr. " + gofakeit.Name(),
			Status:      scheduling.ResourceAvailable,
			Specialty:   &specialty,
		})
	}

	roomNames := []string{"Abhyanga Room", "Shirodhara Room", "Panchakarma Suite", "Consultation Room"}
	for i := 1; i <= 4; i++ {
		capacity := 1
		if i == 3 {
			capacity = 2
		}
		resources = append(resources, scheduling.Resource{
			ID:          fmt.Sprintf("room-%d", 100+i),
			Kind:        scheduling.KindRoom,
			DisplayName: fmt.Sprintf("%s %d", roomNames[i-1], 100+i),
			Status:      scheduling.ResourceAvailable,
			Capacity:    &capacity,
		})
	}

	equipment := []string{"Shirodhara Stand Set A", "Steam Chamber Unit B", "Basti Apparatus C"}
	for i, name := range equipment {
		condition := "Excellent"
		resources = append(resources, scheduling.Resource{
			ID:          fmt.Sprintf("equipment-%d", i+1),
			Kind:        scheduling.KindEquipment,
			DisplayName: name,
			Status:      scheduling.ResourceAvailable,
			Condition:   &condition,
		})
	}

	log.Printf("seeding %d resources", len(resources))
	for i := range resources {
		if err := repo.UpsertResource(ctx, &resources[i]); err != nil {
			return err
		}
	}
	return nil
}

func seedAppointments(ctx context.Context, repo scheduling.Repository, count int) error {
	log.Printf("seeding up to %d appointments", count)

	locker := redisclient.NewMutexLocker()
	svc := scheduling.NewService(repo, locker)

	therapies := []scheduling.TherapyType{
		scheduling.TherapyPanchakarma,
		scheduling.TherapyAbhyanga,
		scheduling.TherapyShirodhara,
		scheduling.TherapyVirechana,
		scheduling.TherapyNasya,
		scheduling.TherapyBasti,
	}

	created, conflicts := 0, 0
	today := scheduling.Day(time.Now())

	for i := 0; i < count; i++ {
		therapy := therapies[gofakeit.Number(0, len(therapies)-1)]
		day := today.AddDate(0, 0, gofakeit.Number(0, 13))
		start := 8*60 + 30*gofakeit.Number(0, 22)
		practitioner := fmt.Sprintf("vaidya-%d", gofakeit.Number(1, 5))
		room := fmt.Sprintf("room-%d", gofakeit.Number(101, 104))

		_, err := svc.CreateAppointment(ctx, scheduling.CreateRequest{
			PatientRef:  gofakeit.Name(),
			TherapyType: therapy,
			Date:        day,
			StartMinute: start,
			ResourceIDs: []string{practitioner, room},
			Room:        room,
			Notes:       gofakeit.Sentence(8),
			Urgent:      gofakeit.Number(0, 9) == 0,
			Recurring:   gofakeit.Number(0, 4) == 0,
			Confirmed:   gofakeit.Bool(),
		})
		if err != nil {
			var conflictErr *scheduling.ConflictError
			if errors.As(err, &conflictErr) {
				conflicts++
				continue
			}
			return err
		}
		created++
	}

	log.Printf("seeded appointments: created=%d skipped_conflicts=%d", created, conflicts)
	return nil
}
