// Maintenance sweep: backfill missing overall scores on verified
// assessments, then recompute every location's accessibility score.
package main

import (
	"log"

	"access-audit-api/config"
	"access-audit-api/services"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize database
	config.InitDB()

	assessments := services.NewAssessmentService(config.DB)
	repaired, err := assessments.RepairNullScores()
	if err != nil {
		log.Fatal("Failed to repair null scores:", err)
	}
	for _, id := range repaired {
		log.Printf("Recomputed overall score for assessment %d\n", id)
	}
	log.Printf("Repaired %d assessments with missing scores\n", len(repaired))

	locations := services.NewLocationService(config.DB)
	updated, err := locations.RepairAllScores()
	if err != nil {
		log.Fatal("Failed to repair location scores:", err)
	}
	for _, id := range updated {
		log.Printf("Recomputed accessibility score for location %s\n", id)
	}
	log.Printf("Updated %d locations\n", len(updated))

	log.Println("Score repair completed!")
}
