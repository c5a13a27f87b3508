package simrun

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/korobprog/supermock-matcher/pkg/logger"
)

var (
	professions = []string{"frontend", "backend", "devops", "qa"}
	languages   = []string{"en", "ru", "es"}
	toolPool    = []string{"react", "vue", "go", "postgres", "docker", "kubernetes", "figma", "jest"}
)

const (
	maxSlotsPerUser = 3
	maxToolsPerUser = 4
)

// randomInt returns a random int in [0, n) using crypto/rand.
func randomInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateEnrollments builds an equal number of interviewer and candidate
// enrollments spread across a small set of professions, languages and slots.
// Paired roles draw from the same pools so most buckets end up matchable.
func generateEnrollments(ctx context.Context, config *Config, stats *Stats) ([]Enrollment, error) {
	logger.Get().Info(ctx, "generating enrollments",
		logger.Int("usersPerRole", config.NumUsers),
		logger.Int("slotSpread", config.SlotSpread))

	base := time.Now().UTC().Truncate(time.Hour).Add(2 * time.Hour)
	slots := make([]string, config.SlotSpread)
	for i := range slots {
		slots[i] = base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339)
	}

	out := make([]Enrollment, 0, config.NumUsers*2)
	for _, role := range []string{"interviewer", "candidate"} {
		for i := 0; i < config.NumUsers; i++ {
			e := Enrollment{
				UserID:     role + "-" + uuid.New().String(),
				Role:       role,
				Profession: professions[randomInt(len(professions))],
				Language:   languages[randomInt(len(languages))],
			}
			for n := 1 + randomInt(maxSlotsPerUser); n > 0; n-- {
				e.Slots = append(e.Slots, slots[randomInt(len(slots))])
			}
			for n := 1 + randomInt(maxToolsPerUser); n > 0; n-- {
				e.Tools = append(e.Tools, toolPool[randomInt(len(toolPool))])
			}
			out = append(out, e)
		}
	}

	stats.EnrollmentsGenerated = len(out)
	logger.Get().Info(ctx, "generated enrollments", logger.Int("count", len(out)))
	return out, nil
}
