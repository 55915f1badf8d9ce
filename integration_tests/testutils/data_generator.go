package testutils

import (
	"fmt"
	"time"

	questservice "github.com/Black-And-White-Club/quest-bot/app/modules/quest/application"
	"github.com/brianvoe/gofakeit/v7"
)

// TestDataGenerator builds registration requests and route seeds.
type TestDataGenerator struct {
	faker  *gofakeit.Faker
	seed   int64
	nextTg int64
}

// NewTestDataGenerator creates a generator; pass a seed for repeatable data.
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	var s int64
	if len(seed) > 0 {
		s = seed[0]
	} else {
		s = time.Now().UnixNano()
	}
	return &TestDataGenerator{
		faker:  gofakeit.New(uint64(s)),
		seed:   s,
		nextTg: 100000,
	}
}

// GenerateRegistrations returns count requests with distinct messaging ids and
// valid +7 phones.
func (g *TestDataGenerator) GenerateRegistrations(count int) []questservice.RegisterRequest {
	out := make([]questservice.RegisterRequest, count)
	for i := range out {
		g.nextTg++
		out[i] = questservice.RegisterRequest{
			TgID:      g.nextTg,
			Phone:     "+7" + g.faker.Numerify("9#########"),
			FirstName: g.faker.FirstName(),
			LastName:  g.faker.LastName(),
		}
	}
	return out
}

// GenerateRoute returns a route seed with checkpoints ordered 1..n.
func (g *TestDataGenerator) GenerateRoute(code string, n int) questservice.RouteSeed {
	seed := questservice.RouteSeed{Code: code, Name: g.faker.City()}
	for i := 1; i <= n; i++ {
		seed.Checkpoints = append(seed.Checkpoints, questservice.CheckpointSeed{
			OrderNum: i,
			Title:    fmt.Sprintf("%s %d", g.faker.Noun(), i),
			Riddle:   g.faker.Sentence(8),
		})
	}
	return seed
}

// ArticleURL returns a fresh https article link with tracking params.
func (g *TestDataGenerator) ArticleURL() string {
	return fmt.Sprintf("https://%s/%s?utm_source=tg", g.faker.DomainName(), g.faker.Word())
}
