package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/eagleapps/user-service/config"
	"github.com/eagleapps/user-service/internal/domain/entity"
	pginfra "github.com/eagleapps/user-service/internal/infrastructure/postgres"
	"github.com/eagleapps/user-service/pkg/helpers"
)

// Seeds a demo user through the real repository so the id comes from the
// durable counter rather than a hand-picked value.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	seq := pginfra.NewSequenceRepository(pool)
	repo := pginfra.NewUserRepository(pool, seq, cfg.IDPrefix)

	email := "demo@eagleapps.dev"
	password := "password123"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	exists, err := repo.ExistsByEmailOrMobile(ctx, email, 6281234567890)
	if err != nil {
		log.Fatalf("failed to check existing user: %v", err)
	}
	if exists {
		fmt.Println("demo user already seeded")
		return
	}

	id, err := repo.Create(ctx, &entity.User{
		Username:              "demoUser",
		Fullname:              "Demo User",
		DOB:                   "1990-01-01",
		Email:                 email,
		Password:              hash,
		Mobile:                6281234567890,
		Active:                true,
		AccountNonExpired:     true,
		AccountNonLocked:      true,
		CredentialsNonExpired: true,
		Roles: []entity.Role{
			{Name: "ROLE_ADMIN"},
			{Name: "ROLE_USER"},
		},
		Addresses: map[string]string{
			"home":   "1 Demo Street, Springfield",
			"office": "42 Example Avenue, Springfield",
		},
	})
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s password=%s\n", id, email, password)
}
