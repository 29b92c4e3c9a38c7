package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/somaedu/soma-backend/internal/config"
	"github.com/somaedu/soma-backend/internal/database"
	"github.com/somaedu/soma-backend/internal/logger"
	"github.com/somaedu/soma-backend/internal/model"
	"github.com/somaedu/soma-backend/internal/repository"
	"github.com/somaedu/soma-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	tutorRepo := repository.NewTutorRepository(pool)
	authService := service.NewAuthService(cfg)
	tutorService := service.NewTutorService(tutorRepo, authService)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Tutor Account ===")

	// Name
	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	// Email
	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// Role
	fmt.Print("Enter Role (TUTOR or SUPER_ADMIN, default SUPER_ADMIN): ")
	role, _ := reader.ReadString('\n')
	role = strings.TrimSpace(role)
	if role == "" {
		role = string(model.RoleSuperAdmin)
	}
	if role != string(model.RoleTutor) && role != string(model.RoleSuperAdmin) {
		fmt.Println("Error: Role must be TUTOR or SUPER_ADMIN")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────

	tutor, err := tutorService.Create(ctx, &model.CreateTutorRequest{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     role,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create tutor")
	}

	fmt.Printf("\nSuccess! Tutor '%s' (%s) created with ID: %d\n", tutor.Name, tutor.Email, tutor.ID)
}
