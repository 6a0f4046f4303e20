package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/neurons-lms/lms-api/internal/repository"
	"github.com/neurons-lms/lms-api/internal/service"
	"github.com/neurons-lms/lms-api/pkg/config"
	"github.com/neurons-lms/lms-api/pkg/database"
	"github.com/neurons-lms/lms-api/pkg/logger"
)

func main() {
	withCourse := pflag.Bool("with-course", false, "also create the demo course with instructor and enrollments")
	password := pflag.String("password", service.DefaultSeedPassword, "password assigned to every demo account")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	seeder := service.NewSeedService(userRepo, courseRepo, enrollmentRepo, logr)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summary, err := seeder.Run(ctx, service.SeedOptions{
		Password:   *password,
		WithCourse: *withCourse,
	})
	if err != nil {
		logr.Fatal("seed failed", zap.Error(err))
	}

	fmt.Printf("accounts created: %d\n", len(summary.UsersCreated))
	for _, email := range summary.UsersCreated {
		fmt.Printf("  + %s\n", email)
	}
	fmt.Printf("accounts skipped: %d\n", len(summary.UsersSkipped))
	for _, email := range summary.UsersSkipped {
		fmt.Printf("  = %s\n", email)
	}
	if *withCourse {
		switch {
		case summary.CourseCreated:
			fmt.Printf("course %s created, %d students enrolled\n", service.SeedCourseCode, summary.StudentsEnrolled)
		case summary.CourseSkipped:
			fmt.Printf("course %s already exists, skipped\n", service.SeedCourseCode)
		}
	}
}
