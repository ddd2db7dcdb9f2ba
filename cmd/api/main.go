package main

import (
	"fmt"
	"os"

	"agendo/cmd/internal/domain/sqlite"
	"agendo/cmd/internal/domain/sqlite/repository"
	cognitoclient "agendo/cmd/internal/integration/aws/cognito"
	"agendo/cmd/internal/routes"
	"agendo/cmd/internal/service"
	"agendo/cmd/internal/utils"
	"agendo/cmd/internal/utils/validators"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

func main() {
	validate := validator.New()
	registerValidators(validate)

	err := godotenv.Load()
	if err != nil {
		log.Fatal("failed to load .env file", err)
	}

	// Init SQLite
	db, err := sqlite.Init(envOr("DATABASE_PATH", "./database.db"))
	if err != nil {
		log.Fatal("failed to initialize database", err)
	}

	// Cognito client + token verification keys
	cogClient, err := cognitoclient.InitCognitoClient()
	if err != nil {
		log.Fatal("failed to initialize cognito client", err)
	}
	utils.InitTokenVerifier(jwksURL())

	// Getting repositories
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)

	// Getting services
	userService := service.NewUserService(userRepo, validate, cogClient)
	eventService := service.NewEventService(eventRepo, userRepo, validate)

	// Getting routes
	userRoutes := routes.NewUserDefault(userService)
	eventRoutes := routes.NewEventDefault(eventService)

	e := echo.New()
	e.Use(middleware.CORS())

	// Events + conflict resolution
	e.GET("/api/events", eventRoutes.GetEvents)
	e.POST("/api/events", eventRoutes.CreateEvent)
	e.PUT("/api/events/:id", eventRoutes.UpdateEvent)
	e.DELETE("/api/events/:id", eventRoutes.DeleteEvent)
	e.GET("/api/events/draft", eventRoutes.GetDraft)
	e.POST("/api/events/resolve", eventRoutes.ResolveConflict)
	e.DELETE("/api/events/pending", eventRoutes.DismissConflict)

	// Calendar views (monthly / weekly / daily grids)
	e.GET("/api/calendar", eventRoutes.GetCalendar)

	// Users
	e.GET("/api/users/@me", userRoutes.GetMe)
	e.POST("/api/users", userRoutes.CreateUser)
	e.POST("/api/users/login", userRoutes.CreateLogin)
	e.POST("/api/users/verify", userRoutes.VerifySignup)
	e.POST("/api/users/logout", userRoutes.Logout)

	err = e.Start(":" + envOr("PORT", "6060"))
	if err != nil {
		e.Logger.Fatal(err)
	}
}

func registerValidators(validate *validator.Validate) {
	_ = validate.RegisterValidation("hasupper", validators.HasUpper)
	_ = validate.RegisterValidation("haslower", validators.HasLower)
	_ = validate.RegisterValidation("hasdigit", validators.HasDigit)
	_ = validate.RegisterValidation("hasspecial", validators.HasSpecial)
	_ = validate.RegisterValidation("nospaces", validators.NoWhiteSpaces)
	_ = validate.RegisterValidation("iso8601", validators.IsIso8601)
	_ = validate.RegisterValidation("eventcolor", validators.IsEventColor)
}

func jwksURL() string {
	if url := os.Getenv("COGNITO_JWKS_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json",
		os.Getenv("AWS_REGION"), os.Getenv("COGNITO_USER_POOL_ID"))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
