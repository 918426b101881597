// Foodies is a recipe sharing API: session-backed authentication, recipe
// publishing with image uploads, favorites, a follow graph, reference data,
// and testimonials.
//
// @title Foodies API
// @version 1.0
// @description Recipe sharing API: sessions, recipes, favorites, follows, and testimonials.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/user/foodies-go/apperror"
	"github.com/user/foodies-go/auth"
	"github.com/user/foodies-go/config"
	"github.com/user/foodies-go/db"
	_ "github.com/user/foodies-go/docs"
	"github.com/user/foodies-go/recipes"
	"github.com/user/foodies-go/refdata"
	"github.com/user/foodies-go/storage"
	"github.com/user/foodies-go/testimonials"
	"github.com/user/foodies-go/users"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading it: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pool, err := db.NewPool(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to create database pool: %v", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(cfg.DB, "./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	files := storage.NewFileStore(cfg.Uploads.PublicDir, cfg.Uploads.TempDir)
	if err := files.EnsureDirs(); err != nil {
		log.Fatalf("Failed to prepare upload directories: %v", err)
	}

	tokenCodec := auth.NewTokenCodec(*cfg.Auth)
	authService := auth.NewAuthService(pool, tokenCodec, *cfg.Auth)
	authHandlers := auth.NewHandlers(authService)

	userService := users.NewService(pool, files)
	userHandlers := users.NewHandlers(userService)

	recipeService := recipes.NewService(pool, files)
	recipeHandlers := recipes.NewHandlers(recipeService, files)

	refdataService := refdata.NewService(pool)
	refdataHandlers := refdata.NewHandlers(refdataService)

	testimonialService := testimonials.NewService(pool)
	testimonialHandlers := testimonials.NewHandlers(testimonialService)

	requireAuth := auth.RequireAuth(tokenCodec, authService)
	optionalAuth := auth.OptionalAuth(tokenCodec, authService)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Panic recovery that reports through the shared error envelope.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				if rvr := recover(); rvr != nil {
					log.Printf("Panic: %+v", rvr)
					writeError(ww, apperror.NewInternalError("internal server error", nil))
				}
			}()
			next.ServeHTTP(ww, r)
		})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandlers.HandleRegister())
		r.Post("/login", authHandlers.HandleLogin())
		r.With(requireAuth).Post("/logout", authHandlers.HandleLogout())
	})

	r.Route("/users", func(r chi.Router) {
		r.Route("/me", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", userHandlers.HandleGetCurrentUser())
			r.Patch("/avatar", userHandlers.HandleUpdateAvatar())
			r.Get("/followers", userHandlers.HandleGetOwnFollowers())
			r.Get("/following", userHandlers.HandleGetOwnFollowing())
			r.Get("/sessions", authHandlers.HandleListSessions())
			r.Delete("/sessions/{sessionId}", authHandlers.HandleCloseSession())
		})

		r.With(optionalAuth).Get("/{userId}", userHandlers.HandleGetUser())
		r.Get("/{userId}/followers", userHandlers.HandleGetFollowers())
		r.Get("/{userId}/following", userHandlers.HandleGetFollowing())
		r.Get("/{userId}/testimonials", testimonialHandlers.HandleGetUserTestimonials())
		r.With(requireAuth).Post("/{userId}/follow", userHandlers.HandleFollowUser())
		r.With(requireAuth).Delete("/{userId}/follow", userHandlers.HandleUnfollowUser())
	})

	r.Route("/recipes", func(r chi.Router) {
		r.Get("/", recipeHandlers.HandleGetAllRecipes())
		r.With(optionalAuth).Get("/popular", recipeHandlers.HandleGetPopularRecipes())

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", recipeHandlers.HandleCreateRecipe())
			r.Get("/own", recipeHandlers.HandleGetOwnRecipes())
			r.Get("/favorites", recipeHandlers.HandleGetFavorites())
			r.Post("/{recipeId}/favorite", recipeHandlers.HandleAddFavorite())
			r.Delete("/{recipeId}/favorite", recipeHandlers.HandleRemoveFavorite())
			r.Delete("/{recipeId}", recipeHandlers.HandleDeleteRecipe())
		})

		r.With(optionalAuth).Get("/{recipeId}", recipeHandlers.HandleGetRecipe())
	})

	r.Get("/categories", refdataHandlers.HandleGetCategories())
	r.Get("/areas", refdataHandlers.HandleGetAreas())
	r.Get("/ingredients", refdataHandlers.HandleGetIngredients())

	r.Route("/testimonials", func(r chi.Router) {
		r.Get("/", testimonialHandlers.HandleGetTestimonials())
		r.Get("/{testimonialId}", testimonialHandlers.HandleGetTestimonial())
		r.With(requireAuth).Post("/", testimonialHandlers.HandleCreateTestimonial())
		r.With(requireAuth).Put("/{testimonialId}", testimonialHandlers.HandleUpdateTestimonial())
		r.With(requireAuth).Delete("/{testimonialId}", testimonialHandlers.HandleDeleteTestimonial())
	})

	// Relocated recipe images and avatars are served from the public dir.
	fileServer := http.StripPrefix("/public/", http.FileServer(http.Dir(files.PublicDir())))
	r.Get("/public/*", func(w http.ResponseWriter, r *http.Request) {
		fileServer.ServeHTTP(w, r)
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped gracefully")
}

// writeError is a local helper for the panic recovery middleware.
func writeError(w http.ResponseWriter, appErr *apperror.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	if err := json.NewEncoder(w).Encode(appErr.ToResponse()); err != nil {
		http.Error(w, `{"message":"failed to encode error response"}`, http.StatusInternalServerError)
	}
}
