package api

import (
	"net/http"
	"time"

	"rangeclub/internal/api/handler"
	"rangeclub/internal/api/middleware"
	"rangeclub/internal/app/service"
	"rangeclub/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	memberService *service.MemberService,
	waitlistService *service.WaitlistService,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Parses "Authorization: Bearer T" and leaves the verification result in
	// the context; routes that need auth add middleware.Authenticator on top.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	authn := middleware.Authenticator(authService)

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// API v1 Routes
	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(authService)
		v1.Route("/auth", func(auth chi.Router) {
			authHandler.RegisterRoutes(auth, authn)
		})

		memberHandler := handler.NewMemberHandler(memberService)
		v1.Route("/members", func(members chi.Router) {
			members.Use(authn)
			memberHandler.RegisterRoutes(members)
		})

		waitlistHandler := handler.NewWaitlistHandler(waitlistService)
		v1.Route("/waitlist", func(waitlist chi.Router) {
			waitlistHandler.RegisterRoutes(waitlist, authn)
		})
	})

	return r
}
