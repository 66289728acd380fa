package main

import (
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"lovelink/chat"
	"lovelink/config"
	"lovelink/db"
	"lovelink/notify"
	"lovelink/privacy"
	"lovelink/relationship"
	"lovelink/user"
	"lovelink/ws"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	cfg := config.Load()

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	defer conn.Close()

	if err := db.ApplyMigrations(cfg.DBPath, cfg.MigrationsDir); err != nil {
		logger.Fatal().Err(err).Msg("Failed to apply migrations")
	}
	logger.Info().Msg("Migrations applied successfully")

	var sessions user.SessionStore
	if cfg.RedisAddr != "" {
		sessions = user.NewRedisSessionStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Using redis session store")
	} else {
		sessions = user.NewMemorySessionStore()
		logger.Info().Msg("Using in-memory session store")
	}

	secret := []byte(cfg.JWTSecret)

	userStore := user.NewStore(conn)
	privacyStore := privacy.NewStore(conn)
	relationshipStore := relationship.NewStore(conn)
	chatStore := chat.NewStore(conn)

	registry := ws.NewInMemoryRegistry(logger)
	notifier := notify.New(registry, logger)
	authenticator := ws.NewAuthenticator(user.SessionVerifier{Store: sessions}, userStore, secret, logger)

	userHandler := user.NewHandler(userStore, sessions, privacyStore, secret, logger)
	privacyHandler := privacy.NewHandler(privacyStore, logger)
	relationshipHandler := relationship.NewHandler(relationshipStore, userStore, chatStore, notifier, logger)
	chatHandler := chat.NewHandler(chatStore, userStore, notifier, logger)

	notificationSocket := ws.NewNotificationHandler(authenticator, registry, cfg.SocketDebugEcho, logger)
	chatSocket := ws.NewChatHandler(authenticator, registry, chatStore, logger)

	mw := user.NewMiddleware(sessions, secret, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("/register", disableCORS(userHandler.Register))
	mux.HandleFunc("/login", disableCORS(userHandler.Login))
	mux.HandleFunc("/logout", disableCORS(userHandler.Logout))
	mux.HandleFunc("/user", disableCORS(mw.RequireAuth(userHandler.ManageUser)))
	mux.HandleFunc("/user/search", disableCORS(mw.RequireAuth(userHandler.Search)))

	mux.HandleFunc("/privacy", disableCORS(mw.RequireAuth(privacyHandler.GetSettings)))
	mux.HandleFunc("/privacy/status", disableCORS(mw.RequireAuth(privacyHandler.ToggleStatusVisibility)))
	mux.HandleFunc("/privacy/online-status", disableCORS(mw.RequireAuth(privacyHandler.ToggleOnlineStatusVisibility)))
	mux.HandleFunc("/privacy/last-seen", disableCORS(mw.RequireAuth(privacyHandler.ToggleLastSeen)))

	mux.HandleFunc("/relationship", disableCORS(mw.RequireAuth(relationshipHandler.Manage)))
	mux.HandleFunc("/relationship/request", disableCORS(mw.RequireAuth(relationshipHandler.CreateRequest)))
	mux.HandleFunc("/relationship/respond/{id}", disableCORS(mw.RequireAuth(relationshipHandler.Respond)))

	mux.HandleFunc("/chat", disableCORS(mw.RequireAuth(chatHandler.ManageChat)))
	mux.HandleFunc("/chat/messages", disableCORS(mw.RequireAuth(chatHandler.Messages)))

	mux.Handle("/ws/relationship-requests", notificationSocket)
	mux.Handle("/ws/chat/{chatId}", chatSocket)

	logger.Info().Str("addr", cfg.Addr).Msg("Server starting")
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func disableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}
