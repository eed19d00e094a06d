package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Gaetan1303/JDR-test/config"
	"github.com/Gaetan1303/JDR-test/internal/dice"
	"github.com/Gaetan1303/JDR-test/internal/room"
	"github.com/Gaetan1303/JDR-test/internal/routers"
	"github.com/Gaetan1303/JDR-test/internal/websocket"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	registry := room.NewRegistry()
	hub := websocket.NewHub()
	dispatcher := websocket.NewDispatcher(hub, registry, dice.NewRoller())
	log.Info().Msg("Relay dispatcher initialized")

	wsHandler := websocket.NewHandler(hub, dispatcher, config.Conf.Relay.MaxConnections, config.Conf.Relay.SendBufferSize)

	r := routers.NewRouter(registry, hub, wsHandler)

	server := &http.Server{
		Addr:         config.Conf.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Msgf("Starting relay on http://localhost%s", config.Conf.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(fmt.Sprintf("ListenAndServe failed: %v", err))
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutdown initiated...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("Graceful shutdown failed: %v\n", err)
	} else {
		fmt.Println("Server exited gracefully.")
	}
	hub.Close()
}
