package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kurdai/kurdai-server/adapters/capture"
	"github.com/kurdai/kurdai-server/adapters/gemini"
	"github.com/kurdai/kurdai-server/adapters/speaker"
	"github.com/kurdai/kurdai-server/domain/entities"
	"github.com/kurdai/kurdai-server/internal/audio"
	"github.com/kurdai/kurdai-server/internal/config"
	"github.com/kurdai/kurdai-server/usecase"
)

// consoleSink prints session events to the terminal
type consoleSink struct {
	logger *zap.Logger
}

func (s *consoleSink) OnStatus(status entities.SessionStatus) {
	s.logger.Info("session status", zap.String("status", string(status)))
}

func (s *consoleSink) OnPartial(role entities.Role, text string) {
	fmt.Printf("\r[%s …] %s", role, text)
}

func (s *consoleSink) OnEntries(entries []entities.TranscriptEntry) {
	for _, entry := range entries {
		fmt.Printf("\r[%s] %s\n", entry.Role, entry.Text)
	}
}

func (s *consoleSink) OnTurnComplete() {}

func (s *consoleSink) OnInterrupted() {
	fmt.Println("\r[interrupted]")
}

func (s *consoleSink) OnError(err error) {
	s.logger.Error("session error", zap.Error(err))
}

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuration", zap.Error(err))
	}

	manager := usecase.NewManager(usecase.ManagerConfig{
		Transport: gemini.NewLiveTransport(cfg.GeminiAPIKey, logger),
		Capture:   capture.NewFFmpeg(logger),
		Sink:      speaker.NewFFplay(audio.OutputSampleRate, logger),
		Events:    &consoleSink{logger: logger},
		Clock:     usecase.SystemClock(),
		Logger:    logger,
	})

	err = manager.Start(context.Background(), usecase.SessionOptions{
		Model:             cfg.VoiceModel,
		Voice:             cfg.Voice,
		SystemInstruction: cfg.SystemInstruction,
		CaptureDevice:     cfg.CaptureDevice,
	})
	if err != nil {
		logger.Fatal("start session", zap.Error(err))
	}

	fmt.Println("Listening. Speak into the microphone; Ctrl-C to stop.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	if err := manager.Stop(); err != nil {
		logger.Warn("session stop reported errors", zap.Error(err))
	}

	for _, entry := range manager.Transcript() {
		fmt.Printf("[%s] %s\n", entry.Role, entry.Text)
	}
}
