package main

import (
	"log"
	"net/http"

	"go.uber.org/zap"

	"reception-voicebot/internal/config"
	"reception-voicebot/internal/core"
	httpserver "reception-voicebot/internal/http"
	"reception-voicebot/internal/llm"
	"reception-voicebot/internal/patients"
	"reception-voicebot/internal/session"
	"reception-voicebot/internal/speech"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Patient directory is loaded once; the prompt snapshot is fixed from
	// this point on.
	directory := patients.Load(cfg.PatientDataPath, logger)

	sessions := session.NewStore(cfg.SessionTTL, cfg.SessionLimit, logger)
	defer sessions.Close()

	groq := llm.NewGroqClient(llm.Options{
		APIKey:       cfg.GroqAPIKey,
		BaseURL:      cfg.GroqBaseURL,
		ChatModel:    cfg.ChatModel,
		WhisperModel: cfg.WhisperModel,
	})
	receptionist := core.NewReceptionist(groq, directory, logger)

	synth := speech.NewSynthesizer(speech.SynthesizerOptions{
		APIKey:       cfg.ElevenAPIKey,
		ModelID:      cfg.TTSModel,
		OutputFormat: cfg.OutputFormat,
		Timeout:      cfg.RequestTimeout,
		Logger:       logger,
	})
	spool, err := speech.NewSpool(cfg.AudioDir, 32, logger)
	if err != nil {
		logger.Fatal("failed to create audio spool", zap.Error(err))
	}
	recorder := &speech.CommandRecorder{
		Command: cfg.CaptureCommand,
		Window:  cfg.ListenTimeout + cfg.PhraseLimit,
	}
	listener := speech.NewListener(recorder, groq, logger)

	srv, err := httpserver.NewServer(sessions, receptionist, synth, listener, spool, cfg.RequestTimeout, logger)
	if err != nil {
		logger.Fatal("failed to construct server", zap.Error(err))
	}

	logger.Info("listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
