package main

import (
	"os"
	"strconv"
)

type config struct {
	port              string
	storageDir        string
	uploadDir         string
	sessionDBURL      string
	deepfaceURL       string
	classifyPoolSize  int
	defaultEngine     string
	openaiAPIKey      string
	openaiBaseURL     string
	openaiVisionModel string
	maxIngestConns    int
}

func loadConfig() config {
	return config{
		port:              envStr("GATEWAY_PORT", "8000"),
		storageDir:        envStr("STORAGE_DIR", "storage"),
		uploadDir:         envStr("UPLOAD_DIR", "uploads"),
		sessionDBURL:      envStr("SESSION_DB_URL", ""),
		deepfaceURL:       envStr("DEEPFACE_URL", "http://localhost:5005"),
		classifyPoolSize:  envInt("CLASSIFY_POOL_SIZE", 10),
		defaultEngine:     envStr("CLASSIFY_ENGINE", "deepface"),
		openaiAPIKey:      envStr("OPENAI_API_KEY", ""),
		openaiBaseURL:     envStr("OPENAI_BASE_URL", ""),
		openaiVisionModel: envStr("OPENAI_VISION_MODEL", "gpt-4o-mini"),
		maxIngestConns:    envInt("MAX_INGEST_CONNS", 100),
	}
}

func envStr(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}
