package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/muhammadolammi/resumezk/internal/resume"
)

// GetParser builds the Gemini-backed résumé parser.
func GetParser(ctx context.Context, cfg Config, log logrus.FieldLogger) (*resume.AgentParser, error) {
	a, err := resume.NewAgent(ctx, cfg.GoogleAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	return resume.NewAgentParser(a, log.WithField("agent", a.Name()))
}
