package resume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.5-pro"
	AgentName    = "resume_parser"
	parserUserID = "resumezk"
)

var (
	ErrEmptyResponse = errors.New("resume: empty response from agent")
	ErrBadResponse   = errors.New("resume: agent returned invalid JSON")
)

// Parser turns résumé text into Info.
type Parser interface {
	Parse(ctx context.Context, text string) (Info, error)
}

// NewAgent builds the extraction agent on a Gemini model.
func NewAgent(ctx context.Context, apiKey, modelName string) (agent.Agent, error) {
	if modelName == "" {
		modelName = DefaultModel
	}
	model, err := gemini.NewModel(ctx, modelName, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	a, err := llmagent.New(llmagent.Config{
		Name:        AgentName,
		Model:       model,
		Description: "Extract structured résumé fields",
		Instruction: extractionPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	return a, nil
}

// AgentParser runs each parse in its own throwaway agent session.
type AgentParser struct {
	runner   *runner.Runner
	sessions session.Service
	appName  string
	log      logrus.FieldLogger
}

func NewAgentParser(a agent.Agent, log logrus.FieldLogger) (*AgentParser, error) {
	sessions := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        a.Name(),
		Agent:          a,
		SessionService: sessions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	return &AgentParser{runner: r, sessions: sessions, appName: a.Name(), log: log}, nil
}

func (p *AgentParser) Parse(ctx context.Context, text string) (Info, error) {
	created, err := p.sessions.Create(ctx, &session.CreateRequest{
		AppName:   p.appName,
		UserID:    parserUserID,
		SessionID: uuid.NewString(),
	})
	if err != nil {
		return Info{}, fmt.Errorf("failed to create agent session: %w", err)
	}
	sess := created.Session
	defer func() {
		err := p.sessions.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   sess.AppName(),
			UserID:    sess.UserID(),
			SessionID: sess.ID(),
		})
		if err != nil {
			p.log.WithError(err).WithField("session_id", sess.ID()).Warn("failed to delete agent session")
		}
	}()

	stream := p.runner.Run(ctx, sess.UserID(), sess.ID(), &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: "Résumé:\n" + text}},
	}, agent.RunConfig{})

	var output string
	for event, err := range stream {
		if err != nil {
			return Info{}, fmt.Errorf("agent stream: %w", err)
		}
		if event != nil && event.IsFinalResponse() && event.Content != nil && len(event.Content.Parts) > 0 {
			output = event.Content.Parts[0].Text
		}
	}
	return DecodeInfo(output)
}

// DecodeInfo parses a model reply into Info.
func DecodeInfo(reply string) (Info, error) {
	cleaned := CleanJSON(reply)
	if strings.TrimSpace(cleaned) == "" {
		return Info{}, ErrEmptyResponse
	}
	var info Info
	if err := json.Unmarshal([]byte(cleaned), &info); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if info.Experience == nil {
		info.Experience = []Experience{}
	}
	if info.Skills == nil {
		info.Skills = []string{}
	}
	return info, nil
}
