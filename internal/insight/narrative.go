package insight

import (
	"context"
	"fmt"
	"strings"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/nlpodyssey/openai-agents-go/modelsettings"
	"github.com/openai/openai-go/v2/packages/param"

	"github.com/calmloop/voicejournal/internal/models"
)

// Narrator produces the free-text supportive narrative for a session.
type Narrator interface {
	Narrate(ctx context.Context, transcript string, themes []string, overall models.Overall) (string, error)
}

const narratorInstructions = "You are a warm, supportive, non-judgmental companion reflecting on a spoken journal entry. Provide key emotional patterns observed, supportive insights and validation, gentle suggestions for emotional processing, and positive affirmations based on the content."

// AgentNarrator generates the narrative with a single-turn agent run. The
// model provider is resolved by the SDK from the ambient credentials.
type AgentNarrator struct {
	model     string
	maxTokens int
}

// NewAgentNarrator creates a narrator for the given model.
func NewAgentNarrator(model string, maxTokens int) *AgentNarrator {
	return &AgentNarrator{model: model, maxTokens: maxTokens}
}

func (n *AgentNarrator) Narrate(ctx context.Context, transcript string, themes []string, overall models.Overall) (string, error) {
	agent := agents.New("journal-companion").
		WithInstructions(narratorInstructions).
		WithModel(n.model).
		WithModelSettings(modelsettings.ModelSettings{
			MaxTokens: param.NewOpt(int64(n.maxTokens)),
		})

	prompt := fmt.Sprintf(
		"Analyze this voice journal session and provide supportive insights.\n\nTranscription: %s\n\nEmotional themes detected: %s\nDominant emotion: %s\nAverage sentiment: %.2f",
		transcript, strings.Join(themes, ", "), overall.DominantEmotion, overall.AverageSentiment)

	runner := agents.Runner{Config: agents.RunConfig{
		MaxTurns:        1,
		TracingDisabled: true,
	}}

	result, err := runner.Run(ctx, agent, prompt)
	if err != nil {
		return "", fmt.Errorf("narrative run: %w", err)
	}
	if text, ok := result.FinalOutput.(string); ok {
		return text, nil
	}
	return fmt.Sprint(result.FinalOutput), nil
}
