package cookbook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"github.com/pocketomega/pocket-flow/internal/llm"
	"github.com/pocketomega/pocket-flow/internal/util"
	"github.com/pocketomega/pocket-flow/pkg/core"
)

const summarizePrompt = `Summarize the user's text in one or two sentences.
Answer with JSON only: {"summary": "...", "keywords": ["...", "..."]}`

// ErrNoProvider is returned by the summarize recipe when no LLM is configured.
var ErrNoProvider = errors.New("no LLM provider configured")

// Summary is the structured answer of the summarize recipe.
type Summary struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords,omitempty"`
	Fallback bool     `json:"fallback"`
}

type summarizeState struct {
	Text   string
	Result Summary
}

// Summarize asks the LLM for a summary with retries. When every attempt fails
// it falls back to a truncated copy of the text.
func Summarize() Recipe {
	return Recipe{
		Name:        "summarize",
		Description: "LLM node with retries; falls back to truncating the text.",
		Params:      map[string]string{"text": "(required)", "max_chars": "200", "max_retries": "3", "wait": `"1s"`},
		Run: func(ctx context.Context, env Env, in Input) (Output, error) {
			text, err := stringArg(in, "text", "")
			if err != nil {
				return nil, err
			}
			if text == "" {
				return nil, errors.New("input \"text\" is required")
			}
			maxChars, err := intArg(in, "max_chars", 200)
			if err != nil {
				return nil, err
			}
			maxRetries, err := intArg(in, "max_retries", 3)
			if err != nil {
				return nil, err
			}
			wait, err := durationArg(in, "wait", time.Second)
			if err != nil {
				return nil, err
			}

			logger := env.logger().With(zap.String("recipe", "summarize"))
			node := core.NewNode[summarizeState, string, Summary](core.NodeFuncs[summarizeState, string, Summary]{
				PrepFn: func(_ context.Context, s *summarizeState) (string, error) { return s.Text, nil },
				ExecFn: func(ctx context.Context, t string) (Summary, error) {
					if env.LLM == nil {
						return Summary{}, ErrNoProvider
					}
					msg, err := env.LLM.CallLLM(ctx, []llm.Message{llm.System(summarizePrompt), llm.User(t)})
					if err != nil {
						return Summary{}, err
					}
					return parseSummary(msg.Content), nil
				},
				FallbackFn: func(_ context.Context, t string, err error) (Summary, error) {
					logger.Warn("LLM summary failed, truncating text", zap.Error(err))
					return Summary{Summary: util.TruncateRunes(t, maxChars), Fallback: true}, nil
				},
				PostFn: func(_ context.Context, s *summarizeState, _ string, res Summary) (core.Action, error) {
					s.Result = res
					return "", nil
				},
			}, env.entry("summarize", core.WithMaxRetries(maxRetries), core.WithWait(wait))...)

			state := &summarizeState{Text: text}
			if _, err := node.Run(ctx, state); err != nil {
				return nil, err
			}
			return Output{
				"summary":  state.Result.Summary,
				"keywords": state.Result.Keywords,
				"fallback": state.Result.Fallback,
			}, nil
		},
	}
}

// parseSummary decodes the model's JSON answer, repairing it when needed.
// Anything that still does not decode is taken as the summary verbatim.
func parseSummary(content string) Summary {
	raw := util.StripCodeFence(content)
	var s Summary
	if err := json.Unmarshal([]byte(raw), &s); err == nil && s.Summary != "" {
		return s
	}
	if repaired, err := jsonrepair.JSONRepair(raw); err == nil {
		s = Summary{}
		if err := json.Unmarshal([]byte(repaired), &s); err == nil && s.Summary != "" {
			return s
		}
	}
	return Summary{Summary: raw}
}
