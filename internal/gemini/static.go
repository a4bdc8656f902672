package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skufu/radiolens/internal/report"
)

// Static answers every request with fixed text. It backs MOCK_AI runs and tests.
type Static struct {
	Reply string
	Err   error

	// byPrompt overrides Reply for image requests sent with a known prompt.
	byPrompt map[string]string
}

// NewStatic returns a Static generator whose reply follows the layout of profile p.
func NewStatic(p report.Profile) *Static {
	return &Static{Reply: staticReply(p)}
}

// WithProfile makes image requests built from ImagePrompt(p) answer in p's layout.
func (s *Static) WithProfile(p report.Profile) *Static {
	if s.byPrompt == nil {
		s.byPrompt = map[string]string{}
	}
	s.byPrompt[ImagePrompt(p)] = staticReply(p)
	return s
}

func staticReply(p report.Profile) string {
	var sb strings.Builder
	for _, s := range p.Sections {
		switch s.Key {
		case report.KeyAnalysisReport:
			fmt.Fprintf(&sb, "%s: Mock analysis of the uploaded image.\nCondition: Hairline fracture of the distal radius.\n\n", s.Marker())
		default:
			fmt.Fprintf(&sb, "%s: Mock %s content.\n\n", s.Marker(), strings.ToLower(s.Label))
		}
	}
	sb.WriteString("Consult with a doctor before making medical decisions.")
	return sb.String()
}

// AnalyzeImage returns the reply registered for prompt, or the fixed reply.
func (s *Static) AnalyzeImage(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	if reply, ok := s.byPrompt[prompt]; ok && s.Err == nil {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return reply, nil
	}
	return s.reply(ctx)
}

// Complete returns the fixed reply.
func (s *Static) Complete(ctx context.Context, system, prompt string) (string, error) {
	return s.reply(ctx)
}

func (s *Static) reply(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Err != nil {
		return "", s.Err
	}
	if s.Reply == "" {
		return "", ErrEmptyResponse
	}
	return s.Reply, nil
}
