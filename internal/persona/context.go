// Package persona builds the per-request conditioning context for reply
// generation: identity, communication style, personality scalars, and a
// bounded slice of recent life stories.
package persona

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoopersona/internal/models"
	pgrepo "github.com/yoockh/yoopersona/internal/repositories/postgres"
)

const (
	MaxStories      = 5
	StoryCharBudget = 400

	defaultScalar = 50

	noStoriesPlaceholder = "No life stories recorded yet."
)

type Scalars struct {
	Warmth     int
	Humor      int
	Formality  int
	Optimism   int
	Empathy    int
	Directness int
	Curiosity  int
	Nostalgia  int
}

// Context is a read-only projection built fresh per request. Underlying
// stories can change between calls, so it is never cached.
type Context struct {
	Name    string
	Style   string
	Scalars Scalars
	Traits  []string
	Stories []string
}

type Builder struct {
	Personas pgrepo.PersonaRepo
	Stories  pgrepo.StoryRepo
	Logger   *logrus.Logger
}

// Build assembles the context for an owner. It never fails: missing persona
// data falls back to midpoint scalars and a placeholder story block so that
// generation can always proceed.
func (b *Builder) Build(ctx context.Context, ownerID string) Context {
	out := Context{
		Style: models.StyleWarm,
		Scalars: Scalars{
			Warmth: defaultScalar, Humor: defaultScalar,
			Formality: defaultScalar, Optimism: defaultScalar,
			Empathy: defaultScalar, Directness: defaultScalar,
			Curiosity: defaultScalar, Nostalgia: defaultScalar,
		},
	}

	p, err := b.Personas.GetByUserID(ctx, ownerID)
	if err != nil {
		if b.Logger != nil {
			b.Logger.WithError(err).WithField("user_id", ownerID).
				Debug("persona lookup failed; using defaults")
		}
	} else if p != nil {
		out.Name = p.Name
		out.Style = normalizeStyle(p.CommunicationStyle)
		out.Traits = p.Traits
		out.Scalars = Scalars{
			Warmth: p.Warmth, Humor: p.Humor,
			Formality: p.Formality, Optimism: p.Optimism,
			Empathy: p.Empathy, Directness: p.Directness,
			Curiosity: p.Curiosity, Nostalgia: p.Nostalgia,
		}
	}

	stories, err := b.Stories.LatestN(ctx, ownerID, MaxStories)
	if err != nil && b.Logger != nil {
		b.Logger.WithError(err).WithField("user_id", ownerID).
			Debug("story lookup failed; using placeholder")
	}
	for _, s := range stories {
		out.Stories = append(out.Stories, truncate(s.Content, StoryCharBudget))
	}

	return out
}

// PromptBlock renders the conditioning block prepended to the user input.
// Each story was already truncated independently, so the total size stays
// bounded regardless of story count.
func (c Context) PromptBlock() string {
	var sb strings.Builder

	name := c.Name
	if name == "" {
		name = "a thoughtful companion"
	}
	fmt.Fprintf(&sb, "You are %s. Reply in the first person, in a %s tone.\n", name, c.Style)

	if len(c.Traits) > 0 {
		fmt.Fprintf(&sb, "Traits: %s.\n", strings.Join(c.Traits, ", "))
	}

	fmt.Fprintf(&sb,
		"Personality (0-100): warmth %d, humor %d, formality %d, optimism %d, empathy %d, directness %d, curiosity %d, nostalgia %d.\n",
		c.Scalars.Warmth, c.Scalars.Humor, c.Scalars.Formality, c.Scalars.Optimism,
		c.Scalars.Empathy, c.Scalars.Directness, c.Scalars.Curiosity, c.Scalars.Nostalgia)

	sb.WriteString("Life stories:\n")
	if len(c.Stories) == 0 {
		sb.WriteString("- " + noStoriesPlaceholder + "\n")
	}
	for _, s := range c.Stories {
		sb.WriteString("- " + s + "\n")
	}

	return sb.String()
}

// FallbackReply is the deterministic templated reply used when text
// generation fails. Keyed by communication style so the record never ends
// up with a null response.
func (c Context) FallbackReply() string {
	switch c.Style {
	case models.StyleFormal:
		return "Thank you for your message. I have received it and will reflect on what you shared."
	case models.StylePlayful:
		return "Oh, you got me thinking now! Give me a moment and tell me more."
	case models.StyleStoic:
		return "I hear you. Some things take time to answer well."
	case models.StylePoetic:
		return "Your words settle like evening light; let me sit with them a while."
	default: // warm
		return "I'm here with you. Thank you for sharing that with me."
	}
}

func normalizeStyle(s string) string {
	switch s {
	case models.StyleWarm, models.StyleFormal, models.StylePlayful, models.StyleStoic, models.StylePoetic:
		return s
	default:
		return models.StyleWarm
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
