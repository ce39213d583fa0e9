package persona

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/yoopersona/internal/models"
	"github.com/yoockh/yoopersona/internal/utils"
)

type stubPersonaRepo struct {
	persona *models.Persona
}

func (s *stubPersonaRepo) GetByUserID(ctx context.Context, userID string) (*models.Persona, error) {
	if s.persona == nil {
		return nil, utils.ErrNotFound
	}
	return s.persona, nil
}

func (s *stubPersonaRepo) Upsert(ctx context.Context, p *models.Persona) error { return nil }

type stubStoryRepo struct {
	stories []models.LifeStory
}

func (s *stubStoryRepo) Insert(ctx context.Context, st *models.LifeStory) error { return nil }

func (s *stubStoryRepo) LatestN(ctx context.Context, userID string, n int) ([]models.LifeStory, error) {
	if len(s.stories) > n {
		return s.stories[:n], nil
	}
	return s.stories, nil
}

func TestBuildMissingPersonaUsesDefaults(t *testing.T) {
	b := &Builder{Personas: &stubPersonaRepo{}, Stories: &stubStoryRepo{}}

	c := b.Build(context.Background(), "owner-1")

	assert.Equal(t, models.StyleWarm, c.Style)
	assert.Equal(t, 50, c.Scalars.Warmth)
	assert.Equal(t, 50, c.Scalars.Nostalgia)
	assert.Empty(t, c.Stories)

	// generation must still be able to proceed
	block := c.PromptBlock()
	assert.Contains(t, block, noStoriesPlaceholder)
	assert.NotEmpty(t, c.FallbackReply())
}

func TestBuildTruncatesEachStoryIndependently(t *testing.T) {
	long := strings.Repeat("x", StoryCharBudget*3)
	stories := make([]models.LifeStory, 0, MaxStories)
	for i := 0; i < MaxStories; i++ {
		stories = append(stories, models.LifeStory{Content: long, CreatedAt: time.Now()})
	}

	b := &Builder{
		Personas: &stubPersonaRepo{persona: &models.Persona{UserID: "owner-1", Name: "Ava"}},
		Stories:  &stubStoryRepo{stories: stories},
	}

	c := b.Build(context.Background(), "owner-1")

	require.Len(t, c.Stories, MaxStories)
	for _, s := range c.Stories {
		assert.Len(t, s, StoryCharBudget)
	}
}

func TestBuildSelectsAtMostFiveStories(t *testing.T) {
	stories := make([]models.LifeStory, 8)
	b := &Builder{
		Personas: &stubPersonaRepo{},
		Stories:  &stubStoryRepo{stories: stories},
	}

	c := b.Build(context.Background(), "owner-1")

	assert.Len(t, c.Stories, MaxStories)
}

func TestBuildCarriesPersonaFields(t *testing.T) {
	b := &Builder{
		Personas: &stubPersonaRepo{persona: &models.Persona{
			UserID:             "owner-1",
			Name:               "Edda",
			CommunicationStyle: models.StylePoetic,
			Warmth:             90,
			Traits:             []string{"gardener", "storyteller"},
		}},
		Stories: &stubStoryRepo{},
	}

	c := b.Build(context.Background(), "owner-1")

	assert.Equal(t, "Edda", c.Name)
	assert.Equal(t, models.StylePoetic, c.Style)
	assert.Equal(t, 90, c.Scalars.Warmth)

	block := c.PromptBlock()
	assert.Contains(t, block, "Edda")
	assert.Contains(t, block, "gardener, storyteller")
}

func TestUnknownStyleCoercedToWarm(t *testing.T) {
	b := &Builder{
		Personas: &stubPersonaRepo{persona: &models.Persona{
			UserID:             "owner-1",
			CommunicationStyle: "sarcastic",
		}},
		Stories: &stubStoryRepo{},
	}

	c := b.Build(context.Background(), "owner-1")
	assert.Equal(t, models.StyleWarm, c.Style)
}

func TestFallbackReplyKeyedByStyle(t *testing.T) {
	seen := map[string]bool{}
	for _, style := range []string{
		models.StyleWarm, models.StyleFormal, models.StylePlayful,
		models.StyleStoic, models.StylePoetic,
	} {
		c := Context{Style: style}
		reply := c.FallbackReply()
		require.NotEmpty(t, reply)
		assert.False(t, seen[reply], "styles must yield distinct templates")
		seen[reply] = true
	}
}
