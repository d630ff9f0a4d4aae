package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// QuestionData is one generated question before persistence.
type QuestionData struct {
	Items         []string `json:"items"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
	Hint          string   `json:"hint"`
}

// QuestionSource produces a batch of questions for a new game. Generation is
// the only external dependency of a game start; a failing source must not
// leave partial state behind (the coordinator persists nothing until the
// batch is validated).
type QuestionSource interface {
	Generate(ctx context.Context, count int) ([]QuestionData, error)
}

// ValidateQuestion enforces the structural rules shared by every source:
// exactly 4 items, a non-empty answer, and — in multiple-choice mode —
// exactly 4 options containing the correct answer.
func ValidateQuestion(q QuestionData, multipleChoice bool) error {
	if len(q.Items) != 4 {
		return fmt.Errorf("question must have exactly 4 items, got %d", len(q.Items))
	}
	for i, item := range q.Items {
		if strings.TrimSpace(item) == "" {
			return fmt.Errorf("item %d is empty", i)
		}
	}
	if strings.TrimSpace(q.CorrectAnswer) == "" {
		return fmt.Errorf("correct answer is empty")
	}
	if !multipleChoice {
		return nil
	}
	if len(q.Options) != 4 {
		return fmt.Errorf("question must have exactly 4 options, got %d", len(q.Options))
	}
	found := false
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("option %d is empty", i)
		}
		if opt == q.CorrectAnswer {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("correct answer must be one of the options")
	}
	return nil
}

// GeminiSource generates questions through the Gemini REST API.
type GeminiSource struct {
	apiKey string
	model  string
	client *http.Client
	logger *zap.Logger

	// endpoint is overridable for tests.
	endpoint string
}

func NewGeminiSource(apiKey, model string, logger *zap.Logger) *GeminiSource {
	return &GeminiSource{
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
		endpoint: "https://generativelanguage.googleapis.com/v1beta/models",
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiSource) Generate(ctx context.Context, count int) ([]QuestionData, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("gemini: no API key configured")
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: buildPrompt(count)}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", g.endpoint, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini: unexpected status %d", resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini: empty response")
	}

	questions, err := ParseQuestionJSON(parsed.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, err
	}
	g.logger.Info("generated questions from gemini", zap.Int("count", len(questions)))
	return questions, nil
}

// ParseQuestionJSON parses a JSON array of questions, tolerating the
// markdown code fences models like to wrap their output in.
func ParseQuestionJSON(text string) ([]QuestionData, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	text = strings.TrimSpace(text)

	var questions []QuestionData
	if err := json.Unmarshal([]byte(text), &questions); err != nil {
		return nil, fmt.Errorf("invalid question JSON: %w", err)
	}
	return questions, nil
}

func buildPrompt(count int) string {
	return fmt.Sprintf(`Generate %d "What Connects" MCQ quiz questions.

The game format:
- Show 4 items (words/short phrases) that have a common connection
- Players must identify the connection from 4 multiple choice options
- 1 correct answer, 3 plausible wrong answers
- A subtle hint that helps but doesn't give away the answer

Format as JSON array ONLY (no markdown, no explanations):
[
  {
    "items": ["item1", "item2", "item3", "item4"],
    "options": ["option1", "option2", "option3", "option4"],
    "correct_answer": "option1",
    "hint": "subtle hint that helps narrow down"
  }
]

Guidelines:
- Make questions varied across topics (pop culture, history, geography, science, sports, brands, entertainment)
- Ensure all 4 items genuinely connect to the answer
- Make wrong options plausible but clearly incorrect when thought through
- Correct answer must be one of the 4 options (exact match)
- Keep items and options concise (1-4 words each)

Return ONLY the JSON array, nothing else.`, count)
}

// SampleSource is the deterministic offline question set, used when no AI
// source is configured or as a fallback when generation fails.
type SampleSource struct{}

func (SampleSource) Generate(_ context.Context, count int) ([]QuestionData, error) {
	if count > len(sampleQuestions) {
		count = len(sampleQuestions)
	}
	out := make([]QuestionData, count)
	copy(out, sampleQuestions[:count])
	return out, nil
}

var sampleQuestions = []QuestionData{
	{
		Items:         []string{"Newton", "Steve Jobs", "New York", "Granny Smith"},
		Options:       []string{"Apple", "Microsoft", "Orange", "Banana"},
		CorrectAnswer: "Apple",
		Hint:          "A company, a fruit, and a physicist's discovery",
	},
	{
		Items:         []string{"Superman", "Batman", "Wonder Woman", "The Flash"},
		Options:       []string{"DC Comics", "Marvel", "Avengers", "X-Men"},
		CorrectAnswer: "DC Comics",
		Hint:          "Publisher of superhero comics with dark, serious films",
	},
	{
		Items:         []string{"Paris", "Eiffel", "Croissant", "Louvre"},
		Options:       []string{"France", "Italy", "Spain", "Germany"},
		CorrectAnswer: "France",
		Hint:          "European country famous for cuisine and romance",
	},
	{
		Items:         []string{"Swoosh", "Just Do It", "Air Jordan", "Oregon"},
		Options:       []string{"Nike", "Adidas", "Puma", "Reebok"},
		CorrectAnswer: "Nike",
		Hint:          "Sports brand founded by athletes in the 1960s",
	},
	{
		Items:         []string{"King", "Crown", "Palace", "Throne"},
		Options:       []string{"Royalty", "Chess", "Cards", "Democracy"},
		CorrectAnswer: "Royalty",
		Hint:          "Related to monarchs and their rule",
	},
	{
		Items:         []string{"Simba", "Nala", "Pride Rock", "Hakuna Matata"},
		Options:       []string{"The Lion King", "Jungle Book", "Madagascar", "Tarzan"},
		CorrectAnswer: "The Lion King",
		Hint:          "Disney movie about a young lion prince",
	},
	{
		Items:         []string{"Gryffindor", "Hogwarts", "Quidditch", "Muggles"},
		Options:       []string{"Harry Potter", "Lord of the Rings", "Narnia", "Percy Jackson"},
		CorrectAnswer: "Harry Potter",
		Hint:          "Wizarding world created by J.K. Rowling",
	},
	{
		Items:         []string{"Pikachu", "Charizard", "Ash", "Pokéballs"},
		Options:       []string{"Pokémon", "Digimon", "Yu-Gi-Oh", "Dragon Ball"},
		CorrectAnswer: "Pokémon",
		Hint:          "Gotta catch 'em all!",
	},
	{
		Items:         []string{"Messi", "Barcelona", "Argentina", "World Cup 2022"},
		Options:       []string{"Football/Soccer", "Basketball", "Cricket", "Tennis"},
		CorrectAnswer: "Football/Soccer",
		Hint:          "The beautiful game played with feet",
	},
	{
		Items:         []string{"Statue of Liberty", "Times Square", "Central Park", "Broadway"},
		Options:       []string{"New York", "Los Angeles", "Chicago", "Boston"},
		CorrectAnswer: "New York",
		Hint:          "The Big Apple, the city that never sleeps",
	},
	{
		Items:         []string{"Pizza", "Pasta", "Colosseum", "Venice"},
		Options:       []string{"Italy", "Greece", "France", "Spain"},
		CorrectAnswer: "Italy",
		Hint:          "Boot-shaped European country famous for food",
	},
	{
		Items:         []string{"Sushi", "Tokyo", "Mt. Fuji", "Samurai"},
		Options:       []string{"Japan", "China", "Korea", "Thailand"},
		CorrectAnswer: "Japan",
		Hint:          "Island nation known for technology and tradition",
	},
	{
		Items:         []string{"Pyramids", "Sphinx", "Nile", "Pharaohs"},
		Options:       []string{"Egypt", "Iraq", "Morocco", "Libya"},
		CorrectAnswer: "Egypt",
		Hint:          "Ancient civilization with iconic monuments",
	},
	{
		Items:         []string{"Kangaroo", "Sydney", "Outback", "Great Barrier Reef"},
		Options:       []string{"Australia", "New Zealand", "Indonesia", "Papua New Guinea"},
		CorrectAnswer: "Australia",
		Hint:          "Island continent down under",
	},
	{
		Items:         []string{"Tea", "Big Ben", "Queen", "London"},
		Options:       []string{"England", "France", "Scotland", "Ireland"},
		CorrectAnswer: "England",
		Hint:          "Part of the United Kingdom with royal history",
	},
	{
		Items:         []string{"C++", "Java", "Python", "JavaScript"},
		Options:       []string{"Programming Languages", "Coffee Types", "Snake Species", "Islands"},
		CorrectAnswer: "Programming Languages",
		Hint:          "Used by software developers to write code",
	},
	{
		Items:         []string{"iPhone", "Mac", "iPad", "AirPods"},
		Options:       []string{"Apple Products", "Samsung Products", "Tech Accessories", "Phone Brands"},
		CorrectAnswer: "Apple Products",
		Hint:          "Devices from a company with a bitten fruit logo",
	},
	{
		Items:         []string{"Spotify", "YouTube Music", "Apple Music", "Deezer"},
		Options:       []string{"Music Streaming", "Video Platforms", "Social Media", "Podcast Apps"},
		CorrectAnswer: "Music Streaming",
		Hint:          "Services for listening to songs online",
	},
	{
		Items:         []string{"Mercury", "Venus", "Earth", "Mars"},
		Options:       []string{"Inner Planets", "Outer Planets", "Gas Giants", "Dwarf Planets"},
		CorrectAnswer: "Inner Planets",
		Hint:          "Rocky planets closest to the Sun",
	},
	{
		Items:         []string{"Heart", "Diamond", "Club", "Spade"},
		Options:       []string{"Card Suits", "Jewelry", "Garden Tools", "Symbols"},
		CorrectAnswer: "Card Suits",
		Hint:          "Found on a standard deck of playing cards",
	},
}
