package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func validQuestion() QuestionData {
	return QuestionData{
		Items:         []string{"Newton", "Steve Jobs", "New York", "Granny Smith"},
		Options:       []string{"Apple", "Microsoft", "Orange", "Banana"},
		CorrectAnswer: "Apple",
		Hint:          "a hint",
	}
}

func TestValidateQuestion(t *testing.T) {
	assert.NoError(t, ValidateQuestion(validQuestion(), true))

	q := validQuestion()
	q.Items = q.Items[:3]
	assert.Error(t, ValidateQuestion(q, true), "needs exactly 4 items")

	q = validQuestion()
	q.Items[2] = "  "
	assert.Error(t, ValidateQuestion(q, true), "blank item")

	q = validQuestion()
	q.CorrectAnswer = ""
	assert.Error(t, ValidateQuestion(q, true), "empty answer")

	q = validQuestion()
	q.Options = append(q.Options, "Extra")
	assert.Error(t, ValidateQuestion(q, true), "needs exactly 4 options")

	q = validQuestion()
	q.CorrectAnswer = "Pear"
	assert.Error(t, ValidateQuestion(q, true), "answer must be an option")
}

func TestValidateQuestionFreeText(t *testing.T) {
	q := validQuestion()
	q.Options = nil
	assert.NoError(t, ValidateQuestion(q, false), "free text ignores options")
	assert.Error(t, ValidateQuestion(q, true))
}

func TestParseQuestionJSON(t *testing.T) {
	raw, err := json.Marshal([]QuestionData{validQuestion()})
	require.NoError(t, err)

	inputs := []string{
		string(raw),
		"```json\n" + string(raw) + "\n```",
		"```\n" + string(raw) + "\n```",
		"  \n```json\n" + string(raw) + "\n```  ",
	}
	for _, input := range inputs {
		questions, err := ParseQuestionJSON(input)
		require.NoError(t, err)
		require.Len(t, questions, 1)
		assert.Equal(t, "Apple", questions[0].CorrectAnswer)
	}
}

func TestParseQuestionJSONInvalid(t *testing.T) {
	_, err := ParseQuestionJSON("not json at all")
	assert.Error(t, err)
}

func TestSampleSourceDeterministic(t *testing.T) {
	first, err := SampleSource{}.Generate(context.Background(), 5)
	require.NoError(t, err)
	second, err := SampleSource{}.Generate(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 5)
	for _, q := range first {
		assert.NoError(t, ValidateQuestion(q, true))
	}
}

func TestSampleSourceCapsAtSetSize(t *testing.T) {
	questions, err := SampleSource{}.Generate(context.Background(), 1000)
	require.NoError(t, err)
	assert.Len(t, questions, len(sampleQuestions))
}

func TestGeminiSourceGenerate(t *testing.T) {
	raw, err := json.Marshal([]QuestionData{validQuestion()})
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`,
			"```json\n"+string(raw)+"\n```")
	}))
	defer server.Close()

	source := NewGeminiSource("test-key", "gemini-pro", zap.NewNop())
	source.endpoint = server.URL

	questions, err := source.Generate(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "Apple", questions[0].CorrectAnswer)
}

func TestGeminiSourceErrors(t *testing.T) {
	source := NewGeminiSource("", "gemini-pro", zap.NewNop())
	_, err := source.Generate(context.Background(), 1)
	assert.Error(t, err, "missing key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	source = NewGeminiSource("test-key", "gemini-pro", zap.NewNop())
	source.endpoint = server.URL
	_, err = source.Generate(context.Background(), 1)
	assert.Error(t, err, "non-200 status")

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"candidates":[]}`)
	}))
	defer empty.Close()

	source = NewGeminiSource("test-key", "gemini-pro", zap.NewNop())
	source.endpoint = empty.URL
	_, err = source.Generate(context.Background(), 1)
	assert.Error(t, err, "empty candidates")
}
