package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Question modes supported per deployment. Games never mix modes.
const (
	ModeMultipleChoice = "multiple_choice"
	ModeFreeText       = "free_text"
)

// PointTable holds the configured point values for answer scoring.
type PointTable struct {
	Correct         int
	CorrectWithHint int
	Wrong           int
	WrongWithHint   int
}

// GameSettings carries the tunables for room and game behavior.
type GameSettings struct {
	MinPlayers            int
	MaxPlayers            int
	QuestionsPerGame      int
	TimeLimitSeconds      int
	QuestionMode          string
	QuestionFallback      bool
	AllowPartialQuestions bool
	Points                PointTable
}

type Config struct {
	Port        string
	BindAddress string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	RedisHost   string
	RedisPort   string
	GeminiKey   string
	GeminiModel string
	Game        GameSettings
}

func Load() *Config {
	// Missing .env is fine; real env vars still apply.
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		BindAddress: getEnv("BIND_ADDRESS", "localhost"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "whatconnects"),
		DBPassword:  getEnv("DB_PASSWORD", "whatconnects123"),
		DBName:      getEnv("DB_NAME", "whatconnects"),
		RedisHost:   getEnv("REDIS_HOST", "localhost"),
		RedisPort:   getEnv("REDIS_PORT", "6379"),
		GeminiKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel: getEnv("GEMINI_MODEL", "gemini-pro"),
		Game: GameSettings{
			MinPlayers:            getEnvInt("MIN_PLAYERS", 2),
			MaxPlayers:            getEnvInt("MAX_PLAYERS", 6),
			QuestionsPerGame:      getEnvInt("QUESTIONS_PER_GAME", 10),
			TimeLimitSeconds:      getEnvInt("TIME_LIMIT_SECONDS", 30),
			QuestionMode:          getEnv("QUESTION_MODE", ModeMultipleChoice),
			QuestionFallback:      getEnvBool("QUESTION_FALLBACK", true),
			AllowPartialQuestions: getEnvBool("ALLOW_PARTIAL_QUESTIONS", true),
			Points: PointTable{
				Correct:         getEnvInt("CORRECT_ANSWER_POINTS", 10),
				CorrectWithHint: getEnvInt("CORRECT_ANSWER_WITH_HINT_POINTS", 5),
				Wrong:           getEnvInt("WRONG_ANSWER_POINTS", 0),
				WrongWithHint:   getEnvInt("WRONG_ANSWER_WITH_HINT_POINTS", -5),
			},
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func InitRedis(cfg *Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
	})
}
