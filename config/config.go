// server/config/config.go
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// --- Sub-configs, mirroring config.yaml ---

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type MongoConfig struct {
	URI     string        `mapstructure:"uri"`
	DBName  string        `mapstructure:"dbName"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type OpenAIConfig struct {
	APIKey                  string `mapstructure:"apiKey"`
	BaseURL                 string `mapstructure:"baseURL"`
	Model                   string `mapstructure:"model"`
	TranscribeModel         string `mapstructure:"transcribeModel"`
	FallbackTranscribeModel string `mapstructure:"fallbackTranscribeModel"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"apiKey"`
	Model  string `mapstructure:"model"`
}

// AIConfig tunes the advice and chat prompts independently of the provider.
type AIConfig struct {
	Provider          string  `mapstructure:"provider"`
	AdviceMaxTokens   int     `mapstructure:"adviceMaxTokens"`
	ChatMaxTokens     int     `mapstructure:"chatMaxTokens"`
	IdentifyMaxTokens int     `mapstructure:"identifyMaxTokens"`
	Temperature       float64 `mapstructure:"temperature"`
	ChatWordLimit     int     `mapstructure:"chatWordLimit"`
}

type WeatherConfig struct {
	APIKey          string `mapstructure:"apiKey"`
	BaseURL         string `mapstructure:"baseURL"`
	DefaultDistrict string `mapstructure:"defaultDistrict"`
	Region          string `mapstructure:"region"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
}

type UploadConfig struct {
	Dir           string `mapstructure:"dir"`
	PublicPath    string `mapstructure:"publicPath"`
	MaxImageBytes int64  `mapstructure:"maxImageBytes"`
	MaxAudioBytes int64  `mapstructure:"maxAudioBytes"`
}

type SessionConfig struct {
	MaxIdle       time.Duration `mapstructure:"maxIdle"`
	SweepInterval time.Duration `mapstructure:"sweepInterval"`
}

type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

type DemoConfig struct {
	Seed bool `mapstructure:"seed"`
}

// --- Root config ---

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	OpenAI  OpenAIConfig  `mapstructure:"openai"`
	Gemini  GeminiConfig  `mapstructure:"gemini"`
	AI      AIConfig      `mapstructure:"ai"`
	Weather WeatherConfig `mapstructure:"weather"`
	S3      S3Config      `mapstructure:"s3"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Session SessionConfig `mapstructure:"session"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Demo    DemoConfig    `mapstructure:"demo"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8001")
	v.SetDefault("mongo.dbName", "farmwise_db")
	v.SetDefault("mongo.timeout", 5*time.Second)
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("openai.baseURL", "https://api.openai.com")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.transcribeModel", "whisper-1")
	v.SetDefault("openai.fallbackTranscribeModel", "gpt-4o-mini-transcribe")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.adviceMaxTokens", 1000)
	v.SetDefault("ai.chatMaxTokens", 100)
	v.SetDefault("ai.identifyMaxTokens", 500)
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.chatWordLimit", 50)
	v.SetDefault("weather.baseURL", "https://api.weatherapi.com/v1")
	v.SetDefault("weather.defaultDistrict", "Thiruvananthapuram")
	v.SetDefault("weather.region", "Kerala, India")
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.publicPath", "/uploads")
	v.SetDefault("upload.maxImageBytes", 10<<20)
	v.SetDefault("upload.maxAudioBytes", 20<<20)
	v.SetDefault("session.maxIdle", 12*time.Hour)
	v.SetDefault("session.sweepInterval", 10*time.Minute)
	v.SetDefault("cors.origins", []string{"*"})
}

// LoadConfig reads config.yaml from path and overlays environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	setDefaults(v)

	v.AutomaticEnv()

	v.BindEnv("server.port", "PORT", "SERVER_PORT")
	v.BindEnv("mongo.uri", "MONGO_URL", "MONGO_URI")
	v.BindEnv("mongo.dbName", "DB_NAME", "MONGO_DBNAME")
	v.BindEnv("http.timeout", "HTTP_TIMEOUT")
	v.BindEnv("openai.apiKey", "OPENAI_API_KEY")
	v.BindEnv("openai.baseURL", "OPENAI_BASE_URL")
	v.BindEnv("openai.model", "OPENAI_MODEL")
	v.BindEnv("ai.provider", "AI_PROVIDER")
	v.BindEnv("gemini.apiKey", "GEMINI_API_KEY")
	v.BindEnv("gemini.model", "GEMINI_MODEL")
	v.BindEnv("weather.apiKey", "WEATHERAPI_KEY")
	v.BindEnv("weather.baseURL", "WEATHER_BASE_URL")
	v.BindEnv("weather.defaultDistrict", "WEATHER_DEFAULT_DISTRICT")
	v.BindEnv("s3.bucket", "S3_BUCKET")
	v.BindEnv("s3.region", "S3_REGION")
	v.BindEnv("s3.accessKeyID", "S3_ACCESS_KEY_ID")
	v.BindEnv("s3.secretAccessKey", "S3_SECRET_ACCESS_KEY")
	v.BindEnv("s3.cloudFrontDomain", "S3_CLOUDFRONT_DOMAIN")
	v.BindEnv("upload.dir", "UPLOAD_DIR")
	v.BindEnv("session.maxIdle", "SESSION_MAX_IDLE")
	v.BindEnv("session.sweepInterval", "SESSION_SWEEP_INTERVAL")
	v.BindEnv("cors.origins", "CORS_ORIGINS")
	v.BindEnv("demo.seed", "DEMO_SEED")

	// A missing config.yaml is fine: env and defaults are enough to boot.
	err = v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	if err != nil {
		return
	}

	config.CORS.Origins = normalizeOrigins(config.CORS.Origins)
	return
}

// normalizeOrigins splits comma separated entries, which is what CORS_ORIGINS carries.
func normalizeOrigins(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, origin := range strings.Split(entry, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				out = append(out, origin)
			}
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// AllowsAllOrigins reports whether CORS is wide open.
func (c CORSConfig) AllowsAllOrigins() bool {
	for _, o := range c.Origins {
		if o == "*" {
			return true
		}
	}
	return false
}
