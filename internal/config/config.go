package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Dirs      DirsConfig
	Tools     ToolsConfig
	Tasks     TasksConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	// Secret enables bearer-token auth on the API group when non-empty.
	Secret string
}

type RateLimitConfig struct {
	DownloadPerHour int
	SeparatePerHour int
	ExportPerHour   int
	UploadPerHour   int
}

type DirsConfig struct {
	Downloads string
	Separated string
	Mixes     string
	Remuxed   string
}

// Roots returns every allow-listed base directory, in serving order.
func (d DirsConfig) Roots() []string {
	return []string{d.Downloads, d.Separated, d.Mixes, d.Remuxed}
}

type ToolsConfig struct {
	YTDLP   string
	Python  string
	FFmpeg  string
	FFprobe string
}

type TasksConfig struct {
	// ToolTimeoutMinutes bounds every external tool invocation; a hung tool
	// is killed and the task fails instead of staying in_progress forever.
	ToolTimeoutMinutes int
	SilenceRMS         float64
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("auth.secret", "")
	viper.SetDefault("ratelimit.download_per_hour", 20)
	viper.SetDefault("ratelimit.separate_per_hour", 10)
	viper.SetDefault("ratelimit.export_per_hour", 30)
	viper.SetDefault("ratelimit.upload_per_hour", 50)
	viper.SetDefault("dirs.downloads", "./downloads")
	viper.SetDefault("dirs.separated", "./separated")
	viper.SetDefault("dirs.mixes", "./mixes")
	viper.SetDefault("dirs.remuxed", "./remuxed")
	viper.SetDefault("tools.ytdlp", "yt-dlp")
	viper.SetDefault("tools.python", "python3")
	viper.SetDefault("tools.ffmpeg", "ffmpeg")
	viper.SetDefault("tools.ffprobe", "ffprobe")
	viper.SetDefault("tasks.tool_timeout_minutes", 30)
	viper.SetDefault("tasks.silence_rms", 1e-6)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Auth: AuthConfig{
			Secret: viper.GetString("auth.secret"),
		},
		RateLimit: RateLimitConfig{
			DownloadPerHour: viper.GetInt("ratelimit.download_per_hour"),
			SeparatePerHour: viper.GetInt("ratelimit.separate_per_hour"),
			ExportPerHour:   viper.GetInt("ratelimit.export_per_hour"),
			UploadPerHour:   viper.GetInt("ratelimit.upload_per_hour"),
		},
		Dirs: DirsConfig{
			Downloads: viper.GetString("dirs.downloads"),
			Separated: viper.GetString("dirs.separated"),
			Mixes:     viper.GetString("dirs.mixes"),
			Remuxed:   viper.GetString("dirs.remuxed"),
		},
		Tools: ToolsConfig{
			YTDLP:   viper.GetString("tools.ytdlp"),
			Python:  viper.GetString("tools.python"),
			FFmpeg:  viper.GetString("tools.ffmpeg"),
			FFprobe: viper.GetString("tools.ffprobe"),
		},
		Tasks: TasksConfig{
			ToolTimeoutMinutes: viper.GetInt("tasks.tool_timeout_minutes"),
			SilenceRMS:         viper.GetFloat64("tasks.silence_rms"),
		},
	}

	return cfg, nil
}
