package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis configuration (optional; enables the distributed rate
	// limiter and the job bridge dedup queue)
	RedisAddr     string
	RedisPassword string

	// OpenAI configuration (optional; without a key the transformer
	// falls back to the templated transform)
	OpenAIAPIKey string
	OpenAIModel  string

	// Telegram configuration
	TelegramBotToken string
	TelegramChatID   string

	// Public site base URL, used for article links in channel posts
	SiteURL string

	// Application configuration
	SourcesDir        string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	RepublishEvery    int
	BatchSize         int
	APIAccessKey      string
	RateLimit         int
	RateWindow        int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
