package config

const (
	defaultDataDir            = "~/.local/share/tubewatch"
	defaultLogDir             = "~/.local/share/tubewatch/logs"
	defaultAPIBind            = "127.0.0.1:7490"
	defaultVideoQuality       = 1080
	defaultPollInterval       = 900
	defaultLLMHost            = "https://openrouter.ai"
	defaultLLMEndpoint        = "/api/v1/chat/completions"
	defaultLLMModel           = "google/gemini-3-flash-preview"
	defaultLLMTemperature     = 0.2
	defaultLLMMaxTokens       = 1024
	defaultLLMTimeoutSeconds  = 60
	defaultNtfyRequestTimeout = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Videos: Videos{
			Quality:   defaultVideoQuality,
			Transcode: false,
		},
		Channels: Channels{
			PollInterval: defaultPollInterval,
		},
		LLM: LLM{
			Host:        defaultLLMHost,
			Endpoint:    defaultLLMEndpoint,
			Model:       defaultLLMModel,
			Temperature: defaultLLMTemperature,
			MaxTokens:   defaultLLMMaxTokens,
			Timeout:     defaultLLMTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
