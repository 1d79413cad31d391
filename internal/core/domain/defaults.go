package domain

// DefaultProviders returns the built-in backend catalog. All providers ship
// disabled; the operator enables the ones they hold credentials for.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			Kind:     KindOpenAI,
			Name:     "OpenAI",
			BaseURL:  "https://api.openai.com/v1",
			Priority: 1,
			Models: []ModelConfig{
				{ID: "gpt-4o", Name: "GPT-4o", Capabilities: []string{"coding", "reasoning", "creative"}, InputPrice: 2.5, OutputPrice: 10.0, MaxTokens: 128000, IsDefault: true},
				{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Capabilities: []string{"coding", "fast"}, InputPrice: 0.15, OutputPrice: 0.6, MaxTokens: 128000},
				{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", Capabilities: []string{"coding", "reasoning"}, InputPrice: 10.0, OutputPrice: 30.0, MaxTokens: 128000},
			},
		},
		{
			Kind:     KindDeepSeek,
			Name:     "DeepSeek",
			BaseURL:  "https://api.deepseek.com/v1",
			Priority: 2,
			Models: []ModelConfig{
				{ID: "deepseek-chat", Name: "DeepSeek Chat", Capabilities: []string{"coding", "reasoning"}, InputPrice: 0.14, OutputPrice: 0.28, MaxTokens: 64000},
				{ID: "deepseek-coder", Name: "DeepSeek Coder", Capabilities: []string{"coding"}, InputPrice: 0.14, OutputPrice: 0.28, MaxTokens: 64000, IsDefault: true},
				{ID: "deepseek-reasoner", Name: "DeepSeek Reasoner (R1)", Capabilities: []string{"reasoning", "coding"}, InputPrice: 0.55, OutputPrice: 2.19, MaxTokens: 64000},
			},
		},
		{
			Kind:     KindMoonshot,
			Name:     "Moonshot (Kimi)",
			BaseURL:  "https://api.moonshot.cn/v1",
			Priority: 3,
			Models: []ModelConfig{
				{ID: "moonshot-v1-8k", Name: "Moonshot V1 8K", Capabilities: []string{"coding", "fast"}, InputPrice: 0.012, OutputPrice: 0.012, MaxTokens: 8192},
				{ID: "moonshot-v1-32k", Name: "Moonshot V1 32K", Capabilities: []string{"coding", "reasoning"}, InputPrice: 0.024, OutputPrice: 0.024, MaxTokens: 32768, IsDefault: true},
				{ID: "moonshot-v1-128k", Name: "Moonshot V1 128K", Capabilities: []string{"coding", "reasoning"}, InputPrice: 0.06, OutputPrice: 0.06, MaxTokens: 131072},
			},
		},
		{
			Kind:     KindQwen,
			Name:     "Qwen (Alibaba)",
			BaseURL:  "https://dashscope.aliyuncs.com/compatible-mode/v1",
			Priority: 4,
			Models: []ModelConfig{
				{ID: "qwen-turbo", Name: "Qwen Turbo", Capabilities: []string{"fast"}, InputPrice: 0.002, OutputPrice: 0.006, MaxTokens: 8192},
				{ID: "qwen-plus", Name: "Qwen Plus", Capabilities: []string{"coding", "reasoning"}, InputPrice: 0.004, OutputPrice: 0.012, MaxTokens: 32768, IsDefault: true},
				{ID: "qwen-max", Name: "Qwen Max", Capabilities: []string{"coding", "reasoning", "creative"}, InputPrice: 0.02, OutputPrice: 0.06, MaxTokens: 32768},
			},
		},
		{
			Kind:     KindZhipu,
			Name:     "Zhipu AI (GLM)",
			BaseURL:  "https://open.bigmodel.cn/api/paas/v4",
			Priority: 5,
			Models: []ModelConfig{
				{ID: "glm-4", Name: "GLM-4", Capabilities: []string{"coding", "reasoning"}, InputPrice: 0.1, OutputPrice: 0.1, MaxTokens: 128000, IsDefault: true},
				{ID: "glm-4-flash", Name: "GLM-4 Flash", Capabilities: []string{"fast"}, InputPrice: 0.001, OutputPrice: 0.001, MaxTokens: 128000},
			},
		},
		{
			Kind:     KindGroq,
			Name:     "Groq",
			BaseURL:  "https://api.groq.com/openai/v1",
			Priority: 6,
			Models: []ModelConfig{
				{ID: "llama-3.3-70b-versatile", Name: "Llama 3.3 70B", Capabilities: []string{"coding", "fast"}, InputPrice: 0.59, OutputPrice: 0.79, MaxTokens: 32768, IsDefault: true},
				{ID: "mixtral-8x7b-32768", Name: "Mixtral 8x7B", Capabilities: []string{"fast"}, InputPrice: 0.24, OutputPrice: 0.24, MaxTokens: 32768},
			},
		},
		{
			Kind:     KindOpenRouter,
			Name:     "OpenRouter",
			BaseURL:  "https://openrouter.ai/api/v1",
			Priority: 7,
			Models: []ModelConfig{
				{ID: "anthropic/claude-3.5-sonnet", Name: "Claude 3.5 Sonnet", Capabilities: []string{"coding", "reasoning"}, InputPrice: 3.0, OutputPrice: 15.0, MaxTokens: 200000, IsDefault: true},
				{ID: "google/gemini-2.0-flash-exp", Name: "Gemini 2.0 Flash", Capabilities: []string{"coding", "fast"}, MaxTokens: 1048576},
			},
		},
		{
			Kind:     KindOllama,
			Name:     "Ollama (Local)",
			BaseURL:  "http://localhost:11434/v1",
			Priority: 10,
			Models: []ModelConfig{
				{ID: "llama3.2", Name: "Llama 3.2", Capabilities: []string{"coding"}, MaxTokens: 131072, IsDefault: true},
				{ID: "qwen2.5-coder", Name: "Qwen 2.5 Coder", Capabilities: []string{"coding"}, MaxTokens: 32768},
				{ID: "deepseek-r1", Name: "DeepSeek R1", Capabilities: []string{"reasoning", "coding"}, MaxTokens: 64000},
			},
		},
	}
}
