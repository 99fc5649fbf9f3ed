package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ishaan812/changelog/internal/config"
	"github.com/ishaan812/changelog/internal/constants"
)

var (
	modelsSetProvider string
	modelsSetModel    string
	modelsSetAPIKey   string
	modelsSetBaseURL  string
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage LLM model configuration",
	Long: `View and configure the LLM provider, model and API key used for summaries.

Examples:
  changelog models                      # Show the current configuration
  changelog models list                 # List available providers and models
  changelog models set --provider ollama --model llama3.1
  changelog models set --provider anthropic --api-key sk-...`,
	RunE: runModelsShow,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available providers and models",
	RunE:  runModelsList,
}

var modelsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set LLM provider, model and API key",
	Long: `Write the LLM provider, model, base URL and API key to the config file in use,
or to ~/.changelog/changelog.yaml when there is none.`,
	RunE: runModelsSet,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsSetCmd)

	modelsSetCmd.Flags().StringVar(&modelsSetProvider, "provider", "", "LLM provider (groq, openai, ollama, anthropic, gemini)")
	modelsSetCmd.Flags().StringVar(&modelsSetModel, "model", "", "Model name")
	modelsSetCmd.Flags().StringVar(&modelsSetAPIKey, "api-key", "", "API key")
	modelsSetCmd.Flags().StringVar(&modelsSetBaseURL, "base-url", "", "API base URL")
}

func runModelsShow(cmd *cobra.Command, args []string) error {
	titleColor := color.New(color.FgHiCyan, color.Bold)
	infoColor := color.New(color.FgHiWhite)
	dimColor := color.New(color.FgHiBlack)
	successColor := color.New(color.FgHiGreen)

	provider := cfg.Provider()
	model := cfg.LLM.Model
	if model == "" {
		model = constants.GetDefaultModel(provider)
	}
	baseURL := cfg.LLM.BaseURL
	if baseURL == "" {
		baseURL = constants.GetDefaultBaseURL(provider)
	}

	fmt.Println()
	titleColor.Printf("  LLM Configuration")
	dimColor.Printf("  (strategy: %s)\n\n", cfg.Summarizer.Strategy)

	successColor.Print("  Provider:  ")
	infoColor.Println(provider)
	successColor.Print("  Model:     ")
	infoColor.Println(model)
	if baseURL != "" {
		successColor.Print("  Base URL:  ")
		infoColor.Println(baseURL)
	}

	if key := cfg.GetAPIKey(); key != "" {
		successColor.Print("  API Key:   ")
		dimColor.Println(maskAPIKey(key))
	} else if constants.ProviderNeedsAPIKey(provider) {
		color.New(color.FgHiYellow).Print("  API Key:   ")
		dimColor.Printf("not set (llm.api_key or %s)\n", constants.GetProviderInfo(provider).EnvKey)
	}

	fmt.Println()
	return nil
}

func runModelsList(cmd *cobra.Command, args []string) error {
	titleColor := color.New(color.FgHiCyan, color.Bold)
	infoColor := color.New(color.FgHiWhite)
	dimColor := color.New(color.FgHiBlack)
	accentColor := color.New(color.FgHiMagenta)

	fmt.Println()
	titleColor.Println("  Available Providers & Models")
	fmt.Println()

	for _, p := range constants.AllProviders {
		accentColor.Printf("  %s", p.Name)
		dimColor.Printf("  %s\n", p.Description)

		for _, m := range constants.GetLLMModels(p.Name) {
			infoColor.Printf("    %-40s", m.Model)
			dimColor.Printf("  %s\n", m.Description)
		}
		fmt.Println()
	}

	dimColor.Println("  Use 'changelog models set --provider <name> --model <model>' to configure.")
	fmt.Println()
	return nil
}

func runModelsSet(cmd *cobra.Command, args []string) error {
	if modelsSetProvider == "" && modelsSetModel == "" && modelsSetAPIKey == "" && modelsSetBaseURL == "" {
		return fmt.Errorf("nothing to set; pass --provider, --model, --api-key or --base-url")
	}

	updates := map[string]string{}
	if modelsSetProvider != "" {
		p, ok := constants.ParseProvider(modelsSetProvider)
		if !ok {
			return fmt.Errorf("unknown provider: %s", modelsSetProvider)
		}
		updates["llm.provider"] = string(p)
		if modelsSetModel == "" {
			updates["llm.model"] = ""
		}
	}
	if modelsSetModel != "" {
		updates["llm.model"] = modelsSetModel
	}
	if modelsSetAPIKey != "" {
		updates["llm.api_key"] = modelsSetAPIKey
	}
	if modelsSetBaseURL != "" {
		updates["llm.base_url"] = modelsSetBaseURL
	}

	for k, val := range updates {
		v.Set(k, val)
	}
	if _, err := config.Load(v); err != nil {
		return err
	}

	// Only the file's own keys are rewritten so that defaults and
	// environment overrides do not leak into it.
	path := v.ConfigFileUsed()
	if path == "" {
		path = filepath.Join(config.GetChangelogDir(), "changelog.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	fileV := viper.New()
	fileV.SetConfigFile(path)
	if _, err := os.Stat(path); err == nil {
		if err := fileV.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	for k, val := range updates {
		fileV.Set(k, val)
	}
	if err := fileV.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	color.New(color.FgHiGreen).Printf("LLM config updated (%s / %s) in %s\n",
		v.GetString("llm.provider"), v.GetString("llm.model"), path)
	return nil
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
