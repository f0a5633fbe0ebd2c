package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wikiqa/internal/app"
	"wikiqa/internal/appconfig"
	"wikiqa/internal/logging"
)

var (
	cfgFile string
	envFile string
	cfg     appconfig.Config
)

var rootCmd = &cobra.Command{
	Use:   "wikiqa",
	Short: "Question answering over Wikipedia with retrieval-augmented generation",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := appconfig.LoadDotEnv(envFile); err != nil {
			return err
		}
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
		if err := appconfig.ReadFile(viper.GetViper(), cfgFile != ""); err != nil {
			return err
		}
		loaded, err := appconfig.Load(viper.GetViper())
		if err != nil {
			return err
		}
		cfg = loaded
		if err := logging.Init(cfg.LogFile, cfg.Debug); err != nil {
			return err
		}
		if f := viper.ConfigFileUsed(); f != "" {
			logging.Debugf("using config file %s", f)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Close()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failure("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	appconfig.SetDefaults(viper.GetViper())
	appconfig.BindEnv(viper.GetViper())
	viper.SetConfigName("wikiqa")
	viper.AddConfigPath(".")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./wikiqa.{yaml,json,toml} if present)")
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.String("corpus", "wiki_chunks.csv", "corpus CSV with title,text columns")
	pf.String("checkpoint-dir", "checkpoints", "checkpoint directory")
	pf.String("db", "wikiqa.db", "SQLite database for the sqlite-vec backend")
	pf.String("backend", appconfig.BackendFlat, "vector search backend: flat or sqlite-vec")
	pf.String("embed-provider", appconfig.ProviderOllama, "embedding provider: ollama, openai or hash")
	pf.String("model", "nomic-embed-text", "embedding model")
	pf.String("ollama", "http://localhost:11434", "embedding service base URL")
	pf.Int("dimension", 0, "embedding dimension (0 probes the model)")
	pf.String("chat-provider", appconfig.ProviderOllama, "generation provider: ollama or openai")
	pf.String("chat-model", "qwen3:8b", "generative model for answers")
	pf.String("chat-url", "http://localhost:11434", "generation service base URL")
	pf.Int("k", 10, "number of chunks to retrieve per question")
	pf.String("log-file", "", "append log lines to this file")
	pf.Bool("debug", false, "enable debug logging")

	for key, flag := range map[string]string{
		"corpus":              "corpus",
		"checkpoint_dir":      "checkpoint-dir",
		"db":                  "db",
		"backend":             "backend",
		"embedding.provider":  "embed-provider",
		"embedding.model":     "model",
		"embedding.url":       "ollama",
		"embedding.dimension": "dimension",
		"generation.provider": "chat-provider",
		"generation.model":    "chat-model",
		"generation.url":      "chat-url",
		"top_k":               "k",
		"log_file":            "log-file",
		"debug":               "debug",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}
}

// newApp builds the backends for the loaded configuration.
func newApp() (*app.App, error) {
	return app.New(cfg)
}
