package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "junior"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage junior configuration.

Running bare 'junior config' is the same as 'junior config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# junior configuration
# See: junior config show (for effective values and sources)

# State/data directory (default: ~/.config/junior)
# state_dir: {{ .StateDir }}

# SQLite database path (default: ~/.config/junior/junior.db)
# db_path: {{ .DBPath }}

# Webhook server
webhook:
  # Port to listen on (default: 8484)
  port: {{ .WebhookPort }}

  # Shared secret for signature verification. Empty disables verification.
  secret: ""

# Anthropic API
anthropic:
  # API key (or set JUNIOR_ANTHROPIC_API_KEY)
  api_key: ""

  # Model used for review stages
  model: "{{ .Model }}"

# Review pipeline
review:
  # Stages to skip: logic, security, critical-bug, naming, optimization,
  # design-principle
  disabled_stages: []

  # Inline comments per published review (default: 20)
  max_comments: {{ .MaxComments }}

# Job scheduling
jobs:
  # Concurrent reviews (default: 4)
  concurrency: {{ .Concurrency }}

  # What to do when a new commit arrives for a PR under review:
  # "supersede" cancels the running review, "drop" keeps it.
  on_duplicate: "{{ .OnDuplicate }}"
`

type configTemplateData struct {
	StateDir    string
	DBPath      string
	WebhookPort int
	Model       string
	MaxComments int
	Concurrency int
	OnDuplicate string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:    viper.GetString("state_dir"),
		DBPath:      viper.GetString("db_path"),
		WebhookPort: viper.GetInt("webhook.port"),
		Model:       viper.GetString("anthropic.model"),
		MaxComments: viper.GetInt("review.max_comments"),
		Concurrency: viper.GetInt("jobs.concurrency"),
		OnDuplicate: viper.GetString("jobs.on_duplicate"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = []configKeyInfo{
	{Key: "state_dir", EnvVar: "JUNIOR_STATE_DIR"},
	{Key: "db_path", EnvVar: "JUNIOR_DB_PATH"},
	{Key: "webhook.port", EnvVar: "JUNIOR_WEBHOOK_PORT"},
	{Key: "webhook.host", EnvVar: "JUNIOR_WEBHOOK_HOST"},
	{Key: "anthropic.model", EnvVar: "JUNIOR_ANTHROPIC_MODEL"},
	{Key: "analyzer.max_total_bytes", EnvVar: "JUNIOR_ANALYZER_MAX_TOTAL_BYTES"},
	{Key: "analyzer.max_files", EnvVar: "JUNIOR_ANALYZER_MAX_FILES"},
	{Key: "analyzer.timeout", EnvVar: "JUNIOR_ANALYZER_TIMEOUT"},
	{Key: "reader.reads_per_second", EnvVar: "JUNIOR_READER_READS_PER_SECOND"},
	{Key: "reader.max_file_bytes", EnvVar: "JUNIOR_READER_MAX_FILE_BYTES"},
	{Key: "review.stage_timeout", EnvVar: "JUNIOR_REVIEW_STAGE_TIMEOUT"},
	{Key: "review.disabled_stages", EnvVar: "JUNIOR_REVIEW_DISABLED_STAGES"},
	{Key: "review.max_comments", EnvVar: "JUNIOR_REVIEW_MAX_COMMENTS"},
	{Key: "jobs.concurrency", EnvVar: "JUNIOR_JOBS_CONCURRENCY"},
	{Key: "jobs.timeout", EnvVar: "JUNIOR_JOBS_TIMEOUT"},
	{Key: "jobs.on_duplicate", EnvVar: "JUNIOR_JOBS_ON_DUPLICATE"},
	{Key: "jobs.on_completed", EnvVar: "JUNIOR_JOBS_ON_COMPLETED"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-28s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set — set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'junior config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
