package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/TEKIMAX/focus-todo-ai/internal/adapter/ollama"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/plan"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/settings"
	"github.com/TEKIMAX/focus-todo-ai/internal/secrets"
	"github.com/TEKIMAX/focus-todo-ai/internal/service"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Inspect and maintain stored state",
	Long: `Maintenance commands that work directly on the configured storage.
Stop the server first: it does not notice changes made here.`,
}

var adminPlansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List archived daily plans",
	Args:  cobra.NoArgs,
	RunE:  runAdminPlans,
}

var adminResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear today's tasks and plan so onboarding runs again",
	Args:  cobra.NoArgs,
	RunE:  runAdminReset,
}

var adminSetAPIKeyCmd = &cobra.Command{
	Use:   "set-api-key",
	Short: "Store the cloud provider API key in settings",
	Args:  cobra.NoArgs,
	RunE:  runAdminSetAPIKey,
}

var adminModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models installed on a local provider",
	Args:  cobra.NoArgs,
	RunE:  runAdminModels,
}

func init() {
	adminResetCmd.Flags().Bool("yes", false, "Confirm destructive reset")
	adminSetAPIKeyCmd.Flags().String("key", "", "API key (prompted if not provided)")
	adminModelsCmd.Flags().String("url", settings.DefaultLocalBaseURL, "Local provider base URL")
	adminModelsCmd.Flags().Duration("timeout", 10*time.Second, "Request timeout")

	adminCmd.AddCommand(adminPlansCmd, adminResetCmd, adminSetAPIKeyCmd, adminModelsCmd)
}

// loadAdminStore opens storage and loads the persisted state into a store
// that is not broadcasting anywhere.
func loadAdminStore(cmd *cobra.Command) (*service.TaskStore, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	vault, err := secrets.NewVault(secrets.EnvLoader(secrets.SealingKey))
	if err != nil {
		return nil, nil, fmt.Errorf("secrets: %w", err)
	}
	persister, cleanup, err := openPersister(cmd.Context(), cfg, vault)
	if err != nil {
		return nil, nil, err
	}
	store := service.NewTaskStore(service.WithPersister(persister))
	if err := store.Load(cmd.Context()); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("load state: %w", err)
	}
	return store, cleanup, nil
}

func runAdminPlans(cmd *cobra.Command, _ []string) error {
	store, cleanup, err := loadAdminStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	plans, err := store.ListDailyPlans(cmd.Context())
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		fmt.Println("No plans archived yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATE\tHOURS\tTASKS\tDONE\tFOCUS_MIN\tDESCRIPTION")
	for i := range plans {
		st := plan.Summarize(&plans[i])
		_, _ = fmt.Fprintf(w, "%s\t%.1f\t%d\t%d\t%d\t%s\n",
			plans[i].DateKey(), plans[i].AvailableHours, st.TotalTasks, st.CompletedTasks, st.FocusMinutes,
			truncate(plans[i].UserInput, 48))
	}
	return w.Flush()
}

func runAdminReset(cmd *cobra.Command, _ []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		return errors.New("reset clears today's tasks; rerun with --yes")
	}
	store, cleanup, err := loadAdminStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	n := len(store.Tasks())
	store.ResetDay(cmd.Context())
	fmt.Fprintf(os.Stderr, "Day reset: %d tasks cleared, onboarding will run on next start.\n", n)
	return nil
}

func runAdminSetAPIKey(cmd *cobra.Command, _ []string) error {
	key, _ := cmd.Flags().GetString("key")
	if key == "" {
		var err error
		key, err = promptSecret("API key: ")
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key must not be empty")
	}
	if os.Getenv(secrets.SealingKey) == "" && os.Getenv(secrets.SealingKey+"_FILE") == "" {
		fmt.Fprintf(os.Stderr, "warning: %s is not set; the key will be stored unencrypted\n", secrets.SealingKey)
	}

	store, cleanup, err := loadAdminStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := store.SetAppSettings(cmd.Context(), settings.Patch{OpenAIAPIKey: &key}); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	fmt.Fprintln(os.Stderr, "API key stored.")
	return nil
}

func runAdminModels(cmd *cobra.Command, _ []string) error {
	baseURL, _ := cmd.Flags().GetString("url")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if err := settings.ValidateBaseURL(baseURL); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	models, err := ollama.New(baseURL).ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models at %s: %w", baseURL, err)
	}
	if len(models) == 0 {
		fmt.Println("No models installed.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSIZE_MB\tPARAMS\tQUANT")
	for _, m := range models {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", m.Name, m.Size>>20, m.Details.ParameterSize, m.Details.QuantizationLevel)
	}
	return w.Flush()
}

// promptSecret reads a value from the terminal without echoing.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)                         // newline after hidden input
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
