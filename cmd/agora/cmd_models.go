package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"agora/internal/llm"
)

// modelsCmd verifies that the generation backend is reachable and that every
// configured model is available on it.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Check backend connectivity and configured model availability",
	RunE:  checkModels,
}

func checkModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := llm.NewClient(llm.Config{
		Provider: cfg.Generation.Provider,
		Endpoint: cfg.Generation.Endpoint,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if hc, ok := client.(llm.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("backend %s unreachable: %w", cfg.Generation.Endpoint, err)
		}
		fmt.Printf("Backend %s is reachable\n", cfg.Generation.Endpoint)
	}

	lister, ok := client.(llm.ModelLister)
	if !ok {
		fmt.Printf("Provider %q does not support model listing\n", cfg.Generation.Provider)
		return nil
	}

	available, err := lister.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("listing models: %w", err)
	}

	installed := make(map[string]bool, len(available))
	for _, m := range available {
		installed[m] = true
	}

	missing := 0
	fmt.Println("\nConfigured models:")
	for _, model := range cfg.Models() {
		if installed[model] {
			fmt.Printf("  [ok]      %s\n", model)
		} else {
			fmt.Printf("  [missing] %s\n", model)
			missing++
		}
	}

	if missing > 0 {
		return fmt.Errorf("%d configured model(s) missing; pull them before running a debate", missing)
	}
	fmt.Println("\nAll configured models are available.")
	return nil
}
