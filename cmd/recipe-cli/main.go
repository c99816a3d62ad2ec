package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"macro-recipe-generator/internal/core/ai/service"
	"macro-recipe-generator/internal/core/recipe"
	"macro-recipe-generator/internal/infrastructure/config"
	"macro-recipe-generator/internal/pkg/common"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "recipe-cli",
		Short:         "Generate macro-targeted recipes from the terminal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(promptCmd())
	rootCmd.AddCommand(generateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func promptCmd() *cobra.Command {
	var flags requestFlags
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the prompt that would be sent to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.build()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), recipe.BuildPrompt(req))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func generateCmd() *cobra.Command {
	var (
		flags    requestFlags
		count    int
		asJSON   bool
		logLevel string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one or more recipes in a single session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.build()
			if err != nil {
				return err
			}
			if count < 1 {
				return fmt.Errorf("count must be at least 1")
			}

			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if logLevel != "" {
				if err := common.InitLogger(logLevel, cfg.LogDir); err != nil {
					return err
				}
				defer common.Sync()
			}

			ctx := cmd.Context()
			aiService, err := service.NewService(ctx, cfg)
			if err != nil {
				return err
			}
			defer aiService.Close()

			return runGenerate(ctx, cmd.OutOrStdout(), recipe.NewRecipeService(aiService), req, count, asJSON)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of recipes to generate in this session")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Enable logging at the given level")
	return cmd
}

// runGenerate 在同一份紀錄中連續生成，最後印出由新到舊的摘要
func runGenerate(ctx context.Context, out io.Writer, svc *recipe.RecipeService, req recipe.RecipeRequest, count int, asJSON bool) error {
	history := recipe.NewHistoryStore()
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " Generating your recipe..."

	for i := 0; i < count; i++ {
		s.Start()
		record, err := svc.Generate(ctx, history, req)
		s.Stop()
		if err != nil {
			return err
		}

		if asJSON {
			continue
		}
		fmt.Fprintf(out, "Your %s Recipe\n\n%s\n\n", record.MealType, record.RecipeText)
	}

	if asJSON {
		data, err := common.ToIndentedJSON(history.Records())
		if err != nil {
			return err
		}
		fmt.Fprint(out, data)
		return nil
	}

	fmt.Fprintln(out, "History")
	for entry := range history.Recent() {
		fmt.Fprintln(out, entry.Summary())
		fmt.Fprintf(out, "   %s\n", entry.Preview)
	}
	return nil
}
