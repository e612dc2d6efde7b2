package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yapay-ai/token-timeline/pkg/model"
	"github.com/yapay-ai/token-timeline/pkg/recordlog"
	"github.com/yapay-ai/token-timeline/pkg/tokenizer"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Append a usage record to the record log",
	Long: `Append a single usage record with provider, model, token counts and
cost. When --text is given and no input token count is set, the input
tokens are counted from the text.`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringP("provider", "p", "", "Provider identifier (e.g., openai, anthropic)")
	recordCmd.Flags().StringP("model", "m", "", "Model name (e.g., gpt-4o, claude-3.5-sonnet)")
	recordCmd.Flags().Int64("input-tokens", 0, "Number of input tokens")
	recordCmd.Flags().Int64("output-tokens", 0, "Number of output tokens")
	recordCmd.Flags().Int64("cache-creation-tokens", 0, "Number of cache creation tokens")
	recordCmd.Flags().Int64("cache-read-tokens", 0, "Number of cache read tokens")
	recordCmd.Flags().Float64("cost", 0, "Cost in USD")
	recordCmd.Flags().String("text", "", "Raw input text to count tokens from")
	_ = recordCmd.MarkFlagRequired("provider")
	_ = recordCmd.MarkFlagRequired("model")
}

func runRecord(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	provider, _ := cmd.Flags().GetString("provider")
	modelName, _ := cmd.Flags().GetString("model")
	inputTokens, _ := cmd.Flags().GetInt64("input-tokens")
	outputTokens, _ := cmd.Flags().GetInt64("output-tokens")
	cacheCreation, _ := cmd.Flags().GetInt64("cache-creation-tokens")
	cacheRead, _ := cmd.Flags().GetInt64("cache-read-tokens")
	cost, _ := cmd.Flags().GetFloat64("cost")
	text, _ := cmd.Flags().GetString("text")

	if text != "" && inputTokens == 0 {
		inputTokens, err = tokenizer.CountTokens(text, provider, modelName)
		if err != nil {
			return fmt.Errorf("count tokens: %w", err)
		}
	}

	record := model.UsageRecord{
		Timestamp:           time.Now().UTC(),
		Provider:            provider,
		Model:               modelName,
		InputTokens:         inputTokens,
		OutputTokens:        outputTokens,
		CacheCreationTokens: cacheCreation,
		CacheReadTokens:     cacheRead,
		CostUSD:             cost,
	}

	log, err := recordlog.NewSQLite(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer log.Close()

	if err := log.Append(cmd.Context(), []model.UsageRecord{record}); err != nil {
		return fmt.Errorf("append record: %w", err)
	}

	fmt.Printf("Recorded usage:\n")
	fmt.Printf("  Provider:      %s\n", record.Provider)
	fmt.Printf("  Model:         %s\n", record.Model)
	fmt.Printf("  Input tokens:  %d\n", record.InputTokens)
	fmt.Printf("  Output tokens: %d\n", record.OutputTokens)
	fmt.Printf("  Total tokens:  %d\n", record.TotalTokens())
	fmt.Printf("  Cost:          $%.6f\n", record.CostUSD)

	return nil
}
