package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Yates-Labs/sleuth/internal/convert"
)

var convertOpts = convert.DefaultOptions()

var convertCmd = &cobra.Command{
	Use:   "convert [file.json]",
	Short: "Convert distilled results into long chain-of-thought training records",
	Long: `Convert a distilled results file into JSON-lines training records.

The input is read from distill_ibm/<file.json> and the output is written to
granite_longcot_data/<file.jsonl>, or to granite_longcot_data/<file.json> as
one JSON array with --format json. Each record carries the problem id, a
source tag, the prompt/answer pair and the ground truth.

Examples:
  sleuth convert phi4_results.json
  sleuth convert phi4_results.json --flat --correct-only
  sleuth convert phi4_results.json --format json
  sleuth convert results.json --model microsoft/phi-4 --prompt-type "cot+"`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().BoolVar(&convertOpts.Flat, "flat", false, "Emit problem/response fields instead of chat conversations")
	convertCmd.Flags().BoolVar(&convertOpts.CorrectOnly, "correct-only", false, "Keep only examples marked correct")
	convertCmd.Flags().StringVar(&convertOpts.Model, "model", convert.DefaultModel, "Model key in the results file")
	convertCmd.Flags().StringVar(&convertOpts.Dataset, "dataset", convert.DefaultDataset, "Dataset key in the results file")
	convertCmd.Flags().StringVar(&convertOpts.PromptType, "prompt-type", convert.DefaultPromptType, "Prompt type key in the results file")
	convertCmd.Flags().StringVar((*string)(&convertOpts.Format), "format", string(convert.FormatJSONL), "Output format: jsonl or json")
}

func runConvert(cmd *cobra.Command, args []string) error {
	res, err := convert.New(layout(), convertOpts, log).Run(args[0])
	if err != nil {
		return fmt.Errorf("%s %w", errorStyle.Render("Error:"), err)
	}

	fmt.Println(mutedStyle.Render(fmt.Sprintf("Read %d samples from %s", res.Read, res.Input)))
	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Wrote %d records to %s", res.Written, res.Output)))
	return nil
}
