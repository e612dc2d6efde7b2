package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List known LLM providers",
	RunE:  runProvidersList,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProvidersList(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry, err := initRegistry(cfg)
	if err != nil {
		return err
	}

	known := registry.List()
	if len(known) == 0 {
		fmt.Println("No providers configured. Check the providers path in config.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tDISPLAY NAME\n")
	for _, p := range known {
		fmt.Fprintf(w, "%s\t%s\n", p.ID, p.DisplayName)
	}
	w.Flush()

	return nil
}
