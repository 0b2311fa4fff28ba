package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kozaktomas/person-tracker/internal/config"
	"github.com/kozaktomas/person-tracker/internal/database"
	"github.com/kozaktomas/person-tracker/internal/facematch"
)

var personsCmd = &cobra.Command{
	Use:   "persons",
	Short: "Query the person store",
}

var personsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked persons",
	Long: `List tracked persons, optionally filtered. All filters must pass.

Example:
  person-tracker persons list
  person-tracker persons list --camera CAM_1 --min-duration 30`,
	Args: cobra.NoArgs,
	RunE: runPersonsList,
}

var personsGetCmd = &cobra.Command{
	Use:   "get <person-id>",
	Short: "Print the full record of one person",
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonsGet,
}

var personsSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find persons matching a face encoding",
	Long: `Find every person with a buffered face encoding within the tolerance of
the given one. The encoding file holds a JSON array of numbers.

Example:
  person-tracker persons search --encoding-file face.json --tolerance 0.5`,
	Args: cobra.NoArgs,
	RunE: runPersonsSearch,
}

var personsNextIDCmd = &cobra.Command{
	Use:   "next-id",
	Short: "Print the identifier the next new person will receive",
	Args:  cobra.NoArgs,
	RunE:  runPersonsNextID,
}

func init() {
	rootCmd.AddCommand(personsCmd)
	personsCmd.AddCommand(personsListCmd)
	personsCmd.AddCommand(personsGetCmd)
	personsCmd.AddCommand(personsSearchCmd)
	personsCmd.AddCommand(personsNextIDCmd)

	personsListCmd.Flags().String("camera", "", "Only persons sighted on this camera")
	personsListCmd.Flags().String("min-duration", "", "Minimum total time in seconds")
	personsListCmd.Flags().String("max-duration", "", "Maximum total time in seconds")
	personsListCmd.Flags().Bool("json", false, "Output as JSON")

	personsSearchCmd.Flags().String("encoding-file", "", "JSON file with the face encoding")
	personsSearchCmd.Flags().Float64("tolerance", facematch.DefaultFaceTolerance, "Maximum face distance")
	_ = personsSearchCmd.MarkFlagRequired("encoding-file")
}

func runPersonsList(cmd *cobra.Command, args []string) error {
	filter := database.ParseFilter(filterParams(cmd))
	jsonOutput := mustGetBool(cmd, "json")

	store, err := loadStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	persons := store.GetFiltered(cmd.Context(), filter)
	if jsonOutput {
		return printJSON(persons)
	}
	if len(persons) == 0 {
		fmt.Println("No persons found.")
		return nil
	}

	fmt.Printf("%-12s %-20s %-20s %8s %10s %s\n", "PERSON", "FIRST SEEN", "LAST SEEN", "CAMERAS", "TIME (s)", "FACE")
	for _, p := range persons {
		fmt.Printf("%-12s %-20s %-20s %8d %10.1f %t\n",
			p.PersonID, p.FirstSeen, p.LastSeen, p.TotalCameras, p.TotalTimeSec, p.HasFace)
	}
	fmt.Printf("\n%d person(s)\n", len(persons))
	return nil
}

// filterParams collects the explicitly set flags as filter parameters, with
// dashes turned into underscores. Flags that are not filters are ignored by
// ParseFilter.
func filterParams(cmd *cobra.Command) map[string]string {
	params := make(map[string]string)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		params[strings.ReplaceAll(f.Name, "-", "_")] = f.Value.String()
	})
	return params
}

func runPersonsGet(cmd *cobra.Command, args []string) error {
	personID := args[0]

	store, err := loadStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, ok := store.GetByID(cmd.Context(), personID)
	if !ok {
		return fmt.Errorf("%w: %s", database.ErrNotFound, personID)
	}
	return printJSON(rec)
}

func runPersonsSearch(cmd *cobra.Command, args []string) error {
	path := mustGetString(cmd, "encoding-file")
	tolerance := mustGetFloat64(cmd, "tolerance")

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read encoding file: %w", err)
	}
	var encoding []float64
	if err := json.Unmarshal(data, &encoding); err != nil {
		return fmt.Errorf("invalid encoding file %s: %w", path, err)
	}
	if len(encoding) == 0 {
		return fmt.Errorf("encoding file %s is empty", path)
	}

	store, err := loadStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	matches := store.SearchByFace(cmd.Context(), encoding, tolerance)
	if len(matches) == 0 {
		fmt.Println("No matching persons.")
		return nil
	}
	for _, id := range matches {
		fmt.Println(id)
	}
	return nil
}

func runPersonsNextID(cmd *cobra.Command, args []string) error {
	store, err := loadStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Println(store.NextID(cmd.Context()))
	return nil
}

func loadStore(cmd *cobra.Command) (*database.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return openStore(cmd.Context(), cfg)
}
