package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/person-tracker/internal/camera"
	"github.com/kozaktomas/person-tracker/internal/database"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// buildInfo describes the running binary.
type buildInfo struct {
	Version     string   `json:"version"`
	Commit      string   `json:"commit"`
	Built       string   `json:"built"`
	GoVersion   string   `json:"go_version"`
	LiveCapture bool     `json:"live_capture"`
	Backends    []string `json:"store_backends"`
}

func currentBuild() buildInfo {
	return buildInfo{
		Version:     Version,
		Commit:      CommitSHA,
		Built:       BuildDate,
		GoVersion:   runtime.Version(),
		LiveCapture: camera.LiveCapture,
		Backends:    database.Backends(),
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentBuild()
		if mustGetBool(cmd, "json") {
			return printJSON(info)
		}
		fmt.Printf("person-tracker %s (%s)\n", info.Version, info.GoVersion)
		fmt.Printf("  Commit:       %s\n", info.Commit)
		fmt.Printf("  Built:        %s\n", info.Built)
		fmt.Printf("  Live capture: %t\n", info.LiveCapture)
		fmt.Printf("  Backends:     %v\n", info.Backends)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("json", false, "Output as JSON")
}
