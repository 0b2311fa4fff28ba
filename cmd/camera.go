package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/person-tracker/internal/camera"
	"github.com/kozaktomas/person-tracker/internal/config"
	"github.com/kozaktomas/person-tracker/internal/sweeper"
	"github.com/kozaktomas/person-tracker/internal/tracking"
)

// statusInterval is how often camera run refreshes its status report.
const statusInterval = time.Second

var cameraCmd = &cobra.Command{
	Use:   "camera",
	Short: "Run and inspect live cameras",
}

var cameraRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Track people on live camera feeds",
	Long: `Start the configured cameras and track every frame they deliver. The
latest annotated frame of each camera is written to <out>/<camera-id>.jpg
and the state of every camera to <out>/status.json.

Cameras come from the embedded cameras.yaml or the file named by CAMERAS_FILE.
Live capture requires a build with -tags gocv.

Example:
  person-tracker camera run --out ./live
  person-tracker camera run --camera DEMO_CAM --duration 10m`,
	RunE: runCameraRun,
}

var cameraStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the camera state reported by camera run",
	Long: `Print the camera state last reported by a running "camera run" writing
to the same output directory. The report is refreshed every second.

Example:
  person-tracker camera status --out ./live`,
	RunE: runCameraStatus,
}

func init() {
	rootCmd.AddCommand(cameraCmd)
	cameraCmd.AddCommand(cameraRunCmd)
	cameraCmd.AddCommand(cameraStatusCmd)

	cameraRunCmd.Flags().StringSlice("camera", nil, "Camera IDs to start (default all configured)")
	cameraRunCmd.Flags().String("out", "live", "Directory to write the latest frame of each camera to")
	cameraRunCmd.Flags().Duration("duration", 0, "Stop after this long (0 runs until interrupted)")

	cameraStatusCmd.Flags().String("out", "live", "Output directory of the running camera command")
	cameraStatusCmd.Flags().Bool("json", false, "Output as JSON")
}

func runCameraRun(cmd *cobra.Command, args []string) error {
	outDir := mustGetString(cmd, "out")
	duration := mustGetDuration(cmd, "duration")

	ctx, cancel := signalContext()
	defer cancel()
	if duration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, duration)
		defer stop()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := selectCameras(a.cfg, mustGetStringSlice(cmd, "camera"))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}

	mgr := camera.NewManager(a.cfg.Cameras, camera.OpenDevice, a.tracker)
	defer mgr.StopAll()

	sw := sweeper.New(a.cfg.Sweep.Interval)
	if err := sw.Add("memory", func() {
		removed := a.memory.Sweep()
		slog.Debug("sweeper: memory swept", "removed", removed, "remaining", a.memory.Len())
	}); err != nil {
		return err
	}
	if err := sw.Add("cameras", func() { mgr.CheckIdle() }); err != nil {
		return err
	}
	sw.Start()
	defer sw.Stop()
	if sw.IsRunning() {
		fmt.Printf("Sweeper running %v every %s\n", sw.Tasks(), a.cfg.Sweep.Interval)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		cam, err := mgr.Get(id)
		if err != nil {
			return err
		}
		if err := cam.Start(); err != nil {
			return fmt.Errorf("failed to start camera %s: %w", id, err)
		}
		fmt.Printf("Camera %s started\n", id)

		wg.Add(1)
		go func() {
			defer wg.Done()
			streamToFile(ctx, cam, a.cfg.Stream.FPS, filepath.Join(outDir, id+".jpg"))
		}()
	}

	statusPath := filepath.Join(outDir, camera.StatusFile)
	wg.Add(1)
	go func() {
		defer wg.Done()
		reportStatus(ctx, mgr, statusPath)
	}()

	<-ctx.Done()
	fmt.Println("\nStopping cameras...")
	mgr.StopAll()
	wg.Wait()
	return camera.WriteStatusReport(statusPath, mgr.Report(time.Now()))
}

// reportStatus rewrites the status report every statusInterval until ctx is done.
func reportStatus(ctx context.Context, mgr *camera.Manager, path string) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		if err := camera.WriteStatusReport(path, mgr.Report(time.Now())); err != nil {
			slog.Warn("camera: writing status report failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// selectCameras validates the requested camera IDs against the configuration.
func selectCameras(cfg *config.Config, requested []string) ([]string, error) {
	if len(requested) == 0 {
		ids := make([]string, 0, len(cfg.Cameras))
		for _, cam := range cfg.Cameras {
			ids = append(ids, cam.ID)
		}
		if len(ids) == 0 {
			return nil, errors.New("no cameras configured")
		}
		return ids, nil
	}
	for _, id := range requested {
		if _, ok := cfg.Camera(id); !ok {
			return nil, fmt.Errorf("unknown camera %q", id)
		}
	}
	return requested, nil
}

func streamToFile(ctx context.Context, cam *camera.Camera, fps int, path string) {
	seen := make(map[string]bool)
	err := cam.Stream(ctx, fps, func(data []byte, annotations []tracking.Annotation) error {
		for _, ann := range annotations {
			if !seen[ann.PersonID] {
				seen[ann.PersonID] = true
				fmt.Printf("[%s] %s %s sighted\n", time.Now().Format(time.TimeOnly), cam.ID(), ann.PersonID)
			}
		}
		return renameio.WriteFile(path, data, 0o644)
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		slog.Error("camera: stream failed", "camera", cam.ID(), "error", err)
	}
}

func runCameraStatus(cmd *cobra.Command, args []string) error {
	outDir := mustGetString(cmd, "out")
	jsonOutput := mustGetBool(cmd, "json")

	path := filepath.Join(outDir, camera.StatusFile)
	report, err := camera.ReadStatusReport(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("no status report at %s; start \"camera run --out %s\" first", path, outDir)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(report)
	}
	statuses := report.Cameras
	if len(statuses) == 0 {
		fmt.Println("No cameras configured.")
		return nil
	}
	fmt.Printf("Reported at %s\n\n", report.UpdatedAt)
	fmt.Printf("%-16s %-8s %-20s %s\n", "CAMERA", "ACTIVE", "LAST ACCESS", "TIMEOUT")
	for _, s := range statuses {
		fmt.Printf("%-16s %-8t %-20s %ds\n", s.CameraID, s.IsActive, s.LastAccess, s.Timeout)
	}
	return nil
}
