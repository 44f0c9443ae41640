package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"hs-go/internal/app"
	"hs-go/internal/config"
	"hs-go/internal/hs"
	"hs-go/internal/monitor"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// sweepBuffer bounds progress events waiting for the terminal.
const sweepBuffer = 64

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an HSApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Protect", "AutoProtect").
func newApp(operation string) (*app.HSApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewHSApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var rootCmd = &cobra.Command{
	Use:          "hs",
	Short:        "Protect files with hard-link backups",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Backup Root: %s\n", cfg.Vault.Root)
		fmt.Println("The backup root must be on the same volume as the files you protect.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Log Level:    %s\n", cfg.LogLevel)
		fmt.Printf("Backup Root:  %s\n", cfg.Vault.Root)
		fmt.Printf("Registry:     %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Snapshot:     %t\n", cfg.Database.Snapshot)
		fmt.Printf("Scan Workers: %d\n", cfg.Scan.Workers)
		fmt.Printf("Ignore:       %s\n", strings.Join(cfg.Scan.Ignore, ", "))
		return nil
	},
}

// protect command
var protectCmd = &cobra.Command{
	Use:   "protect PATH",
	Short: "Protect a file, or every file under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Protect")
		if err != nil {
			return err
		}
		defer a.Close()

		// Anything that is not a directory goes to Protect, which reports
		// missing and irregular files with a typed error.
		if isDir, err := a.IsDirectory(args[0]); err == nil && isDir {
			verbose, _ := cmd.Flags().GetBool("verbose")
			return protectFolder(a, args[0], verbose)
		}

		res, err := a.Protect(args[0])
		if err != nil {
			return err
		}
		if res.AlreadyProtected {
			fmt.Printf("Already protected: %s (#%d)\n", res.OriginalPath, res.Record.ID)
			return nil
		}
		fmt.Printf("Protected %s (#%d)\n  backup: %s\n", res.OriginalPath, res.Record.ID, res.BackupPath)
		return nil
	},
}

// protectFolder sweeps a folder in the background and prints its progress
// until it finishes or the user interrupts it.
func protectFolder(a *app.HSApp, path string, verbose bool) error {
	ctx, stop := signalContext()
	defer stop()

	sweep, err := a.StartSweep(ctx, path, sweepBuffer)
	if err != nil {
		return err
	}

	for ev := range sweep.Events() {
		switch ev.Type {
		case hs.SweepStarted:
			fmt.Printf("Sweeping %s (%s files)\n", ev.Path, humanize.Comma(int64(ev.Total)))
		case hs.FileProtected:
			fmt.Printf("[%d/%d] protected %s\n", ev.Done, ev.Total, ev.Path)
		case hs.FileSkipped:
			fmt.Printf("[%d/%d] failed    %s: %v\n", ev.Done, ev.Total, ev.Path, ev.Err)
		case hs.FileAlreadyProtected, hs.FileIgnored:
			if verbose {
				fmt.Printf("[%d/%d] %-9s %s\n", ev.Done, ev.Total, shortEvent(ev.Type), ev.Path)
			}
		}
	}

	res, err := sweep.Wait()
	if err != nil {
		return err
	}
	printSweep(res)
	if res.Cancelled {
		return errors.New("sweep cancelled")
	}
	return nil
}

func shortEvent(t hs.EventType) string {
	switch t {
	case hs.FileAlreadyProtected:
		return "exists"
	case hs.FileIgnored:
		return "ignored"
	default:
		return t.String()
	}
}

func printSweep(res *hs.SweepResult) {
	fmt.Printf("%s: %s protected, %s already protected, %s ignored, %d failed",
		res.Root,
		humanize.Comma(int64(res.Protected)),
		humanize.Comma(int64(res.AlreadyProtected)),
		humanize.Comma(int64(res.Ignored)),
		len(res.Failures),
	)
	if res.Cancelled {
		fmt.Print(" (cancelled)")
	}
	fmt.Println()
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore ID|PATH",
	Short: "Restore a protected file",
	Long: `Restore a protected file by record ID or by its original path.
With --to-backup, PATH is recreated from the given backup artifact instead of
the recorded one. Restore never overwrites an existing file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backup, _ := cmd.Flags().GetString("to-backup")

		a, err := newApp("Restore")
		if err != nil {
			return err
		}
		defer a.Close()

		var res *hs.RestoreResult
		switch id, perr := strconv.ParseInt(args[0], 10, 64); {
		case backup != "":
			res, err = a.Restore(args[0], backup)
		case perr == nil:
			res, err = a.RestoreByID(id)
		default:
			res, err = a.RestorePath(args[0])
		}
		if err != nil {
			return err
		}

		fmt.Printf("Restored %s (%s)\n", res.OriginalPath, res.Method)
		return nil
	},
}

// unprotect command
var unprotectCmd = &cobra.Command{
	Use:   "unprotect ID",
	Short: "Forget a protection record (the backup is kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid record ID %q", args[0])
		}

		a, err := newApp("Unprotect")
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.GetProtectedFile(id)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("no protection record #%d", id)
		}

		if !yes {
			ok, err := confirm(fmt.Sprintf("Remove protection for %s?", rec.OriginalPath))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := a.RemoveProtection(id); err != nil {
			return err
		}
		fmt.Printf("Removed protection for %s\n  backup kept: %s\n", rec.OriginalPath, rec.BackupPath)
		return nil
	},
}

// confirm asks a yes/no question on the terminal. Without a terminal there
// is nobody to ask, so it refuses.
func confirm(question string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, errors.New("not a terminal: pass --yes to confirm")
	}
	fmt.Printf("%s [y/N] ", question)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List protected files",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("List")
		if err != nil {
			return err
		}
		defer a.Close()

		statuses, err := a.ListProtected()
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			fmt.Println("No protected files.")
			return nil
		}
		return printStatuses(os.Stdout, statuses)
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status PATH",
	Short: "Show the protection state of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Status")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.Status(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("#%d %s: %s\n", st.Record.ID, st.Record.OriginalPath, stateLabel(st))
		fmt.Printf("  backup:    %s\n", st.Record.BackupPath)
		fmt.Printf("  protected: %s (%s)\n", st.Record.ProtectedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(st.Record.ProtectedAt))
		return nil
	},
}

// monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Manage monitored folders",
}

var monitorAddCmd = &cobra.Command{
	Use:   "add PATH",
	Short: "Monitor a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("MonitorAdd")
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := a.AddMonitoredFolder(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Monitoring %s\n", path)
		return nil
	},
}

var monitorRemoveCmd = &cobra.Command{
	Use:   "remove PATH",
	Short: "Stop monitoring a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("MonitorRemove")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveMonitoredFolder(args[0]); err != nil {
			return err
		}
		fmt.Printf("No longer monitoring %s\n", args[0])
		return nil
	},
}

var monitorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List monitored folders",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("MonitorList")
		if err != nil {
			return err
		}
		defer a.Close()

		folders, err := a.ListMonitoredFolders()
		if err != nil {
			return err
		}
		if len(folders) == 0 {
			fmt.Println("No monitored folders.")
			return nil
		}
		return printFolders(os.Stdout, folders)
	},
}

// autoprotect command
var autoprotectCmd = &cobra.Command{
	Use:   "autoprotect",
	Short: "Sweep all monitored folders",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AutoProtect")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext()
		defer stop()

		return autoProtect(ctx, a)
	},
}

func autoProtect(ctx context.Context, a *app.HSApp) error {
	sweeps, err := a.AutoProtect(ctx)
	if err != nil {
		return err
	}
	if len(sweeps) == 0 {
		fmt.Println("No monitored folders.")
		return nil
	}

	failed := 0
	for _, s := range sweeps {
		switch {
		case s.Skipped:
			fmt.Printf("%s: missing, skipped\n", s.Path)
		case s.Err != nil:
			failed++
			fmt.Printf("%s: %v\n", s.Path, s.Err)
		default:
			printSweep(s.Result)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d monitored folder(s) could not be swept", failed)
	}
	return nil
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sweep monitored folders, then protect new files as they appear",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Watch")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext()
		defer stop()

		if err := autoProtect(ctx, a); err != nil {
			return err
		}

		fmt.Println("Watching for new files, press Ctrl-C to stop.")
		return a.Watch(ctx, func(act monitor.Activity) {
			ts := act.Time.Local().Format("15:04:05")
			switch {
			case act.Err != nil:
				fmt.Printf("%s failed    %s: %v\n", ts, act.Path, act.Err)
			case act.Protected == 1:
				fmt.Printf("%s protected %s\n", ts, act.Path)
			default:
				fmt.Printf("%s protected %d files in %s\n", ts, act.Protected, act.Path)
			}
		})
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}
		return printOperations(os.Stdout, ops)
	},
}

// doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the backup root, registry and monitored folders",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Doctor")
		if err != nil {
			return err
		}
		defer a.Close()

		checks, err := a.Doctor()
		if err != nil {
			return err
		}

		failed := 0
		for _, c := range checks {
			if c.Err != nil {
				failed++
				fmt.Printf("FAIL  %s: %v\n", c.Name, c.Err)
				continue
			}
			fmt.Printf("ok    %s\n", c.Name)
		}
		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// monitor subcommands
	monitorCmd.AddCommand(monitorAddCmd)
	monitorCmd.AddCommand(monitorRemoveCmd)
	monitorCmd.AddCommand(monitorListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(protectCmd)
	protectCmd.Flags().BoolP("verbose", "v", false, "Also show already protected and ignored files")
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().String("to-backup", "", "Restore PATH from this backup artifact")
	rootCmd.AddCommand(unprotectCmd)
	unprotectCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(autoprotectCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(doctorCmd)
}
