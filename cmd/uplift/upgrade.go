package main

import (
	"github.com/felixgeelhaar/uplift/internal/ports"
	"github.com/spf13/cobra"
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade <solution-or-project>",
	Short: "Upgrade a solution or project to the target framework",
	Long: `Upgrade walks the projects reachable from the entry points in dependency
order. For each project it checks readiness, backs it up, converts it to SDK
style, retargets it, updates its references and fixes known source issues.

Run it again after a failure: finished projects are recognized and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpgrade,
}

var (
	upgradeSkipBackup        bool
	upgradeBackupDir         string
	upgradeIgnoreUnsupported bool
	upgradeAcknowledge       bool
	upgradeNonInteractive    bool
	upgradeBlockOnFailure    bool
)

func init() {
	rootCmd.AddCommand(upgradeCmd)

	upgradeCmd.Flags().BoolVar(&upgradeSkipBackup, "skip-backup", false, "do not back up projects before changing them")
	upgradeCmd.Flags().StringVar(&upgradeBackupDir, "backup-dir", "", "directory for backups (default: next to each project)")
	upgradeCmd.Flags().BoolVar(&upgradeIgnoreUnsupported, "ignore-unsupported", false, "upgrade projects that use unsupported technologies")
	upgradeCmd.Flags().BoolVar(&upgradeAcknowledge, "acknowledge", false, "accept readiness findings that can be bypassed")
	upgradeCmd.Flags().BoolVarP(&upgradeNonInteractive, "non-interactive", "y", false, "apply every step without asking")
	upgradeCmd.Flags().BoolVar(&upgradeBlockOnFailure, "block-on-failure", false, "stop at the first failed step")
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	u, opts, done, err := setup(cmd)
	if err != nil {
		return err
	}
	defer done()

	flags := cmd.Flags()
	if flags.Changed("skip-backup") {
		opts.SkipBackup = upgradeSkipBackup
	}
	if flags.Changed("backup-dir") {
		opts.BackupDir = ports.ExpandPath(upgradeBackupDir)
	}
	if flags.Changed("ignore-unsupported") {
		opts.IgnoreUnsupported = upgradeIgnoreUnsupported
	}
	if flags.Changed("acknowledge") {
		opts.Acknowledge = upgradeAcknowledge
	}
	if flags.Changed("non-interactive") {
		opts.NonInteractive = upgradeNonInteractive
	}
	if flags.Changed("block-on-failure") {
		opts.BlockOnFailure = upgradeBlockOnFailure
	}

	return u.Upgrade(cmd.Context(), ports.ExpandPath(args[0]), opts)
}
