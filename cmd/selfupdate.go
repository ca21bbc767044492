package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/creativeprojects/mailmock/term"
	"github.com/spf13/cobra"
)

// release assets are named mailmock_<version>_<os>_<arch>, next to a checksums file
const (
	releaseOwner    = "creativeprojects"
	releaseName     = "mailmock"
	releaseChecksum = "checksums.txt"
	releaseTimeout  = 30 * time.Second
)

type selfUpdateFlags struct {
	dryRun bool
	force  bool
}

var (
	selfUpdateCmd = &cobra.Command{
		Use:   "selfupdate",
		Short: "Replace mailmock with the latest release from github",
		RunE:  runSelfUpdate,
	}
	selfUpdateOptions selfUpdateFlags
)

func init() {
	rootCmd.AddCommand(selfUpdateCmd)
	flags := selfUpdateCmd.Flags()
	flags.BoolVar(&selfUpdateOptions.dryRun, "dry-run", false, "only display the release that would be installed")
	flags.BoolVar(&selfUpdateOptions.force, "force", false, "also replace a development build")
}

func newUpdater(validate bool) (*selfupdate.Updater, error) {
	if global.verbose {
		selfupdate.SetLogger(log.Default())
	}
	config := selfupdate.Config{
		Filters: []string{"^" + releaseName + "_"},
	}
	if validate {
		config.Validator = &selfupdate.ChecksumValidator{UniqueFilename: releaseChecksum}
	}
	return selfupdate.NewUpdater(config)
}

// latestRelease returns nil when no asset matches this platform
func latestRelease(updater *selfupdate.Updater) (*selfupdate.Release, error) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	latest, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(releaseOwner, releaseName))
	if err != nil {
		return nil, fmt.Errorf("unable to detect latest version: %w", err)
	}
	if !found {
		return nil, nil
	}
	return latest, nil
}

func runSelfUpdate(cmd *cobra.Command, args []string) error {
	if appVersion == "" && !selfUpdateOptions.force {
		return errors.New("this is a development build: use --force to replace it with a release")
	}
	updater, err := newUpdater(true)
	if err != nil {
		return err
	}
	latest, err := latestRelease(updater)
	if err != nil {
		return err
	}
	if latest == nil {
		return fmt.Errorf("no %s release found for %s/%s", releaseName, runtime.GOOS, runtime.GOARCH)
	}
	if appVersion != "" && latest.LessOrEqual(appVersion) {
		term.Infof("current version %s is the latest", appVersion)
		return nil
	}
	if selfUpdateOptions.dryRun {
		term.Infof("would install version %s from %s", latest.Version(), latest.AssetName)
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return errors.New("could not locate executable path")
	}
	if err := updater.UpdateTo(context.Background(), latest, exe); err != nil {
		return fmt.Errorf("unable to update binary: %w", err)
	}
	term.Infof("successfully updated to version %s", latest.Version())
	return nil
}
