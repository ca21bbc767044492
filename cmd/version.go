package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	appVersion = ""
	appCommit  = ""
	appDate    = ""
	appBuiltBy = ""
)

func setApp(version, commit, date, builtBy string) {
	appVersion = version
	appCommit = commit
	appDate = date
	appBuiltBy = builtBy
}

var (
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Display the version, and optionally look for a newer release",
		RunE:  runVersion,
	}
	versionCheck bool
)

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "look for a newer release on github")
}

func runVersion(cmd *cobra.Command, args []string) error {
	fmt.Printf("mailmock %s compiled with %s on %s/%s\n", displayVersion(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if appCommit != "" {
		fmt.Printf("commit %s built on %s by %s\n", appCommit, appDate, appBuiltBy)
	}
	if !versionCheck {
		return nil
	}
	updater, err := newUpdater(false)
	if err != nil {
		return err
	}
	latest, err := latestRelease(updater)
	if err != nil {
		return err
	}
	if latest == nil || latest.LessOrEqual(displayVersion()) {
		fmt.Println("no newer release")
		return nil
	}
	fmt.Printf("version %s is available\n", latest.Version())
	return nil
}

func displayVersion() string {
	if appVersion == "" {
		return "0.0.0-dev"
	}
	return appVersion
}
