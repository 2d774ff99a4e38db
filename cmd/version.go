package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/spigell/offres-filter/cmd.version=...".
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionString(buildInfo()))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

type build struct {
	version  string
	revision string
	modified bool
	goVer    string
}

func buildInfo() build {
	b := build{version: version, goVer: runtime.Version()}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	if b.version == "unknown" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		b.version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			b.revision = s.Value
		case "vcs.modified":
			b.modified = s.Value == "true"
		}
	}
	return b
}

func versionString(b build) string {
	out := fmt.Sprintf("%s version: %s", app, b.version)
	if b.revision != "" {
		rev := b.revision
		if len(rev) > 12 {
			rev = rev[:12]
		}
		if b.modified {
			rev += "-dirty"
		}
		out += fmt.Sprintf(" (commit %s)", rev)
	}
	return out + fmt.Sprintf(" %s", b.goVer)
}
