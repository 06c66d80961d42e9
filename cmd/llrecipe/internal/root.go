package internal

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flagVerbose bool
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "llrecipe",
	Short: "llrecipe builds and packages native C/C++ libraries",
	Long: `llrecipe builds native C/C++ libraries from a recipe descriptor,
stages the artifacts into a package folder and publishes it to the local
package store, where other recipes can depend on it.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.InfoLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Profile file (default: profile.{yaml,toml,json} in the work directory)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
