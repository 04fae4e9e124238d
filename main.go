package main

import (
	"io/ioutil"
	"log"

	"github.com/spf13/cobra"

	"github.com/devkapilbansal/watchstream/internal/app/server"
	"github.com/devkapilbansal/watchstream/internal/pkg/bootstrap"
)

var (
	cfgFile  string
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "watchstream",
		Short: "watches the health of a gRPC service over a self-healing stream",
		Run: func(cmd *cobra.Command, args []string) {
			configFileContent, err := ioutil.ReadFile(cfgFile)
			if err != nil {
				log.Fatal(err)
			}
			config, err := bootstrap.Parse(configFileContent)
			if err != nil {
				log.Fatal(err)
			}

			server.Run(config, logLevel)
		},
	}
)

func main() {
	rootCmd.Flags().StringVarP(&cfgFile, "config-file", "c", "", "path to bootstrap configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "the logging level, overrides the configured level")
	if err := rootCmd.MarkFlagRequired("config-file"); err != nil {
		log.Fatal("Could not mark the config-file flag as required: ", err)
	}
	if err := rootCmd.Execute(); err != nil {
		log.Fatal("Issue parsing command line: ", err)
	}
}
