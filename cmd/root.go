package cmd

import (
	"os"
	"strings"

	"github.com/gadget-bot/amedos/conf"
	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Version: conf.GitVersion,
		Use:     conf.Executable,
		Short:   "amedos posts the current rain radar map into Slack",
		Long: `amedos answers a Slack slash command with the current rain radar map
for a Japanese prefecture. The server acknowledges the command right away and
hands the slow fetch-and-upload work to a backend, which runs either in the
same process or in a separate worker fed through a Redis task queue.`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.OnInitialize(initConfig)
	rootCmd := newRootCmd()
	setupFlags(rootCmd)
	addSubcommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func setupFlags(c *cobra.Command) {
	c.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.amedos.yaml)")
	c.MarkPersistentFlagFilename("config")
}

func addSubcommands(c *cobra.Command) {
	c.AddCommand(newVersionCmd())
	c.AddCommand(newServerCmd())
	c.AddCommand(newWorkerCmd())
}

func initConfig() {
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			println(err.Error())
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigName(".amedos")
	}

	conf.Bind(viper.GetViper())

	readErr := viper.ReadInConfig()
	setupLogging(viper.GetString("log_level"), viper.GetString("log_format"))
	if readErr == nil {
		log.Info().Str("file", viper.ConfigFileUsed()).Msg("Using config file")
	}
}

// loadConfig reads the bound configuration once flags and files are in place.
func loadConfig() conf.Config {
	return conf.Load(viper.GetViper())
}

func setupLogging(level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)

	if strings.EqualFold(format, "console") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
