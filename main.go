package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohitkumar/conveyor/agent"
	"github.com/mohitkumar/conveyor/analytics"
	"github.com/mohitkumar/conveyor/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "conveyor", "namespace used in storage")
	cmd.Flags().String("redis-password", "", "redis password")
	cmd.Flags().Int("redis-pool-size", 0, "redis connection pool size, 0 uses the client default")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "redis", "implementation of underline storage")
	cmd.Flags().Int("slot-count", 4, "number of execution slots for jobs")
	cmd.Flags().Int("max-parallel-jobs", 0, "max jobs dispatched per run, 0 means unbounded")
	cmd.Flags().Int("slot-wait-seconds", 0, "seconds a dispatched job waits for a slot before failing, 0 waits forever")
	cmd.Flags().Int("archive-retention-hours", 168, "hours a finished run report is kept")
	cmd.Flags().Bool("log-debug", false, "debug logging with console encoding")
	cmd.Flags().String("analytics-impl", "noop", "run data collector implementation, log or noop")
	cmd.Flags().String("analytics-file", "conveyor-runs.log", "file the log collector writes to")
	cmd.Flags().Int("collector-capacity", 256, "record collector buffer capacity")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.RedisConfig.Password = viper.GetString("redis-password")
	c.cfg.RedisConfig.PoolSize = viper.GetInt("redis-pool-size")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.SlotCount = viper.GetInt("slot-count")
	c.cfg.MaxParallelJobs = viper.GetInt("max-parallel-jobs")
	c.cfg.SlotWaitSeconds = viper.GetInt("slot-wait-seconds")
	c.cfg.ArchiveRetentionHours = viper.GetInt("archive-retention-hours")
	c.cfg.LogDebug = viper.GetBool("log-debug")
	if viper.GetString("analytics-impl") == "log" {
		c.cfg.AnalyticsConfig.CollectorType = analytics.LOG_FILE_DATA_COLLECTOR
	} else {
		c.cfg.AnalyticsConfig.CollectorType = analytics.NOOP_DATA_COLLECTOR
	}
	c.cfg.AnalyticsConfig.FileName = viper.GetString("analytics-file")
	c.cfg.AnalyticsConfig.Capacity = viper.GetInt("collector-capacity")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	var err error
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		panic(err)
	}
	err = agent.Start()
	if err != nil {
		panic(err)
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "conveyor",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
