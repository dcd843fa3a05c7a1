package commands

import (
	"context"
	"log/slog"
	"time"

	"storyweaver-chef/lib/configutil"
	"storyweaver-chef/lib/restyutil"
	"storyweaver-chef/lib/scrapers/africanstorybook"
	"storyweaver-chef/lib/scrapers/storyweaver"
	"storyweaver-chef/lib/serviceutil"
	"storyweaver-chef/lib/telemetry"
	"storyweaver-chef/services/chef"
	"storyweaver-chef/services/chef/db"

	"github.com/dgraph-io/badger/v4"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type Config struct {
	BaseUrl             string `json:"base_url"`
	AfricanStorybookUrl string `json:"african_storybook_url"`
	PageSize            int    `json:"page_size"`
	// directory for the listing-response cache, empty disables it
	CacheDir string `json:"cache_dir"`
	Db       string `json:"db"`
	Out      string `json:"out"`
}

func defaultConfig() Config {
	return Config{
		BaseUrl:             "https://storyweaver.org.in",
		AfricanStorybookUrl: "http://www.africanstorybook.org",
		PageSize:            24,
		Db:                  "chef.db",
		Out:                 "channel_out",
	}
}

var runOut *string

func init() {
	runOut = runCmd.Flags().String("out", "", "Override the configured output directory.")
	rootCmd.AddCommand(runCmd)
}

func readConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("chef.json5")
	if err != nil {
		slog.Info("no chef.json5 found, using defaults")
		return defaultConfig()
	}
	defaults := defaultConfig()
	if cfg.BaseUrl == "" {
		cfg.BaseUrl = defaults.BaseUrl
	}
	if cfg.AfricanStorybookUrl == "" {
		cfg.AfricanStorybookUrl = defaults.AfricanStorybookUrl
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaults.PageSize
	}
	if cfg.Db == "" {
		cfg.Db = defaults.Db
	}
	if cfg.Out == "" {
		cfg.Out = defaults.Out
	}
	return cfg
}

func createClient(ctx context.Context, cfg Config) (*storyweaver.Client, func()) {
	cleanup := func() {}

	var cache *badger.DB
	if cfg.CacheDir != "" {
		var err error
		cache, err = badger.Open(badger.DefaultOptions(cfg.CacheDir).WithLogger(nil))
		if err != nil {
			serviceutil.Fatal("failed to open listing cache", err)
		}
		cleanup = func() { cache.Close() }
	}

	if *verbose {
		storyweaver.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/chef"))
	}

	client, err := storyweaver.NewClient(ctx, storyweaver.ClientOptions{
		BaseUrl:  cfg.BaseUrl,
		PageSize: cfg.PageSize,
		Cache:    cache,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize storyweaver client", err)
	}

	loginCtx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()
	err = client.Login(loginCtx, *loginEmail, *loginPassword)
	if err != nil {
		serviceutil.Fatal("failed to login to storyweaver", err)
	}

	return client, cleanup
}

var runCmd = &cobra.Command{
	Use:   "run [--out <dir>]",
	Short: "Crawls the catalog and writes the channel tree with its documents.",
	Run: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)

		cfg := readConfig()
		if *runOut != "" {
			cfg.Out = *runOut
		}

		ctx := serviceutil.SignalContext()

		client, cleanup := createClient(ctx, cfg)
		defer cleanup()

		database, err := db.Open(cfg.Db)
		if err != nil {
			serviceutil.Fatal("failed to open run-report db", err)
		}
		defer database.Close()

		indexSource, err := africanstorybook.NewClient(africanstorybook.ClientOptions{
			BaseUrl: cfg.AfricanStorybookUrl,
		})
		if err != nil {
			serviceutil.Fatal("failed to initialize african storybook client", err)
		}

		service := chef.Service{
			Client:      client,
			IndexSource: indexSource,
			Store:       db.NewStore(database),
			OutDir:      cfg.Out,
		}

		t1 := time.Now()
		summary, err := service.Run(ctx)
		if err != nil {
			serviceutil.Fatal("run failed", err)
		}
		t2 := time.Now()

		printSummary(summary)
		slog.Info("crawl time", "seconds", t2.Sub(t1).Seconds())
	},
}

func printSummary(summary chef.Summary) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(rootCmd.OutOrStdout())
	t.AppendHeader(table.Row{"category", "crawled", "emitted", "skipped"})
	for _, c := range summary.Categories {
		t.AppendRow(table.Row{c.Category, c.Crawled, c.Emitted, c.Skipped})
	}
	t.Render()
}
