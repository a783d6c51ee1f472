// Command seeder import the sample data of _data into the database, or
// destroy it.
//
//	seeder import --dir _data
//	seeder destroy
//	seeder -i | seeder -d
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/olekukonko/tablewriter"
	"github.com/saba2003/devcamper-api/config"
	"github.com/saba2003/devcamper-api/dependencies"
	"github.com/saba2003/devcamper-api/dependencies/database"
	"github.com/saba2003/devcamper-api/log"
	"github.com/saba2003/devcamper-api/service"
	"github.com/spf13/cobra"

	_ "github.com/saba2003/devcamper-api/dependencies/broker/kafka"
	_ "github.com/saba2003/devcamper-api/dependencies/broker/memory"
	_ "github.com/saba2003/devcamper-api/dependencies/database/mock"
	_ "github.com/saba2003/devcamper-api/dependencies/mongo"
	_ "github.com/saba2003/devcamper-api/dependencies/sql"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config the part of the server config the seeder needs
type Config struct {
	Log          log.Config           `yaml:"log"`
	Dependencies service.Dependencies `yaml:"dependencies"`
	Service      service.Config       `yaml:"service"`
}

var (
	configURI string
	dataDir   string
	legacyI   bool
	legacyD   bool
)

var rootCmd = &cobra.Command{
	Use:          "seeder",
	Short:        "Import or destroy the DevCamper sample data",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case legacyI:
			return runImport(cmd.Context())
		case legacyD:
			return runDestroy(cmd.Context())
		}
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configURI, "config", "c", "configs/config.yaml", "uri to load config")
	rootCmd.Flags().BoolVarP(&legacyI, "import", "i", false, "import the data")
	rootCmd.Flags().BoolVarP(&legacyD, "destroy", "d", false, "destroy the data")
	rootCmd.Flags().StringVar(&dataDir, "dir", "_data", "directory of the json files")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import the json files into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context())
		},
	}
	importCmd.Flags().StringVar(&dataDir, "dir", "_data", "directory of the json files")

	destroyCmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete every document of the seeded collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDestroy(cmd.Context())
		},
	}
	rootCmd.AddCommand(importCmd, destroyCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServer(ctx context.Context) (*service.Server, error) {
	var cfg Config
	if err := config.Init(ctx, configURI, &cfg, dependencies.WithNewFns(database.New)); err != nil {
		return nil, err
	}
	return service.New(ctx, &cfg.Dependencies, &cfg.Service)
}

func runImport(ctx context.Context) error {
	data, err := readData(dataDir)
	if err != nil {
		return err
	}
	srv, err := newServer(ctx)
	if err != nil {
		return err
	}
	if _, err = srv.Seed(ctx, data); err != nil {
		return err
	}
	color.New(color.FgGreen, color.ReverseVideo).Println("Data Imported...")
	return printCounts(ctx, srv)
}

func runDestroy(ctx context.Context) error {
	srv, err := newServer(ctx)
	if err != nil {
		return err
	}
	if _, err = srv.Destroy(ctx); err != nil {
		return err
	}
	color.New(color.FgRed, color.ReverseVideo).Println("Data Destroyed...")
	return printCounts(ctx, srv)
}

// readData the <collection>.json files of dir, a missing file is skipped
func readData(dir string) (map[string][]database.M, error) {
	data := make(map[string][]database.M, len(service.SeedOrder))
	for _, table := range service.SeedOrder {
		b, err := os.ReadFile(filepath.Join(dir, table+".json"))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var docs []database.M
		if err = json.Unmarshal(b, &docs); err != nil {
			return nil, fmt.Errorf("parse %s.json: %w", table, err)
		}
		data[table] = docs
	}
	return data, nil
}

func printCounts(ctx context.Context, srv *service.Server) error {
	counts, err := srv.Counts(ctx)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Collection", "Documents"})
	for _, name := range service.SeedOrder {
		table.Append([]string{name, strconv.FormatInt(counts[name], 10)})
	}
	table.Render()
	return nil
}
