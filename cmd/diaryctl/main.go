package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/user/filmdiary/internal/config"
	"github.com/user/filmdiary/internal/logging"
	"github.com/user/filmdiary/internal/repository"
	"github.com/user/filmdiary/internal/service"
)

var (
	cfg     *config.Config
	backend string
	dataDir string
	key     string

	// openStorage 测试中替换
	openStorage = repository.OpenStorage
)

func main() {
	_ = godotenv.Load()
	cfg = config.Load()
	logging.Init(logging.Config{Level: "warn", Format: "console"})

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "diaryctl",
		Short:        "Manage the film diary document (stop the server first when using badger)",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&backend, "backend", cfg.StorageBackend, "storage backend: badger, postgres or memory")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", cfg.DataDir, "data directory for badger")
	rootCmd.PersistentFlags().StringVar(&key, "key", cfg.StorageKey, "storage key of the user document")

	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(diaryCmd())
	rootCmd.AddCommand(listsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	return rootCmd
}

// openStore 打开存储并加载文档，调用方负责 close
func openStore(ctx context.Context) (*service.DiaryStore, func(), error) {
	storage, err := openStorage(backend, dataDir, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	repos := repository.NewRepositories(storage, key)
	notifier := service.NewNotifier(1)
	// 命令行退出后内存状态随之消失，写失败必须报告
	store := service.NewDiaryStore(repos.Document, notifier, service.WithPersistErrors())

	closeFn := func() {
		notifier.Close()
		if err := repos.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close storage: %v\n", err)
		}
	}
	if err := store.Load(ctx); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("load document: %w", err)
	}
	return store, closeFn, nil
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write demo diary entries and ratings when no document is stored yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			seeded, err := store.Seed(cmd.Context(), service.DemoDocument(time.Now()))
			if err != nil {
				return err
			}
			if !seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "document already exists, nothing seeded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %q with demo data\n", key)
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	var enrich bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print dashboard statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			entries := store.Snapshot().Watchlist
			if enrich {
				tmdb := service.NewTMDBClient(cfg)
				if !tmdb.Configured() {
					return fmt.Errorf("--enrich requires TMDB_API_KEY")
				}
				entries = service.NewEnricher(tmdb, cfg.TMDBRateLimit).Enrich(cmd.Context(), entries)
			}

			stats := service.ComputeStats(entries)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Movies:     %d\n", stats.TotalMovies)
			fmt.Fprintf(out, "Hours:      %.1f\n", stats.TotalHours)
			fmt.Fprintf(out, "Avg rating: %.1f\n", stats.AvgRating)
			for _, g := range stats.GenreData {
				fmt.Fprintf(out, "  %-16s %d\n", g.Name, g.Value)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&enrich, "enrich", false, "fill missing runtime and genres from TMDB")
	return cmd
}

func diaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diary",
		Short: "Print the diary, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, row := range service.BuildDiary(store.Snapshot().Watchlist) {
				month := ""
				if row.ShowMonth {
					month = row.MonthLabel
				}
				liked := ""
				if row.Entry.Liked {
					liked = "♥"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					month, row.Day, row.Entry.Title, row.Entry.Year,
					strconv.FormatFloat(row.Entry.Rating, 'f', -1, 64), liked)
			}
			return w.Flush()
		},
	}
}

func listsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "Print custom lists, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, s := range service.SummarizeLists(store.Lists()) {
				fmt.Fprintf(w, "%s\t%d movies\t%s\t%s\n",
					s.Name, s.Count, s.CreatedAt.Format(time.DateOnly), s.Description)
			}
			return w.Flush()
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the whole document as JSON (stdout when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			data, err := json.MarshalIndent(store.Snapshot(), "", "  ")
			if err != nil {
				return err
			}
			data = append(data, '\n')

			if len(args) == 0 {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(args[0], data, 0o644)
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored document with a JSON export (legacy list shapes accepted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			doc, err := repository.Decode(data)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			store, closeFn, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := store.Replace(cmd.Context(), doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries, %d ratings, %d lists\n",
				len(doc.Watchlist), len(doc.Ratings), len(doc.CustomLists))
			return nil
		},
	}
}

// readInput "-" 表示标准输入
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
