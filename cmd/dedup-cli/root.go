package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dedupserver/database"
	"dedupserver/importer"
	"dedupserver/internal/config"
	dedupdomain "dedupserver/internal/domain/dedup"
	"dedupserver/internal/infrastructure/cache"
	"dedupserver/internal/infrastructure/persistence"
	"dedupserver/internal/infrastructure/workers"
	"dedupserver/normalization"
)

type commandContext struct {
	dbPath   string
	logLevel string
	jsonOut  bool
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	root := &cobra.Command{
		Use:           "dedup-cli",
		Short:         "Duplicate detection and audit for beneficiary lists",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&ctx.dbPath, "db", "", "Rules database path (default: RULES_DATABASE_PATH or dedup.db)")
	root.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "WARN", "Log level: DEBUG, INFO, WARN, ERROR")
	root.PersistentFlags().BoolVar(&ctx.jsonOut, "json", false, "Print results as JSON")

	root.AddCommand(newResolveCommand(ctx))
	root.AddCommand(newAuditCommand(ctx))
	root.AddCommand(newRulesCommand(ctx))

	return root
}

// engine компоненты поиска дублей, собранные в процессе CLI
type engine struct {
	db      *database.RulesDB
	runner  *workers.Runner
	service dedupdomain.Service
}

func (c *commandContext) openEngine(stderr io.Writer) (*engine, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if c.dbPath != "" {
		cfg.RulesDatabasePath = c.dbPath
	}

	level, err := config.ParseLogLevel(c.logLevel)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	db, err := database.NewRulesDBWithConfig(cfg.RulesDatabasePath, database.DBConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	settings := dedupdomain.DefaultSettings()
	settings.MatchThreshold = cfg.Matching.MatchThreshold
	settings.HighSimilarityThreshold = cfg.Matching.HighSimilarityThreshold
	settings.HusbandVariantThreshold = cfg.Matching.HusbandVariantThreshold
	settings.Weights.Family = cfg.Matching.WeightFamily
	settings.Weights.OrderFree = cfg.Matching.WeightOrderFree
	settings.Weights.Phone = cfg.Matching.WeightPhone
	settings.Weights.Children = cfg.Matching.WeightChildren
	settings.BlockingMinRecords = cfg.Matching.BlockingMinRecords
	settings.OrderFreeExactLimit = cfg.Matching.OrderFreeExactLimit

	runner := workers.NewRunner(cfg.RunEventsBufferSize, cfg.RunRetention, logger)
	// сессия CLI живет только в памяти процесса
	sessions := cache.NewSessionCache(nil, 0)
	service := dedupdomain.NewService(sessions, persistence.NewRuleRepository(db), runner, settings, logger)

	return &engine{db: db, runner: runner, service: service}, nil
}

func (e *engine) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(e.runner.Shutdown(ctx), e.db.Close())
}

// loadSession разбирает файл и создает из него сессию
func (e *engine) loadSession(ctx context.Context, path string, mapping normalization.FieldMapping) (*dedupdomain.SessionInfo, error) {
	table, err := importer.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return e.service.CreateSession(ctx, dedupdomain.CreateSessionRequest{
		Source:  path,
		Records: table.Records,
		Mapping: mapping,
	})
}

// await печатает прогресс запуска и ждет терминального сообщения
func await(ctx context.Context, run *workers.Run, progress io.Writer) (workers.Status, error) {
	messages := run.Messages()
	cancelled := false
	for {
		select {
		case <-ctx.Done():
			if !cancelled {
				run.Cancel()
				cancelled = true
			}
			ctx = context.Background()
		case msg, ok := <-messages:
			if !ok {
				fmt.Fprintln(progress)
				status := run.Status()
				if status.State == workers.StateError {
					return status, fmt.Errorf("%s run failed: %s", run.Kind, status.Error)
				}
				return status, nil
			}
			fmt.Fprintf(progress, "\r%s: %3.0f%%", run.Kind, msg.Progress)
		}
	}
}

type mappingFlags struct {
	woman    string
	husband  string
	nationID string
	phone    string
	village  string
	children string
}

func addMappingFlags(cmd *cobra.Command, m *mappingFlags) {
	cmd.Flags().StringVar(&m.woman, "woman", "", "Column with the woman's full name (required)")
	cmd.Flags().StringVar(&m.husband, "husband", "", "Column with the husband's full name")
	cmd.Flags().StringVar(&m.nationID, "id", "", "Column with the national id")
	cmd.Flags().StringVar(&m.phone, "phone", "", "Column with the phone number")
	cmd.Flags().StringVar(&m.village, "village", "", "Column with the village")
	cmd.Flags().StringVar(&m.children, "children", "", "Column with children names")
	_ = cmd.MarkFlagRequired("woman")
}

func (m mappingFlags) mapping() normalization.FieldMapping {
	return normalization.FieldMapping{
		WomanName:   strings.TrimSpace(m.woman),
		HusbandName: strings.TrimSpace(m.husband),
		NationalID:  strings.TrimSpace(m.nationID),
		Phone:       strings.TrimSpace(m.phone),
		Village:     strings.TrimSpace(m.village),
		Children:    strings.TrimSpace(m.children),
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
