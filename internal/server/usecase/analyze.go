// Package usecase содержит бизнес-логику HTTP-сервера: полный прогон
// пайплайна анализа над загруженным файлом экспорта.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"telegram-chat-analyzer/internal/cache"
	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/pkg/config"
	"telegram-chat-analyzer/internal/pkg/exportfile"
	"telegram-chat-analyzer/internal/ports"
)

// AnalyzeChatUseCase инкапсулирует бизнес-логику анализа файла экспорта чата.
type AnalyzeChatUseCase struct {
	cfg        *config.Config
	parser     ports.Parser
	normalizer ports.Normalizer
	aggregates ports.AggregateBuilder
	social     ports.SocialGraphBuilder
	cacheStore *cache.CacheStore
}

// NewAnalyzeChatUseCase создает новый экземпляр AnalyzeChatUseCase.
func NewAnalyzeChatUseCase(
	cfg *config.Config,
	parser ports.Parser,
	normalizer ports.Normalizer,
	aggregates ports.AggregateBuilder,
	social ports.SocialGraphBuilder,
	cacheStore *cache.CacheStore,
) *AnalyzeChatUseCase {
	return &AnalyzeChatUseCase{
		cfg:        cfg,
		parser:     parser,
		normalizer: normalizer,
		aggregates: aggregates,
		social:     social,
		cacheStore: cacheStore,
	}
}

// AnalyzeChat прогоняет один файл экспорта через весь пайплайн:
// парсинг, нормализация, агрегаты и социальный граф.
// Результат кешируется по хешу содержимого файла.
func (uc *AnalyzeChatUseCase) AnalyzeChat(ctx context.Context, filePath string, data []byte) (*domain.AnalysisResult, error) {
	fileHash, err := cache.CalculateFileHash(filePath)
	if err != nil {
		return nil, fmt.Errorf("не удалось вычислить хеш файла %s: %w", filePath, err)
	}

	if cachedItem, found := uc.cacheStore.Get(fileHash); found {
		slog.Info("Попадание в кеш для файла", "hash", fileHash)
		return cachedItem.Data, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := uc.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("не удалось разобрать данные из %s: %w", filePath, err)
	}
	slog.Info("Разобран экспорт", "path", filePath, "message_count", len(raw.Messages))

	shift, _ := exportfile.ParseShift(filePath)
	export, err := uc.normalizer.Normalize(raw, shift)
	if err != nil {
		return nil, fmt.Errorf("не удалось нормализовать экспорт %s: %w", filePath, err)
	}
	slog.Info("Экспорт нормализован", "path", filePath, "shift_hours", shift)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := domain.SourceRef{Path: filePath, Name: filepath.Base(filePath)}

	aggReport, err := uc.aggregates.Build(export, src)
	if err != nil {
		return nil, fmt.Errorf("не удалось построить агрегаты: %w", err)
	}

	socialReport, err := uc.social.Build(export, src)
	if err != nil {
		return nil, fmt.Errorf("не удалось построить социальный граф: %w", err)
	}

	result := &domain.AnalysisResult{
		Aggregates:  aggReport,
		SocialGraph: socialReport,
	}

	ttl := time.Duration(uc.cfg.Processing.CacheTTLMinutes) * time.Minute
	uc.cacheStore.Put(fileHash, result, ttl)
	slog.Info("Результат кеширован", "hash", fileHash, "ttl", ttl.String())

	return result, nil
}
