// Package server реализует HTTP-интерфейс анализатора: загрузка файла
// экспорта, асинхронные задачи анализа и выдача результатов.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"telegram-chat-analyzer/internal/cache"
	"telegram-chat-analyzer/internal/domain"
	"telegram-chat-analyzer/internal/pkg/config"
)

// ChatAnalyzer определяет интерфейс варианта использования, который анализирует экспорт.
type ChatAnalyzer interface {
	AnalyzeChat(ctx context.Context, filePath string, data []byte) (*domain.AnalysisResult, error)
}

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	taskStore  *TaskStore
	cacheStore *cache.CacheStore
	analyzer   ChatAnalyzer
}

// New создает новый экземпляр Server
func New(cfg *config.Config, analyzer ChatAnalyzer, taskStore *TaskStore, cacheStore *cache.CacheStore) (*Server, error) {
	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(middleware.Logger)
	chiRouter.Use(middleware.Recoverer)

	// Конечная точка для проверки работоспособности
	chiRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
		})
	})

	maxUpload := int64(cfg.Server.MaxUploadSizeMB) << 20
	taskTTL := time.Duration(cfg.Processing.TaskTTLMinutes) * time.Minute

	// Маршруты API
	chiRouter.Route("/api/v1", func(r chi.Router) {
		// Конечная точка для запуска новой задачи анализа
		r.Post("/analyze", func(w http.ResponseWriter, r *http.Request) {
			// Разбор мультипарт-формы
			if err := r.ParseMultipartForm(maxUpload); err != nil {
				http.Error(w, "Не удалось разобрать форму", http.StatusBadRequest)
				return
			}

			file, header, err := r.FormFile("file")
			if err != nil {
				http.Error(w, "Не удалось получить файл из формы", http.StatusBadRequest)
				return
			}
			defer file.Close()

			// Генерация уникального идентификатора задачи
			taskID := uuid.NewString()

			// Временный файл сохраняет исходное имя загрузки: из него
			// читается часовой сдвиг вида export[+3].json.
			tempDir, err := os.MkdirTemp("", "chat-analyzer-")
			if err != nil {
				http.Error(w, "Не удалось создать временный каталог", http.StatusInternalServerError)
				return
			}
			uploadName := filepath.Base(header.Filename)
			if uploadName == "" || uploadName == "." {
				uploadName = fmt.Sprintf("chat_%s.json", taskID)
			}
			tempFilePath := filepath.Join(tempDir, uploadName)

			out, err := os.Create(tempFilePath)
			if err != nil {
				http.Error(w, "Не удалось создать временный файл", http.StatusInternalServerError)
				return
			}

			if _, err := io.Copy(out, file); err != nil {
				out.Close()
				http.Error(w, "Не удалось сохранить загруженный файл", http.StatusInternalServerError)
				return
			}
			out.Close()

			slog.Info("Получен файл экспорта", "task_id", taskID, "file_name", uploadName)

			// Создание задачи в хранилище
			taskStore.CreateTask(taskID, taskTTL)

			// Запуск анализа в горутине
			go func() {
				defer os.RemoveAll(tempDir)

				taskStore.UpdateTaskStatus(taskID, TaskStatusProcessing)

				data, err := os.ReadFile(tempFilePath)
				if err != nil {
					taskStore.UpdateTaskError(taskID, err.Error())
					return
				}

				result, err := analyzer.AnalyzeChat(context.Background(), tempFilePath, data)
				if err != nil {
					slog.Error("Анализ завершился ошибкой", "task_id", taskID, "error", err)
					taskStore.UpdateTaskError(taskID, err.Error())
					return
				}

				taskStore.UpdateTaskResult(taskID, result)
				slog.Info("Анализ завершен", "task_id", taskID)
			}()

			// Возврат идентификатора задачи
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"task_id": taskID})
		})

		// Конечная точка для проверки статуса задачи
		r.Get("/tasks/{taskID}", func(w http.ResponseWriter, r *http.Request) {
			taskID := chi.URLParam(r, "taskID")

			task, err := taskStore.GetTask(taskID)
			if err != nil {
				http.Error(w, "Задача не найдена", http.StatusNotFound)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"task_id":       task.ID,
				"status":        task.Status,
				"error_message": task.ErrorMessage,
			})
		})

		// Конечная точка для получения результата задачи
		r.Get("/tasks/{taskID}/result", func(w http.ResponseWriter, r *http.Request) {
			taskID := chi.URLParam(r, "taskID")

			task, err := taskStore.GetTask(taskID)
			if err != nil {
				http.Error(w, "Задача не найдена", http.StatusNotFound)
				return
			}

			if task.Status != TaskStatusCompleted {
				http.Error(w, "Задача не завершена", http.StatusBadRequest)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			enc := json.NewEncoder(w)
			enc.SetEscapeHTML(false)
			enc.Encode(task.Result)
		})
	})

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      chiRouter,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s := &Server{
		HTTPServer: httpServer,
		cfg:        cfg,
		taskStore:  taskStore,
		cacheStore: cacheStore,
		analyzer:   analyzer,
	}

	// Тикеры очистки просроченных задач и элементов кеша
	ctx := context.Background()
	s.taskStore.StartCleanupTicker(ctx, 1*time.Hour)
	s.cacheStore.StartCleanupTicker(ctx, 1*time.Hour)

	return s, nil
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно завершает работу HTTP-сервера
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Завершение работы HTTP-сервера")
	return s.HTTPServer.Shutdown(ctx)
}
