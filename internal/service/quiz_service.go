package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/somaedu/soma-backend/internal/attempt"
	"github.com/somaedu/soma-backend/internal/config"
	"github.com/somaedu/soma-backend/internal/model"
	"github.com/somaedu/soma-backend/internal/repository"
	"github.com/somaedu/soma-backend/internal/response"
)

// Domain Errors
var (
	ErrNotQuizOwner     = errors.New("not the owner of this quiz")
	ErrNoQuestions      = errors.New("quiz has no questions, cannot publish")
	ErrQuizNotDraft     = errors.New("quiz status is not DRAFT")
	ErrQuizNotPublished = errors.New("quiz status is not PUBLISHED")
	ErrBadAnswerKey     = errors.New("correct option must be one of the question's options")
)

// QuizService handles quiz business logic and Redis caching. It also serves
// published quizzes to exam clients, so it doubles as the attempt package's
// question source.
type QuizService struct {
	quizRepo     *repository.QuizRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewQuizService creates a new QuizService.
func NewQuizService(
	quizRepo *repository.QuizRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *QuizService {
	return &QuizService{
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "quiz_service").Logger(),
	}
}

// GetByID retrieves a quiz by its UUID.
func (s *QuizService) GetByID(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	return s.quizRepo.GetByID(ctx, id)
}

// ListByTutor retrieves quizzes, filtered by tutor if not super-admin.
func (s *QuizService) ListByTutor(ctx context.Context, tutorID, page, perPage int) ([]model.Quiz, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	quizzes, total, err := s.quizRepo.ListByTutorPaginated(ctx, tutorID, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if quizzes == nil {
		quizzes = []model.Quiz{}
	}

	totalPages := (total + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}

	return quizzes, pagination, nil
}

// Create inserts a new quiz as DRAFT.
func (s *QuizService) Create(ctx context.Context, quiz *model.Quiz) error {
	quiz.Status = model.QuizStatusDraft
	quiz.PINRequired = quiz.PIN != ""
	return s.quizRepo.Create(ctx, quiz)
}

// Update modifies an existing draft quiz.
func (s *QuizService) Update(ctx context.Context, tutorID int, quiz *model.Quiz) error {
	existing, err := s.quizRepo.GetByID(ctx, quiz.ID)
	if err != nil {
		return err
	}
	if tutorID != 0 && existing.TutorID != tutorID {
		return ErrNotQuizOwner
	}
	if existing.Status != model.QuizStatusDraft {
		return ErrQuizNotDraft
	}
	quiz.PINRequired = quiz.PIN != ""
	return s.quizRepo.Update(ctx, quiz)
}

// Delete removes a draft quiz.
func (s *QuizService) Delete(ctx context.Context, id uuid.UUID, tutorID int) error {
	existing, err := s.quizRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if tutorID != 0 && existing.TutorID != tutorID {
		return ErrNotQuizOwner
	}
	if existing.Status != model.QuizStatusDraft {
		return ErrQuizNotDraft
	}
	return s.quizRepo.Delete(ctx, id)
}

// AddQuestion appends a question to a draft quiz.
func (s *QuizService) AddQuestion(ctx context.Context, tutorID int, quizID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error) {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if tutorID != 0 && quiz.TutorID != tutorID {
		return nil, ErrNotQuizOwner
	}
	if quiz.Status != model.QuizStatusDraft {
		return nil, ErrQuizNotDraft
	}
	if !containsOption(req.Options, req.CorrectOption) {
		return nil, ErrBadAnswerKey
	}

	q := &model.Question{
		QuizID:        quizID,
		Prompt:        req.Prompt,
		Options:       req.Options,
		CorrectOption: req.CorrectOption,
		Marks:         req.Marks,
		ImageURL:      req.ImageURL,
		OrderNum:      req.OrderNum,
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// ReplaceQuestions swaps a draft quiz's entire question set.
func (s *QuizService) ReplaceQuestions(ctx context.Context, tutorID int, quizID uuid.UUID, req *model.ReplaceQuestionsRequest) error {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return err
	}
	if tutorID != 0 && quiz.TutorID != tutorID {
		return ErrNotQuizOwner
	}
	if quiz.Status != model.QuizStatusDraft {
		return ErrQuizNotDraft
	}

	questions := make([]model.Question, len(req.Questions))
	for i, qr := range req.Questions {
		if !containsOption(qr.Options, qr.CorrectOption) {
			return fmt.Errorf("question %d: %w", i, ErrBadAnswerKey)
		}
		questions[i] = model.Question{
			QuizID:        quizID,
			Prompt:        qr.Prompt,
			Options:       qr.Options,
			CorrectOption: qr.CorrectOption,
			Marks:         qr.Marks,
			ImageURL:      qr.ImageURL,
			OrderNum:      qr.OrderNum,
		}
		if questions[i].OrderNum == 0 {
			questions[i].OrderNum = i + 1
		}
	}
	return s.questionRepo.ReplaceAll(ctx, quizID, questions)
}

// ListQuestions retrieves a quiz's questions with answer keys (tutor view).
func (s *QuizService) ListQuestions(ctx context.Context, tutorID int, quizID uuid.UUID) ([]model.Question, error) {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if tutorID != 0 && quiz.TutorID != tutorID {
		return nil, ErrNotQuizOwner
	}
	questions, err := s.questionRepo.ListByQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return questions, nil
}

// Publish changes quiz status to PUBLISHED and caches the payload + answer
// key in Redis. Exam clients are served entirely from this cache.
func (s *QuizService) Publish(ctx context.Context, quizID uuid.UUID, tutorID int) error {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return fmt.Errorf("get quiz: %w", err)
	}

	if tutorID != 0 && quiz.TutorID != tutorID {
		return ErrNotQuizOwner
	}
	if quiz.Status != model.QuizStatusDraft {
		return ErrQuizNotDraft
	}

	// Prewarm cache for this quiz.
	if err := s.WarmQuizCache(ctx, quiz); err != nil {
		return err
	}

	// Update status in PostgreSQL.
	if err := s.quizRepo.UpdateStatus(ctx, quizID, model.QuizStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("quiz_id", quizID.String()).Msg("Quiz published")
	return nil
}

// Archive retires a published quiz and drops its cache entries so no new
// attempts can start against it.
func (s *QuizService) Archive(ctx context.Context, quizID uuid.UUID, tutorID int) error {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		return fmt.Errorf("get quiz: %w", err)
	}

	if tutorID != 0 && quiz.TutorID != tutorID {
		return ErrNotQuizOwner
	}
	if quiz.Status != model.QuizStatusPublished {
		return ErrQuizNotPublished
	}

	if err := s.quizRepo.UpdateStatus(ctx, quizID, model.QuizStatusArchived); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	id := quizID.String()
	if err := s.rdb.Del(ctx,
		config.CacheKey.QuizPayloadKey(id),
		config.CacheKey.QuizAnswerKey(id),
		config.CacheKey.QuizMarksKey(id),
	).Err(); err != nil {
		s.log.Warn().Err(err).Str("quiz_id", id).Msg("Failed to evict quiz cache")
	}

	s.log.Info().Str("quiz_id", id).Msg("Quiz archived")
	return nil
}

// WarmQuizCache loads a quiz's payload, answer key, and marks from PostgreSQL
// into Redis. Core cache-warming logic shared by Publish and PrewarmAllCaches.
func (s *QuizService) WarmQuizCache(ctx context.Context, quiz *model.Quiz) error {
	questions, err := s.questionRepo.ListByQuiz(ctx, quiz.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	// Build student-facing payload (without correct answers).
	studentQuestions := make([]model.QuestionForStudent, len(questions))
	for i, q := range questions {
		studentQuestions[i] = model.QuestionForStudent{
			ID:       q.ID,
			Prompt:   q.Prompt,
			Options:  q.Options,
			Marks:    q.Marks,
			ImageURL: q.ImageURL,
			OrderNum: q.OrderNum,
		}
	}

	payload := model.QuizPayload{
		QuizID:           quiz.ID,
		Title:            quiz.Title,
		TimeLimitMinutes: quiz.TimeLimitMinutes,
		DueAt:            quiz.DueAt,
		Questions:        studentQuestions,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	// Build answer key and marks maps for RAM grading.
	answerKey := make(map[string]interface{}, len(questions))
	marks := make(map[string]interface{}, len(questions))
	for _, q := range questions {
		answerKey[q.ID.String()] = q.CorrectOption
		marks[q.ID.String()] = q.Marks
	}

	id := quiz.ID.String()

	// Cache all three atomically via pipeline.
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.QuizPayloadKey(id), payloadJSON, 0)
	pipe.Del(ctx, config.CacheKey.QuizAnswerKey(id))
	pipe.HSet(ctx, config.CacheKey.QuizAnswerKey(id), answerKey)
	pipe.Del(ctx, config.CacheKey.QuizMarksKey(id))
	pipe.HSet(ctx, config.CacheKey.QuizMarksKey(id), marks)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("quiz_id", id).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all published quizzes into Redis on application
// startup, so exam clients never lazy-load from PostgreSQL under load.
func (s *QuizService) PrewarmAllCaches(ctx context.Context) error {
	quizzes, err := s.quizRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published quizzes: %w", err)
	}

	if len(quizzes) == 0 {
		s.log.Info().Msg("No published quizzes to prewarm")
		return nil
	}

	s.log.Info().Int("count", len(quizzes)).Msg("Prewarming published quizzes...")

	warmed := 0
	for i := range quizzes {
		if err := s.WarmQuizCache(ctx, &quizzes[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("quiz_id", quizzes[i].ID.String()).
				Msg("Failed to warm quiz, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(quizzes)).
		Msg("Prewarming complete")
	return nil
}

// GetQuizPayload retrieves the cached student payload from Redis.
func (s *QuizService) GetQuizPayload(ctx context.Context, quizID uuid.UUID) (*model.QuizPayload, error) {
	key := config.CacheKey.QuizPayloadKey(quizID.String())
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.New("quiz not published or payload not cached")
		}
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.QuizPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

// GetAnswerKey retrieves the answer key from Redis for instant grading.
func (s *QuizService) GetAnswerKey(ctx context.Context, quizID uuid.UUID) (map[string]string, error) {
	key := config.CacheKey.QuizAnswerKey(quizID.String())
	result, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}
	if len(result) == 0 {
		return nil, errors.New("answer key not found in cache")
	}
	return result, nil
}

// GetMarks retrieves the per-question marks hash from Redis.
func (s *QuizService) GetMarks(ctx context.Context, quizID uuid.UUID) (map[string]string, error) {
	key := config.CacheKey.QuizMarksKey(quizID.String())
	result, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("get marks: %w", err)
	}
	if len(result) == 0 {
		return nil, errors.New("marks not found in cache")
	}
	return result, nil
}

// AttemptMeta loads the attempt-facing metadata for a published quiz.
func (s *QuizService) AttemptMeta(ctx context.Context, quizID uuid.UUID) (attempt.QuizMeta, error) {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attempt.QuizMeta{}, attempt.ErrQuizNotFound
		}
		return attempt.QuizMeta{}, err
	}
	if quiz.Status != model.QuizStatusPublished {
		return attempt.QuizMeta{}, attempt.ErrQuizNotFound
	}
	return attempt.QuizMeta{
		QuizID:           quiz.ID,
		Title:            quiz.Title,
		TimeLimitMinutes: quiz.TimeLimitMinutes,
		DueAt:            quiz.DueAt,
		PINRequired:      quiz.PINRequired,
	}, nil
}

// Questions serves a published quiz's question set to an exam client after
// verifying the PIN. Implements the attempt package's QuestionSource.
func (s *QuizService) Questions(ctx context.Context, quizID uuid.UUID, pin string) ([]model.QuestionForStudent, error) {
	quiz, err := s.quizRepo.GetByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, attempt.ErrQuizNotFound
		}
		return nil, fmt.Errorf("%w: %v", attempt.ErrQuizLoadFailed, err)
	}
	if quiz.Status != model.QuizStatusPublished || time.Now().After(quiz.DueAt) {
		return nil, attempt.ErrQuizNotFound
	}
	if quiz.PINRequired && subtle.ConstantTimeCompare([]byte(quiz.PIN), []byte(pin)) != 1 {
		return nil, attempt.ErrInvalidPIN
	}

	payload, err := s.GetQuizPayload(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", attempt.ErrQuizLoadFailed, err)
	}
	return payload.Questions, nil
}

func containsOption(options []string, correct string) bool {
	for _, o := range options {
		if o == correct {
			return true
		}
	}
	return false
}
