// Package handler exposes the HTTP API: lecture ingestion, question
// generation, adaptive test sessions, proctoring events, and analytics.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edforge/lectern/internal/analytics"
	"github.com/edforge/lectern/internal/engine"
	"github.com/edforge/lectern/internal/genai"
	"github.com/edforge/lectern/internal/model"
	"github.com/edforge/lectern/internal/proctor"
	"github.com/edforge/lectern/internal/store"
	"github.com/edforge/lectern/internal/transcribe"
)

// maxUploadBytes caps lecture media uploads at 100 MB.
const maxUploadBytes = 100 << 20

// Config holds runtime parameters set via CLI flags.
type Config struct {
	NumQuestions   int
	MCQRatio       float64
	FillBlankRatio float64
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store      *store.Store
	engine     *engine.Engine
	generator  *genai.Client
	transcribe *transcribe.Client
	monitor    *proctor.Monitor
	analytics  *analytics.Recorder
	config     Config
}

// New creates a new Handler.
func New(s *store.Store, e *engine.Engine, g *genai.Client, t *transcribe.Client, m *proctor.Monitor, a *analytics.Recorder, cfg Config) *Handler {
	return &Handler{
		store:      s,
		engine:     e,
		generator:  g,
		transcribe: t,
		monitor:    m,
		analytics:  a,
		config:     cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/lectures", func(r chi.Router) {
		r.Get("/", h.handleListLectures)
		r.Post("/from-text", h.handleLectureFromText)
		r.Post("/from-audio", h.handleLectureFromAudio)
		r.Get("/{lectureID}", h.handleLectureDetail)
		r.Post("/{lectureID}/generate-questions", h.handleGenerateQuestions)
		r.Post("/{lectureID}/start-session", h.handleStartSession)
	})

	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleSessionDetail)
		r.Post("/answer", h.handleSubmitAnswer)
		r.Post("/proctor-events", h.handleProctorEvent)
		r.Get("/proctor-report", h.handleProctorReport)
	})

	r.Route("/analytics", func(r chi.Router) {
		r.Get("/class", h.handleClassAnalytics)
		r.Get("/students/{learnerID}", h.handleStudentAnalytics)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type lectureCreateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type lectureCreateResponse struct {
	LectureID  string           `json:"lecture_id"`
	Title      string           `json:"title"`
	SourceType model.SourceType `json:"source_type"`
	Transcript string           `json:"transcript,omitempty"`
}

func (h *Handler) handleLectureFromText(w http.ResponseWriter, r *http.Request) {
	var req lectureCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Content == "" {
		respondError(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.Title == "" {
		req.Title = "Untitled Lecture"
	}

	summary := h.summarize(r, req.Content)
	lec := model.NewLecture(req.Title, model.SourceText, req.Content, summary)
	if err := h.store.InsertLecture(lec); err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, lectureCreateResponse{
		LectureID:  lec.ID,
		Title:      lec.Title,
		SourceType: lec.SourceType,
	})
}

func (h *Handler) handleLectureFromAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file upload is required")
		return
	}
	defer file.Close()

	title := r.FormValue("title")
	if title == "" {
		title = "Untitled Lecture"
	}

	transcript, err := h.transcribe.Transcribe(r.Context(), header.Filename, file)
	if err != nil {
		slog.Error("transcription failed", "filename", header.Filename, "error", err)
		respondError(w, http.StatusBadGateway, "transcription failed")
		return
	}

	summary := h.summarize(r, transcript)
	lec := model.NewLecture(title, model.SourceAudio, transcript, summary)
	if err := h.store.InsertLecture(lec); err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, lectureCreateResponse{
		LectureID:  lec.ID,
		Title:      lec.Title,
		SourceType: lec.SourceType,
		Transcript: transcript,
	})
}

// summarize is best-effort: a summarization failure never blocks lecture
// creation.
func (h *Handler) summarize(r *http.Request, text string) string {
	if h.generator == nil {
		return ""
	}
	summary, err := h.generator.Summarize(r.Context(), text)
	if err != nil {
		slog.Warn("summarization failed", "error", err)
		return ""
	}
	return summary
}

func (h *Handler) handleListLectures(w http.ResponseWriter, r *http.Request) {
	lectures, err := h.store.ListLectures()
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if lectures == nil {
		lectures = []store.LectureSummary{}
	}
	respondJSON(w, http.StatusOK, lectures)
}

func (h *Handler) handleLectureDetail(w http.ResponseWriter, r *http.Request) {
	lec, err := h.store.Lecture(chi.URLParam(r, "lectureID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lec)
}

type generateQuestionsRequest struct {
	NumQuestions   int     `json:"num_questions"`
	MCQRatio       float64 `json:"mcq_ratio"`
	FillBlankRatio float64 `json:"fill_blank_ratio"`
}

type generateQuestionsResponse struct {
	LectureID      string           `json:"lecture_id"`
	TotalQuestions int              `json:"total_questions"`
	Questions      []model.Question `json:"questions"`
}

func (h *Handler) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	lectureID := chi.URLParam(r, "lectureID")
	lec, err := h.store.Lecture(lectureID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	req := generateQuestionsRequest{
		NumQuestions:   h.config.NumQuestions,
		MCQRatio:       h.config.MCQRatio,
		FillBlankRatio: h.config.FillBlankRatio,
	}
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}
	if req.NumQuestions <= 0 {
		respondError(w, http.StatusBadRequest, "num_questions must be positive")
		return
	}

	mix := genai.MixFromRatios(req.NumQuestions, req.MCQRatio, req.FillBlankRatio)
	questions, err := h.generator.GenerateQuestions(r.Context(), lec.RawText, mix)
	if err != nil {
		slog.Error("question generation failed", "lecture_id", lectureID, "error", err)
		respondError(w, http.StatusBadGateway, "question generation failed")
		return
	}
	if err := h.store.SetQuestions(lectureID, questions); err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, generateQuestionsResponse{
		LectureID:      lectureID,
		TotalQuestions: len(questions),
		Questions:      questions,
	})
}

type startSessionRequest struct {
	LearnerID string `json:"learner_id"`
}

type startSessionResponse struct {
	SessionID      string         `json:"session_id"`
	LectureID      string         `json:"lecture_id"`
	LearnerID      string         `json:"learner_id,omitempty"`
	TotalQuestions int            `json:"total_questions"`
	FirstQuestion  PublicQuestion `json:"first_question"`
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	lectureID := chi.URLParam(r, "lectureID")

	var req startSessionRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.engine.StartSession(lectureID, req.LearnerID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	h.monitor.StartSession(result.Session.ID)

	respondJSON(w, http.StatusCreated, startSessionResponse{
		SessionID:      result.Session.ID,
		LectureID:      lectureID,
		LearnerID:      req.LearnerID,
		TotalQuestions: result.TotalQuestions,
		FirstQuestion:  publicQuestion(result.FirstQuestion),
	})
}

type submitAnswerRequest struct {
	QuestionID   string  `json:"question_id"`
	Answer       string  `json:"answer,omitempty"`
	OptionIndex  *int    `json:"selected_option_index,omitempty"`
	TimeSpentSec float64 `json:"time_spent_sec,omitempty"`
}

type submitAnswerResponse struct {
	Correct           bool             `json:"correct"`
	CorrectAnswer     string           `json:"correct_answer"`
	Explanation       string           `json:"explanation,omitempty"`
	Score             float64          `json:"score"`
	Finished          bool             `json:"finished"`
	CurrentDifficulty model.Difficulty `json:"current_difficulty"`
	NextQuestion      *PublicQuestion  `json:"next_question,omitempty"`
}

func (h *Handler) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req submitAnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.QuestionID == "" {
		respondError(w, http.StatusBadRequest, "question_id is required")
		return
	}

	result, err := h.engine.SubmitAnswer(sessionID, req.QuestionID, engine.Submission{
		Text:         req.Answer,
		OptionIndex:  req.OptionIndex,
		TimeSpentSec: req.TimeSpentSec,
	})
	if err != nil {
		respondEngineError(w, err)
		return
	}

	resp := submitAnswerResponse{
		Correct:           result.Correct,
		CorrectAnswer:     result.CorrectAnswer,
		Explanation:       result.Explanation,
		Score:             result.Score,
		Finished:          result.Finished,
		CurrentDifficulty: result.Difficulty,
	}
	if result.NextQuestion != nil {
		pq := publicQuestion(*result.NextQuestion)
		resp.NextQuestion = &pq
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	sess, err := h.engine.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleProctorEvent(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var ev proctor.Event
	if !decodeJSON(w, r, &ev) {
		return
	}

	risk, err := h.monitor.LogEvent(sessionID, ev)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Mirror the event onto the session so the record survives with it.
	// Proctoring may also report after completion.
	err = h.engine.AttachProctorFlags(sessionID, []model.ProctorFlag{{
		EventType:  ev.Type,
		Confidence: ev.Confidence,
		Details:    ev.Details,
		OccurredAt: ev.OccurredAt,
	}})
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "event_logged",
		"risk_level": risk,
	})
}

func (h *Handler) handleProctorReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.monitor.SessionReport(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) handleStudentAnalytics(w http.ResponseWriter, r *http.Request) {
	learnerID := chi.URLParam(r, "learnerID")
	respondJSON(w, http.StatusOK, map[string]any{
		"report":          h.analytics.Student(learnerID),
		"recommendations": h.analytics.Recommendations(learnerID),
	})
}

func (h *Handler) handleClassAnalytics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.analytics.Class())
}

// PublicQuestion is a question as shown to a learner while answering:
// option correctness flags, the canonical answer, and the explanation are
// withheld until after grading.
type PublicQuestion struct {
	ID         string             `json:"id"`
	Type       model.QuestionType `json:"type"`
	Prompt     string             `json:"prompt"`
	Options    []string           `json:"options,omitempty"`
	Topic      string             `json:"topic,omitempty"`
	Difficulty model.Difficulty   `json:"difficulty,omitempty"`
}

func publicQuestion(q model.Question) PublicQuestion {
	pq := PublicQuestion{
		ID:         q.ID,
		Type:       q.Type,
		Prompt:     q.Prompt,
		Topic:      q.Topic,
		Difficulty: q.Difficulty,
	}
	for _, opt := range q.Options {
		pq.Options = append(pq.Options, opt.Text)
	}
	return pq
}

func respondStoreError(w http.ResponseWriter, err error) {
	respondEngineError(w, err)
}
