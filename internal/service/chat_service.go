package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"knowledge-chat-be/internal/constant"
	"knowledge-chat-be/internal/dto"
	"knowledge-chat-be/internal/pkg/logger"
	"knowledge-chat-be/internal/repository/contract"
	"knowledge-chat-be/pkg/events"
	"knowledge-chat-be/pkg/history"
	"knowledge-chat-be/pkg/llm"
	"knowledge-chat-be/pkg/rehydrate"
)

var (
	ErrSessionNotFound     = errors.New("chat session not found")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrNoFiles             = errors.New("no files were uploaded")
)

var uploadMIMETypes = map[string]string{
	".pdf": "application/pdf",
	".txt": "text/plain",
}

type IChatService interface {
	CreateSession(ctx context.Context, convID int64) (*dto.CreateChatResponse, error)
	DeleteSession(ctx context.Context, convID int64) error
	ProcessPrompt(ctx context.Context, convID int64, prompt string, entries []history.Entry) (string, error)
	ProcessFilesAndPrompt(ctx context.Context, convID int64, files []dto.UploadedFile, prompt string, entries []history.Entry) (string, error)
	DefineChatName(ctx context.Context, convID int64) string
	GetEvents(ctx context.Context, convID int64, eventType string, limit int) ([]*dto.ChatEventResponse, error)
	ActiveSessions() int
}

// SessionCounter reports how many sessions are resident.
type SessionCounter interface {
	Count() int
}

// ClusterBroadcaster tells peer instances about local session changes.
type ClusterBroadcaster interface {
	SessionDeleted(ctx context.Context, convID int64)
}

type ChatServiceConfig struct {
	TranscriptInstruction string
	TitleLanguage         string
	TempDir               string
}

type chatService struct {
	rehydrator *rehydrate.Rehydrator
	sessions   SessionCounter
	chat       llm.ChatClient
	files      llm.FileStore
	publisher  *events.ChatPublisher
	cluster    ClusterBroadcaster
	eventRepo  contract.ChatEventRepository
	logger     logger.ILogger
	cfg        ChatServiceConfig
}

func NewChatService(
	rehydrator *rehydrate.Rehydrator,
	sessions SessionCounter,
	chat llm.ChatClient,
	files llm.FileStore,
	publisher *events.ChatPublisher,
	cluster ClusterBroadcaster,
	eventRepo contract.ChatEventRepository,
	log logger.ILogger,
	cfg ChatServiceConfig,
) IChatService {
	return &chatService{
		rehydrator: rehydrator,
		sessions:   sessions,
		chat:       chat,
		files:      files,
		publisher:  publisher,
		cluster:    cluster,
		eventRepo:  eventRepo,
		logger:     log,
		cfg:        cfg,
	}
}

func (s *chatService) CreateSession(ctx context.Context, convID int64) (*dto.CreateChatResponse, error) {
	_, created, err := s.rehydrator.Obtain(ctx, convID, nil)
	if err != nil {
		return nil, err
	}
	s.publisher.PublishSessionCreated(ctx, convID, created)
	return &dto.CreateChatResponse{ConvId: convID, Created: created}, nil
}

// DeleteSession drops the local session and asks peers to drop theirs.
// ErrSessionNotFound only describes this instance.
func (s *chatService) DeleteSession(ctx context.Context, convID int64) error {
	if s.cluster != nil {
		s.cluster.SessionDeleted(ctx, convID)
	}
	if !s.rehydrator.Forget(convID) {
		return ErrSessionNotFound
	}

	s.logger.Info("ChatService", "Chat session deleted", map[string]interface{}{"conv_id": convID})
	s.publisher.PublishSessionDeleted(ctx, convID)
	return nil
}

func (s *chatService) ProcessPrompt(ctx context.Context, convID int64, prompt string, entries []history.Entry) (string, error) {
	session, _, err := s.rehydrator.Obtain(ctx, convID, entries)
	if err != nil {
		return "", err
	}

	reply, err := session.Send(ctx, []llm.Part{llm.TextPart(prompt)})
	if err != nil {
		s.logger.Error("ChatService", "Error processing prompt", map[string]interface{}{
			"conv_id": convID,
			"error":   err.Error(),
		})
		return "", err
	}
	return reply, nil
}

func (s *chatService) ProcessFilesAndPrompt(ctx context.Context, convID int64, files []dto.UploadedFile, prompt string, entries []history.Entry) (string, error) {
	transcript := false
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Filename))
		if _, ok := uploadMIMETypes[ext]; !ok {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, ext)
		}
		if strings.Contains(strings.ToLower(f.Filename), constant.TranscriptFileMarker) {
			transcript = true
		}
	}

	session, _, err := s.rehydrator.Obtain(ctx, convID, entries)
	if err != nil {
		return "", err
	}

	parts, err := s.uploadFiles(ctx, files)
	if err != nil {
		return "", err
	}
	if len(parts) == 0 {
		return "", ErrNoFiles
	}

	if _, err := session.Send(ctx, parts); err != nil {
		return "", fmt.Errorf("send files: %w", err)
	}

	var opts []llm.Option
	if transcript {
		s.logger.Info("ChatService", "Transcript file detected, using transcript instruction", map[string]interface{}{"conv_id": convID})
		opts = append(opts, llm.WithSystemInstruction(s.cfg.TranscriptInstruction))
	}
	return session.Send(ctx, []llm.Part{llm.TextPart(prompt)}, opts...)
}

// uploadFiles skips empty files; any upload failure aborts.
func (s *chatService) uploadFiles(ctx context.Context, files []dto.UploadedFile) ([]llm.Part, error) {
	if s.files == nil {
		return nil, llm.ErrFilesUnsupported
	}

	dir, err := os.MkdirTemp(s.cfg.TempDir, "chat-upload-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	parts := make([]llm.Part, 0, len(files))
	for _, f := range files {
		if len(f.Content) == 0 {
			s.logger.Warn("ChatService", "Skipping empty file", map[string]interface{}{"filename": f.Filename})
			continue
		}

		path := filepath.Join(dir, stagedFilename(f.Filename))
		if err := os.WriteFile(path, f.Content, 0o600); err != nil {
			return nil, fmt.Errorf("save %s: %w", f.Filename, err)
		}

		mimeType := uploadMIMETypes[strings.ToLower(filepath.Ext(f.Filename))]
		ref, err := s.files.Upload(ctx, path, mimeType, f.Filename)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", f.Filename, err)
		}
		parts = append(parts, llm.FilePart(ref.URI, ref.MIMEType))
	}
	return parts, nil
}

// DefineChatName never fails; every problem yields the default name.
func (s *chatService) DefineChatName(ctx context.Context, convID int64) string {
	session, found := s.rehydrator.Peek(convID)
	if !found {
		s.logger.Warn("ChatService", "Chat session not found for naming", map[string]interface{}{"conv_id": convID})
		return constant.DefaultChatName
	}

	transcript := titleTranscript(session.History())
	if transcript == "" {
		s.logger.Info("ChatService", "No user conversation to name", map[string]interface{}{"conv_id": convID})
		return constant.DefaultChatName
	}

	prompt := fmt.Sprintf(constant.TitlePromptTemplate, s.cfg.TitleLanguage, constant.TitleMaxWords, transcript)
	reply, err := s.chat.Generate(ctx, prompt, llm.WithTemperature(0.2))
	if err != nil {
		s.logger.Error("ChatService", "Error generating chat name", map[string]interface{}{
			"conv_id": convID,
			"error":   err.Error(),
		})
		return constant.DefaultChatName
	}

	name := cleanTitle(reply)
	if name == "" {
		return constant.DefaultChatName
	}
	s.publisher.PublishSessionTitled(ctx, convID, name)
	return name
}

// titleTranscript renders up to TitleWindowTurns turns starting at the first
// user turn that carries text.
func titleTranscript(turns []llm.Turn) string {
	start := -1
	for i, t := range turns {
		if t.Role == llm.RoleUser && t.Text() != "" {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}

	end := min(start+constant.TitleWindowTurns, len(turns))
	lines := make([]string, 0, end-start)
	for _, t := range turns[start:end] {
		text := t.Text()
		if text == "" {
			continue
		}
		label := constant.TitleAssistantLabel
		if t.Role == llm.RoleUser {
			label = constant.TitleUserLabel
		}
		lines = append(lines, label+": "+text)
	}
	return strings.Join(lines, "\n")
}

func cleanTitle(reply string) string {
	return strings.Trim(strings.TrimSpace(reply), `"'`)
}

func (s *chatService) GetEvents(ctx context.Context, convID int64, eventType string, limit int) ([]*dto.ChatEventResponse, error) {
	if s.eventRepo == nil {
		return []*dto.ChatEventResponse{}, nil
	}
	items, err := s.eventRepo.ListByConversation(ctx, convID, eventType, limit)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ChatEventResponse, len(items))
	for i, e := range items {
		res[i] = &dto.ChatEventResponse{
			Type:       e.Type,
			Instance:   e.Instance,
			Payload:    e.Payload,
			OccurredAt: e.OccurredAt,
		}
	}
	return res, nil
}

func (s *chatService) ActiveSessions() int {
	return s.sessions.Count()
}
