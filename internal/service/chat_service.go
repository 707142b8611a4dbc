package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studydesk/backend/config"
	"studydesk/backend/internal/ddl"
	"studydesk/backend/internal/dto"
)

// ── 智能助手业务错误 ──

var (
	ErrChatSessionNotFound     = errors.New("会话不存在或已过期")
	ErrChatNoDocument          = errors.New("请先上传资料再提问")
	ErrChatUnsupportedDocument = errors.New("仅支持 UTF-8 纯文本资料")
	ErrChatDocumentTooLarge    = errors.New("资料超过大小上限")
	ErrChatUnavailable         = errors.New("智能助手未启用")
	ErrChatCompletionFailed    = errors.New("大模型调用失败，请稍后再试")
)

const (
	defaultSystemPrompt = "你是一个由北京大学团队开发的智能助手，名叫 PKU Intelligence。"
	defaultMaxHistory   = 40
	defaultChatTTL      = 24 * time.Hour
	defaultMaxDocument  = 512 << 10

	chatKeyPrefix = "chat:"
	askTemplate   = "请根据以下内容回答问题：\n%s\n问题：%s"
)

// ChatStore 会话状态的字节级存取，key 已包含用户维度
type ChatStore interface {
	LoadChat(ctx context.Context, key string) ([]byte, bool, error)
	SaveChat(ctx context.Context, key string, data []byte, ttl time.Duration) error
	DeleteChat(ctx context.Context, key string) error
}

// ChatService 智能助手业务接口
type ChatService interface {
	// Chat 多轮对话，SessionID 为空时创建新会话
	Chat(ctx context.Context, userID string, req *dto.ChatRequest) (*dto.ChatResponse, error)
	// AttachDocument 为会话附加一份文本资料，覆盖之前的资料
	AttachDocument(ctx context.Context, userID, sessionID, filename string, r io.Reader) (*dto.ChatDocumentResponse, error)
	// Ask 基于已上传资料回答问题
	Ask(ctx context.Context, userID string, req *dto.ChatRequest) (*dto.ChatResponse, error)
	History(ctx context.Context, userID, sessionID string) (*dto.ChatHistoryResponse, error)
	Reset(ctx context.Context, userID, sessionID string) error
}

// chatState 持久化的会话内容
type chatState struct {
	Messages     []ddl.ChatMessage `json:"messages"` // 首条为系统提示
	DocumentName string            `json:"document_name,omitempty"`
	Document     string            `json:"document,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type chatService struct {
	llm          ddl.ChatCompleter // 可为 nil
	store        ChatStore
	systemPrompt string
	model        string
	temperature  float64
	maxTokens    int
	maxHistory   int
	ttl          time.Duration
	maxDocument  int64

	mu    sync.Mutex
	locks map[string]*sessionLock

	logger *zap.Logger
}

// NewChatService 创建 ChatService 实例，store 为 nil 时使用进程内存储
func NewChatService(cfg *config.Config, llm ddl.ChatCompleter, store ChatStore, logger *zap.Logger) ChatService {
	c := cfg.Chat
	s := &chatService{
		llm:          llm,
		store:        store,
		systemPrompt: c.SystemPrompt,
		model:        c.Model,
		temperature:  c.Temperature,
		maxTokens:    cfg.LLM.MaxTokens,
		maxHistory:   c.MaxHistory,
		ttl:          c.SessionTTL,
		maxDocument:  c.MaxDocumentSize,
		locks:        make(map[string]*sessionLock),
		logger:       logger,
	}
	if s.store == nil {
		s.store = newMemoryChatStore()
	}
	if s.systemPrompt == "" {
		s.systemPrompt = defaultSystemPrompt
	}
	if s.model == "" {
		s.model = cfg.LLM.Model
	}
	if s.maxHistory <= 0 {
		s.maxHistory = defaultMaxHistory
	}
	if s.ttl <= 0 {
		s.ttl = defaultChatTTL
	}
	if s.maxDocument <= 0 {
		s.maxDocument = defaultMaxDocument
	}
	return s
}

// ────── Chat ──────

func (s *chatService) Chat(ctx context.Context, userID string, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	if s.llm == nil {
		return nil, ErrChatUnavailable
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	unlock := s.lockSession(userID, sessionID)
	defer unlock()

	state, found, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !found {
		state = s.newState()
	}

	reply, err := s.complete(ctx, state.Messages, req.Message)
	if err != nil {
		return nil, err
	}
	s.appendTurn(state, req.Message, reply)
	if err := s.save(ctx, userID, sessionID, state); err != nil {
		return nil, err
	}
	return &dto.ChatResponse{Reply: reply, SessionID: sessionID}, nil
}

// ────── 资料问答 ──────

func (s *chatService) AttachDocument(ctx context.Context, userID, sessionID, filename string, r io.Reader) (*dto.ChatDocumentResponse, error) {
	raw, err := io.ReadAll(io.LimitReader(r, s.maxDocument+1))
	if err != nil {
		return nil, fmt.Errorf("读取资料失败: %w", err)
	}
	if int64(len(raw)) > s.maxDocument {
		return nil, ErrChatDocumentTooLarge
	}
	text, err := documentText(raw)
	if err != nil {
		return nil, err
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	unlock := s.lockSession(userID, sessionID)
	defer unlock()

	state, found, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !found {
		state = s.newState()
	}
	state.DocumentName = filename
	state.Document = text
	state.UpdatedAt = time.Now()
	if err := s.save(ctx, userID, sessionID, state); err != nil {
		return nil, err
	}

	s.logger.Info("智能助手资料已上传",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID),
		zap.Int("chars", utf8.RuneCountInString(text)),
	)
	return &dto.ChatDocumentResponse{
		SessionID: sessionID,
		Filename:  filename,
		Chars:     utf8.RuneCountInString(text),
	}, nil
}

func (s *chatService) Ask(ctx context.Context, userID string, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	if s.llm == nil {
		return nil, ErrChatUnavailable
	}
	if req.SessionID == "" {
		return nil, ErrChatSessionNotFound
	}
	unlock := s.lockSession(userID, req.SessionID)
	defer unlock()

	state, found, err := s.load(ctx, userID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrChatSessionNotFound
	}
	if state.Document == "" {
		return nil, ErrChatNoDocument
	}

	// 资料只拼进本次请求，历史里只记问题本身
	reply, err := s.complete(ctx, state.Messages, fmt.Sprintf(askTemplate, state.Document, req.Message))
	if err != nil {
		return nil, err
	}
	s.appendTurn(state, req.Message, reply)
	if err := s.save(ctx, userID, req.SessionID, state); err != nil {
		return nil, err
	}
	return &dto.ChatResponse{Reply: reply, SessionID: req.SessionID}, nil
}

// ────── 会话管理 ──────

func (s *chatService) History(ctx context.Context, userID, sessionID string) (*dto.ChatHistoryResponse, error) {
	state, found, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrChatSessionNotFound
	}

	messages := make([]dto.ChatMessageResponse, 0, len(state.Messages))
	for _, m := range state.Messages {
		if m.Role == "system" {
			continue
		}
		messages = append(messages, dto.ChatMessageResponse{Role: m.Role, Content: m.Content})
	}
	return &dto.ChatHistoryResponse{
		SessionID: sessionID,
		Document:  state.DocumentName,
		Messages:  messages,
		UpdatedAt: state.UpdatedAt,
	}, nil
}

func (s *chatService) Reset(ctx context.Context, userID, sessionID string) error {
	unlock := s.lockSession(userID, sessionID)
	defer unlock()

	_, found, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if !found {
		return ErrChatSessionNotFound
	}
	return s.store.DeleteChat(ctx, chatKey(userID, sessionID))
}

// ────── 内部方法 ──────

func (s *chatService) newState() *chatState {
	return &chatState{Messages: []ddl.ChatMessage{{Role: "system", Content: s.systemPrompt}}}
}

// complete 以 history + 本轮用户消息调用大模型，不修改 history
func (s *chatService) complete(ctx context.Context, history []ddl.ChatMessage, content string) (string, error) {
	messages := make([]ddl.ChatMessage, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, ddl.ChatMessage{Role: "user", Content: content})

	reply, err := s.llm.Complete(ctx, ddl.ChatRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		s.logger.Warn("智能助手调用大模型失败", zap.Error(err))
		return "", ErrChatCompletionFailed
	}
	return reply, nil
}

// appendTurn 追加一问一答，超出上限时丢弃最早的对话，保留系统提示
func (s *chatService) appendTurn(state *chatState, question, reply string) {
	state.Messages = append(state.Messages,
		ddl.ChatMessage{Role: "user", Content: question},
		ddl.ChatMessage{Role: "assistant", Content: reply},
	)
	if extra := len(state.Messages) - 1 - s.maxHistory; extra > 0 {
		state.Messages = append(state.Messages[:1], state.Messages[1+extra:]...)
	}
	state.UpdatedAt = time.Now()
}

func (s *chatService) load(ctx context.Context, userID, sessionID string) (*chatState, bool, error) {
	raw, found, err := s.store.LoadChat(ctx, chatKey(userID, sessionID))
	if err != nil {
		return nil, false, fmt.Errorf("读取会话失败: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	var state chatState
	if err := json.Unmarshal(raw, &state); err != nil || len(state.Messages) == 0 {
		// 无法解析的会话视为不存在
		s.logger.Warn("会话内容损坏", zap.String("session_id", sessionID), zap.Error(err))
		return nil, false, nil
	}
	return &state, true, nil
}

func (s *chatService) save(ctx context.Context, userID, sessionID string, state *chatState) error {
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now()
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.store.SaveChat(ctx, chatKey(userID, sessionID), raw, s.ttl); err != nil {
		return fmt.Errorf("保存会话失败: %w", err)
	}
	return nil
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// lockSession 串行化同一会话的读改写，无人等待时回收锁
func (s *chatService) lockSession(userID, sessionID string) func() {
	key := chatKey(userID, sessionID)
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sessionLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

func chatKey(userID, sessionID string) string {
	return chatKeyPrefix + userID + ":" + sessionID
}

// documentText 只接受 UTF-8 文本，PDF 等二进制格式返回 ErrChatUnsupportedDocument
func documentText(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", ErrChatUnsupportedDocument
	}
	if !strings.HasPrefix(http.DetectContentType(raw), "text/") || !utf8.Valid(raw) {
		return "", ErrChatUnsupportedDocument
	}
	text := strings.TrimSpace(strings.TrimPrefix(string(raw), "\ufeff"))
	if text == "" {
		return "", ErrChatUnsupportedDocument
	}
	return text, nil
}

// ────── 进程内会话存储 ──────

type memoryChatEntry struct {
	data      []byte
	expiresAt time.Time
}

// memoryChatStore Redis 不可用时的会话存储，进程重启后丢失
type memoryChatStore struct {
	mu      sync.Mutex
	entries map[string]memoryChatEntry
	now     func() time.Time
}

func newMemoryChatStore() *memoryChatStore {
	return &memoryChatStore{entries: make(map[string]memoryChatEntry), now: time.Now}
}

func (m *memoryChatStore) LoadChat(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.data, true, nil
}

func (m *memoryChatStore) SaveChat(_ context.Context, key string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryChatEntry{data: data, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *memoryChatStore) DeleteChat(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
